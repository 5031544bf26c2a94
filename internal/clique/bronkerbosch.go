package clique

import "sort"

// MaximalCliques enumerates every maximal clique of the graph using
// Bron–Kerbosch with pivoting. Each clique is returned sorted and the list
// itself is ordered deterministically (by size descending, then
// lexicographically) so callers can index it reproducibly.
func MaximalCliques(g *Graph) [][]string {
	var cliques [][]string

	r := make(map[string]bool)
	p := make(map[string]bool)
	x := make(map[string]bool)
	for _, v := range g.Vertices() {
		p[v] = true
	}

	bronKerbosch(g, r, p, x, &cliques)

	for _, c := range cliques {
		sort.Strings(c)
	}
	sort.Slice(cliques, func(i, j int) bool {
		if len(cliques[i]) != len(cliques[j]) {
			return len(cliques[i]) > len(cliques[j])
		}
		return less(cliques[i], cliques[j])
	})
	return cliques
}

func bronKerbosch(g *Graph, r, p, x map[string]bool, out *[][]string) {
	if len(p) == 0 && len(x) == 0 {
		clique := make([]string, 0, len(r))
		for v := range r {
			clique = append(clique, v)
		}
		*out = append(*out, clique)
		return
	}

	pivot := choosePivot(g, p, x)
	pivotNeighbors := g.Neighbors(pivot)

	candidates := make([]string, 0, len(p))
	for v := range p {
		if !pivotNeighbors[v] {
			candidates = append(candidates, v)
		}
	}
	sort.Strings(candidates)

	for _, v := range candidates {
		neighbors := g.Neighbors(v)

		r[v] = true
		nextP := intersect(p, neighbors)
		nextX := intersect(x, neighbors)
		bronKerbosch(g, r, nextP, nextX, out)
		delete(r, v)

		delete(p, v)
		x[v] = true
	}
}

// choosePivot picks the vertex of P ∪ X with the most neighbors in P,
// shrinking the branching factor.
func choosePivot(g *Graph, p, x map[string]bool) string {
	best := ""
	bestCount := -1
	consider := func(v string) {
		count := 0
		for n := range g.Neighbors(v) {
			if p[n] {
				count++
			}
		}
		if count > bestCount || (count == bestCount && v < best) {
			best = v
			bestCount = count
		}
	}
	for v := range p {
		consider(v)
	}
	for v := range x {
		consider(v)
	}
	return best
}

func intersect(set map[string]bool, neighbors map[string]bool) map[string]bool {
	result := make(map[string]bool)
	for v := range set {
		if neighbors[v] {
			result[v] = true
		}
	}
	return result
}

func less(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
