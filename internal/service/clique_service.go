package service

import (
	"math"
	"math/rand"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/clique"
	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

// CliqueResult describes one run of the clique preprocessor.
type CliqueResult struct {
	Selected     []string
	MaxSize      int
	TotalCliques int
	ValidCliques int
	MinSize      int
	GraphNodes   int
	GraphEdges   int
}

// CliquePlacement is the greedy partial assignment of the selected clique.
type CliquePlacement struct {
	Placed   map[string]string
	Unplaced []string
}

// CliqueService finds a maximum clique in the aggregated conflict graph and
// turns it into a non-binding solution hint.
type CliqueService struct {
	logger *zap.Logger
}

// NewCliqueService wires the preprocessor.
func NewCliqueService(logger *zap.Logger) *CliqueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CliqueService{logger: logger}
}

// FindMaximumClique builds the conflict graph over the non-fixed subjects,
// enumerates maximal cliques and picks one maximum clique at random. Cliques
// meeting the min-size threshold max(⌈0.10·n⌉, 3) are counted in
// ValidCliques; the cliques themselves are not returned.
func (s *CliqueService) FindMaximumClique(
	subjects models.SubjectInfo,
	conflicts models.ConflictMap,
	fixed map[string][]string,
	rng *rand.Rand,
) CliqueResult {
	fixedSubjects := make(map[string]bool)
	for _, placed := range fixed {
		for _, subject := range placed {
			fixedSubjects[subject] = true
		}
	}

	g := clique.NewGraph()
	for name := range subjects {
		if !fixedSubjects[name] {
			g.AddVertex(name)
		}
	}
	for subject, others := range conflicts {
		for _, other := range others {
			g.AddEdge(subject, other)
		}
	}

	result := CliqueResult{
		GraphNodes: g.NumVertices(),
		GraphEdges: g.NumEdges(),
		MinSize:    minCliqueSize(len(subjects)),
	}
	if g.NumVertices() == 0 {
		return result
	}

	cliques := clique.MaximalCliques(g)
	result.TotalCliques = len(cliques)
	if len(cliques) == 0 {
		return result
	}

	result.MaxSize = len(cliques[0])
	var maximum [][]string
	for _, c := range cliques {
		if len(c) == result.MaxSize {
			maximum = append(maximum, c)
		}
		if len(c) >= result.MinSize {
			result.ValidCliques++
		}
	}

	result.Selected = maximum[rng.Intn(len(maximum))]
	s.logger.Debug("maximum clique selected",
		zap.Int("size", result.MaxSize),
		zap.Int("candidates", len(maximum)),
		zap.Int("total_cliques", result.TotalCliques))
	return result
}

// PlaceClique greedily packs the clique members into slots, preferring
// already-occupied slots so the timetable stays compact. A member without
// any candidate slot is reported as unplaced and the rest continue.
func (s *CliqueService) PlaceClique(
	cliqueSubjects []string,
	plan *SlotPlan,
	in ModelInputs,
	rng *rand.Rand,
) CliquePlacement {
	placement := CliquePlacement{Placed: make(map[string]string)}
	conflicts := in.Conflicts.Union()

	current := make(map[string][]string, len(in.Fixed))
	for slot, placed := range in.Fixed {
		normalized := NormalizeSlotID(slot)
		current[normalized] = append(current[normalized], placed...)
	}

	for _, subject := range cliqueSubjects {
		if _, ok := in.Subjects[subject]; !ok {
			s.logger.Warn("clique subject missing from subject table", zap.String("subject", subject))
			placement.Unplaced = append(placement.Unplaced, subject)
			continue
		}

		candidates := s.candidateSlots(subject, plan, in, conflicts, current)
		if len(candidates) == 0 {
			placement.Unplaced = append(placement.Unplaced, subject)
			continue
		}

		var occupied []string
		for _, slot := range candidates {
			if len(current[slot]) > 0 {
				occupied = append(occupied, slot)
			}
		}
		pool := candidates
		if len(occupied) > 0 {
			pool = occupied
		}

		chosen := pool[rng.Intn(len(pool))]
		current[chosen] = append(current[chosen], subject)
		placement.Placed[subject] = chosen
	}

	s.logger.Debug("clique placement finished",
		zap.Int("placed", len(placement.Placed)),
		zap.Int("unplaced", len(placement.Unplaced)))
	return placement
}

// candidateSlots filters the slot list for one clique member: duration,
// teacher blackouts, subject and teacher slot bans, conflicts with the
// current partial assignment and the per-student burden caps.
func (s *CliqueService) candidateSlots(
	subject string,
	plan *SlotPlan,
	in ModelInputs,
	conflicts models.ConflictMap,
	current map[string][]string,
) []string {
	info := in.Subjects[subject]

	banned := make(map[string]bool)
	for _, raw := range in.SubjectSlotBans[subject] {
		banned[NormalizeSlotID(raw)] = true
	}
	blackout := make(map[string]bool)
	for _, teacher := range info.Teachers {
		for _, slot := range in.TeacherBlackouts[teacher] {
			blackout[slot] = true
		}
		for _, raw := range in.TeacherSlotBans[teacher] {
			banned[NormalizeSlotID(raw)] = true
		}
	}

	var candidates []string
	for _, slot := range plan.Slots {
		if info.Duration != nil && *info.Duration > plan.Limit[slot] {
			continue
		}
		if blackout[slot] || banned[slot] {
			continue
		}
		if conflictsWithSlot(subject, current[slot], conflicts) {
			continue
		}
		if !s.burdenAllows(subject, slot, plan, in, current) {
			continue
		}
		candidates = append(candidates, slot)
	}
	return candidates
}

func conflictsWithSlot(subject string, existing []string, conflicts models.ConflictMap) bool {
	for _, other := range existing {
		if conflicts.Has(subject, other) || conflicts.Has(other, subject) {
			return true
		}
	}
	return false
}

// burdenAllows simulates placing the subject in the slot and checks every
// student's daily caps against the current partial assignment.
func (s *CliqueService) burdenAllows(
	subject, slot string,
	plan *SlotPlan,
	in ModelInputs,
	current map[string][]string,
) bool {
	if in.MaxExamsPerDay == nil && in.MaxHardExamsPerDay == nil {
		return true
	}
	day := plan.DayOf[slot]
	if day == "" {
		return true
	}

	today := make(map[string]bool)
	for _, daySlot := range plan.SlotsOfDay(day) {
		for _, placed := range current[daySlot] {
			today[placed] = true
		}
	}
	today[subject] = true

	for _, taken := range in.Roster {
		exams := 0
		hardExams := 0
		for _, name := range taken {
			if !today[name] {
				continue
			}
			exams++
			if in.Hard[name] {
				hardExams++
			}
		}
		if in.MaxExamsPerDay != nil && exams > *in.MaxExamsPerDay {
			return false
		}
		if in.MaxHardExamsPerDay != nil && hardExams > *in.MaxHardExamsPerDay {
			return false
		}
	}
	return true
}

// ApplyHints seeds the solver with the clique placement: 1 for every placed
// pair, 0 everywhere else. Hints never constrain the search.
func (s *CliqueService) ApplyHints(em *ExamModel, placed map[string]string) int {
	if len(placed) == 0 {
		return 0
	}
	hint := &cpmodel.Hint{Bools: make(map[cpmodel.BoolVar]bool)}
	count := 0
	for _, subject := range em.SubjectNames() {
		target, hasPlacement := placed[subject]
		for _, slot := range sortedKeys(em.Vars[subject]) {
			v := em.Vars[subject][slot]
			value := hasPlacement && slot == target
			hint.Bools[v] = value
			if value {
				count++
			}
		}
	}
	em.Builder.SetHint(hint)
	s.logger.Debug("solution hints applied",
		zap.Int("placements", count),
		zap.Int("total_hints", len(hint.Bools)))
	return count
}

func minCliqueSize(totalSubjects int) int {
	size := int(math.Ceil(0.10 * float64(totalSubjects)))
	if size < 3 {
		size = 3
	}
	return size
}
