package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

// ConflictSets are the three merged symmetric adjacency maps consumed by the
// model builder and the clique preprocessor.
type ConflictSets struct {
	Student   models.ConflictMap
	Listening models.ConflictMap
	Teacher   models.ConflictMap
}

// Union folds the three maps into one adjacency map.
func (c ConflictSets) Union() models.ConflictMap {
	union := newConflictBuilder(nil)
	for _, m := range []models.ConflictMap{c.Student, c.Listening, c.Teacher} {
		for subject, conflicts := range m {
			for _, other := range conflicts {
				union.add(subject, other)
			}
		}
	}
	return union.build()
}

// ConflictService merges derived conflict sets with operator edits.
type ConflictService struct {
	logger *zap.Logger
}

// NewConflictService wires the aggregator.
func NewConflictService(logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{logger: logger}
}

// Aggregate builds the student, listening and teacher conflict maps from the
// subject table, the roster and the operator edits. Subjects absent from the
// subject table are skipped with a warning.
func (s *ConflictService) Aggregate(
	subjects models.SubjectInfo,
	roster map[string][]string,
	edits models.ConflictEdits,
) ConflictSets {
	return ConflictSets{
		Student:   s.studentConflicts(subjects, roster, edits),
		Listening: s.listeningConflicts(subjects, edits),
		Teacher:   s.teacherConflicts(subjects, edits),
	}
}

// studentConflicts picks the base source by priority — individual overrides,
// then same-grade overrides, then co-enrollment — and applies removals and
// additions on top. The priority is a replacement, not an overlay.
func (s *ConflictService) studentConflicts(
	subjects models.SubjectInfo,
	roster map[string][]string,
	edits models.ConflictEdits,
) models.ConflictMap {
	builder := newConflictBuilder(func(subject string) bool {
		return s.knownSubject(subjects, subject, "student conflict")
	})

	switch {
	case len(edits.IndividualAdded) > 0:
		builder.addPairs(edits.IndividualAdded)
	case len(edits.SameGradeAdded) > 0:
		builder.addPairs(edits.SameGradeAdded)
	default:
		builder.addPairs(enrollmentConflicts(roster))
	}

	builder.removePairs(edits.StudentRemoved)
	builder.removePairs(edits.SameGradeRemoved)
	builder.addPairs(edits.StudentAdded)

	return builder.build()
}

// listeningConflicts pairs every two listening-test subjects, then applies
// operator additions.
func (s *ConflictService) listeningConflicts(
	subjects models.SubjectInfo,
	edits models.ConflictEdits,
) models.ConflictMap {
	builder := newConflictBuilder(func(subject string) bool {
		return s.knownSubject(subjects, subject, "listening conflict")
	})

	var listening []string
	for name, info := range subjects {
		if info.Listening {
			listening = append(listening, name)
		}
	}
	sort.Strings(listening)
	for i := 0; i < len(listening); i++ {
		for j := i + 1; j < len(listening); j++ {
			builder.add(listening[i], listening[j])
		}
	}

	builder.addPairs(edits.ListeningAdded)
	return builder.build()
}

// teacherConflicts pairs every two subjects whose teacher sets intersect,
// then applies removals and additions.
func (s *ConflictService) teacherConflicts(
	subjects models.SubjectInfo,
	edits models.ConflictEdits,
) models.ConflictMap {
	builder := newConflictBuilder(func(subject string) bool {
		return s.knownSubject(subjects, subject, "teacher conflict")
	})

	names := make([]string, 0, len(subjects))
	for name := range subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if teachersIntersect(subjects[names[i]].Teachers, subjects[names[j]].Teachers) {
				builder.add(names[i], names[j])
			}
		}
	}

	builder.removePairs(edits.TeacherRemoved)
	builder.addPairs(edits.TeacherAdded)
	return builder.build()
}

func (s *ConflictService) knownSubject(subjects models.SubjectInfo, subject, flavor string) bool {
	if _, ok := subjects[subject]; ok {
		return true
	}
	s.logger.Warn("skipping unknown subject",
		zap.String("subject", subject), zap.String("flavor", flavor))
	return false
}

// enrollmentConflicts derives the co-enrollment pair list from the roster:
// two subjects conflict when at least one student takes both.
func enrollmentConflicts(roster map[string][]string) []models.ConflictPair {
	seen := make(map[[2]string]bool)
	var pairs []models.ConflictPair
	students := make([]string, 0, len(roster))
	for student := range roster {
		students = append(students, student)
	}
	sort.Strings(students)
	for _, student := range students {
		taken := roster[student]
		for i := 0; i < len(taken); i++ {
			for j := i + 1; j < len(taken); j++ {
				a, b := taken[i], taken[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				key := [2]string{a, b}
				if seen[key] {
					continue
				}
				seen[key] = true
				pairs = append(pairs, models.ConflictPair{Subject1: a, Subject2: b})
			}
		}
	}
	return pairs
}

func teachersIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// conflictBuilder accumulates symmetric edges with an optional vertex filter
// and emits sorted adjacency lists.
type conflictBuilder struct {
	adjacency map[string]map[string]bool
	accepts   func(subject string) bool
}

func newConflictBuilder(accepts func(string) bool) *conflictBuilder {
	return &conflictBuilder{
		adjacency: make(map[string]map[string]bool),
		accepts:   accepts,
	}
}

func (b *conflictBuilder) add(a, c string) {
	if a == c {
		return
	}
	if b.accepts != nil && (!b.accepts(a) || !b.accepts(c)) {
		return
	}
	if b.adjacency[a] == nil {
		b.adjacency[a] = make(map[string]bool)
	}
	if b.adjacency[c] == nil {
		b.adjacency[c] = make(map[string]bool)
	}
	b.adjacency[a][c] = true
	b.adjacency[c][a] = true
}

func (b *conflictBuilder) addPairs(pairs []models.ConflictPair) {
	for _, p := range pairs {
		b.add(p.Subject1, p.Subject2)
	}
}

func (b *conflictBuilder) removePairs(pairs []models.ConflictPair) {
	for _, p := range pairs {
		delete(b.adjacency[p.Subject1], p.Subject2)
		delete(b.adjacency[p.Subject2], p.Subject1)
	}
}

func (b *conflictBuilder) build() models.ConflictMap {
	result := make(models.ConflictMap, len(b.adjacency))
	for subject, neighbors := range b.adjacency {
		if len(neighbors) == 0 {
			continue
		}
		list := make([]string, 0, len(neighbors))
		for n := range neighbors {
			list = append(list, n)
		}
		sort.Strings(list)
		result[subject] = list
	}
	return result
}
