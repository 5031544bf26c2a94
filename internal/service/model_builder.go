package service

import (
	"sort"
	"strings"

	"github.com/google/or-tools/ortools/sat/go/cpmodel"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

// ExamModel owns the CP-SAT builder and the boolean decision table
// x[subject][slot]. The variable table is the single owner of the decision
// handles; every later stage (hints, solve, extraction) goes through it.
type ExamModel struct {
	Builder  *cpmodel.Builder
	Vars     map[string]map[string]cpmodel.BoolVar
	Plan     *SlotPlan
	Subjects models.SubjectInfo

	constraintCount int
}

// VarCount returns the number of decision variables.
func (m *ExamModel) VarCount() int {
	total := 0
	for _, slots := range m.Vars {
		total += len(slots)
	}
	return total
}

// ConstraintCount returns the number of constraints added so far.
func (m *ExamModel) ConstraintCount() int {
	return m.constraintCount
}

// SubjectNames returns the modelled subjects in sorted order.
func (m *ExamModel) SubjectNames() []string {
	names := make([]string, 0, len(m.Vars))
	for name := range m.Vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModelInputs bundles everything the builder needs beyond the slot plan.
type ModelInputs struct {
	Subjects  models.SubjectInfo
	Conflicts ConflictSets
	Relations []models.SubjectRelation

	TeacherBlackouts map[string][]string
	SubjectSlotBans  map[string][]string
	TeacherSlotBans  map[string][]string
	Fixed            map[string][]string

	Roster map[string][]string
	Hard   map[string]bool

	MaxExamsPerDay     *int
	MaxHardExamsPerDay *int
}

// ModelBuilder translates the heterogeneous conflict sources into one CP
// model and encodes the student-burden objective.
type ModelBuilder struct {
	logger *zap.Logger
}

// NewModelBuilder wires the builder.
func NewModelBuilder(logger *zap.Logger) *ModelBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelBuilder{logger: logger}
}

// Build creates the decision variables and all hard constraints. Callers
// follow up with SetObjective before solving.
func (b *ModelBuilder) Build(plan *SlotPlan, in ModelInputs) *ExamModel {
	em := &ExamModel{
		Builder:  cpmodel.NewCpModelBuilder(),
		Vars:     make(map[string]map[string]cpmodel.BoolVar, len(in.Subjects)),
		Plan:     plan,
		Subjects: in.Subjects,
	}

	b.createVariables(em, in)
	b.addUniqueness(em)
	b.addPairConflicts(em, in.Conflicts.Student)
	b.addPairConflicts(em, in.Conflicts.Listening)
	b.addPairConflicts(em, in.Conflicts.Teacher)
	b.addDurationGuards(em, in)
	b.addTeacherBlackouts(em, in)
	b.addSubjectSlotBans(em, in.SubjectSlotBans)
	b.addTeacherSlotBans(em, in)
	b.addRelations(em, in.Relations)
	b.addFixedAssignments(em, in.Fixed)
	b.addBurdenCaps(em, in)

	b.logger.Debug("model built",
		zap.Int("variables", em.VarCount()),
		zap.Int("constraints", em.ConstraintCount()))
	return em
}

// createVariables introduces x[s,t] for every slot whose duration limit
// admits the subject. Slots failing the prefilter get no variable at all.
func (b *ModelBuilder) createVariables(em *ExamModel, in ModelInputs) {
	for _, subject := range sortedSubjectNames(in.Subjects) {
		duration := in.Subjects[subject].Duration
		slotVars := make(map[string]cpmodel.BoolVar)
		for _, slot := range em.Plan.Slots {
			if duration != nil && *duration > em.Plan.Limit[slot] {
				continue
			}
			slotVars[slot] = em.Builder.NewBoolVar()
		}
		em.Vars[subject] = slotVars
	}
}

// addUniqueness pins each subject to exactly one slot, split into >=1 and
// <=1 so an infeasibility report localizes to one side.
func (b *ModelBuilder) addUniqueness(em *ExamModel) {
	one := cpmodel.NewConstant(1)
	for _, subject := range em.SubjectNames() {
		sum := sumOfVars(em.Vars[subject])
		em.Builder.AddGreaterOrEqual(sum, one)
		em.Builder.AddLessOrEqual(sum, one)
		em.constraintCount += 2
	}
}

// addPairConflicts forbids co-placement for every conflicting pair, emitting
// each pair-slot constraint once via the lexicographic tie-break.
func (b *ModelBuilder) addPairConflicts(em *ExamModel, conflicts models.ConflictMap) {
	one := cpmodel.NewConstant(1)
	for _, slot := range em.Plan.Slots {
		for _, subject := range em.SubjectNames() {
			va, ok := em.Vars[subject][slot]
			if !ok {
				continue
			}
			for _, other := range conflicts[subject] {
				if subject >= other {
					continue
				}
				vb, ok := em.Vars[other][slot]
				if !ok {
					continue
				}
				pair := cpmodel.NewLinearExpr().AddSum(va, vb)
				em.Builder.AddLessOrEqual(pair, one)
				em.constraintCount++
			}
		}
	}
}

// addDurationGuards re-asserts the duration prefilter. With a correct
// prefilter no variable matches, so this stays a no-op.
func (b *ModelBuilder) addDurationGuards(em *ExamModel, in ModelInputs) {
	zero := cpmodel.NewConstant(0)
	for subject, slotVars := range em.Vars {
		duration := in.Subjects[subject].Duration
		if duration == nil {
			continue
		}
		for slot, v := range slotVars {
			if *duration > em.Plan.Limit[slot] {
				em.Builder.AddEquality(v, zero)
				em.constraintCount++
			}
		}
	}
}

func (b *ModelBuilder) addTeacherBlackouts(em *ExamModel, in ModelInputs) {
	zero := cpmodel.NewConstant(0)
	for _, subject := range em.SubjectNames() {
		for _, teacher := range in.Subjects[subject].Teachers {
			for _, slot := range in.TeacherBlackouts[teacher] {
				if v, ok := em.Vars[subject][slot]; ok {
					em.Builder.AddEquality(v, zero)
					em.constraintCount++
				}
			}
		}
	}
}

// addSubjectSlotBans zeroes banned (subject, slot) pairs. Ban identifiers may
// carry underscore separators; they are normalized before lookup.
func (b *ModelBuilder) addSubjectSlotBans(em *ExamModel, bans map[string][]string) {
	zero := cpmodel.NewConstant(0)
	for subject, slots := range bans {
		slotVars, ok := em.Vars[subject]
		if !ok {
			b.logger.Debug("slot ban for unknown subject", zap.String("subject", subject))
			continue
		}
		for _, raw := range slots {
			slot := NormalizeSlotID(raw)
			if v, ok := slotVars[slot]; ok {
				em.Builder.AddEquality(v, zero)
				em.constraintCount++
			}
		}
	}
}

// addTeacherSlotBans expands per-teacher bans to every subject that teacher
// covers and applies the subject ban logic.
func (b *ModelBuilder) addTeacherSlotBans(em *ExamModel, in ModelInputs) {
	for teacher, slots := range in.TeacherSlotBans {
		for _, subject := range in.Subjects.TaughtBy(teacher) {
			b.addSubjectSlotBans(em, map[string][]string{subject: slots})
		}
	}
}

// addRelations encodes same_time as per-slot equality and avoid_same_time as
// a pairwise exclusion.
func (b *ModelBuilder) addRelations(em *ExamModel, relations []models.SubjectRelation) {
	one := cpmodel.NewConstant(1)
	for _, rel := range relations {
		va, okA := em.Vars[rel.Subject1]
		vb, okB := em.Vars[rel.Subject2]
		if !okA || !okB {
			b.logger.Warn("skipping relation with unknown subject",
				zap.String("subject1", rel.Subject1), zap.String("subject2", rel.Subject2))
			continue
		}
		for _, slot := range em.Plan.Slots {
			a, okA := va[slot]
			c, okB := vb[slot]
			if !okA || !okB {
				continue
			}
			switch rel.Type {
			case models.RelationSameTime:
				em.Builder.AddEquality(a, c)
				em.constraintCount++
			case models.RelationAvoidSameTime:
				em.Builder.AddLessOrEqual(cpmodel.NewLinearExpr().AddSum(a, c), one)
				em.constraintCount++
			}
		}
	}
}

// addFixedAssignments pins manually placed subjects. A subject whose pinned
// slot has no variable is logged and skipped rather than aborting the run.
func (b *ModelBuilder) addFixedAssignments(em *ExamModel, fixed map[string][]string) {
	zero := cpmodel.NewConstant(0)
	one := cpmodel.NewConstant(1)
	for _, slot := range sortedKeys(fixed) {
		normalized := NormalizeSlotID(slot)
		for _, subject := range fixed[slot] {
			slotVars, ok := em.Vars[subject]
			if !ok {
				b.logger.Warn("cannot fix assignment, subject not in model",
					zap.String("subject", subject), zap.String("slot", normalized))
				continue
			}
			v, ok := slotVars[normalized]
			if !ok {
				b.logger.Warn("cannot fix assignment, slot not available for subject",
					zap.String("subject", subject), zap.String("slot", normalized))
				continue
			}
			em.Builder.AddEquality(v, one)
			em.constraintCount++
			for other, ov := range slotVars {
				if other == normalized {
					continue
				}
				em.Builder.AddEquality(ov, zero)
				em.constraintCount++
			}
		}
	}
}

// addBurdenCaps bounds each student's per-day exam count, optionally
// restricted to hard subjects.
func (b *ModelBuilder) addBurdenCaps(em *ExamModel, in ModelInputs) {
	if in.MaxExamsPerDay == nil && in.MaxHardExamsPerDay == nil {
		return
	}
	for _, student := range sortedKeys(in.Roster) {
		for _, day := range em.Plan.Days {
			if in.MaxExamsPerDay != nil {
				sum := b.dayLoad(em, in.Roster[student], day, nil)
				em.Builder.AddLessOrEqual(sum, cpmodel.NewConstant(int64(*in.MaxExamsPerDay)))
				em.constraintCount++
			}
			if in.MaxHardExamsPerDay != nil {
				sum := b.dayLoad(em, in.Roster[student], day, in.Hard)
				em.Builder.AddLessOrEqual(sum, cpmodel.NewConstant(int64(*in.MaxHardExamsPerDay)))
				em.constraintCount++
			}
		}
	}
}

// dayLoad sums a student's decision variables over one day, optionally
// filtered to hard subjects.
func (b *ModelBuilder) dayLoad(em *ExamModel, taken []string, day string, hard map[string]bool) *cpmodel.LinearExpr {
	sum := cpmodel.NewLinearExpr()
	for _, subject := range taken {
		if hard != nil && !hard[subject] {
			continue
		}
		slotVars, ok := em.Vars[subject]
		if !ok {
			continue
		}
		for _, slot := range em.Plan.SlotsOfDay(day) {
			if v, ok := slotVars[slot]; ok {
				sum.AddSum(v)
			}
		}
	}
	return sum
}

// SetObjective minimizes the number of students whose worst day hits the
// configured cap, over both cap flavors. The indicators are guarded in both
// directions so they are exact.
func (b *ModelBuilder) SetObjective(em *ExamModel, in ModelInputs) {
	objective := cpmodel.NewLinearExpr()
	terms := 0

	for _, student := range sortedKeys(in.Roster) {
		if in.MaxExamsPerDay != nil {
			limit := int64(*in.MaxExamsPerDay)
			objective.AddSum(b.capIndicator(em, in.Roster[student], nil, limit))
			terms++
		}
		if in.MaxHardExamsPerDay != nil {
			limit := int64(*in.MaxHardExamsPerDay)
			objective.AddSum(b.capIndicator(em, in.Roster[student], in.Hard, limit))
			terms++
		}
	}

	if terms == 0 {
		// Feasibility-only search: minimize a pinned variable.
		em.Builder.Minimize(em.Builder.NewIntVar(0, 0)) // dummy objective
		return
	}
	em.Builder.Minimize(objective)
}

// capIndicator builds max over the student's per-day loads and returns a
// boolean that is 1 exactly when the maximum equals the cap.
func (b *ModelBuilder) capIndicator(em *ExamModel, taken []string, hard map[string]bool, limit int64) cpmodel.BoolVar {
	maxLoad := em.Builder.NewIntVar(0, limit)
	loads := make([]cpmodel.LinearArgument, 0, len(em.Plan.Days))
	for _, day := range em.Plan.Days {
		loads = append(loads, b.dayLoad(em, taken, day, hard))
	}
	em.Builder.AddMaxEquality(maxLoad, loads...)

	atCap := em.Builder.NewBoolVar()
	capConst := cpmodel.NewConstant(limit)
	em.Builder.AddEquality(maxLoad, capConst).OnlyEnforceIf(atCap)
	em.Builder.AddNotEqual(maxLoad, capConst).OnlyEnforceIf(atCap.Not())
	em.constraintCount += 3
	return atCap
}

// NormalizeSlotID strips the underscore separators optionally present in ban
// and pin identifiers (제3일_1교시 → 제3일1교시).
func NormalizeSlotID(slot string) string {
	return strings.ReplaceAll(slot, "_", "")
}

func sumOfVars(slotVars map[string]cpmodel.BoolVar) *cpmodel.LinearExpr {
	sum := cpmodel.NewLinearExpr()
	for _, slot := range sortedKeys(slotVars) {
		sum.AddSum(slotVars[slot])
	}
	return sum
}

func sortedSubjectNames(subjects models.SubjectInfo) []string {
	names := make([]string, 0, len(subjects))
	for name := range subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
