package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

func intp(n int) *int { return &n }

func conflictFixtureSubjects() models.SubjectInfo {
	return models.SubjectInfo{
		"수학":  {Duration: intp(50), Teachers: []string{"김"}},
		"영어":  {Duration: intp(50), Listening: true, Teachers: []string{"이"}},
		"일본어": {Duration: intp(40), Listening: true, Teachers: []string{"박"}},
		"물리":  {Duration: intp(50), Teachers: []string{"김", "최"}},
	}
}

func TestConflictServiceDerivesEnrollmentConflicts(t *testing.T) {
	roster := map[string][]string{
		"학생1": {"수학", "영어"},
		"학생2": {"영어", "일본어"},
	}

	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{})

	assert.Equal(t, []string{"영어"}, sets.Student["수학"])
	assert.ElementsMatch(t, []string{"수학", "일본어"}, sets.Student["영어"])
}

func TestConflictServiceDerivesListeningAndTeacherConflicts(t *testing.T) {
	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), nil, models.ConflictEdits{})

	assert.Equal(t, []string{"일본어"}, sets.Listening["영어"])
	assert.Equal(t, []string{"영어"}, sets.Listening["일본어"])
	// 수학 and 물리 share teacher 김.
	assert.Equal(t, []string{"물리"}, sets.Teacher["수학"])
}

func TestConflictServiceAddThenRemoveYieldsBase(t *testing.T) {
	roster := map[string][]string{"학생1": {"수학", "영어"}}
	svc := NewConflictService(nil)

	base := svc.Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{})
	edited := svc.Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{
		StudentAdded:   []models.ConflictPair{{Subject1: "수학", Subject2: "물리"}},
		StudentRemoved: []models.ConflictPair{{Subject1: "물리", Subject2: "수학"}},
	})

	assert.Equal(t, base.Student, edited.Student)
}

func TestConflictServiceRemovalBeatsBase(t *testing.T) {
	roster := map[string][]string{"학생1": {"수학", "영어"}}

	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{
		StudentRemoved: []models.ConflictPair{{Subject1: "수학", Subject2: "영어"}},
	})

	assert.Empty(t, sets.Student["수학"])
}

func TestConflictServiceIndividualReplacesEnrollment(t *testing.T) {
	roster := map[string][]string{"학생1": {"수학", "영어"}}

	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{
		IndividualAdded: []models.ConflictPair{{Subject1: "수학", Subject2: "일본어"}},
	})

	// Replacement, not overlay: the enrollment pair 수학-영어 is gone.
	assert.Equal(t, []string{"일본어"}, sets.Student["수학"])
	assert.NotContains(t, sets.Student["수학"], "영어")
}

func TestConflictServiceSameGradeUsedWhenNoIndividual(t *testing.T) {
	roster := map[string][]string{"학생1": {"수학", "영어"}}

	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), roster, models.ConflictEdits{
		SameGradeAdded: []models.ConflictPair{{Subject1: "수학", Subject2: "물리"}},
	})

	assert.Equal(t, []string{"물리"}, sets.Student["수학"])
}

func TestConflictServiceTeacherEditOverridesDerived(t *testing.T) {
	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), nil, models.ConflictEdits{
		TeacherRemoved: []models.ConflictPair{{Subject1: "수학", Subject2: "물리"}},
		TeacherAdded:   []models.ConflictPair{{Subject1: "수학", Subject2: "영어"}},
	})

	assert.Equal(t, []string{"영어"}, sets.Teacher["수학"])
}

func TestConflictServiceSkipsUnknownSubjects(t *testing.T) {
	sets := NewConflictService(nil).Aggregate(conflictFixtureSubjects(), nil, models.ConflictEdits{
		StudentAdded: []models.ConflictPair{{Subject1: "수학", Subject2: "없는과목"}},
	})

	assert.Empty(t, sets.Student["수학"])
	assert.NotContains(t, sets.Student, "없는과목")
}

func TestConflictSetsUnionIsSymmetric(t *testing.T) {
	sets := NewConflictService(nil).Aggregate(
		conflictFixtureSubjects(),
		map[string][]string{"학생1": {"수학", "영어"}},
		models.ConflictEdits{},
	)

	union := sets.Union()
	for subject, conflicts := range union {
		for _, other := range conflicts {
			require.True(t, union.Has(other, subject), "%s -> %s must be symmetric", subject, other)
		}
	}
	assert.True(t, union.Has("수학", "영어"))
	assert.True(t, union.Has("수학", "물리"))
	assert.True(t, union.Has("영어", "일본어"))
}
