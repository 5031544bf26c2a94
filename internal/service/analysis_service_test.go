package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisFixturePlan() *SlotPlan {
	return &SlotPlan{
		Slots: []string{"제1일1교시", "제1일2교시", "제2일1교시"},
		Days:  []string{"제1일", "제2일"},
		DayOf: map[string]string{
			"제1일1교시": "제1일",
			"제1일2교시": "제1일",
			"제2일1교시": "제2일",
		},
		Limit: map[string]int{"제1일1교시": 80, "제1일2교시": 80, "제2일1교시": 80},
	}
}

func TestAnalysisServiceDailyVectors(t *testing.T) {
	assignments := map[string][]string{
		"제1일1교시": {"국어"},
		"제1일2교시": {"수학"},
		"제2일1교시": {"영어"},
	}
	roster := map[string][]string{
		"학생1": {"국어", "수학", "영어"},
		"학생2": {"영어"},
	}
	hard := map[string]bool{"수학": true}

	analysis := NewAnalysisService(nil).Analyze(assignments, analysisFixturePlan(), roster, hard)

	assert.Equal(t, 2, analysis.MaxExamsPerDay["학생1"])
	assert.Equal(t, 1, analysis.MaxHardExamsPerDay["학생1"])
	assert.Equal(t, 1, analysis.MaxExamsPerDay["학생2"])
	assert.Equal(t, 0, analysis.MaxHardExamsPerDay["학생2"])

	require.Len(t, analysis.ExamSubjectsPerDay["학생1"], 2)
	assert.Equal(t, []string{"국어", "수학"}, analysis.ExamSubjectsPerDay["학생1"][0])
	assert.Equal(t, []string{"영어"}, analysis.ExamSubjectsPerDay["학생1"][1])
	assert.Equal(t, []string{"수학"}, analysis.HardExamSubjectsPerDay["학생1"][0])
}

func TestAnalysisServiceIgnoresUnplacedSubjects(t *testing.T) {
	assignments := map[string][]string{"제1일1교시": {"국어"}}
	roster := map[string][]string{"학생1": {"국어", "미배정과목"}}

	analysis := NewAnalysisService(nil).Analyze(assignments, analysisFixturePlan(), roster, nil)

	assert.Equal(t, 1, analysis.MaxExamsPerDay["학생1"])
}

func TestAnalysisServiceSummaryWithCap(t *testing.T) {
	assignments := map[string][]string{
		"제1일1교시": {"국어"},
		"제1일2교시": {"수학"},
	}
	roster := map[string][]string{
		"학생1": {"국어", "수학"},
		"학생2": {"국어"},
	}
	svc := NewAnalysisService(nil)
	analysis := svc.Analyze(assignments, analysisFixturePlan(), roster, nil)

	capLimit := 2
	summary := svc.Summary(analysis, 2, 3, &capLimit, nil)

	assert.Equal(t, 2, summary.TotalStudents)
	assert.Equal(t, 2, summary.TotalSubjects)
	assert.Equal(t, 3, summary.TotalSlots)

	require.Len(t, summary.ExamDistribution, 2)
	assert.Equal(t, []string{"학생2"}, summary.ExamDistribution[1].Students)
	assert.Equal(t, []string{"학생1"}, summary.ExamDistribution[2].Students)
}

func TestAnalysisServiceSummaryWithoutCapUsesObservedMax(t *testing.T) {
	assignments := map[string][]string{"제1일1교시": {"국어"}}
	roster := map[string][]string{"학생1": {"국어"}}
	svc := NewAnalysisService(nil)
	analysis := svc.Analyze(assignments, analysisFixturePlan(), roster, nil)

	summary := svc.Summary(analysis, 1, 3, nil, nil)

	require.Len(t, summary.ExamDistribution, 1)
	assert.Equal(t, 1, summary.ExamDistribution[1].Count)
	// No hard subjects anywhere: observed maximum is zero, histogram empty.
	assert.Empty(t, summary.HardExamDistribution)
}

func TestAnalysisServiceSummaryEmptyRoster(t *testing.T) {
	svc := NewAnalysisService(nil)
	analysis := svc.Analyze(map[string][]string{}, analysisFixturePlan(), nil, nil)

	summary := svc.Summary(analysis, 0, 3, nil, nil)
	assert.Zero(t, summary.TotalStudents)
	assert.Empty(t, summary.ExamDistribution)
}
