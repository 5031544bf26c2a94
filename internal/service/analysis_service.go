package service

import (
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/dto"
)

// AnalysisService derives the per-student daily exam vectors from a
// successful assignment.
type AnalysisService struct {
	logger *zap.Logger
}

// NewAnalysisService wires the analyzer.
func NewAnalysisService(logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{logger: logger}
}

// Analyze computes, for every student, the per-day exam and hard-exam
// subject lists plus the worst-day maxima. Day indexes follow the plan's day
// order.
func (s *AnalysisService) Analyze(
	assignments map[string][]string,
	plan *SlotPlan,
	roster map[string][]string,
	hard map[string]bool,
) *dto.StudentAnalysis {
	slotOf := make(map[string]string, len(assignments))
	for slot, subjects := range assignments {
		for _, subject := range subjects {
			slotOf[subject] = slot
		}
	}

	analysis := &dto.StudentAnalysis{
		MaxExamsPerDay:         make(map[string]int, len(roster)),
		MaxHardExamsPerDay:     make(map[string]int, len(roster)),
		ExamSubjectsPerDay:     make(map[string][][]string, len(roster)),
		HardExamSubjectsPerDay: make(map[string][][]string, len(roster)),
	}

	for _, student := range sortedKeys(roster) {
		examSubjects := make([][]string, len(plan.Days))
		hardSubjects := make([][]string, len(plan.Days))
		maxExams, maxHard := 0, 0

		for i, day := range plan.Days {
			var today, hardToday []string
			for _, subject := range roster[student] {
				slot, placed := slotOf[subject]
				if !placed || plan.DayOf[slot] != day {
					continue
				}
				today = append(today, subject)
				if hard[subject] {
					hardToday = append(hardToday, subject)
				}
			}
			sort.Strings(today)
			sort.Strings(hardToday)
			examSubjects[i] = today
			hardSubjects[i] = hardToday
			if len(today) > maxExams {
				maxExams = len(today)
			}
			if len(hardToday) > maxHard {
				maxHard = len(hardToday)
			}
		}

		analysis.MaxExamsPerDay[student] = maxExams
		analysis.MaxHardExamsPerDay[student] = maxHard
		analysis.ExamSubjectsPerDay[student] = examSubjects
		analysis.HardExamSubjectsPerDay[student] = hardSubjects
	}

	return analysis
}

// Summary builds the distribution histograms. Buckets run 1..cap when the
// matching cap is configured; otherwise 1..observed maximum, which leaves
// the histogram empty when no student takes any subject.
func (s *AnalysisService) Summary(
	analysis *dto.StudentAnalysis,
	totalSubjects, totalSlots int,
	maxExamsPerDay, maxHardExamsPerDay *int,
) *dto.Summary {
	summary := &dto.Summary{
		TotalStudents:        len(analysis.MaxExamsPerDay),
		TotalSubjects:        totalSubjects,
		TotalSlots:           totalSlots,
		ExamDistribution:     distribution(analysis.MaxExamsPerDay, maxExamsPerDay),
		HardExamDistribution: distribution(analysis.MaxHardExamsPerDay, maxHardExamsPerDay),
	}
	return summary
}

func distribution(maxima map[string]int, capLimit *int) map[int]dto.DistributionBucket {
	upper := 0
	if capLimit != nil {
		upper = *capLimit
	} else {
		for _, v := range maxima {
			if v > upper {
				upper = v
			}
		}
	}

	buckets := make(map[int]dto.DistributionBucket, upper)
	for n := 1; n <= upper; n++ {
		var students []string
		for student, v := range maxima {
			if v == n {
				students = append(students, student)
			}
		}
		sort.Strings(students)
		buckets[n] = dto.DistributionBucket{Count: len(students), Students: students}
	}
	return buckets
}
