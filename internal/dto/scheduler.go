package dto

import "github.com/noah-isme/sma-exam-scheduler/internal/models"

// Result statuses returned by ScheduleService.CreateSchedule.
const (
	StatusSuccess    = "SUCCESS"
	StatusInfeasible = "INFEASIBLE"
	StatusNoSolution = "NO_SOLUTION"
	StatusError      = "ERROR"
)

// StatusCallback receives coarse progress milestones and, during the solve,
// remaining-time updates roughly once per second.
type StatusCallback func(message string, progressPercent int)

// ScheduleRequest bundles every input of one scheduling run.
type ScheduleRequest struct {
	Calendar models.Calendar    `json:"exam_info" validate:"required"`
	Subjects models.SubjectInfo `json:"subject_info" validate:"required,min=1"`

	Conflicts models.ConflictEdits     `json:"conflicts"`
	Relations []models.SubjectRelation `json:"subject_relations,omitempty"`

	TeacherBlackouts map[string][]string `json:"teacher_unavailable,omitempty"`
	SubjectSlotBans  map[string][]string `json:"subject_constraints,omitempty"`
	TeacherSlotBans  map[string][]string `json:"teacher_slot_constraints,omitempty"`
	FixedAssignments map[string][]string `json:"fixed_assignments,omitempty"`

	Roster       map[string][]string `json:"student_subjects"`
	HardSubjects map[string]bool     `json:"hard_subjects,omitempty"`
}

// ScheduleConfig carries the per-run knobs. Nil caps disable the matching
// burden constraint and objective term.
type ScheduleConfig struct {
	MaxExamsPerDay      *int   `json:"max_exams_per_day,omitempty" validate:"omitempty,min=0"`
	MaxHardExamsPerDay  *int   `json:"max_hard_exams_per_day,omitempty" validate:"omitempty,min=0"`
	UseFixedAssignments bool   `json:"use_fixed_assignments"`
	RandomSeed          *int64 `json:"random_seed,omitempty"`
}

// CliqueInfo describes the hint preprocessing attached to a SUCCESS result.
type CliqueInfo struct {
	Size        int               `json:"size"`
	Subjects    []string          `json:"subjects"`
	HintsPlaced int               `json:"hints_placed"`
	Placements  map[string]string `json:"placements,omitempty"`
}

// StudentAnalysis holds the per-student daily exam vectors derived from a
// successful assignment.
type StudentAnalysis struct {
	MaxExamsPerDay         map[string]int        `json:"max_exams_per_day"`
	MaxHardExamsPerDay     map[string]int        `json:"max_hard_exams_per_day"`
	ExamSubjectsPerDay     map[string][][]string `json:"exam_subjects_per_day"`
	HardExamSubjectsPerDay map[string][][]string `json:"hard_exam_subjects_per_day"`
}

// DistributionBucket lists the students whose per-day maximum equals the
// bucket value.
type DistributionBucket struct {
	Count    int      `json:"count"`
	Students []string `json:"students"`
}

// Summary aggregates a successful run for reporting.
type Summary struct {
	TotalStudents        int                        `json:"total_students"`
	TotalSubjects        int                        `json:"total_subjects"`
	TotalSlots           int                        `json:"total_slots"`
	ExamDistribution     map[int]DistributionBucket `json:"exam_distribution"`
	HardExamDistribution map[int]DistributionBucket `json:"hard_exam_distribution"`
}

// Diagnosis explains why no assignment was produced.
type Diagnosis struct {
	PossibleCauses  []string       `json:"possible_causes"`
	Recommendations []string       `json:"recommendations"`
	ConstraintInfo  ConstraintInfo `json:"constraint_info"`
}

// ConstraintInfo carries the structural counters backing a diagnosis.
type ConstraintInfo struct {
	TotalSlots           int      `json:"total_slots"`
	TotalSubjects        int      `json:"total_subjects"`
	SubjectsWithFewSlots []string `json:"subjects_with_few_slots,omitempty"`
	HighConflictSubjects []string `json:"high_conflict_subjects,omitempty"`
}

// ScheduleResult is the outcome of one CreateSchedule invocation.
type ScheduleResult struct {
	Status string `json:"status"`

	SlotAssignments map[string][]string `json:"slot_assignments,omitempty"`
	StudentAnalysis *StudentAnalysis    `json:"student_analysis,omitempty"`
	Days            []string            `json:"days,omitempty"`
	Slots           []string            `json:"slots,omitempty"`
	SlotToDay       map[string]string   `json:"slot_to_day,omitempty"`
	CliqueInfo      *CliqueInfo         `json:"clique_info,omitempty"`

	Error     string     `json:"error,omitempty"`
	Details   []string   `json:"details,omitempty"`
	Diagnosis *Diagnosis `json:"diagnosis,omitempty"`
}
