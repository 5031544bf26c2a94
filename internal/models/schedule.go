package models

import "time"

// ScheduleRun is one recorded invocation of the scheduling pipeline.
type ScheduleRun struct {
	ID            string    `db:"id"`
	Status        string    `db:"status"`
	Objective     float64   `db:"objective"`
	TotalSlots    int       `db:"total_slots"`
	TotalSubjects int       `db:"total_subjects"`
	CliqueSize    int       `db:"clique_size"`
	DurationMS    int64     `db:"duration_ms"`
	CreatedAt     time.Time `db:"created_at"`
}
