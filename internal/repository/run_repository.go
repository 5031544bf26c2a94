package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

const runSchema = `
CREATE TABLE IF NOT EXISTS schedule_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	objective REAL NOT NULL DEFAULT 0,
	total_slots INTEGER NOT NULL DEFAULT 0,
	total_subjects INTEGER NOT NULL DEFAULT 0,
	clique_size INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
)`

// RunRepository stores one summary row per scheduling run in the embedded
// database.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository wraps the database handle.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the runs table when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, runSchema)
	return err
}

// Insert persists one run summary.
func (r *RunRepository) Insert(ctx context.Context, run *models.ScheduleRun) error {
	query := `
		INSERT INTO schedule_runs (id, status, objective, total_slots, total_subjects, clique_size, duration_ms, created_at)
		VALUES (:id, :status, :objective, :total_slots, :total_subjects, :clique_size, :duration_ms, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// ListRecent returns the newest runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]models.ScheduleRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, status, objective, total_slots, total_subjects, clique_size, duration_ms, created_at
		FROM schedule_runs
		ORDER BY created_at DESC
		LIMIT ?`
	var runs []models.ScheduleRun
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), limit); err != nil {
		return nil, err
	}
	return runs, nil
}
