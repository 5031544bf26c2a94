package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
)

func newMockRepo(t *testing.T) (*RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestRunRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO schedule_runs").
		WithArgs("run-1", "SUCCESS", 0.0, 4, 3, 2, int64(1200), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), &models.ScheduleRun{
		ID:            "run-1",
		Status:        "SUCCESS",
		TotalSlots:    4,
		TotalSubjects: 3,
		CliqueSize:    2,
		DurationMS:    1200,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryListRecent(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "status", "objective", "total_slots", "total_subjects", "clique_size", "duration_ms", "created_at",
	}).AddRow("run-2", "SUCCESS", 1.0, 4, 3, 3, 900, time.Now().UTC()).
		AddRow("run-1", "NO_SOLUTION", 0.0, 4, 3, 0, 2000, time.Now().UTC())

	mock.ExpectQuery("SELECT (.+) FROM schedule_runs").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "NO_SOLUTION", runs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryListRecentDefaultsLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM schedule_runs").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "objective", "total_slots", "total_subjects", "clique_size", "duration_ms", "created_at"}))

	_, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
