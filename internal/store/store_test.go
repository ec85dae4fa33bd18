// internal/store/store_test.go
package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for SQL matching.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	s, err := New(context.Background(), mock, zap.NewNop())
	require.NoError(t, err)
	return s, mock
}

func sampleRun() *Run {
	return &Run{
		ID:        uuid.New(),
		Task:      "login flow",
		CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		Agent: []schemas.Action{
			{Type: schemas.ActionNavigate, Args: map[string]any{"url": "https://a.test"}},
		},
		Manual: []schemas.Action{},
		Merged: []schemas.Action{
			{Type: schemas.ActionNavigate, Args: map[string]any{"url": "https://a.test"}},
		},
	}
}

func TestNew_PingFailure(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)
	_, err = New(context.Background(), mock, zap.NewNop())
	assert.Error(t, err)
}

func TestStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(flexibleSQLMatcher("CREATE TABLE IF NOT EXISTS runs")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRun(t *testing.T) {
	s, mock := newMockStore(t)
	run := sampleRun()

	mock.ExpectExec(flexibleSQLMatcher("INSERT INTO runs")).
		WithArgs(run.ID, run.Task, run.CreatedAt.UTC(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRun_InsertFailure(t *testing.T) {
	s, mock := newMockStore(t)
	run := sampleRun()

	mock.ExpectExec(flexibleSQLMatcher("INSERT INTO runs")).
		WithArgs(run.ID, run.Task, run.CreatedAt.UTC(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	err := s.SaveRun(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
}

func TestStore_LoadRun(t *testing.T) {
	s, mock := newMockStore(t)
	run := sampleRun()

	agent, err := schemas.MarshalActionLog(run.Agent)
	require.NoError(t, err)
	manual, err := schemas.MarshalActionLog(run.Manual)
	require.NoError(t, err)
	merged, err := schemas.MarshalActionLog(run.Merged)
	require.NoError(t, err)

	mock.ExpectQuery(flexibleSQLMatcher("SELECT id, task, created_at, agent, manual, merged FROM runs WHERE id =")).
		WithArgs(run.ID).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "task", "created_at", "agent", "manual", "merged"}).
			AddRow(run.ID, run.Task, run.CreatedAt, agent, manual, merged))

	got, err := s.LoadRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Task, got.Task)
	require.Len(t, got.Merged, 1)
	assert.Equal(t, schemas.ActionNavigate, got.Merged[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(flexibleSQLMatcher("SELECT id, task, created_at FROM runs ORDER BY created_at DESC LIMIT")).
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"id", "task", "created_at"}).
			AddRow(uuid.New(), "second", now).
			AddRow(uuid.New(), "first", now.Add(-time.Hour)))

	runs, err := s.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Task)
	assert.NoError(t, mock.ExpectationsWereMet())
}
