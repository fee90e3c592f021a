package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nk-tutoring/ledger-api/internal/models"
)

func TestPayoutRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewPayoutRepository(db)

	mock.ExpectExec("INSERT INTO payout_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.PayoutRun{
		WeekStart:    mustDate(t, "2025-03-03"),
		WeekEnd:      mustDate(t, "2025-03-09"),
		SettledCount: 3,
		Totals:       []byte(`{"Maya":"33.75"}`),
	}
	require.NoError(t, repo.Create(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayoutRepositoryListCapsLimit(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewPayoutRepository(db)

	rows := sqlmock.NewRows([]string{"id", "week_start", "week_end", "settled_count", "totals", "created_at"}).
		AddRow("run-1", mustDate(t, "2025-03-03"), mustDate(t, "2025-03-09"), 3, []byte(`{}`), mustDate(t, "2025-03-09"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, week_start, week_end, settled_count, totals, created_at FROM payout_runs ORDER BY created_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	runs, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
