package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

type mockPayrollSessions struct {
	sessions     []models.Session
	listCalls    int
	listedStart  time.Time
	listedEnd    time.Time
	settleCount  int64
	settleCalls  int
	settledStart time.Time
	settledEnd   time.Time
	settledOwner string
}

func (m *mockPayrollSessions) ListByDateRange(_ context.Context, start, end time.Time) ([]models.Session, error) {
	m.listCalls++
	m.listedStart, m.listedEnd = start, end
	return m.sessions, nil
}

func (m *mockPayrollSessions) SettleWeekPayouts(_ context.Context, start, end time.Time, ownerTutor string) (int64, error) {
	m.settleCalls++
	m.settledStart, m.settledEnd = start, end
	m.settledOwner = ownerTutor
	count := m.settleCount
	m.settleCount = 0
	return count, nil
}

type mockPayoutRuns struct {
	created []*models.PayoutRun
	runs    []models.PayoutRun
	limit   int
}

func (m *mockPayoutRuns) Create(_ context.Context, run *models.PayoutRun) error {
	run.ID = "run-1"
	m.created = append(m.created, run)
	return nil
}

func (m *mockPayoutRuns) List(_ context.Context, limit int) ([]models.PayoutRun, error) {
	m.limit = limit
	return m.runs, nil
}

func weekSession(date time.Time, tutor string, status models.PaidStatus, hours, rate, amountDue string) models.Session {
	return models.Session{
		Date:         date,
		Tutor:        tutor,
		PaidStatus:   status,
		HoursDecimal: decimal.RequireFromString(hours),
		Rate:         decimal.RequireFromString(rate),
		AmountDue:    decimal.RequireFromString(amountDue),
	}
}

func newPayrollService(sessions *mockPayrollSessions, runs *mockPayoutRuns, cacheRepo *stubCacheRepo) *PayrollService {
	return NewPayrollService(sessions, runs, newTestCache(cacheRepo), nil, zap.NewNop(), testBillingSettings(), time.Minute)
}

func TestPayrollWeeklyTotals(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	sessions := &mockPayrollSessions{sessions: []models.Session{
		weekSession(day(3), "Maya", models.PaidStatusNotPaid, "1.5", "45", "67.5"),
		weekSession(day(4), "Maya", models.PaidStatusFree, "1", "30", "0"),
		weekSession(day(5), "Ravi", models.PaidStatusPaid, "2", "35", "70"),
		weekSession(day(6), "Nitin", models.PaidStatusPaid, "1", "40", "40"),
		weekSession(day(7), "  ", models.PaidStatusPaid, "1", "40", "40"),
	}}
	svc := newPayrollService(sessions, &mockPayoutRuns{}, &stubCacheRepo{})

	payroll, err := svc.WeeklyTotals(context.Background(), "2025-03-09")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-03", payroll.Start)
	assert.Equal(t, "2025-03-09", payroll.End)
	assert.Equal(t, day(3), sessions.listedStart)
	assert.Equal(t, day(9), sessions.listedEnd)

	// Maya: 67.50/2 + (1h * 30)/2 = 33.75 + 15.00; Ravi: 70/2. Owner and
	// blank tutors never appear.
	require.Len(t, payroll.Totals, 2)
	assert.Equal(t, "48.75", payroll.Totals["Maya"].StringFixed(2))
	assert.Equal(t, "35.00", payroll.Totals["Ravi"].StringFixed(2))
}

func TestPayrollWeeklyTotalsCached(t *testing.T) {
	sessions := &mockPayrollSessions{}
	svc := newPayrollService(sessions, &mockPayoutRuns{}, &stubCacheRepo{})
	ctx := context.Background()

	_, err := svc.WeeklyTotals(ctx, "2025-03-09")
	require.NoError(t, err)
	_, err = svc.WeeklyTotals(ctx, "2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, 1, sessions.listCalls)
}

func TestPayrollWeeklyTotalsBadDate(t *testing.T) {
	svc := newPayrollService(&mockPayrollSessions{}, &mockPayoutRuns{}, &stubCacheRepo{})
	_, err := svc.WeeklyTotals(context.Background(), "next sunday")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDate.Code, appErrors.FromError(err).Code)
}

func TestPayrollSettleWeek(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	sessions := &mockPayrollSessions{
		sessions: []models.Session{
			weekSession(day(3), "Maya", models.PaidStatusPaid, "1.5", "45", "67.5"),
		},
		settleCount: 1,
	}
	runs := &mockPayoutRuns{}
	cacheRepo := &stubCacheRepo{}
	svc := newPayrollService(sessions, runs, cacheRepo)
	ctx := context.Background()

	run, err := svc.SettleWeek(ctx, "2025-03-09")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 1, run.SettledCount)
	assert.Equal(t, day(3), run.WeekStart)
	assert.Equal(t, day(9), run.WeekEnd)
	assert.Equal(t, "Nitin", sessions.settledOwner)
	assert.Contains(t, cacheRepo.patterns, "payroll:*")

	var totals map[string]decimal.Decimal
	require.NoError(t, json.Unmarshal(run.Totals, &totals))
	assert.Equal(t, "33.75", totals["Maya"].StringFixed(2))

	// A retry flips nothing further.
	again, err := svc.SettleWeek(ctx, "2025-03-09")
	require.NoError(t, err)
	assert.Zero(t, again.SettledCount)
	assert.Equal(t, 2, sessions.settleCalls)
	require.Len(t, runs.created, 2)
}

func TestPayrollListRuns(t *testing.T) {
	runs := &mockPayoutRuns{runs: []models.PayoutRun{{ID: "run-1"}}}
	svc := newPayrollService(&mockPayrollSessions{}, runs, &stubCacheRepo{})

	out, err := svc.ListRuns(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 20, runs.limit)
}
