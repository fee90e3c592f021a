package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

type payrollSessionReader interface {
	ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Session, error)
	SettleWeekPayouts(ctx context.Context, start, end time.Time, ownerTutor string) (int64, error)
}

type payoutRunRepository interface {
	Create(ctx context.Context, run *models.PayoutRun) error
	List(ctx context.Context, limit int) ([]models.PayoutRun, error)
}

// PayrollService computes weekly tutor payouts and settles them.
type PayrollService struct {
	sessions payrollSessionReader
	runs     payoutRunRepository
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	settings BillingSettings
	cacheTTL time.Duration
}

// NewPayrollService constructs the service.
func NewPayrollService(sessions payrollSessionReader, runs payoutRunRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, settings BillingSettings, cacheTTL time.Duration) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{sessions: sessions, runs: runs, cache: cache, metrics: metrics, logger: logger, settings: settings, cacheTTL: cacheTTL}
}

// WeeklyTotals sums each non-owner tutor's earnings over the Monday-through-
// Sunday window ending at weekEnding: half the full session value for free
// sessions, half the amount due otherwise.
func (s *PayrollService) WeeklyTotals(ctx context.Context, weekEnding string) (*models.WeeklyPayroll, error) {
	sunday, err := billing.ParseDate(weekEnding)
	if err != nil {
		return nil, err
	}
	start, end := billing.WeekRange(sunday)

	cacheKey := fmt.Sprintf("payroll:weekly:%s", end.Format("2006-01-02"))
	cached := &models.WeeklyPayroll{}
	if hit, _ := s.cache.Get(ctx, cacheKey, cached); hit {
		return cached, nil
	}

	sessions, err := s.sessions.ListByDateRange(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week sessions")
	}

	totals := make(map[string]decimal.Decimal)
	for _, session := range sessions {
		tutor := strings.TrimSpace(session.Tutor)
		if tutor == "" || strings.EqualFold(tutor, s.settings.Owner) {
			continue
		}
		earn := billing.TutorEarnings(s.settings.Owner, tutor, session.PaidStatus, session.HoursDecimal, session.Rate, session.AmountDue)
		totals[tutor] = totals[tutor].Add(earn)
	}
	for tutor, total := range totals {
		totals[tutor] = total.Round(2)
	}

	payroll := &models.WeeklyPayroll{
		Start:  start.Format("2006-01-02"),
		End:    end.Format("2006-01-02"),
		Totals: totals,
	}
	if err := s.cache.Set(ctx, cacheKey, payroll, s.cacheTTL); err != nil {
		s.logger.Warn("payroll cache write failed", zap.Error(err))
	}
	return payroll, nil
}

// SettleWeek flips every unsettled non-owner payout in the window and records
// a settlement run with a snapshot of the totals. Retrying settles nothing
// further and reports zero.
func (s *PayrollService) SettleWeek(ctx context.Context, weekEnding string) (*models.PayoutRun, error) {
	sunday, err := billing.ParseDate(weekEnding)
	if err != nil {
		return nil, err
	}
	start, end := billing.WeekRange(sunday)

	payroll, err := s.WeeklyTotals(ctx, weekEnding)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(payroll.Totals)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot totals")
	}

	count, err := s.sessions.SettleWeekPayouts(ctx, start, end, s.settings.Owner)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle week payouts")
	}

	run := &models.PayoutRun{
		WeekStart:    start,
		WeekEnd:      end,
		SettledCount: int(count),
		Totals:       snapshot,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payout run")
	}

	s.metrics.RecordPayoutsSettled(count)
	if err := s.cache.Invalidate(ctx, "payroll:*"); err != nil {
		s.logger.Warn("payroll cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("week settled",
		zap.String("week_start", run.WeekStart.Format("2006-01-02")),
		zap.String("week_end", run.WeekEnd.Format("2006-01-02")),
		zap.Int64("payouts_settled", count),
	)
	return run, nil
}

// ListRuns returns recent settlement runs.
func (s *PayrollService) ListRuns(ctx context.Context, limit int) ([]models.PayoutRun, error) {
	runs, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payout runs")
	}
	return runs, nil
}
