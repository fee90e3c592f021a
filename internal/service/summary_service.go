package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
	"github.com/nk-tutoring/ledger-api/pkg/export"
)

const summaryCacheKey = "summary:rows"

type summarySessionReader interface {
	ListAll(ctx context.Context) ([]models.Session, error)
}

type summaryRowStore interface {
	Replace(ctx context.Context, rows []models.SummaryRow) error
	List(ctx context.Context) ([]models.SummaryRow, error)
}

// SummaryService rebuilds and serves the monthly business summary: each
// tutor's earnings, the free-session subsidy cost and the owner's net
// business earnings, grouped per calendar month.
type SummaryService struct {
	sessions summarySessionReader
	rows     summaryRowStore
	cache    *CacheService
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
	settings BillingSettings
}

// NewSummaryService constructs the service.
func NewSummaryService(sessions summarySessionReader, rows summaryRowStore, cache *CacheService, csv *export.CSVExporter, pdf *export.PDFExporter, logger *zap.Logger, settings BillingSettings) *SummaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{sessions: sessions, rows: rows, cache: cache, csv: csv, pdf: pdf, logger: logger, settings: settings}
}

// Rebuild recomputes the whole summary from the ledger and destructively
// replaces the stored rows. Earnings are recomputed from each session's
// stored hours, rate and amount due rather than its stored tutor pay, so
// post-hoc paid-status edits are reflected. Rebuilding twice over unchanged
// data yields identical rows.
func (s *SummaryService) Rebuild(ctx context.Context) ([]models.SummaryRow, error) {
	sessions, err := s.sessions.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger")
	}

	tutorTotals := make(map[string]map[string]decimal.Decimal)
	businessTotals := make(map[string]decimal.Decimal)
	freeCosts := make(map[string]decimal.Decimal)

	for _, session := range sessions {
		tutor := strings.TrimSpace(session.Tutor)
		if tutor == "" {
			continue
		}
		month := session.MonthKey()
		if _, ok := tutorTotals[month]; !ok {
			tutorTotals[month] = make(map[string]decimal.Decimal)
		}

		earn := billing.TutorEarnings(s.settings.Owner, tutor, session.PaidStatus, session.HoursDecimal, session.Rate, session.AmountDue)
		tutorTotals[month][tutor] = tutorTotals[month][tutor].Add(earn)

		contribution, freeCost := billing.OwnerContribution(s.settings.Owner, tutor, session.PaidStatus, session.HoursDecimal, session.Rate, session.AmountDue)
		businessTotals[month] = businessTotals[month].Add(contribution)
		freeCosts[month] = freeCosts[month].Add(freeCost)
	}

	rows := s.buildRows(tutorTotals, businessTotals, freeCosts)
	if err := s.rows.Replace(ctx, rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store summary")
	}

	if err := s.cache.Invalidate(ctx, "summary:*"); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
	s.logger.Info("monthly summary rebuilt", zap.Int("rows", len(rows)), zap.Int("sessions", len(sessions)))
	return rows, nil
}

// Row order: months ascending; within a month the header, tutors
// alphabetically, the free-session cost, then the business earnings line.
func (s *SummaryService) buildRows(tutorTotals map[string]map[string]decimal.Decimal, businessTotals, freeCosts map[string]decimal.Decimal) []models.SummaryRow {
	months := make([]string, 0, len(tutorTotals))
	for month := range tutorTotals {
		months = append(months, month)
	}
	sort.Strings(months)

	rows := make([]models.SummaryRow, 0, len(months)*5)
	position := 0
	add := func(month string, kind models.SummaryRowKind, label string, amount *decimal.Decimal) {
		position++
		row := models.SummaryRow{Position: position, Month: month, Kind: kind, Label: label}
		if amount != nil {
			rounded := amount.Round(2)
			row.Amount = decimal.NewNullDecimal(rounded)
		}
		rows = append(rows, row)
	}

	for _, month := range months {
		add(month, models.SummaryRowMonthHeader, fmt.Sprintf("Month: %s", month), nil)

		tutors := make([]string, 0, len(tutorTotals[month]))
		for tutor := range tutorTotals[month] {
			tutors = append(tutors, tutor)
		}
		sort.Strings(tutors)
		for _, tutor := range tutors {
			total := tutorTotals[month][tutor]
			add(month, models.SummaryRowTutor, tutor, &total)
		}

		freeCost := freeCosts[month]
		add(month, models.SummaryRowFreeCost, "Free Session Cost", &freeCost)
		business := businessTotals[month]
		add(month, models.SummaryRowBusiness, fmt.Sprintf("%s Business Earnings", s.settings.Owner), &business)
	}
	return rows
}

// Get serves the stored summary rows, cached.
func (s *SummaryService) Get(ctx context.Context) ([]models.SummaryRow, error) {
	var cached []models.SummaryRow
	if hit, _ := s.cache.Get(ctx, summaryCacheKey, &cached); hit {
		return cached, nil
	}

	rows, err := s.rows.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary")
	}
	if err := s.cache.Set(ctx, summaryCacheKey, rows, 0); err != nil {
		s.logger.Warn("summary cache write failed", zap.Error(err))
	}
	return rows, nil
}

// Export renders the stored summary as CSV or PDF.
func (s *SummaryService) Export(ctx context.Context, format string) ([]byte, string, string, error) {
	rows, err := s.Get(ctx)
	if err != nil {
		return nil, "", "", err
	}

	dataset := export.Dataset{Headers: []string{"Month", "Label", "Amount"}}
	for _, row := range rows {
		amount := ""
		if row.Amount.Valid {
			amount = row.Amount.Decimal.StringFixed(2)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Month":  row.Month,
			"Label":  row.Label,
			"Amount": amount,
		})
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", "tutor_summary.csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Monthly Tutor Summary")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", "tutor_summary.pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}
