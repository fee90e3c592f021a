package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

// BillingSettings bundles the pricing configuration passed into the billing
// core on every call: the owner tutor, the legacy client set and the rate
// schedule. Built once from config, never mutated.
type BillingSettings struct {
	Owner  string
	Legacy billing.LegacySet
	Rates  billing.RateTable
}

type sessionRepository interface {
	Insert(ctx context.Context, session *models.Session) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	ListUnpaid(ctx context.Context) ([]models.UnpaidEntry, error)
	ListRecent(ctx context.Context, limit int) ([]models.Session, error)
	SearchByStudentMonth(ctx context.Context, student, yearMonth string) ([]models.Session, error)
	MarkSessionPaid(ctx context.Context, sessionID string) (int64, error)
	MarkClientPaid(ctx context.Context, student string, date time.Time) (int64, error)
}

// SessionService handles ledger intake, queries and payment-state mutations.
type SessionService struct {
	repo      sessionRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	settings  BillingSettings
}

// NewSessionService constructs the service.
func NewSessionService(repo sessionRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, settings BillingSettings) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger, settings: settings}
}

// CreateSessionRequest carries the raw form fields for one session. Minutes
// and Duration are mutually exclusive; exactly one must be filled.
type CreateSessionRequest struct {
	Student    string `json:"student" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Minutes    string `json:"minutes"`
	Duration   string `json:"duration"`
	Service    string `json:"service" validate:"required"`
	Mode       string `json:"mode" validate:"required"`
	Tutor      string `json:"tutor" validate:"required"`
	PaidStatus string `json:"paidStatus"`
}

// CreateSessionResponse returns the appended session and its pricing
// breakdown for caller display.
type CreateSessionResponse struct {
	Session *models.Session        `json:"session"`
	Pricing *billing.PricingResult `json:"pricing"`
	Note    string                 `json:"note"`
}

// Create validates the raw fields, prices the session and appends it to the
// ledger.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	student := strings.TrimSpace(req.Student)
	tutor := strings.TrimSpace(req.Tutor)
	if student == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyField, "student cannot be empty")
	}
	if tutor == "" {
		return nil, appErrors.Clone(appErrors.ErrEmptyField, "tutor cannot be empty")
	}

	date, err := billing.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	minutes, err := billing.ParseDuration(req.Minutes, req.Duration)
	if err != nil {
		return nil, err
	}

	service, ok := models.ParseService(req.Service)
	if !ok {
		return nil, appErrors.ErrInvalidService
	}
	mode, ok := models.ParseMode(req.Mode)
	if !ok {
		return nil, appErrors.ErrInvalidMode
	}
	status := models.NormalizePaidStatus(req.PaidStatus)

	pricing, err := billing.PriceSession(billing.PricingInput{
		Student:    student,
		Service:    service,
		Mode:       mode,
		Minutes:    minutes,
		PaidStatus: status,
		Tutor:      tutor,
		Owner:      s.settings.Owner,
		Legacy:     s.settings.Legacy,
		Rates:      s.settings.Rates,
	})
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		StudentName:  student,
		Date:         date,
		Minutes:      minutes,
		HoursDecimal: pricing.HoursDecimal,
		Service:      service,
		Mode:         mode,
		Tutor:        tutor,
		RateTier:     pricing.Tier,
		Rate:         pricing.Rate,
		AmountDue:    pricing.AmountDue,
		TutorPay:     pricing.TutorPay,
		PaidStatus:   status,
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append session")
	}

	s.metrics.RecordSessionCreated()
	s.invalidateDerivedViews(ctx)
	s.logger.Info("session appended",
		zap.String("session_id", session.ID),
		zap.String("student", student),
		zap.String("tutor", tutor),
		zap.String("amount_due", pricing.AmountDue.StringFixed(2)),
	)

	return &CreateSessionResponse{Session: session, Pricing: pricing, Note: session.Note()}, nil
}

// List returns sessions with pagination.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return sessions, pagination, nil
}

// ListUnpaid returns every session the client still owes money for.
// Unrecognized status strings are excluded, not errors.
func (s *SessionService) ListUnpaid(ctx context.Context) ([]models.UnpaidEntry, error) {
	entries, err := s.repo.ListUnpaid(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list unpaid sessions")
	}
	return entries, nil
}

// ListRecent returns up to limit sessions, newest first.
func (s *SessionService) ListRecent(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	sessions, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent sessions")
	}
	return sessions, nil
}

// Search returns a student's sessions within one calendar month. Blank
// inputs yield an empty result, not an error.
func (s *SessionService) Search(ctx context.Context, student, yearMonth string) ([]models.Session, error) {
	student = strings.TrimSpace(student)
	yearMonth = strings.TrimSpace(yearMonth)
	if student == "" || yearMonth == "" {
		return []models.Session{}, nil
	}
	sessions, err := s.repo.SearchByStudentMonth(ctx, student, yearMonth)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search sessions")
	}
	return sessions, nil
}

// MarkSessionPaid settles a single session by id. Unknown ids and
// already-settled sessions report zero rows, not an error, so the call is
// safe to retry.
func (s *SessionService) MarkSessionPaid(ctx context.Context, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, nil
	}
	count, err := s.repo.MarkSessionPaid(ctx, sessionID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark session paid")
	}
	if count > 0 {
		s.invalidateDerivedViews(ctx)
	}
	return count, nil
}

// MarkClientPaid settles every still-unpaid session for a student on a date.
func (s *SessionService) MarkClientPaid(ctx context.Context, student, dateISO string) (int64, error) {
	student = strings.TrimSpace(student)
	if student == "" || strings.TrimSpace(dateISO) == "" {
		return 0, nil
	}
	date, err := billing.ParseDate(dateISO)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.MarkClientPaid(ctx, student, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark client paid")
	}
	if count > 0 {
		s.invalidateDerivedViews(ctx)
	}
	return count, nil
}

// Derived payroll and summary views go stale on any ledger mutation.
func (s *SessionService) invalidateDerivedViews(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "payroll:*"); err != nil {
		s.logger.Warn("payroll cache invalidation failed", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "summary:*"); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}
