package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

type stubCacheRepo struct {
	store    map[string][]byte
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	for key := range s.store {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.store, key)
		}
	}
	return nil
}

func newTestCache(repo *stubCacheRepo) *CacheService {
	return NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
}

func testBillingSettings() BillingSettings {
	return BillingSettings{
		Owner:  "Nitin",
		Legacy: billing.NewLegacySet([]string{"Brie"}),
		Rates:  billing.DefaultRateTable(),
	}
}

type mockSessionRepo struct {
	inserted      []*models.Session
	insertErr     error
	listSessions  []models.Session
	listTotal     int
	listFilter    models.SessionFilter
	unpaid        []models.UnpaidEntry
	recent        []models.Session
	recentLimit   int
	searchCalls   int
	markPaidID    string
	markPaidCount int64
	clientPaid    int64
	clientDate    time.Time
}

func (m *mockSessionRepo) Insert(_ context.Context, session *models.Session) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	session.ID = billing.SessionID(session.DateISO(), session.StudentName, len(m.inserted)+1)
	m.inserted = append(m.inserted, session)
	return nil
}

func (m *mockSessionRepo) List(_ context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	m.listFilter = filter
	return m.listSessions, m.listTotal, nil
}

func (m *mockSessionRepo) ListUnpaid(_ context.Context) ([]models.UnpaidEntry, error) {
	return m.unpaid, nil
}

func (m *mockSessionRepo) ListRecent(_ context.Context, limit int) ([]models.Session, error) {
	m.recentLimit = limit
	return m.recent, nil
}

func (m *mockSessionRepo) SearchByStudentMonth(_ context.Context, student, yearMonth string) ([]models.Session, error) {
	m.searchCalls++
	return nil, nil
}

func (m *mockSessionRepo) MarkSessionPaid(_ context.Context, sessionID string) (int64, error) {
	m.markPaidID = sessionID
	return m.markPaidCount, nil
}

func (m *mockSessionRepo) MarkClientPaid(_ context.Context, student string, date time.Time) (int64, error) {
	m.clientDate = date
	return m.clientPaid, nil
}

func newSessionService(repo *mockSessionRepo, cacheRepo *stubCacheRepo) *SessionService {
	return NewSessionService(repo, newTestCache(cacheRepo), nil, nil, zap.NewNop(), testBillingSettings())
}

func TestSessionServiceCreateNewTier(t *testing.T) {
	repo := &mockSessionRepo{}
	cacheRepo := &stubCacheRepo{}
	svc := newSessionService(repo, cacheRepo)

	resp, err := svc.Create(context.Background(), CreateSessionRequest{
		Student:    "Alex Kim",
		Date:       "2025-03-01",
		Minutes:    "100",
		Service:    "SAT & ACT Prep",
		Mode:       "In-Person",
		Tutor:      "Maya",
		PaidStatus: "",
	})
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)

	assert.Equal(t, "20250301-alex_kim-1", resp.Session.ID)
	assert.Equal(t, models.TierNew, resp.Session.RateTier)
	assert.Equal(t, "45", resp.Session.Rate.String())
	assert.Equal(t, "1.67", resp.Session.HoursDecimal.String())
	assert.Equal(t, "75.15", resp.Session.AmountDue.StringFixed(2))
	assert.Equal(t, "37.58", resp.Session.TutorPay.StringFixed(2))
	assert.Equal(t, models.PaidStatusNotPaid, resp.Session.PaidStatus)
	assert.Equal(t, "Pay Maya $37.58", resp.Note)

	assert.Contains(t, cacheRepo.patterns, "payroll:*")
	assert.Contains(t, cacheRepo.patterns, "summary:*")
}

func TestSessionServiceCreateLegacyIgnoresMode(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &stubCacheRepo{})

	resp, err := svc.Create(context.Background(), CreateSessionRequest{
		Student: "Brie",
		Date:    "03/01/2025",
		Minutes: "60",
		Service: "K–12 Tutoring",
		Mode:    "In-Person",
		Tutor:   "Maya",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TierLegacy, resp.Session.RateTier)
	assert.Equal(t, "25.00", resp.Session.Rate.StringFixed(2))
	assert.Equal(t, "25.00", resp.Session.AmountDue.StringFixed(2))
}

func TestSessionServiceCreateFreeSession(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &stubCacheRepo{})

	resp, err := svc.Create(context.Background(), CreateSessionRequest{
		Student:    "Alex Kim",
		Date:       "2025-03-01",
		Duration:   "1:00",
		Service:    "K–12 Tutoring",
		Mode:       "Online",
		Tutor:      "Maya",
		PaidStatus: "free session",
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", resp.Session.AmountDue.StringFixed(2))
	assert.Equal(t, "15.00", resp.Session.TutorPay.StringFixed(2))
	assert.Equal(t, models.PaidStatusFree, resp.Session.PaidStatus)
}

func TestSessionServiceCreateOwnerPassthrough(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &stubCacheRepo{})

	resp, err := svc.Create(context.Background(), CreateSessionRequest{
		Student: "Alex Kim",
		Date:    "2025-03-01",
		Minutes: "60",
		Service: "College & AP Courses",
		Mode:    "Online",
		Tutor:   "nitin",
	})
	require.NoError(t, err)
	assert.Equal(t, "40.00", resp.Session.AmountDue.StringFixed(2))
	assert.Equal(t, "40.00", resp.Session.TutorPay.StringFixed(2))
}

func TestSessionServiceCreateValidation(t *testing.T) {
	svc := newSessionService(&mockSessionRepo{}, &stubCacheRepo{})
	ctx := context.Background()

	base := CreateSessionRequest{
		Student: "Alex",
		Date:    "2025-03-01",
		Minutes: "60",
		Service: "K–12 Tutoring",
		Mode:    "Online",
		Tutor:   "Maya",
	}

	tests := []struct {
		name   string
		mutate func(r *CreateSessionRequest)
		code   string
	}{
		{"missing student", func(r *CreateSessionRequest) { r.Student = "" }, appErrors.ErrValidation.Code},
		{"whitespace tutor", func(r *CreateSessionRequest) { r.Tutor = "   " }, appErrors.ErrEmptyField.Code},
		{"bad date", func(r *CreateSessionRequest) { r.Date = "March 1" }, appErrors.ErrInvalidDate.Code},
		{"both durations", func(r *CreateSessionRequest) { r.Duration = "1:30" }, appErrors.ErrConflictingDuration.Code},
		{"neither duration", func(r *CreateSessionRequest) { r.Minutes = "" }, appErrors.ErrMissingDuration.Code},
		{"zero minutes", func(r *CreateSessionRequest) { r.Minutes = "0" }, appErrors.ErrNonPositiveDuration.Code},
		{"unknown service", func(r *CreateSessionRequest) { r.Service = "Chess" }, appErrors.ErrInvalidService.Code},
		{"unknown mode", func(r *CreateSessionRequest) { r.Mode = "Hybrid" }, appErrors.ErrInvalidMode.Code},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			_, err := svc.Create(ctx, req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
		})
	}
}

func TestSessionServiceCreateInsertFailure(t *testing.T) {
	repo := &mockSessionRepo{insertErr: errors.New("boom")}
	svc := newSessionService(repo, &stubCacheRepo{})

	_, err := svc.Create(context.Background(), CreateSessionRequest{
		Student: "Alex",
		Date:    "2025-03-01",
		Minutes: "60",
		Service: "K–12 Tutoring",
		Mode:    "Online",
		Tutor:   "Maya",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceListDefaultsPagination(t *testing.T) {
	repo := &mockSessionRepo{listTotal: 3}
	svc := newSessionService(repo, &stubCacheRepo{})

	_, pagination, err := svc.List(context.Background(), models.SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listFilter.Page)
	assert.Equal(t, 50, repo.listFilter.PageSize)
	assert.Equal(t, 3, pagination.TotalCount)
}

func TestSessionServiceListRecentLimits(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &stubCacheRepo{})
	ctx := context.Background()

	_, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, repo.recentLimit)

	_, err = svc.ListRecent(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, repo.recentLimit)
}

func TestSessionServiceSearchBlankInputs(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionService(repo, &stubCacheRepo{})

	sessions, err := svc.Search(context.Background(), "  ", "2025-03")
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Zero(t, repo.searchCalls)
}

func TestSessionServiceMarkSessionPaid(t *testing.T) {
	repo := &mockSessionRepo{markPaidCount: 1}
	cacheRepo := &stubCacheRepo{}
	svc := newSessionService(repo, cacheRepo)
	ctx := context.Background()

	count, err := svc.MarkSessionPaid(ctx, " 20250301-alex-1 ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "20250301-alex-1", repo.markPaidID)
	assert.Contains(t, cacheRepo.patterns, "payroll:*")

	count, err = svc.MarkSessionPaid(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSessionServiceMarkClientPaid(t *testing.T) {
	repo := &mockSessionRepo{clientPaid: 2}
	svc := newSessionService(repo, &stubCacheRepo{})

	count, err := svc.MarkClientPaid(context.Background(), "Alex", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), repo.clientDate)

	_, err = svc.MarkClientPaid(context.Background(), "Alex", "bad date")
	require.Error(t, err)
}
