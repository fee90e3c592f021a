package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nk-tutoring/ledger-api/internal/billing"
	"github.com/nk-tutoring/ledger-api/internal/models"
)

const sessionColumns = `id, student_name, session_date, minutes, hours_decimal, service, mode, tutor, rate_tier, rate, amount_due, tutor_pay, paid_status, payout_settled, created_at, updated_at`

// Statuses the client still owes money for. Anything else (including
// unrecognized strings) is excluded from the unpaid view.
const unpaidStatusPredicate = `LOWER(TRIM(paid_status)) IN ('', 'not paid', 'unpaid')`

// SessionRepository manages persistence for the session ledger.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a new repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert assigns the session id and appends the row. The serial count and the
// insert run in one transaction holding an advisory lock keyed on
// (date, student), so two concurrent appends for the same student and day
// cannot compute the same serial.
func (r *SessionRepository) Insert(ctx context.Context, session *models.Session) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert session: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dateISO := session.Date.Format("2006-01-02")
	lockKey := dateISO + "|" + strings.ToLower(strings.TrimSpace(session.StudentName))
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
		return fmt.Errorf("acquire session id lock: %w", err)
	}

	var serial int
	countQuery := "SELECT COUNT(*) + 1 FROM sessions WHERE session_date = $1 AND LOWER(TRIM(student_name)) = LOWER(TRIM($2))"
	if err := tx.GetContext(ctx, &serial, countQuery, session.Date, session.StudentName); err != nil {
		return fmt.Errorf("count same-day sessions: %w", err)
	}

	session.ID = billing.SessionID(dateISO, session.StudentName, serial)
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	insert := `INSERT INTO sessions (` + sessionColumns + `)
VALUES (:id, :student_name, :session_date, :minutes, :hours_decimal, :service, :mode, :tutor, :rate_tier, :rate, :amount_due, :tutor_pay, :paid_status, :payout_settled, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert session: %w", err)
	}
	return nil
}

// List returns sessions per provided filter with a total count.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Student != "" {
		where = append(where, fmt.Sprintf("LOWER(TRIM(student_name)) = LOWER(TRIM($%d))", len(args)+1))
		args = append(args, filter.Student)
	}
	if filter.Tutor != "" {
		where = append(where, fmt.Sprintf("LOWER(TRIM(tutor)) = LOWER(TRIM($%d))", len(args)+1))
		args = append(args, filter.Tutor)
	}
	if filter.PaidStatus != "" {
		where = append(where, fmt.Sprintf("LOWER(TRIM(paid_status)) = LOWER(TRIM($%d))", len(args)+1))
		args = append(args, filter.PaidStatus)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("session_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM sessions WHERE %s ORDER BY session_date DESC, id DESC LIMIT %d OFFSET %d", sessionColumns, whereClause, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListUnpaid returns every session the client still owes money for.
func (r *SessionRepository) ListUnpaid(ctx context.Context) ([]models.UnpaidEntry, error) {
	query := "SELECT id, student_name, session_date, service, tutor, amount_due, paid_status FROM sessions WHERE " + unpaidStatusPredicate + " ORDER BY session_date, id"
	var entries []models.UnpaidEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list unpaid sessions: %w", err)
	}
	return entries, nil
}

// ListRecent returns the most recent sessions ordered by date then id,
// descending.
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions ORDER BY session_date DESC, id DESC LIMIT $1", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, limit); err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	return sessions, nil
}

// SearchByStudentMonth returns a student's sessions within one calendar month.
func (r *SessionRepository) SearchByStudentMonth(ctx context.Context, student, yearMonth string) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE LOWER(TRIM(student_name)) = LOWER(TRIM($1)) AND to_char(session_date, 'YYYY-MM') = $2 ORDER BY session_date, id", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, student, yearMonth); err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	return sessions, nil
}

// ListByDateRange returns every session whose date falls inside the inclusive
// window.
func (r *SessionRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE session_date BETWEEN $1 AND $2 ORDER BY session_date, id", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, start, end); err != nil {
		return nil, fmt.Errorf("list sessions by range: %w", err)
	}
	return sessions, nil
}

// ListAll returns the full ledger in date order for summary rebuilds.
func (r *SessionRepository) ListAll(ctx context.Context) ([]models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions ORDER BY session_date, id", sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list all sessions: %w", err)
	}
	return sessions, nil
}

// MarkSessionPaid flips one session to Paid unless it is already paid or a
// free session. Returns rows affected; repeating the call yields zero.
func (r *SessionRepository) MarkSessionPaid(ctx context.Context, sessionID string) (int64, error) {
	query := `UPDATE sessions SET paid_status = $2, updated_at = $3 WHERE id = $1 AND LOWER(TRIM(paid_status)) NOT IN ('paid', 'free session')`
	res, err := r.db.ExecContext(ctx, query, sessionID, string(models.PaidStatusPaid), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark session paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark session paid rows: %w", err)
	}
	return affected, nil
}

// MarkClientPaid flips every still-unpaid session for a student on a given
// date to Paid. Already-paid and free sessions are untouched.
func (r *SessionRepository) MarkClientPaid(ctx context.Context, student string, date time.Time) (int64, error) {
	query := `UPDATE sessions SET paid_status = $3, updated_at = $4 WHERE LOWER(TRIM(student_name)) = LOWER(TRIM($1)) AND session_date = $2 AND ` + unpaidStatusPredicate
	res, err := r.db.ExecContext(ctx, query, student, date, string(models.PaidStatusPaid), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark client paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark client paid rows: %w", err)
	}
	return affected, nil
}

// SettleWeekPayouts marks every unsettled non-owner payout in the window as
// settled. Safe to retry: rows already settled are skipped, so a repeat call
// reports zero.
func (r *SessionRepository) SettleWeekPayouts(ctx context.Context, start, end time.Time, ownerTutor string) (int64, error) {
	query := `UPDATE sessions SET payout_settled = TRUE, updated_at = $4 WHERE session_date BETWEEN $1 AND $2 AND LOWER(TRIM(tutor)) <> LOWER(TRIM($3)) AND NOT payout_settled`
	res, err := r.db.ExecContext(ctx, query, start, end, ownerTutor, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("settle week payouts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("settle week payouts rows: %w", err)
	}
	return affected, nil
}
