package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Service identifies one of the offered tutoring services.
type Service string

const (
	ServiceK12       Service = "K–12 Tutoring"
	ServiceSATACT    Service = "SAT & ACT Prep"
	ServiceCollegeAP Service = "College & AP Courses"
)

// Services lists every offered service in display order.
func Services() []Service {
	return []Service{ServiceK12, ServiceSATACT, ServiceCollegeAP}
}

// ParseService normalises free-form input into a known service.
func ParseService(raw string) (Service, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, svc := range Services() {
		if strings.EqualFold(trimmed, string(svc)) {
			return svc, true
		}
	}
	return "", false
}

// Mode identifies how a session was delivered.
type Mode string

const (
	ModeOnline   Mode = "Online"
	ModeInPerson Mode = "In-Person"
)

// ParseMode normalises free-form input into a known mode.
func ParseMode(raw string) (Mode, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, mode := range []Mode{ModeOnline, ModeInPerson} {
		if strings.EqualFold(trimmed, string(mode)) {
			return mode, true
		}
	}
	return "", false
}

// RateTier distinguishes grandfathered clients from the current schedule.
type RateTier string

const (
	TierLegacy RateTier = "Legacy"
	TierNew    RateTier = "New"
)

// PaidStatus tracks what the client owes for a session. Values outside the
// known three are tolerated on read (excluded from the unpaid view) but never
// produced by this module.
type PaidStatus string

const (
	PaidStatusNotPaid PaidStatus = "Not Paid"
	PaidStatusPaid    PaidStatus = "Paid"
	PaidStatusFree    PaidStatus = "Free session"
)

// NormalizePaidStatus maps raw input to a canonical spelling. Blank input
// means the client has not paid. Unrecognized values are kept verbatim.
func NormalizePaidStatus(raw string) PaidStatus {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PaidStatusNotPaid
	}
	for _, status := range []PaidStatus{PaidStatusNotPaid, PaidStatusPaid, PaidStatusFree} {
		if strings.EqualFold(trimmed, string(status)) {
			return status
		}
	}
	return PaidStatus(trimmed)
}

// IsFree reports whether the session is a free (subsidized) one.
func (s PaidStatus) IsFree() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(string(s))), "free")
}

// Owed reports whether the client still owes money for this status.
func (s PaidStatus) Owed() bool {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "", "not paid", "unpaid":
		return true
	default:
		return false
	}
}

// Settled reports whether the status is one of the terminal, nothing-owed
// states (paid or free session).
func (s PaidStatus) Settled() bool {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "paid", "free session":
		return true
	default:
		return false
	}
}

// Session is the atomic unit of the ledger. Rows are append-only: after
// creation only paid_status, payout_settled and updated_at may change.
type Session struct {
	ID            string          `db:"id" json:"id"`
	StudentName   string          `db:"student_name" json:"studentName"`
	Date          time.Time       `db:"session_date" json:"date"`
	Minutes       int             `db:"minutes" json:"minutes"`
	HoursDecimal  decimal.Decimal `db:"hours_decimal" json:"hoursDecimal"`
	Service       Service         `db:"service" json:"service"`
	Mode          Mode            `db:"mode" json:"mode"`
	Tutor         string          `db:"tutor" json:"tutor"`
	RateTier      RateTier        `db:"rate_tier" json:"rateTier"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	AmountDue     decimal.Decimal `db:"amount_due" json:"amountDue"`
	TutorPay      decimal.Decimal `db:"tutor_pay" json:"tutorPay"`
	PaidStatus    PaidStatus      `db:"paid_status" json:"paidStatus"`
	PayoutSettled bool            `db:"payout_settled" json:"payoutSettled"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// DateISO renders the session date in canonical ISO form.
func (s Session) DateISO() string {
	return s.Date.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM grouping key for summary aggregation.
func (s Session) MonthKey() string {
	return s.Date.Format("2006-01")
}

// Note derives the human-readable payout note. The settled flag is the source
// of truth; the note is display only and is never parsed back.
func (s Session) Note() string {
	verb := "Pay"
	if s.PayoutSettled {
		verb = "Paid"
	}
	return fmt.Sprintf("%s %s $%s", verb, s.Tutor, s.TutorPay.StringFixed(2))
}

// UnpaidEntry is the unpaid-view projection of a session.
type UnpaidEntry struct {
	ID          string          `db:"id" json:"id"`
	StudentName string          `db:"student_name" json:"studentName"`
	Date        time.Time       `db:"session_date" json:"date"`
	Service     string          `db:"service" json:"service"`
	Tutor       string          `db:"tutor" json:"tutor"`
	AmountDue   decimal.Decimal `db:"amount_due" json:"amountDue"`
	PaidStatus  string          `db:"paid_status" json:"paidStatus"`
}

// SessionFilter narrows the paginated session listing.
type SessionFilter struct {
	Student    string
	Tutor      string
	PaidStatus string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
