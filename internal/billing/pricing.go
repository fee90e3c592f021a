package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

var two = decimal.NewFromInt(2)

// PricingInput carries everything PriceSession needs. Owner, Legacy and
// Rates are explicit so callers (and tests) can supply alternate schedules.
type PricingInput struct {
	Student    string
	Service    models.Service
	Mode       models.Mode
	Minutes    int
	PaidStatus models.PaidStatus
	Tutor      string
	Owner      string
	Legacy     LegacySet
	Rates      RateTable
}

// PricingResult is the full pricing breakdown for one session.
type PricingResult struct {
	Tier         models.RateTier `json:"tier"`
	Rate         decimal.Decimal `json:"rate"`
	HoursDecimal decimal.Decimal `json:"hoursDecimal"`
	FullAmount   decimal.Decimal `json:"fullAmount"`
	AmountDue    decimal.Decimal `json:"amountDue"`
	TutorPay     decimal.Decimal `json:"tutorPay"`
	Note         string          `json:"note"`
}

// HoursFromMinutes converts a minute count into the decimal billing unit,
// rounded to 2 places (90 -> 1.5, 100 -> 1.67, 45 -> 0.75).
func HoursFromMinutes(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}

// PriceSession prices one session. Pure function: no side effects, no I/O.
//
// Client obligation: free sessions owe nothing, everything else owes the full
// session value. Tutor payout: the owner keeps 100% of the amount due; every
// other tutor gets half: half of the full (un-subsidized) value when the
// session was free, half of the amount due otherwise.
func PriceSession(in PricingInput) (*PricingResult, error) {
	if _, ok := in.Rates.Legacy[in.Service]; !ok {
		return nil, appErrors.ErrInvalidService
	}
	if in.Mode != models.ModeOnline && in.Mode != models.ModeInPerson {
		return nil, appErrors.ErrInvalidMode
	}

	hours := HoursFromMinutes(in.Minutes)
	tier, rate, err := in.Rates.RateFor(in.Student, in.Service, in.Mode, in.Legacy)
	if err != nil {
		return nil, err
	}

	fullAmount := hours.Mul(rate).Round(2)

	status := in.PaidStatus
	if strings.TrimSpace(string(status)) == "" {
		status = models.PaidStatusNotPaid
	}
	isFree := status.IsFree()

	amountDue := fullAmount
	if isFree {
		amountDue = decimal.Zero.Round(2)
	}

	var tutorPay decimal.Decimal
	switch {
	case isOwner(in.Owner, in.Tutor):
		tutorPay = amountDue
	case isFree:
		tutorPay = fullAmount.Div(two).Round(2)
	default:
		tutorPay = amountDue.Div(two).Round(2)
	}

	return &PricingResult{
		Tier:         tier,
		Rate:         rate,
		HoursDecimal: hours,
		FullAmount:   fullAmount,
		AmountDue:    amountDue,
		TutorPay:     tutorPay,
		Note:         fmt.Sprintf("Pay %s $%s", in.Tutor, tutorPay.StringFixed(2)),
	}, nil
}

// TutorEarnings recomputes what the performing tutor earns on a stored
// session from its persisted hours/rate/amount-due fields, so post-hoc
// paid-status edits are reflected. Shares are accumulated unrounded; callers
// round once at render time.
func TutorEarnings(owner, tutor string, status models.PaidStatus, hours, rate, amountDue decimal.Decimal) decimal.Decimal {
	if isOwner(owner, tutor) {
		return amountDue
	}
	if status.IsFree() {
		return hours.Mul(rate).Div(two)
	}
	return amountDue.Div(two)
}

// OwnerContribution returns the session's net contribution to the owner's
// business earnings, plus the free-session subsidy cost when the business
// paid a tutor for a session the client got for free.
func OwnerContribution(owner, tutor string, status models.PaidStatus, hours, rate, amountDue decimal.Decimal) (contribution, freeCost decimal.Decimal) {
	if isOwner(owner, tutor) {
		return amountDue, decimal.Zero
	}
	if status.IsFree() {
		cost := hours.Mul(rate).Div(two)
		return cost.Neg(), cost
	}
	return amountDue.Div(two), decimal.Zero
}

func isOwner(owner, tutor string) bool {
	return strings.EqualFold(strings.TrimSpace(tutor), strings.TrimSpace(owner))
}

// SessionID builds the stable per-day-per-student identifier:
// <YYYYMMDD>-<student slug>-<serial>, serial being the 1-based count of
// same-student-same-date sessions.
func SessionID(dateISO, student string, serial int) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(student)), " ", "_")
	return fmt.Sprintf("%s-%s-%d", strings.ReplaceAll(dateISO, "-", ""), slug, serial)
}
