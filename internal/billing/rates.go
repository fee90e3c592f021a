package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

// RateTable holds the two-tier hourly rate schedule: legacy clients pay one
// flat rate per service regardless of mode, new clients pay per service and
// mode. The table is plain data passed into the pricing functions at call
// time so alternate schedules can be exercised without process-wide state.
type RateTable struct {
	Legacy map[models.Service]decimal.Decimal
	New    map[models.Service]map[models.Mode]decimal.Decimal
}

// DefaultRateTable returns the business's current schedule.
func DefaultRateTable() RateTable {
	return RateTable{
		Legacy: map[models.Service]decimal.Decimal{
			models.ServiceK12:       decimal.NewFromInt(25),
			models.ServiceSATACT:    decimal.NewFromInt(35),
			models.ServiceCollegeAP: decimal.NewFromInt(30),
		},
		New: map[models.Service]map[models.Mode]decimal.Decimal{
			models.ServiceK12: {
				models.ModeOnline:   decimal.NewFromInt(30),
				models.ModeInPerson: decimal.NewFromInt(40),
			},
			models.ServiceSATACT: {
				models.ModeOnline:   decimal.NewFromInt(35),
				models.ModeInPerson: decimal.NewFromInt(45),
			},
			models.ServiceCollegeAP: {
				models.ModeOnline:   decimal.NewFromInt(40),
				models.ModeInPerson: decimal.NewFromInt(50),
			},
		},
	}
}

// LegacySet is the configured set of students grandfathered onto legacy
// rates. Membership is case-insensitive on trimmed names.
type LegacySet map[string]struct{}

// NewLegacySet normalises the configured client names once, at construction.
func NewLegacySet(names []string) LegacySet {
	set := make(LegacySet, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the student is on legacy pricing.
func (s LegacySet) Contains(student string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(student))]
	return ok
}

// RateFor resolves the tier and hourly rate for a student. Legacy pricing
// ignores mode entirely.
func (t RateTable) RateFor(student string, service models.Service, mode models.Mode, legacy LegacySet) (models.RateTier, decimal.Decimal, error) {
	if legacy.Contains(student) {
		rate, ok := t.Legacy[service]
		if !ok {
			return "", decimal.Zero, appErrors.ErrInvalidService
		}
		return models.TierLegacy, rate, nil
	}

	modes, ok := t.New[service]
	if !ok {
		return "", decimal.Zero, appErrors.ErrInvalidService
	}
	rate, ok := modes[mode]
	if !ok {
		return "", decimal.Zero, appErrors.ErrInvalidMode
	}
	return models.TierNew, rate, nil
}
