package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nk-tutoring/ledger-api/internal/models"
	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-01", "2025-03-01", true},
		{"03/01/2025", "2025-03-01", true},
		{"  2025-11-09  ", "2025-11-09", true},
		{"12/31/2025", "2025-12-31", true},
		{"2025/03/01", "", false},
		{"March 1 2025", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, appErrors.ErrInvalidDate, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, d.Format("2006-01-02"))
	}
}

func TestParseDuration(t *testing.T) {
	m, err := ParseDuration("90", "")
	require.NoError(t, err)
	assert.Equal(t, 90, m)

	m, err = ParseDuration("", "1:30")
	require.NoError(t, err)
	assert.Equal(t, 90, m)

	m, err = ParseDuration("", "0:45")
	require.NoError(t, err)
	assert.Equal(t, 45, m)

	_, err = ParseDuration("90", "1:30")
	assert.ErrorIs(t, err, appErrors.ErrConflictingDuration)

	_, err = ParseDuration("", "")
	assert.ErrorIs(t, err, appErrors.ErrMissingDuration)

	_, err = ParseDuration("0", "")
	assert.ErrorIs(t, err, appErrors.ErrNonPositiveDuration)

	_, err = ParseDuration("-30", "")
	assert.ErrorIs(t, err, appErrors.ErrNonPositiveDuration)

	_, err = ParseDuration("", "130")
	assert.ErrorIs(t, err, appErrors.ErrMalformedDuration)

	_, err = ParseDuration("", "1:60")
	assert.ErrorIs(t, err, appErrors.ErrInvalidMinutePart)

	_, err = ParseDuration("", "0:00")
	assert.ErrorIs(t, err, appErrors.ErrNonPositiveDuration)
}

func TestHoursFromMinutes(t *testing.T) {
	cases := map[int]string{
		90:  "1.5",
		100: "1.67",
		45:  "0.75",
		60:  "1",
		1:   "0.02",
	}
	for minutes, want := range cases {
		assert.Equal(t, want, HoursFromMinutes(minutes).String(), "minutes=%d", minutes)
	}
}

func TestWeekRange(t *testing.T) {
	sunday, err := ParseDate("2025-03-09")
	require.NoError(t, err)
	start, end := WeekRange(sunday)
	assert.Equal(t, "2025-03-03", start.Format("2006-01-02"))
	assert.Equal(t, "2025-03-09", end.Format("2006-01-02"))
	assert.Equal(t, time.Monday, start.Weekday())
}

func TestLegacyPricingIgnoresMode(t *testing.T) {
	legacy := NewLegacySet([]string{"brie"})
	for _, mode := range []models.Mode{models.ModeOnline, models.ModeInPerson} {
		res, err := PriceSession(PricingInput{
			Student:    "Brie",
			Service:    models.ServiceK12,
			Mode:       mode,
			Minutes:    60,
			PaidStatus: models.PaidStatusNotPaid,
			Tutor:      "Aryan",
			Owner:      "Nitin",
			Legacy:     legacy,
			Rates:      DefaultRateTable(),
		})
		require.NoError(t, err)
		assert.Equal(t, models.TierLegacy, res.Tier)
		assert.Equal(t, "25.00", res.Rate.StringFixed(2), "mode=%s", mode)
		assert.Equal(t, "25.00", res.AmountDue.StringFixed(2), "mode=%s", mode)
	}
}

func TestNewTierPricingByMode(t *testing.T) {
	res, err := PriceSession(PricingInput{
		Student:    "Sam",
		Service:    models.ServiceCollegeAP,
		Mode:       models.ModeInPerson,
		Minutes:    90,
		PaidStatus: models.PaidStatusNotPaid,
		Tutor:      "Neha",
		Owner:      "Nitin",
		Legacy:     NewLegacySet(nil),
		Rates:      DefaultRateTable(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TierNew, res.Tier)
	assert.Equal(t, "50.00", res.Rate.StringFixed(2))
	assert.Equal(t, "1.50", res.HoursDecimal.StringFixed(2))
	assert.Equal(t, "75.00", res.AmountDue.StringFixed(2))
	assert.Equal(t, "37.50", res.TutorPay.StringFixed(2))
	assert.Equal(t, "Pay Neha $37.50", res.Note)
}

func TestFreeSessionSubsidy(t *testing.T) {
	res, err := PriceSession(PricingInput{
		Student:    "Sam",
		Service:    models.ServiceSATACT,
		Mode:       models.ModeOnline,
		Minutes:    60,
		PaidStatus: models.PaidStatusFree,
		Tutor:      "Aryan",
		Owner:      "Nitin",
		Legacy:     NewLegacySet(nil),
		Rates:      DefaultRateTable(),
	})
	require.NoError(t, err)
	assert.True(t, res.AmountDue.IsZero())
	// Half of the full value, not of the (zero) amount due.
	assert.Equal(t, "17.50", res.TutorPay.StringFixed(2))
	assert.Equal(t, "Pay Aryan $17.50", res.Note)
}

func TestOwnerPassthrough(t *testing.T) {
	in := PricingInput{
		Student:    "Sam",
		Service:    models.ServiceSATACT,
		Mode:       models.ModeOnline,
		Minutes:    60,
		PaidStatus: models.PaidStatusNotPaid,
		Tutor:      "Nitin",
		Owner:      "Nitin",
		Legacy:     NewLegacySet(nil),
		Rates:      DefaultRateTable(),
	}
	res, err := PriceSession(in)
	require.NoError(t, err)
	assert.True(t, res.TutorPay.Equal(res.AmountDue))

	in.PaidStatus = models.PaidStatusFree
	res, err = PriceSession(in)
	require.NoError(t, err)
	assert.True(t, res.TutorPay.IsZero())
	assert.True(t, res.AmountDue.IsZero())
}

func TestBlankStatusDefaultsToNotPaid(t *testing.T) {
	res, err := PriceSession(PricingInput{
		Student:    "Sam",
		Service:    models.ServiceK12,
		Mode:       models.ModeOnline,
		Minutes:    60,
		PaidStatus: models.PaidStatus(""),
		Tutor:      "Aryan",
		Owner:      "Nitin",
		Legacy:     NewLegacySet(nil),
		Rates:      DefaultRateTable(),
	})
	require.NoError(t, err)
	assert.Equal(t, "30.00", res.AmountDue.StringFixed(2))
	assert.Equal(t, "15.00", res.TutorPay.StringFixed(2))
}

func TestPriceSessionValidation(t *testing.T) {
	base := PricingInput{
		Student: "Sam",
		Mode:    models.ModeOnline,
		Minutes: 60,
		Tutor:   "Aryan",
		Owner:   "Nitin",
		Legacy:  NewLegacySet(nil),
		Rates:   DefaultRateTable(),
	}

	bad := base
	bad.Service = models.Service("Chess Coaching")
	_, err := PriceSession(bad)
	assert.ErrorIs(t, err, appErrors.ErrInvalidService)

	bad = base
	bad.Service = models.ServiceK12
	bad.Mode = models.Mode("Hybrid")
	_, err = PriceSession(bad)
	assert.ErrorIs(t, err, appErrors.ErrInvalidMode)
}

func TestTutorEarningsAndOwnerContribution(t *testing.T) {
	hours := decimal.RequireFromString("1.5")
	rate := decimal.NewFromInt(40)
	due := decimal.NewFromInt(60)

	// Paid session by a non-owner tutor: tutor gets half, owner keeps half.
	earn := TutorEarnings("Nitin", "Aryan", models.PaidStatusPaid, hours, rate, due)
	assert.Equal(t, "30.00", earn.Round(2).StringFixed(2))
	contrib, freeCost := OwnerContribution("Nitin", "Aryan", models.PaidStatusPaid, hours, rate, due)
	assert.Equal(t, "30.00", contrib.Round(2).StringFixed(2))
	assert.True(t, freeCost.IsZero())

	// Free session: tutor is still paid half of full value, owner eats it.
	earn = TutorEarnings("Nitin", "Aryan", models.PaidStatusFree, hours, rate, decimal.Zero)
	assert.Equal(t, "30.00", earn.Round(2).StringFixed(2))
	contrib, freeCost = OwnerContribution("Nitin", "Aryan", models.PaidStatusFree, hours, rate, decimal.Zero)
	assert.Equal(t, "-30.00", contrib.Round(2).StringFixed(2))
	assert.Equal(t, "30.00", freeCost.Round(2).StringFixed(2))

	// Owner's own session is straight passthrough.
	earn = TutorEarnings("Nitin", "Nitin", models.PaidStatusPaid, hours, rate, due)
	assert.True(t, earn.Equal(due))
	contrib, freeCost = OwnerContribution("Nitin", "Nitin", models.PaidStatusPaid, hours, rate, due)
	assert.True(t, contrib.Equal(due))
	assert.True(t, freeCost.IsZero())
}

func TestSessionID(t *testing.T) {
	assert.Equal(t, "20250301-alex_chen-1", SessionID("2025-03-01", "Alex Chen", 1))
	assert.Equal(t, "20250301-alex_chen-2", SessionID("2025-03-01", " Alex Chen ", 2))
}
