package billing

import (
	"strconv"
	"strings"
	"time"

	appErrors "github.com/nk-tutoring/ledger-api/pkg/errors"
)

const isoDate = "2006-01-02"

// ParseDate accepts ISO (YYYY-MM-DD) or US slash (MM/DD/YYYY) input, tried in
// that order, and returns the calendar date.
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range []string{isoDate, "01/02/2006"} {
		if d, err := time.Parse(layout, trimmed); err == nil {
			return d, nil
		}
	}
	return time.Time{}, appErrors.ErrInvalidDate
}

// ParseDuration resolves the two mutually exclusive duration inputs into a
// positive minute count. Exactly one of minutesText and hhmmText must be
// non-empty.
func ParseDuration(minutesText, hhmmText string) (int, error) {
	minutesText = strings.TrimSpace(minutesText)
	hhmmText = strings.TrimSpace(hhmmText)

	if minutesText != "" && hhmmText != "" {
		return 0, appErrors.ErrConflictingDuration
	}
	if minutesText == "" && hhmmText == "" {
		return 0, appErrors.ErrMissingDuration
	}

	if minutesText != "" {
		m, err := strconv.Atoi(minutesText)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrNonPositiveDuration.Code, appErrors.ErrNonPositiveDuration.Status, "minutes must be a whole number")
		}
		if m <= 0 {
			return 0, appErrors.ErrNonPositiveDuration
		}
		return m, nil
	}

	hourPart, minutePart, found := strings.Cut(hhmmText, ":")
	if !found {
		return 0, appErrors.ErrMalformedDuration
	}
	h, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrMalformedDuration.Code, appErrors.ErrMalformedDuration.Status, "hour part must be a whole number")
	}
	m, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrMalformedDuration.Code, appErrors.ErrMalformedDuration.Status, "minute part must be a whole number")
	}
	if m < 0 || m >= 60 {
		return 0, appErrors.ErrInvalidMinutePart
	}

	total := h*60 + m
	if total <= 0 {
		return 0, appErrors.ErrNonPositiveDuration
	}
	return total, nil
}

// WeekRange returns the Monday-through-Sunday window ending at the given
// Sunday (monday = sunday - 6 days). The input is not required to actually
// fall on a Sunday; the window is anchored to whatever end date is given.
func WeekRange(weekEnding time.Time) (time.Time, time.Time) {
	return weekEnding.AddDate(0, 0, -6), weekEnding
}
