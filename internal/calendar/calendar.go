package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRange = errors.New("invalid date range: start is after end")

	// ErrHolidaySourceUnavailable wraps any failure to fetch the public
	// holiday set. The caller decides whether to proceed unfiltered or
	// abort; this package never skips the filter silently.
	ErrHolidaySourceUnavailable = errors.New("holiday source unavailable")
)

const dayFormat = "2006-01-02"

// HolidaySource returns the public holidays for one jurisdiction as a set
// keyed by YYYY-MM-DD.
type HolidaySource interface {
	Holidays(ctx context.Context) (map[string]bool, error)
}

// ExpandRange lists every calendar day from start to end, both inclusive.
func ExpandRange(start, end time.Time) ([]time.Time, error) {
	start = truncate(start)
	end = truncate(end)

	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start.Format(dayFormat), end.Format(dayFormat))
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days, nil
}

// ExcludeWeekends removes Saturdays and Sundays, preserving order.
func ExcludeWeekends(days []time.Time) []time.Time {
	kept := make([]time.Time, 0, len(days))
	for _, d := range days {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// ExcludeHolidays removes days present in the source's holiday set,
// preserving order.
func ExcludeHolidays(ctx context.Context, days []time.Time, source HolidaySource) ([]time.Time, error) {
	holidays, err := source.Holidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHolidaySourceUnavailable, err)
	}

	kept := make([]time.Time, 0, len(days))
	for _, d := range days {
		if holidays[d.Format(dayFormat)] {
			continue
		}
		kept = append(kept, d)
	}

	return kept, nil
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
