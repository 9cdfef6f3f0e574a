package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leavedesk/internal/booking"
	"leavedesk/internal/calendar"
	"leavedesk/internal/logger"
	"leavedesk/internal/mailparse"
	"leavedesk/internal/metrics"
)

var ErrNoDatesFound = errors.New("no dates found in request")

// Summary is what the response-composition side consumes: who asked, what
// happened to every requested day, and where the allowance landed.
type Summary struct {
	Sender        string            `json:"sender"`
	Name          string            `json:"name"`
	Outcomes      []booking.Outcome `json:"outcomes"`
	RemainingDays int               `json:"remaining_days"`
}

// BookedDays returns the days that were newly booked, in request order.
func (s *Summary) BookedDays() []time.Time {
	var days []time.Time
	for _, o := range s.Outcomes {
		if o.Status == booking.StatusBooked {
			days = append(days, o.Day)
		}
	}
	return days
}

// Notifier queues the confirmation email for a processed request.
type Notifier interface {
	SendHolidaySummary(ctx context.Context, to, name string, booked []time.Time, remaining int) error
}

type Service struct {
	bookings booking.Service
	holidays calendar.HolidaySource
	notifier Notifier
}

func NewService(bookings booking.Service, holidays calendar.HolidaySource, notifier Notifier) *Service {
	return &Service{bookings: bookings, holidays: holidays, notifier: notifier}
}

// Process runs one holiday-request email through the whole pipeline:
// extract dates, derive the bookable working days, book each of them
// best-effort, then report. The requested range is taken as min..max of the
// extracted dates, on the assumption that the email states one contiguous
// range.
func (s *Service) Process(ctx context.Context, rawEmail string) (*Summary, error) {
	msg, err := mailparse.ReadMessage(rawEmail)
	if err != nil {
		metrics.RecordRequestProcessed("parse_error")
		return nil, err
	}

	sender, err := mailparse.ExtractSender(msg)
	if err != nil {
		metrics.RecordRequestProcessed("parse_error")
		return nil, err
	}

	body, err := mailparse.ExtractPlainText(msg)
	if err != nil {
		metrics.RecordRequestProcessed("parse_error")
		return nil, err
	}

	dates := mailparse.ExtractDates(body)
	if len(dates) == 0 {
		metrics.RecordRequestProcessed("no_dates")
		return nil, fmt.Errorf("%w (sender %s)", ErrNoDatesFound, sender)
	}

	start, end := minMax(dates)

	days, err := calendar.ExpandRange(start, end)
	if err != nil {
		metrics.RecordRequestProcessed("invalid_range")
		return nil, err
	}

	days = calendar.ExcludeWeekends(days)

	// Holiday-feed failures abort the request rather than booking an
	// unfiltered list.
	days, err = calendar.ExcludeHolidays(ctx, days, s.holidays)
	if err != nil {
		metrics.RecordRequestProcessed("holiday_source_error")
		return nil, err
	}

	// Best-effort batch: one rejected day does not stop the rest, and
	// every surviving day shows up in the summary with an outcome.
	outcomes := make([]booking.Outcome, 0, len(days))
	for _, day := range days {
		outcomes = append(outcomes, s.bookings.Book(ctx, sender, day))
	}

	remaining, err := s.bookings.RemainingAllowance(ctx, sender)
	if err != nil {
		return nil, err
	}

	name, err := s.bookings.DisplayName(ctx, sender)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Sender:        sender,
		Name:          name,
		Outcomes:      outcomes,
		RemainingDays: remaining,
	}

	if s.notifier != nil {
		if err := s.notifier.SendHolidaySummary(ctx, sender, name, summary.BookedDays(), remaining); err != nil {
			// The booking already happened; a lost confirmation is
			// logged, not propagated.
			logger.Errorf("Failed to queue confirmation for %s: %v", sender, err)
		}
	}

	metrics.RecordRequestProcessed("ok")
	return summary, nil
}

func minMax(dates []time.Time) (time.Time, time.Time) {
	min, max := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	return min, max
}
