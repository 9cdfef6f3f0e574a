package booking

import (
	"context"
	"errors"
	"time"

	"leavedesk/internal/ledger"
	"leavedesk/internal/logger"
	"leavedesk/internal/metrics"
	"leavedesk/internal/user"
)

const (
	ReasonAllowanceExhausted = "holiday allowance exhausted"
	ReasonStoreBusy          = "ledger store busy"
	ReasonSchemaUnavailable  = "ledger schema unavailable"
)

type Service interface {
	// Book attempts to book one calendar day for the user. It never
	// returns an error; failures become a rejected Outcome so that batch
	// callers can keep going.
	Book(ctx context.Context, email string, day time.Time) Outcome

	RemainingAllowance(ctx context.Context, email string) (int, error)
	BookedDays(ctx context.Context, email string) ([]time.Time, error)
	DisplayName(ctx context.Context, email string) (string, error)
	ResetAllowance(ctx context.Context, email string) error
}

type service struct {
	repo  ledger.Repository
	users user.Repository
}

func NewService(repo ledger.Repository, users user.Repository) Service {
	return &service{repo: repo, users: users}
}

func (s *service) Book(ctx context.Context, email string, day time.Time) Outcome {
	res, err := s.repo.BookDay(ctx, email, day)

	if errors.Is(err, ledger.ErrSchemaMissing) {
		// Lazy schema repair: create the tables and retry exactly once.
		// A second miss is terminal for this day, not a loop.
		logger.Infof("Ledger schema missing, repairing before retry (user=%s)", email)
		if repairErr := s.repo.EnsureSchema(ctx); repairErr != nil {
			return s.reject(day, ReasonSchemaUnavailable, false)
		}
		res, err = s.repo.BookDay(ctx, email, day)
	}

	switch {
	case err == nil && res == ledger.ResultInserted:
		metrics.RecordBooking(string(StatusBooked))
		return Outcome{Day: day, Status: StatusBooked}
	case err == nil:
		metrics.RecordBooking(string(StatusAlreadyBooked))
		return Outcome{Day: day, Status: StatusAlreadyBooked}
	case errors.Is(err, ledger.ErrAllowanceExhausted):
		return s.reject(day, ReasonAllowanceExhausted, false)
	case errors.Is(err, ledger.ErrStoreBusy):
		return s.reject(day, ReasonStoreBusy, true)
	case errors.Is(err, ledger.ErrSchemaMissing):
		return s.reject(day, ReasonSchemaUnavailable, false)
	default:
		logger.Errorf("Booking failed for %s on %s: %v", email, day.Format("2006-01-02"), err)
		return s.reject(day, err.Error(), false)
	}
}

func (s *service) reject(day time.Time, reason string, transient bool) Outcome {
	metrics.RecordBooking(string(StatusRejected))
	return Outcome{Day: day, Status: StatusRejected, Reason: reason, Transient: transient}
}

func (s *service) RemainingAllowance(ctx context.Context, email string) (int, error) {
	return s.repo.GetAllowance(ctx, email)
}

func (s *service) BookedDays(ctx context.Context, email string) ([]time.Time, error) {
	return s.repo.BookedDays(ctx, email)
}

func (s *service) DisplayName(ctx context.Context, email string) (string, error) {
	return s.users.DisplayName(ctx, email)
}

func (s *service) ResetAllowance(ctx context.Context, email string) error {
	return s.repo.ResetAllowance(ctx, email)
}
