package ledger

import (
	"context"
	"time"
)

type Repository interface {
	// EnsureSchema creates the backing tables if absent. Safe to call
	// concurrently; racing creators all observe success.
	EnsureSchema(ctx context.Context) error

	// BookDay inserts the (email, day) pair and decrements the user's
	// remaining allowance in a single transaction. A user row is created
	// with the default allowance on first reference. Returns
	// ResultAlreadyPresent with no allowance change when the pair exists,
	// and ErrAllowanceExhausted (insert rolled back) when the allowance
	// would go below zero.
	BookDay(ctx context.Context, email string, day time.Time) (BookResult, error)

	// TryBook is the bare atomic check-and-insert, with no allowance
	// bookkeeping. Exactly one of N racing callers for the same pair
	// observes ResultInserted.
	TryBook(ctx context.Context, email string, day time.Time) (BookResult, error)

	// GetAllowance returns the user's remaining allowance, or 0 when no
	// record exists. Absence is not an error and creates no row.
	GetAllowance(ctx context.Context, email string) (int, error)

	// BookedDays returns the user's booked days in ascending order.
	BookedDays(ctx context.Context, email string) ([]time.Time, error)

	// DecrementAllowance atomically reduces the allowance by n, failing
	// with ErrAllowanceExhausted instead of going below zero.
	DecrementAllowance(ctx context.Context, email string, n int) error

	// ResetAllowance sets the user's allowance back to the default,
	// creating the user row if needed.
	ResetAllowance(ctx context.Context, email string) error
}
