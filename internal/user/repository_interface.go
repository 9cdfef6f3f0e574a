package user

import "context"

// Repository is the identity lookup used when rendering confirmations.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)

	// DisplayName resolves a human-readable name for the address. When no
	// record exists, or the record carries no name, a name is derived from
	// the address's local part.
	DisplayName(ctx context.Context, email string) (string, error)
}
