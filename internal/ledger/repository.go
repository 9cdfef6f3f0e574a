package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	email TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	remaining_days INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS holiday_bookings (
	id SERIAL PRIMARY KEY,
	user_email TEXT NOT NULL,
	day DATE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT holiday_bookings_user_day_key UNIQUE (user_email, day)
);
`

type repository struct {
	db               *sqlx.DB
	defaultAllowance int
}

func NewRepository(db *sqlx.DB, defaultAllowance int) Repository {
	return &repository{db: db, defaultAllowance: defaultAllowance}
}

func (r *repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		// Concurrent creators can still collide inside IF NOT EXISTS;
		// the table exists either way, which is all callers asked for.
		if isDuplicateTable(err) || isUniqueViolation(err) {
			return nil
		}
		return classify(err)
	}
	return nil
}

func (r *repository) BookDay(ctx context.Context, email string, day time.Time) (BookResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return ResultAlreadyPresent, classify(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO holiday_bookings (user_email, day)
		 VALUES ($1, $2)
		 ON CONFLICT (user_email, day) DO NOTHING`,
		email, day,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ResultAlreadyPresent, nil
		}
		return ResultAlreadyPresent, classify(err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return ResultAlreadyPresent, classify(err)
	}
	if inserted == 0 {
		return ResultAlreadyPresent, nil
	}

	remaining, err := r.lockAllowance(ctx, tx, email)
	if err != nil {
		return ResultAlreadyPresent, classify(err)
	}

	if remaining < 1 {
		// Rolling back undoes the insert, so a rejected day never
		// lingers in the booked set.
		return ResultAlreadyPresent, ErrAllowanceExhausted
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET remaining_days = remaining_days - 1 WHERE email = $1`,
		email,
	)
	if err != nil {
		return ResultAlreadyPresent, classify(err)
	}

	if err := tx.Commit(); err != nil {
		return ResultAlreadyPresent, classify(err)
	}

	return ResultInserted, nil
}

// lockAllowance row-locks the user's ledger record, creating it with the
// default allowance on first reference.
func (r *repository) lockAllowance(ctx context.Context, tx *sqlx.Tx, email string) (int, error) {
	var remaining int
	err := tx.QueryRowxContext(ctx,
		`SELECT remaining_days FROM users WHERE email = $1 FOR UPDATE`,
		email,
	).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// DO UPDATE rather than DO NOTHING so a concurrent creator's row is
	// locked and returned instead of yielding zero rows.
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO users (email, remaining_days)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING remaining_days`,
		email, r.defaultAllowance,
	).Scan(&remaining)
	if err != nil {
		return 0, err
	}

	return remaining, nil
}

func (r *repository) TryBook(ctx context.Context, email string, day time.Time) (BookResult, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO holiday_bookings (user_email, day)
		 VALUES ($1, $2)
		 ON CONFLICT (user_email, day) DO NOTHING`,
		email, day,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ResultAlreadyPresent, nil
		}
		return ResultAlreadyPresent, classify(err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return ResultAlreadyPresent, classify(err)
	}
	if inserted == 0 {
		return ResultAlreadyPresent, nil
	}

	return ResultInserted, nil
}

func (r *repository) GetAllowance(ctx context.Context, email string) (int, error) {
	var remaining int
	err := r.db.GetContext(ctx, &remaining,
		`SELECT remaining_days FROM users WHERE email = $1`,
		email,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// No record means no allowance, not a failure.
		return 0, nil
	}
	if err != nil {
		return 0, classify(err)
	}

	return remaining, nil
}

func (r *repository) BookedDays(ctx context.Context, email string) ([]time.Time, error) {
	var days []time.Time
	err := r.db.SelectContext(ctx, &days,
		`SELECT day FROM holiday_bookings WHERE user_email = $1 ORDER BY day`,
		email,
	)
	if err != nil {
		return nil, classify(err)
	}

	return days, nil
}

func (r *repository) DecrementAllowance(ctx context.Context, email string, n int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET remaining_days = remaining_days - $1
		 WHERE email = $2 AND remaining_days >= $1`,
		n, email,
	)
	if err != nil {
		return classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if affected == 0 {
		return ErrAllowanceExhausted
	}

	return nil
}

func (r *repository) ResetAllowance(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, remaining_days)
		 VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET remaining_days = $2`,
		email, r.defaultAllowance,
	)
	if err != nil {
		return classify(err)
	}

	return nil
}
