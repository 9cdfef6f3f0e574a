package ledger

import "time"

type User struct {
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	RemainingDays int       `db:"remaining_days" json:"remaining_days"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type BookedDay struct {
	ID        int       `db:"id" json:"id"`
	UserEmail string    `db:"user_email" json:"user_email"`
	Day       time.Time `db:"day" json:"day"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookResult reports how the store resolved a booking insert.
type BookResult int

const (
	ResultInserted BookResult = iota
	ResultAlreadyPresent
)

func (r BookResult) String() string {
	if r == ResultInserted {
		return "inserted"
	}
	return "already_present"
}
