package user

import "time"

type User struct {
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	RemainingDays int       `db:"remaining_days" json:"remaining_days"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
