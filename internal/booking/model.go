package booking

import "time"

type Status string

const (
	StatusBooked        Status = "booked"
	StatusAlreadyBooked Status = "already_booked"
	StatusRejected      Status = "rejected"
)

// Outcome is the per-day result of a booking attempt. Every requested day
// gets one; rejections carry a reason instead of disappearing.
type Outcome struct {
	Day    time.Time `json:"day"`
	Status Status    `json:"status"`
	Reason string    `json:"reason,omitempty"`

	// Transient marks rejections worth retrying (store contention), as
	// opposed to terminal ones (allowance exhausted).
	Transient bool `json:"transient,omitempty"`
}

func (o Outcome) Rejected() bool {
	return o.Status == StatusRejected
}

type BookRequest struct {
	Email string `json:"email" validate:"required,email"`
	Day   string `json:"day" validate:"required,datetime=2006-01-02"`
}

type BookResponse struct {
	Email   string  `json:"email"`
	Outcome Outcome `json:"outcome"`
}

type AllowanceResponse struct {
	Email         string `json:"email"`
	RemainingDays int    `json:"remaining_days"`
}

type NameResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BookedDaysResponse struct {
	Email string   `json:"email"`
	Days  []string `json:"days"`
}
