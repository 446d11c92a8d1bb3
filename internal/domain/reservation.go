package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reservation is the unit of hold: a time-bounded claim on a set of seats,
// created when a client commits its selection and destroyed when it is sold,
// cancelled, or expires.
type Reservation struct {
	ID        string
	SessionID string
	Seats     []SeatID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NewReservation mints a reservation token and fixes the expiry deadline.
// The token is time-derived with a random suffix so concurrent clients can
// never mint the same one.
func NewReservation(sessionID string, seats []SeatID, now time.Time, window time.Duration) *Reservation {
	id := fmt.Sprintf("res_%d_%s", now.UnixMilli(), uuid.New().String()[:8])

	return &Reservation{
		ID:        id,
		SessionID: sessionID,
		Seats:     append([]SeatID(nil), seats...),
		CreatedAt: now,
		ExpiresAt: now.Add(window),
	}
}

func (r *Reservation) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
