package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	// SeatFree is implicit: a seat without a record in the session's seat
	// map is free. No record ever carries this status.
	SeatFree SeatStatus = "free"
	SeatHeld SeatStatus = "held"
	SeatSold SeatStatus = "sold"
)

// SeatRecord exists only for seats that are held or sold. ReservationID is
// set while held and dropped on sale.
type SeatRecord struct {
	Status        SeatStatus `json:"status"`
	ReservationID string     `json:"reservationId,omitempty"`
	CreatedAt     int64      `json:"createdAt"` // Unix milliseconds
}

// Age reports how long ago the record was written.
func (r SeatRecord) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(r.CreatedAt))
}

type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Session is one screening of a movie. The store owns the durable state;
// clients hold cached copies refreshed through subscriptions. The Seats map
// is sparse: absent seats are free.
type Session struct {
	ID             string                `json:"id"`
	MovieTitle     string                `json:"movieTitle"`
	Genres         []string              `json:"genres"`
	PosterURL      string                `json:"posterUrl"`
	Description    string                `json:"description"`
	Date           string                `json:"date"` // YYYY-MM-DD
	Time           string                `json:"time"` // HH:MM
	TotalSeats     int                   `json:"totalSeats"`
	AvailableSeats int                   `json:"availableSeats"`
	PriceRange     PriceRange            `json:"priceRange"`
	Seats          map[SeatID]SeatRecord `json:"seats,omitempty"`
}

// SeatStatusAt reports the status of a seat, treating absence as free.
func (s *Session) SeatStatusAt(id SeatID) SeatStatus {
	record, ok := s.Seats[id]
	if !ok {
		return SeatFree
	}

	return record.Status
}

// Clone returns a deep copy, so cached snapshots can be handed out without
// sharing the seat map.
func (s *Session) Clone() *Session {
	clone := *s

	clone.Genres = append([]string(nil), s.Genres...)

	clone.Seats = make(map[SeatID]SeatRecord, len(s.Seats))
	for id, record := range s.Seats {
		clone.Seats[id] = record
	}

	return &clone
}
