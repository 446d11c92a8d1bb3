package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrSeatUnavailable     = errors.New("seat(s) are already held or sold")
	ErrReservationMismatch = errors.New("reservation does not match the seat hold")
	ErrReservationExpired  = errors.New("hold window has passed")
	ErrStoreUnavailable    = errors.New("session store unavailable")
)

// SeatUnavailableError reports which seats caused a hold to be rejected.
// It matches ErrSeatUnavailable under errors.Is.
type SeatUnavailableError struct {
	Seats []SeatID
}

func (e *SeatUnavailableError) Error() string {
	ids := make([]string, len(e.Seats))
	for i, seat := range e.Seats {
		ids[i] = seat.String()
	}

	return fmt.Sprintf("seat(s) %s are already held or sold", strings.Join(ids, ", "))
}

func (e *SeatUnavailableError) Is(target error) bool {
	return target == ErrSeatUnavailable
}
