package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ekaracan/cinehall/internal/domain"
)

// HoldWindow is how long a hold stays valid before the seats are released.
const HoldWindow = 180 * time.Second

// Machine governs the seat lifecycle (free -> held -> sold, held -> free on
// release) for one session. It never locks anything client-side: every
// transition guard travels with the seat patch and is enforced atomically by
// the store, which is the only serialization point between clients.
type Machine struct {
	store     domain.SessionStore
	sessionID string
	window    time.Duration
	now       func() time.Time

	mu     sync.Mutex
	active map[string]*domain.Reservation
}

func NewMachine(store domain.SessionStore, sessionID string) *Machine {
	return &Machine{
		store:     store,
		sessionID: sessionID,
		window:    HoldWindow,
		now:       time.Now,
		active:    make(map[string]*domain.Reservation),
	}
}

func (m *Machine) Window() time.Duration {
	return m.window
}

// NewReservation groups the given seats under a fresh reservation token with
// the machine's hold window.
func (m *Machine) NewReservation(seats []domain.SeatID) *domain.Reservation {
	return domain.NewReservation(m.sessionID, seats, m.now(), m.window)
}

// RequestHold transitions every seat of the reservation from free to held,
// all-or-nothing: if any seat is already held or sold the store rejects the
// whole patch and no seat changes. On success the reservation is tracked as
// active until it is confirmed or released.
func (m *Machine) RequestHold(ctx context.Context, r *domain.Reservation) error {
	if len(r.Seats) == 0 {
		return fmt.Errorf("reservation %s holds no seats", r.ID)
	}

	record := domain.SeatRecord{
		Status:        domain.SeatHeld,
		ReservationID: r.ID,
		CreatedAt:     r.CreatedAt.UnixMilli(),
	}

	patch := make(domain.SeatPatch, len(r.Seats))
	for _, seat := range r.Seats {
		patch[seat] = domain.SeatPatchEntry{
			Record: &record,
			Guard:  domain.GuardAbsent,
		}
	}

	err := m.store.ApplySeatPatch(ctx, m.sessionID, patch)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.active[r.ID] = r
	m.mu.Unlock()

	return nil
}

// ConfirmSale transitions every seat of the reservation from held to sold and
// decrements the session's available-seat count by the reservation's size.
// The store verifies, atomically with the writes, that each seat is still
// held by this reservation and that the hold is younger than the window, so
// an expiry that already released the seats (or a stale token) can never
// produce a sale.
func (m *Machine) ConfirmSale(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	r, ok := m.active[reservationID]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: unknown reservation %s", domain.ErrReservationMismatch, reservationID)
	}

	record := domain.SeatRecord{
		Status:    domain.SeatSold,
		CreatedAt: m.now().UnixMilli(),
	}

	patch := make(domain.SeatPatch, len(r.Seats))
	for _, seat := range r.Seats {
		patch[seat] = domain.SeatPatchEntry{
			Record:      &record,
			Guard:       domain.GuardHeldBy,
			Reservation: reservationID,
			MaxAge:      m.window,
		}
	}

	err := m.store.ApplySeatPatch(ctx, m.sessionID, patch)
	if err != nil {
		return err
	}

	session, err := m.store.Get(ctx, m.sessionID)
	if err != nil {
		return fmt.Errorf("sale confirmed but available count not updated: %w", err)
	}

	err = m.store.SetAvailableCount(ctx, m.sessionID, session.AvailableSeats-len(r.Seats))
	if err != nil {
		return fmt.Errorf("sale confirmed but available count not updated: %w", err)
	}

	m.mu.Lock()
	delete(m.active, reservationID)
	m.mu.Unlock()

	return nil
}

// Release removes the held records of the reservation's seats. It is
// idempotent: releasing an unknown or already-released reservation is a
// no-op, and seats that were sold in the meantime are left untouched.
func (m *Machine) Release(ctx context.Context, reservationID string) error {
	m.mu.Lock()
	r, ok := m.active[reservationID]
	m.mu.Unlock()

	if !ok {
		return nil
	}

	patch := make(domain.SeatPatch, len(r.Seats))
	for _, seat := range r.Seats {
		patch[seat] = domain.SeatPatchEntry{
			Guard:       domain.GuardReleaseIfHeldBy,
			Reservation: reservationID,
		}
	}

	err := m.store.ApplySeatPatch(ctx, m.sessionID, patch)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.active, reservationID)
	m.mu.Unlock()

	return nil
}
