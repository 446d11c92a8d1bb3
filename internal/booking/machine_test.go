package booking

import (
	"context"
	"testing"
	"time"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Memory {
	t.Helper()

	mem := store.NewMemory()

	err := mem.Create(context.Background(), &domain.Session{
		ID:             "session_test",
		MovieTitle:     "Interstellar",
		Date:           "2026-09-01",
		Time:           "20:30",
		TotalSeats:     100,
		AvailableSeats: 100,
		PriceRange: domain.PriceRange{
			Min: decimal.NewFromInt(200),
			Max: decimal.NewFromInt(500),
		},
		Seats: make(map[domain.SeatID]domain.SeatRecord),
	})
	require.NoError(t, err)

	return mem
}

func TestRequestHoldMarksSeatsHeld(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	seats := []domain.SeatID{{Row: 3, Col: 4}, {Row: 3, Col: 5}}
	r := m.NewReservation(seats)

	require.NoError(t, m.RequestHold(context.Background(), r))

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)

	for _, seat := range seats {
		record, ok := session.Seats[seat]
		require.True(t, ok, "seat %s has no record", seat)
		assert.Equal(t, domain.SeatHeld, record.Status)
		assert.Equal(t, r.ID, record.ReservationID)
	}
}

func TestRequestHoldIsAllOrNothing(t *testing.T) {
	mem := newTestStore(t)
	m1 := NewMachine(mem, "session_test")
	m2 := NewMachine(mem, "session_test")

	seatA := domain.SeatID{Row: 3, Col: 4}
	seatB := domain.SeatID{Row: 3, Col: 5}

	r1 := m1.NewReservation([]domain.SeatID{seatB})
	require.NoError(t, m1.RequestHold(context.Background(), r1))

	// The second reservation wants A and B; B is taken, so A must stay
	// free as well.
	r2 := m2.NewReservation([]domain.SeatID{seatA, seatB})
	err := m2.RequestHold(context.Background(), r2)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

	var unavailable *domain.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []domain.SeatID{seatB}, unavailable.Seats)

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)

	assert.Equal(t, domain.SeatFree, session.SeatStatusAt(seatA))

	record := session.Seats[seatB]
	assert.Equal(t, r1.ID, record.ReservationID)
}

func TestRequestHoldRejectsEmptyReservation(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	r := m.NewReservation(nil)

	assert.Error(t, m.RequestHold(context.Background(), r))
}

func TestConfirmSale(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	seats := []domain.SeatID{{Row: 1, Col: 1}, {Row: 5, Col: 5}, {Row: 10, Col: 2}}
	r := m.NewReservation(seats)

	require.NoError(t, m.RequestHold(context.Background(), r))
	require.NoError(t, m.ConfirmSale(context.Background(), r.ID))

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)

	for _, seat := range seats {
		record, ok := session.Seats[seat]
		require.True(t, ok)
		assert.Equal(t, domain.SeatSold, record.Status)
		assert.Empty(t, record.ReservationID)
	}

	assert.Equal(t, 97, session.AvailableSeats)
}

func TestConfirmSaleUnknownReservation(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	err := m.ConfirmSale(context.Background(), "res_0_deadbeef")

	assert.ErrorIs(t, err, domain.ErrReservationMismatch)
}

func TestConfirmSaleRejectsForeignHold(t *testing.T) {
	mem := newTestStore(t)
	m1 := NewMachine(mem, "session_test")
	m2 := NewMachine(mem, "session_test")

	seat := domain.SeatID{Row: 3, Col: 4}

	r1 := m1.NewReservation([]domain.SeatID{seat})
	require.NoError(t, m1.RequestHold(context.Background(), r1))
	require.NoError(t, m1.Release(context.Background(), r1.ID))

	r2 := m2.NewReservation([]domain.SeatID{seat})
	require.NoError(t, m2.RequestHold(context.Background(), r2))

	// m1's reservation is gone locally, so confirming it fails before the
	// store is even consulted, and m2's hold survives.
	err := m1.ConfirmSale(context.Background(), r1.ID)
	assert.ErrorIs(t, err, domain.ErrReservationMismatch)

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, session.Seats[seat].ReservationID)
}

func TestConfirmSaleRejectsExpiredHold(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	// Age the hold past the window by creating it in the past.
	m.now = func() time.Time { return time.Now().Add(-m.window - time.Second) }

	seat := domain.SeatID{Row: 1, Col: 1}
	r := m.NewReservation([]domain.SeatID{seat})
	require.NoError(t, m.RequestHold(context.Background(), r))

	m.now = time.Now

	err := m.ConfirmSale(context.Background(), r.ID)
	require.ErrorIs(t, err, domain.ErrReservationExpired)

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatHeld, session.SeatStatusAt(seat))
	assert.Equal(t, 100, session.AvailableSeats)
}

func TestReleaseFreesHeldSeats(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	seats := []domain.SeatID{{Row: 2, Col: 2}, {Row: 2, Col: 3}}
	r := m.NewReservation(seats)

	require.NoError(t, m.RequestHold(context.Background(), r))
	require.NoError(t, m.Release(context.Background(), r.ID))

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)

	for _, seat := range seats {
		assert.Equal(t, domain.SeatFree, session.SeatStatusAt(seat))
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	mem := newTestStore(t)
	m := NewMachine(mem, "session_test")

	r := m.NewReservation([]domain.SeatID{{Row: 2, Col: 2}})
	require.NoError(t, m.RequestHold(context.Background(), r))

	require.NoError(t, m.Release(context.Background(), r.ID))
	require.NoError(t, m.Release(context.Background(), r.ID))
	require.NoError(t, m.Release(context.Background(), "res_0_deadbeef"))
}

func TestReleaseLeavesSoldSeatsAlone(t *testing.T) {
	mem := newTestStore(t)
	m1 := NewMachine(mem, "session_test")
	m2 := NewMachine(mem, "session_test")

	seat := domain.SeatID{Row: 4, Col: 4}

	// m1 holds, m2 races in after m1's hold lapsed store-side and the seat
	// was rebooked and sold.
	r1 := m1.NewReservation([]domain.SeatID{seat})
	require.NoError(t, m1.RequestHold(context.Background(), r1))

	require.NoError(t, mem.ApplySeatPatch(context.Background(), "session_test", domain.SeatPatch{
		seat: {Record: nil, Guard: domain.GuardNone},
	}))

	r2 := m2.NewReservation([]domain.SeatID{seat})
	require.NoError(t, m2.RequestHold(context.Background(), r2))
	require.NoError(t, m2.ConfirmSale(context.Background(), r2.ID))

	require.NoError(t, m1.Release(context.Background(), r1.ID))

	session, err := mem.Get(context.Background(), "session_test")
	require.NoError(t, err)
	assert.Equal(t, domain.SeatSold, session.SeatStatusAt(seat))
}
