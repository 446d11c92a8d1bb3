package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/hall"
	"github.com/shopspring/decimal"
)

// Phase is the client-local booking state for one viewed session.
type Phase string

const (
	PhaseBrowsing  Phase = "browsing"
	PhaseSelecting Phase = "selecting"
	PhaseHeld      Phase = "held"
	PhasePaid      Phase = "paid"
	PhaseExpired   Phase = "expired"
)

type EventKind string

const (
	EventSeatConflict      EventKind = "seat_conflict"
	EventHoldExpired       EventKind = "hold_expired"
	EventPurchaseConfirmed EventKind = "purchase_confirmed"
	EventStoreError        EventKind = "store_error"
	EventInconsistency     EventKind = "inconsistency"
)

// Event is a notification surfaced to the presentation layer. Events queue
// up until drained.
type Event struct {
	Kind   EventKind
	Seats  []domain.SeatID
	Reason string
}

var (
	ErrWrongPhase     = errors.New("operation is not valid in the current booking phase")
	ErrEmptySelection = errors.New("no seats selected")
)

const releaseTimeout = 5 * time.Second

// Coordinator orchestrates seat selection, holds, and purchase for a single
// client viewing a single session. It owns the ephemeral state (selection,
// active hold, timer) and keeps a cached session snapshot reconciled from
// store change notifications. All durable state lives in the store.
type Coordinator struct {
	store     domain.SessionStore
	machine   *Machine
	layout    hall.Layout
	logger    *slog.Logger
	sessionID string

	mu          sync.Mutex
	session     *domain.Session
	phase       Phase
	selected    map[domain.SeatID]struct{}
	reservation *domain.Reservation
	timer       *HoldTimer
	events      []Event
	closed      bool

	sub  domain.Subscription
	done chan struct{}
}

// NewCoordinator loads the session and subscribes to store changes for the
// lifetime of the coordinator. Callers must Close it when the client
// navigates away.
func NewCoordinator(
	ctx context.Context,
	store domain.SessionStore,
	sessionID string,
	layout hall.Layout,
	logger *slog.Logger,
) (*Coordinator, error) {

	session, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	sub, err := store.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribing to session updates: %w", err)
	}

	c := &Coordinator{
		store:     store,
		machine:   NewMachine(store, sessionID),
		layout:    layout,
		logger:    logger,
		sessionID: sessionID,
		session:   session,
		phase:     PhaseBrowsing,
		selected:  make(map[domain.SeatID]struct{}),
		sub:       sub,
		done:      make(chan struct{}),
	}

	go c.watch()

	return c, nil
}

func (c *Coordinator) watch() {
	for {
		select {
		case <-c.done:
			return
		case sessionID, ok := <-c.sub.Updates():
			if !ok {
				return
			}

			if sessionID != c.sessionID {
				continue
			}

			session, err := c.store.Get(context.Background(), c.sessionID)
			if err != nil {
				c.logger.Error("failed to refresh session after change notification",
					"session_id", c.sessionID, "error", err)

				c.mu.Lock()
				c.pushEvent(Event{Kind: EventStoreError, Reason: err.Error()})
				c.mu.Unlock()

				continue
			}

			c.reconcile(session)
		}
	}
}

// reconcile merges a fresh store snapshot into the cached view. Seats of the
// current selection that another client took are dropped and reported. A
// seat this client holds that shows up owned by someone else is a broken
// invariant; it is reported as fatal, never silently repaired.
func (c *Coordinator) reconcile(session *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = session

	var conflicts []domain.SeatID
	for seat := range c.selected {
		if session.SeatStatusAt(seat) != domain.SeatFree {
			delete(c.selected, seat)
			conflicts = append(conflicts, seat)
		}
	}

	if len(conflicts) > 0 {
		sortSeats(conflicts)
		c.pushEvent(Event{Kind: EventSeatConflict, Seats: conflicts})
	}

	if c.phase != PhaseHeld || c.reservation == nil {
		return
	}

	for _, seat := range c.reservation.Seats {
		record, ok := session.Seats[seat]
		if ok && record.Status == domain.SeatHeld && record.ReservationID == c.reservation.ID {
			continue
		}

		reason := fmt.Sprintf("seat %s no longer held by reservation %s", seat, c.reservation.ID)
		c.logger.Error("seat hold lost while phase is held", "session_id", c.sessionID,
			"seat", seat.String(), "reservation_id", c.reservation.ID)
		c.pushEvent(Event{Kind: EventInconsistency, Seats: []domain.SeatID{seat}, Reason: reason})
	}
}

// ToggleSeat adds the seat to or removes it from the current selection. It
// reports whether the seat is selected afterwards. Toggling a seat whose
// last-known status is held or sold is a silent no-op.
func (c *Coordinator) ToggleSeat(seat domain.SeatID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseBrowsing, PhaseSelecting, PhaseExpired:
	default:
		return false, ErrWrongPhase
	}

	if !c.layout.Contains(seat) {
		return false, fmt.Errorf("seat %s does not exist in the hall", seat)
	}

	if _, ok := c.selected[seat]; ok {
		delete(c.selected, seat)
		return false, nil
	}

	if c.session.SeatStatusAt(seat) != domain.SeatFree {
		return false, nil
	}

	c.selected[seat] = struct{}{}
	c.phase = PhaseSelecting

	return true, nil
}

// PlaceHold converts the current selection into a hold and starts the expiry
// timer. On a seat conflict the selection keeps only the seats that are
// still free and the coordinator stays in the selecting phase.
func (c *Coordinator) PlaceHold(ctx context.Context) (*domain.Reservation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseSelecting {
		return nil, ErrWrongPhase
	}

	if len(c.selected) == 0 {
		return nil, ErrEmptySelection
	}

	seats := make([]domain.SeatID, 0, len(c.selected))
	for seat := range c.selected {
		seats = append(seats, seat)
	}
	sortSeats(seats)

	r := c.machine.NewReservation(seats)

	err := c.machine.RequestHold(ctx, r)
	if err != nil {
		var unavailable *domain.SeatUnavailableError
		if errors.As(err, &unavailable) {
			for _, seat := range unavailable.Seats {
				delete(c.selected, seat)
			}
			c.pushEvent(Event{Kind: EventSeatConflict, Seats: unavailable.Seats})

			return nil, err
		}

		c.pushEvent(Event{Kind: EventStoreError, Reason: err.Error()})

		return nil, err
	}

	record := domain.SeatRecord{
		Status:        domain.SeatHeld,
		ReservationID: r.ID,
		CreatedAt:     r.CreatedAt.UnixMilli(),
	}
	for _, seat := range seats {
		c.session.Seats[seat] = record
	}

	c.reservation = r
	c.selected = make(map[domain.SeatID]struct{})
	c.phase = PhaseHeld
	c.timer = StartHoldTimer(c.machine.Window(), func() { c.expire(r.ID) })

	return r, nil
}

// expire is the hold timer callback. The phase and reservation checks make
// it a no-op when purchase or cancellation already won the race; the store
// guard makes the release itself safe against a concurrent sale.
func (c *Coordinator) expire(reservationID string) {
	c.mu.Lock()

	if c.phase != PhaseHeld || c.reservation == nil || c.reservation.ID != reservationID {
		c.mu.Unlock()
		return
	}

	for _, seat := range c.reservation.Seats {
		if record, ok := c.session.Seats[seat]; ok && record.ReservationID == reservationID {
			delete(c.session.Seats, seat)
		}
	}

	c.reservation = nil
	c.selected = make(map[domain.SeatID]struct{})
	c.phase = PhaseExpired
	c.pushEvent(Event{Kind: EventHoldExpired})
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	err := c.machine.Release(ctx, reservationID)
	if err != nil {
		c.logger.Error("failed to release expired hold", "reservation_id", reservationID, "error", err)

		c.mu.Lock()
		c.pushEvent(Event{Kind: EventStoreError, Reason: err.Error()})
		c.mu.Unlock()
	}
}

// ConfirmPurchase cancels the timer and converts the hold into a sale. The
// payment itself is simulated; the transition to paid is what matters here.
func (c *Coordinator) ConfirmPurchase(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseHeld {
		return ErrWrongPhase
	}

	r := c.reservation
	remaining := c.timer.Remaining()

	if !c.timer.Cancel() {
		// The expiry callback fired first and is tearing the hold down.
		return domain.ErrReservationExpired
	}

	err := c.machine.ConfirmSale(ctx, r.ID)

	switch {
	case err == nil:
		sold := domain.SeatRecord{Status: domain.SeatSold, CreatedAt: time.Now().UnixMilli()}
		for _, seat := range r.Seats {
			c.session.Seats[seat] = sold
		}
		c.session.AvailableSeats -= len(r.Seats)

		c.reservation = nil
		c.selected = make(map[domain.SeatID]struct{})
		c.phase = PhasePaid
		c.pushEvent(Event{Kind: EventPurchaseConfirmed, Seats: r.Seats})

		return nil

	case errors.Is(err, domain.ErrReservationExpired):
		// The store rejected the sale as past the hold window. Equivalent
		// to an expiry: drop the hold and let the seats go.
		for _, seat := range r.Seats {
			if record, ok := c.session.Seats[seat]; ok && record.ReservationID == r.ID {
				delete(c.session.Seats, seat)
			}
		}

		c.reservation = nil
		c.selected = make(map[domain.SeatID]struct{})
		c.phase = PhaseExpired
		c.pushEvent(Event{Kind: EventHoldExpired})

		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if releaseErr := c.machine.Release(releaseCtx, r.ID); releaseErr != nil {
			c.logger.Error("failed to release rejected hold", "reservation_id", r.ID, "error", releaseErr)
		}

		return err

	case errors.Is(err, domain.ErrReservationMismatch):
		c.logger.Error("reservation mismatch on sale confirmation", "reservation_id", r.ID, "error", err)
		c.pushEvent(Event{Kind: EventInconsistency, Reason: err.Error()})
		c.timer = StartHoldTimer(remaining, func() { c.expire(r.ID) })

		return err

	default:
		c.pushEvent(Event{Kind: EventStoreError, Reason: err.Error()})
		c.timer = StartHoldTimer(remaining, func() { c.expire(r.ID) })

		return err
	}
}

// Cancel abandons the active hold, releasing its seats and returning to the
// selecting phase with an empty selection.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseHeld {
		return ErrWrongPhase
	}

	r := c.reservation
	remaining := c.timer.Remaining()

	if !c.timer.Cancel() {
		return domain.ErrReservationExpired
	}

	err := c.machine.Release(ctx, r.ID)
	if err != nil {
		c.pushEvent(Event{Kind: EventStoreError, Reason: err.Error()})
		c.timer = StartHoldTimer(remaining, func() { c.expire(r.ID) })

		return err
	}

	for _, seat := range r.Seats {
		if record, ok := c.session.Seats[seat]; ok && record.ReservationID == r.ID {
			delete(c.session.Seats, seat)
		}
	}

	c.reservation = nil
	c.selected = make(map[domain.SeatID]struct{})
	c.phase = PhaseSelecting

	return nil
}

func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.phase
}

// SelectedSeats returns the current selection in row-major order.
func (c *Coordinator) SelectedSeats() []domain.SeatID {
	c.mu.Lock()
	defer c.mu.Unlock()

	seats := make([]domain.SeatID, 0, len(c.selected))
	for seat := range c.selected {
		seats = append(seats, seat)
	}
	sortSeats(seats)

	return seats
}

// TotalPrice is the computed price of the current selection, or of the held
// seats while a hold is active.
func (c *Coordinator) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reservation != nil {
		return c.layout.TotalPrice(c.reservation.Seats)
	}

	seats := make([]domain.SeatID, 0, len(c.selected))
	for seat := range c.selected {
		seats = append(seats, seat)
	}

	return c.layout.TotalPrice(seats)
}

// HoldRemaining reports how long the active hold has left, zero when no hold
// is active.
func (c *Coordinator) HoldRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseHeld || c.timer == nil {
		return 0
	}

	return c.timer.Remaining()
}

// ActiveReservation returns the token of the active hold, if any.
func (c *Coordinator) ActiveReservation() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reservation == nil {
		return "", false
	}

	return c.reservation.ID, true
}

// SessionSnapshot returns a copy of the cached session document.
func (c *Coordinator) SessionSnapshot() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session.Clone()
}

// DrainEvents returns the notifications queued since the last drain.
func (c *Coordinator) DrainEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.events
	c.events = nil

	return events
}

// Close tears the coordinator down: the subscription is cancelled and an
// active hold is released rather than left to expire on its own.
func (c *Coordinator) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	var reservationID string
	if c.phase == PhaseHeld && c.timer.Cancel() {
		reservationID = c.reservation.ID
		c.reservation = nil
	}

	c.selected = make(map[domain.SeatID]struct{})
	close(c.done)
	c.mu.Unlock()

	err := c.sub.Close()

	if reservationID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if releaseErr := c.machine.Release(ctx, reservationID); releaseErr != nil {
			c.logger.Error("failed to release hold on close", "reservation_id", reservationID, "error", releaseErr)
		}
	}

	return err
}

func (c *Coordinator) pushEvent(event Event) {
	c.events = append(c.events, event)
}

func sortSeats(seats []domain.SeatID) {
	slices.SortFunc(seats, func(a, b domain.SeatID) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
}
