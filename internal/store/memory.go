package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ekaracan/cinehall/internal/domain"
)

// Memory is an in-process SessionStore with the same atomic-patch and
// subscription semantics as the Redis store. It backs the dev environment
// and the booking tests.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	subs     map[int]chan string
	nextSub  int

	// now is swappable so tests can age holds without sleeping.
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*domain.Session),
		subs:     make(map[int]chan string),
		now:      time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)
	}

	return session.Clone(), nil
}

func (m *Memory) ListAll(ctx context.Context) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, *session.Clone())
	}

	slices.SortFunc(sessions, func(a, b domain.Session) int {
		return strings.Compare(a.ID, b.ID)
	})

	return sessions, nil
}

func (m *Memory) Create(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[session.ID] = session.Clone()
	m.notify(session.ID)

	return nil
}

// ApplySeatPatch validates every guard against the current document and only
// then applies the writes, so a patch is all-or-nothing.
func (m *Memory) ApplySeatPatch(ctx context.Context, sessionID string, patch domain.SeatPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)
	}

	now := m.now()
	skipped := make(map[domain.SeatID]bool)

	var unavailable []domain.SeatID
	for seat, entry := range patch {
		record, exists := session.Seats[seat]

		switch entry.Guard {
		case domain.GuardNone:

		case domain.GuardAbsent:
			if exists {
				unavailable = append(unavailable, seat)
			}

		case domain.GuardHeldBy:
			if !exists || record.Status != domain.SeatHeld || record.ReservationID != entry.Reservation {
				return fmt.Errorf("seat %s: %w", seat, domain.ErrReservationMismatch)
			}
			if entry.MaxAge > 0 && record.Age(now) > entry.MaxAge {
				return fmt.Errorf("seat %s: %w", seat, domain.ErrReservationExpired)
			}

		case domain.GuardReleaseIfHeldBy:
			if !exists || record.Status != domain.SeatHeld || record.ReservationID != entry.Reservation {
				skipped[seat] = true
			}

		default:
			return fmt.Errorf("unknown patch guard %q", entry.Guard)
		}
	}

	if len(unavailable) > 0 {
		sortSeatIDs(unavailable)
		return &domain.SeatUnavailableError{Seats: unavailable}
	}

	for seat, entry := range patch {
		if skipped[seat] {
			continue
		}

		if entry.Record == nil {
			delete(session.Seats, seat)
		} else {
			session.Seats[seat] = *entry.Record
		}
	}

	m.notify(sessionID)

	return nil
}

func (m *Memory) SetAvailableCount(ctx context.Context, sessionID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)
	}

	session.AvailableSeats = count
	m.notify(sessionID)

	return nil
}

func (m *Memory) ClearSoldSeats(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("session %s: %w", sessionID, domain.ErrRecordNotFound)
	}

	cleared := 0
	for seat, record := range session.Seats {
		if record.Status == domain.SeatSold {
			delete(session.Seats, seat)
			cleared++
		}
	}

	if cleared > 0 {
		session.AvailableSeats += cleared
		m.notify(sessionID)
	}

	return cleared, nil
}

func (m *Memory) Subscribe(ctx context.Context) (domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++

	ch := make(chan string, 32)
	m.subs[id] = ch

	return &memorySubscription{store: m, id: id, ch: ch}, nil
}

// notify is called with m.mu held. Slow subscribers drop notifications
// rather than block the store; a dropped notification only delays the next
// reconcile, it cannot corrupt state.
func (m *Memory) notify(sessionID string) {
	for _, ch := range m.subs {
		select {
		case ch <- sessionID:
		default:
		}
	}
}

type memorySubscription struct {
	store *Memory
	id    int
	ch    chan string
	once  sync.Once
}

func (s *memorySubscription) Updates() <-chan string {
	return s.ch
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()

		close(s.ch)
	})

	return nil
}

func sortSeatIDs(seats []domain.SeatID) {
	slices.SortFunc(seats, func(a, b domain.SeatID) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
}
