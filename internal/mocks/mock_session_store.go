package mocks

import (
	"context"

	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionStore) ListAll(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionStore) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) ApplySeatPatch(ctx context.Context, sessionID string, patch domain.SeatPatch) error {
	args := m.Called(ctx, sessionID, patch)
	return args.Error(0)
}

func (m *MockSessionStore) SetAvailableCount(ctx context.Context, sessionID string, count int) error {
	args := m.Called(ctx, sessionID, count)
	return args.Error(0)
}

func (m *MockSessionStore) ClearSoldSeats(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionStore) Subscribe(ctx context.Context) (domain.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Subscription), args.Error(1)
}

// MockSubscription is a Subscription whose updates the test feeds by hand.
type MockSubscription struct {
	Ch chan string
}

func NewMockSubscription() *MockSubscription {
	return &MockSubscription{Ch: make(chan string, 8)}
}

func (s *MockSubscription) Updates() <-chan string {
	return s.Ch
}

func (s *MockSubscription) Close() error {
	close(s.Ch)
	return nil
}
