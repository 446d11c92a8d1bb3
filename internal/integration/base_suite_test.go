package integration_test

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/ekaracan/cinehall/internal/app"
	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/hall"
	"github.com/ekaracan/cinehall/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

type BaseSuite struct {
	suite.Suite
	app            *app.Application
	store          *store.Redis
	client         redis.UniversalClient
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	ctx := context.Background()

	redisContainer, err := getCacheContainer(ctx)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		return
	}

	s.cacheContainer = redisContainer

	cfg := app.Config{
		Port:  3000,
		Env:   "test",
		Store: "redis",
	}
	cfg.Redis.URL = redisContainer.ConnectionString
	cfg.Redis.MaxOpenConns = 10
	cfg.Redis.MaxIdleConns = 10
	cfg.Redis.MaxIdleTime = 2 * time.Minute

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testApp, err := app.New(cfg, logger)
	if err != nil {
		log.Printf("cannot initialize app: %s", err)
		return
	}

	s.app = testApp
	s.client = redis.NewClient(&redis.Options{Addr: redisContainer.ConnectionString})
	s.store = store.NewRedis(s.client)
	s.server = httptest.NewServer(testApp.Routes())
}

// seedSession puts one screening with a full house of free seats into the
// store under test.
func (s *BaseSuite) seedSession(id string) {
	layout := hall.Default()

	err := s.store.Create(context.Background(), &domain.Session{
		ID:             id,
		MovieTitle:     "Inception",
		Genres:         []string{"Sci-Fi"},
		Date:           "2026-09-01",
		Time:           "17:00",
		TotalSeats:     layout.TotalSeats(),
		AvailableSeats: layout.TotalSeats(),
		PriceRange:     layout.PriceRange(),
		Seats:          make(map[domain.SeatID]domain.SeatRecord),
	})
	s.Require().NoError(err)
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
	if s.app != nil {
		s.app.Close()
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			log.Printf("failed to terminate container: %s", err)
		}
	}
}
