package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/ekaracan/cinehall/internal/catalog"
	"github.com/ekaracan/cinehall/internal/domain"
	"github.com/ekaracan/cinehall/internal/hall"
	"github.com/ekaracan/cinehall/internal/store"
	appvalidator "github.com/ekaracan/cinehall/internal/validator"
	"github.com/ekaracan/cinehall/internal/vcs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

var (
	version = vcs.Version()
)

type Config struct {
	Port  int
	Env   string
	Store string // redis | memory

	Redis struct {
		URL          string
		MaxOpenConns int
		MaxIdleConns int
		MaxIdleTime  time.Duration
	}

	OtelCollectorUrl string
}

type Application struct {
	config         Config
	logger         *slog.Logger
	redis          redis.UniversalClient
	store          domain.SessionStore
	layout         hall.Layout
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	coordinators   *coordinatorRegistry
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.Store, "store", "redis", "Session store backend (redis|memory)")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.OtelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = catalog.Seed(ctx, app.store, app.layout, logger)
	if err != nil {
		return err
	}

	return app.serve()
}

// New wires an Application from configuration. The memory store backend
// serves development and tests; anything else requires Redis.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	app := &Application{
		config:       cfg,
		logger:       logger,
		layout:       hall.Default(),
		validator:    appvalidator.NewValidator(),
		coordinators: newCoordinatorRegistry(),
	}

	switch cfg.Store {
	case "memory":
		app.store = store.NewMemory()

		app.sessionManager = scs.New()
		app.sessionManager.Store = memstore.New()

	case "redis":
		redisClient, err := newRedisClient(cfg)
		if err != nil {
			return nil, err
		}

		app.redis = redisClient
		app.store = store.NewRedis(redisClient)
		app.sessionManager = newSessionManager(redisClient)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}

	app.sessionManager.IdleTimeout = 20 * time.Minute
	app.sessionManager.Cookie.Name = "session_id"

	return app, nil
}

// Close releases the application's long-lived resources: every client
// coordinator (dropping active holds) and the Redis connection.
func (app *Application) Close() {
	app.coordinators.closeAll(app.logger)

	if app.redis != nil {
		app.redis.Close()
	}
}

func newSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = goredisstore.New(client)

	return sessionManager
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "store", app.config.Store)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestSession)

	r.Get("/health", app.healthcheckHandler)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", app.listSessionsHandler)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", app.getSessionHandler)
			r.Get("/booking", app.getBookingStateHandler)
			r.Delete("/booking", app.leaveSessionHandler)
			r.Post("/seats/toggle", app.toggleSeatHandler)
			r.Post("/hold", app.placeHoldHandler)
			r.Post("/purchase", app.confirmPurchaseHandler)
			r.Post("/cancel", app.cancelHoldHandler)
		})
	})

	r.Post("/admin/sessions/reset-sold", app.resetSoldSeatsHandler)

	return r
}
