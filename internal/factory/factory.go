package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mcoot/clickergame/internal/dependencies/clock"
	"github.com/mcoot/clickergame/internal/observability"
	"github.com/mcoot/clickergame/internal/security"
	"github.com/mcoot/clickergame/internal/services/auth"
	"github.com/mcoot/clickergame/internal/services/live"
	"github.com/mcoot/clickergame/internal/services/players"
	"github.com/mcoot/clickergame/internal/sse"
	"github.com/mcoot/clickergame/internal/storage"
	"github.com/mcoot/clickergame/internal/storage/memory"
	pgstorage "github.com/mcoot/clickergame/internal/storage/postgres"
	redisstorage "github.com/mcoot/clickergame/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock clock.Clock

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Services
	Hub           *sse.Hub
	AuthService   *auth.Service
	PlayerService *players.Service
	LiveService   *live.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// An empty secret falls back to the development default
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// New creates a new application with all dependencies wired.
// The hub is running on return; call Close to stop it and release storage.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var store storage.Storage
	var closers []io.Closer

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pool, err := pgstorage.NewPool(*cfg.PostgresConfig)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pgstorage.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		pgStore := pgstorage.New(pool, metrics)
		store = pgStore
		closers = append(closers, pgStore)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'postgres'")
	}

	app := newWithDependencies(store, clock.New(), withDefaultSecret(cfg.AuthConfig), logger, metrics)
	app.StorageType = storageType
	app.Registry = registry
	app.closers = closers

	logger.Info("application wired", slog.String("storage", storageType))
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	authCfg auth.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *App {
	hub := sse.NewHub(logger, metrics)
	go hub.Run()

	authService := auth.New(store, hub, clk, logger, authCfg)
	playerService := players.New(store, security.NewHasher(authCfg.BcryptCost), hub, clk, logger)
	liveService := live.New(store, playerService, hub, clk, logger, metrics)

	return &App{
		Storage:       store,
		StorageType:   StorageTypeMemory,
		Clock:         clk,
		Metrics:       metrics,
		Hub:           hub,
		AuthService:   authService,
		PlayerService: playerService,
		LiveService:   liveService,
	}
}

// Close stops the hub and releases storage connections
func (a *App) Close() error {
	a.Hub.Close()

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withDefaultSecret fills in the development secret when none is configured,
// keeping the caller's TTL and bcrypt cost
func withDefaultSecret(cfg auth.Config) auth.Config {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = auth.DefaultConfig().JWTSecret
	}
	return cfg
}
