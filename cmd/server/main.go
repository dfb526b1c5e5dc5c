package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcoot/clickergame/internal/api"
	"github.com/mcoot/clickergame/internal/config"
	"github.com/mcoot/clickergame/internal/factory"
	"github.com/mcoot/clickergame/internal/observability"
	"github.com/mcoot/clickergame/internal/services/auth"
	pgstorage "github.com/mcoot/clickergame/internal/storage/postgres"
	redisstorage "github.com/mcoot/clickergame/internal/storage/redis"
)

func main() {
	// A missing .env file is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := observability.NewLogger(os.Stdout, cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "clicker-api", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Build factory config from environment
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.RedisURL
	pgCfg := pgstorage.DefaultConfig()
	pgCfg.URL = cfg.DatabaseURL

	app, err := factory.New(ctx, factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		AuthConfig: auth.Config{
			JWTSecret:  cfg.JWTSecret,
			TokenTTL:   cfg.TokenTTL,
			BcryptCost: cfg.BcryptCost,
		},
		RedisConfig:    &redisCfg,
		PostgresConfig: &pgCfg,
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	created, err := app.AuthService.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPass)
	if err != nil {
		logger.Error("failed to bootstrap admin", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if created {
		logger.Info("bootstrap admin created", slog.String("username", cfg.AdminUser))
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		Metrics:       app.Metrics,
		Gatherer:      app.Registry,
		AuthService:   app.AuthService,
		PlayerService: app.PlayerService,
		LiveService:   app.LiveService,
		Hub:           app.Hub,
		StorageType:   app.StorageType,
		Storage:       app.Storage,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	logger.Info("server starting",
		slog.String("addr", server.Addr()),
		slog.String("env", cfg.Env),
		slog.String("storage", app.StorageType))

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
