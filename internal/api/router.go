package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcoot/clickergame/internal/api/handler"
	apimw "github.com/mcoot/clickergame/internal/api/middleware"
	"github.com/mcoot/clickergame/internal/middleware"
	"github.com/mcoot/clickergame/internal/observability"
	"github.com/mcoot/clickergame/internal/services/auth"
	"github.com/mcoot/clickergame/internal/services/live"
	"github.com/mcoot/clickergame/internal/services/players"
	"github.com/mcoot/clickergame/internal/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	Gatherer      prometheus.Gatherer // nil disables /metrics
	AuthService   *auth.Service
	PlayerService *players.Service
	LiveService   *live.Service
	Hub           *sse.Hub
	StorageType   string
	Storage       handler.Pinger // nil skips the health reachability check
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	playerHandler := handler.NewPlayerHandler(cfg.PlayerService)
	liveHandler := handler.NewLiveHandler(cfg.Hub, cfg.LiveService)
	systemHandler := handler.NewSystemHandler(cfg.StorageType, cfg.Storage)

	// Create middleware
	authMiddleware := apimw.Auth(cfg.AuthService)

	r.Use(middleware.Tracing())
	r.Use(apimw.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics(cfg.Metrics))

	r.HandleFunc("/", systemHandler.Home).Methods(http.MethodGet)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Health check endpoint (no auth)
	api.HandleFunc("/health", systemHandler.Health).Methods(http.MethodGet)

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	adminAuth := api.PathPrefix("/auth/admin").Subrouter()
	adminAuth.Use(authMiddleware, apimw.RequireAdmin)
	adminAuth.HandleFunc("/register", authHandler.RegisterAdmin).Methods(http.MethodPost)

	// Player routes (all require auth)
	playersRouter := api.PathPrefix("/players").Subrouter()
	playersRouter.Use(authMiddleware)
	playersRouter.HandleFunc("/rankings", playerHandler.Rankings).Methods(http.MethodGet)
	playersRouter.HandleFunc("/user/{userId}", playerHandler.Get).Methods(http.MethodGet)

	// Admin-only player routes
	playersRouter.Handle("/{id}/block", adminOnly(playerHandler.ToggleBlock)).Methods(http.MethodPatch)
	playersRouter.Handle("/{id}", adminOnly(playerHandler.Update)).Methods(http.MethodPut)
	playersRouter.Handle("/{id}", adminOnly(playerHandler.Delete)).Methods(http.MethodDelete)

	// Live routes (unauthenticated, addressed by connection id)
	api.HandleFunc("/live/events", liveHandler.Events).Methods(http.MethodGet)
	api.HandleFunc("/live/{connId}/click", liveHandler.Click).Methods(http.MethodPost)
	api.HandleFunc("/live/{connId}/toggle-block", liveHandler.ToggleBlock).Methods(http.MethodPost)

	return middleware.CORS(r)
}

func adminOnly(h http.HandlerFunc) http.Handler {
	return apimw.RequireAdmin(h)
}
