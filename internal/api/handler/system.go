package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/mcoot/clickergame/internal/api/response"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler serves the welcome and health endpoints
type SystemHandler struct {
	storageType string
	storage     Pinger
}

// NewSystemHandler creates a new system handler. A nil storage is reported
// healthy without being checked.
func NewSystemHandler(storageType string, storage Pinger) *SystemHandler {
	return &SystemHandler{storageType: storageType, storage: storage}
}

// Home handles GET /
func (h *SystemHandler) Home(w http.ResponseWriter, r *http.Request) {
	response.Text(w, http.StatusOK, "Welcome to the clicker game API")
}

// Health handles GET /api/health. An unreachable store answers 503.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.storage.Ping(ctx); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, response.HealthResponse{
				Status:  "unavailable",
				Storage: h.storageType,
				Error:   err.Error(),
			})
			return
		}
	}
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Storage: h.storageType})
}
