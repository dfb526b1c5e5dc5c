package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/clickergame/internal/api/request"
	"github.com/mcoot/clickergame/internal/api/response"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/services/live"
	"github.com/mcoot/clickergame/internal/sse"
)

// LiveHandler serves the live event stream and its inbound events
type LiveHandler struct {
	hub  *sse.Hub
	live *live.Service
}

// NewLiveHandler creates a new live handler
func NewLiveHandler(hub *sse.Hub, live *live.Service) *LiveHandler {
	return &LiveHandler{
		hub:  hub,
		live: live,
	}
}

// Events handles GET /api/live/events
func (h *LiveHandler) Events(w http.ResponseWriter, r *http.Request) {
	sse.ServeSSE(w, r, h.hub, h.live.Connected)
}

// Click handles POST /api/live/{connId}/click
func (h *LiveHandler) Click(w http.ResponseWriter, r *http.Request) {
	connID, ok := h.connection(w, r)
	if !ok {
		return
	}

	var req request.ClickRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	// Outcome, success or failure, is delivered on the stream
	_ = h.live.Click(context.WithoutCancel(r.Context()), connID, req.UserID)
	response.JSON(w, http.StatusAccepted, response.AcceptedResponse{Status: "accepted"})
}

// ToggleBlock handles POST /api/live/{connId}/toggle-block
func (h *LiveHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	connID, ok := h.connection(w, r)
	if !ok {
		return
	}

	var req request.ToggleBlockRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	_ = h.live.ToggleBlock(context.WithoutCancel(r.Context()), connID, req.PlayerID)
	response.JSON(w, http.StatusAccepted, response.AcceptedResponse{Status: "accepted"})
}

func (h *LiveHandler) connection(w http.ResponseWriter, r *http.Request) (string, bool) {
	connID := mux.Vars(r)["connId"]
	if !h.hub.HasClient(connID) {
		WriteError(w, r, model.ErrConnectionNotFound)
		return "", false
	}
	return connID, true
}
