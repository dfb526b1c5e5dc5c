package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/clickergame/internal/api/request"
	"github.com/mcoot/clickergame/internal/api/response"
	"github.com/mcoot/clickergame/internal/services/players"
)

// PlayerHandler handles player administration endpoints
type PlayerHandler struct {
	players *players.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players *players.Service) *PlayerHandler {
	return &PlayerHandler{
		players: players,
	}
}

// Rankings handles GET /api/players/rankings
func (h *PlayerHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	list, err := h.players.ListPlayers(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

// Get handles GET /api/players/user/{userId}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.players.GetUser(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, user)
}

// ToggleBlock handles PATCH /api/players/{id}/block
func (h *PlayerHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	user, err := h.players.AdminToggleBlock(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, user)
}

// Update handles PUT /api/players/{id}
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePlayerRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.players.UpdatePlayer(r.Context(), mux.Vars(r)["id"], players.UpdateInput{
		Username:   req.Username,
		ClickCount: req.ClickCount,
		Password:   req.Password,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UpdatePlayerResponse{
		Message: "Player updated successfully",
		Player:  user,
	})
}

// Delete handles DELETE /api/players/{id}
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.players.DeletePlayer(r.Context(), mux.Vars(r)["id"]); err != nil {
		WriteError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.MessageResponse{Message: "Player deleted successfully"})
}
