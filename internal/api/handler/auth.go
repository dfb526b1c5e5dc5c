package handler

import (
	"net/http"

	"github.com/mcoot/clickergame/internal/api/middleware"
	"github.com/mcoot/clickergame/internal/api/request"
	"github.com/mcoot/clickergame/internal/api/response"
	"github.com/mcoot/clickergame/internal/services/auth"
)

// AuthHandler handles registration, login and logout
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.CredentialsRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RegisterResponse{
		Message:   "User registered successfully",
		NewPlayer: user,
	})
}

// RegisterAdmin handles POST /api/auth/admin/register
func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req request.CredentialsRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	if _, err := h.authService.RegisterAdmin(r.Context(), req.Username, req.Password); err != nil {
		WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MessageResponse{Message: "Admin registered successfully"})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.CredentialsRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LoginResponse{
		Message: result.User.Username + " Logged in successfully",
		Token:   result.Token,
		User:    response.UserSummaryFromModel(result.User),
	})
}

// Logout handles POST /api/auth/logout. The token comes from the bearer
// header, or from the body when no header is sent.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		var req request.LogoutRequest
		if err := request.Decode(r, &req); err != nil {
			WriteError(w, r, err)
			return
		}
		token = req.Token
	}

	user, err := h.authService.Logout(r.Context(), token)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LogoutResponse{
		Message: "User logged out successfully",
		User:    user,
	})
}
