package response

import (
	"github.com/mcoot/clickergame/internal/model"
)

// MessageResponse carries only a human readable message
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterResponse is returned by player registration
type RegisterResponse struct {
	Message   string      `json:"message"`
	NewPlayer *model.User `json:"newPlayer"`
}

// UserSummary is the part of a user returned at login
type UserSummary struct {
	ID       model.UserID `json:"id"`
	Username string       `json:"username"`
	Role     model.Role   `json:"role"`
}

// UserSummaryFromModel converts a model.User to a UserSummary
func UserSummaryFromModel(u *model.User) UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    UserSummary `json:"user"`
}

// LogoutResponse is returned by a successful logout
type LogoutResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// UpdatePlayerResponse is returned by a successful player update
type UpdatePlayerResponse struct {
	Message string      `json:"message"`
	Player  *model.User `json:"player"`
}

// AcceptedResponse acknowledges an inbound live event
type AcceptedResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Error   string `json:"error,omitempty"`
}
