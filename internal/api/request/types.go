package request

// CredentialsRequest is the body of register, admin register and login
type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LogoutRequest optionally carries the token in the body instead of the header
type LogoutRequest struct {
	Token string `json:"token"`
}

// UpdatePlayerRequest is a partial update; omitted fields are unchanged
type UpdatePlayerRequest struct {
	Username   *string `json:"username"`
	ClickCount *int64  `json:"clickCount"`
	Password   *string `json:"password"`
}

// ClickRequest is the body of an inbound live click
type ClickRequest struct {
	UserID string `json:"userId"`
}

// ToggleBlockRequest is the body of an inbound live toggle
type ToggleBlockRequest struct {
	PlayerID string `json:"playerId"`
}
