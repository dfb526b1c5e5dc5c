package model

// EventType names an event pushed to live connections
type EventType string

const (
	// Broadcast to every connection
	EventPlayerCreated      EventType = "playerCreated"
	EventUpdatePlayerStatus EventType = "updatePlayerStatus"
	EventUpdateRankings     EventType = "updateRankings"
	EventUpdatePlayer       EventType = "updatePlayer"
	EventPlayerDeleted      EventType = "playerDeleted"

	// Targeted at a single connection
	EventConnected        EventType = "connected"
	EventUpdateClickCount EventType = "updateClickCount"
	EventError            EventType = "error"
)

// ConnectedPayload tells a new connection which id to address inbound events to
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// ClickCountPayload is sent to the clicking connection after a successful click
type ClickCountPayload struct {
	UserID        UserID `json:"userId"`
	NewClickCount int64  `json:"newClickCount"`
	Status        Status `json:"status"`
}

// PlayerDeletedPayload carries the id of a removed player
type PlayerDeletedPayload struct {
	ID UserID `json:"id"`
}

// ErrorPayload describes a failed inbound live event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried by ErrorPayload
const (
	LiveErrInvalidID     = "INVALID_ID"
	LiveErrUserNotFound  = "USER_NOT_FOUND"
	LiveErrUserNotActive = "USER_NOT_ACTIVE"
	LiveErrInternal      = "INTERNAL_ERROR"
)
