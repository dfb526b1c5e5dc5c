package storage

import (
	"context"
	"time"

	"github.com/mcoot/clickergame/internal/model"
)

// StatusTransition computes a user's next status from the stored one. A
// non-nil error aborts the update and is returned unchanged.
type StatusTransition func(current model.Status) (model.Status, error)

// Storage defines the interface for user persistence.
//
// Implementations return copies: mutating a returned user never changes stored
// state until it is passed back to SaveUser.
type Storage interface {
	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error

	// SaveUser inserts or replaces a user. Returns model.ErrUsernameExists if
	// another user already holds the username.
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// DeleteUser hard-deletes a user. Returns model.ErrUserNotFound if absent.
	DeleteUser(ctx context.Context, id model.UserID) error

	// ListPlayers returns every user with the player role, highest click count first
	ListPlayers(ctx context.Context) ([]*model.User, error)

	// IncrementClickCount atomically adds one click to an active user and
	// returns the updated record. Returns model.ErrUserNotFound or
	// model.ErrUserNotActive without changing anything.
	IncrementClickCount(ctx context.Context, id model.UserID, at time.Time) (*model.User, error)

	// UpdateStatus atomically replaces a user's status with the result of
	// transition and returns the updated record. No other field is written,
	// so concurrent clicks are kept. Returns model.ErrUserNotFound if absent.
	UpdateStatus(ctx context.Context, id model.UserID, transition StatusTransition, at time.Time) (*model.User, error)
}
