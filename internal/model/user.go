package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// UserID uniquely identifies a user across the system
type UserID string

// ParseUserID validates a raw identifier and returns it in canonical form
func ParseUserID(raw string) (UserID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidID
	}
	return UserID(id.String()), nil
}

// NewUserID generates a fresh random identifier
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// Role distinguishes administrators from players. Fixed at creation.
type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
)

// Status is the user's position in the session state machine
type Status string

const (
	StatusActive   Status = "active"
	StatusBlocked  Status = "blocked"
	StatusInactive Status = "inactive"
)

// AdminToggleBlock is the transition applied by the admin HTTP endpoint.
// Unblocking always lands in inactive, never back in active.
func (s Status) AdminToggleBlock() Status {
	switch s {
	case StatusInactive, StatusActive:
		return StatusBlocked
	default:
		return StatusInactive
	}
}

// LiveToggleBlock is the transition applied by a live connection's toggle event.
// It flips between active and blocked and never yields inactive.
func (s Status) LiveToggleBlock() Status {
	if s == StatusActive {
		return StatusBlocked
	}
	return StatusActive
}

// User is a registered account, either a player or an administrator
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never leaves the process
	Role         Role      `json:"role"`
	ClickCount   int64     `json:"clickCount"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser creates a user with default status and click count
func NewUser(username, passwordHash string, role Role, now time.Time) *User {
	return &User{
		ID:           NewUserID(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		ClickCount:   0,
		Status:       StatusInactive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive returns true if the user may register clicks
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Clone returns a copy that can be mutated without affecting the original
func (u *User) Clone() *User {
	c := *u
	return &c
}

// SortByClickCount orders users by click count, highest first.
// Ties keep their relative order.
func SortByClickCount(users []*User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].ClickCount > users[j].ClickCount
	})
}
