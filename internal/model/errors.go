package model

import "errors"

// Common errors used across the application
var (
	// Input errors
	ErrValidation = errors.New("validation failed")
	ErrInvalidID  = errors.New("invalid id")

	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrUserBlocked    = errors.New("user is blocked")
	ErrUserNotActive  = errors.New("user is not active")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("token is required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("admin privileges required")

	// Live connection errors
	ErrConnectionNotFound = errors.New("live connection not found")
)
