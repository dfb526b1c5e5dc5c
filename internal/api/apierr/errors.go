package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/clickergame/internal/model"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidID          = "INVALID_ID"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserBlocked        = "USER_BLOCKED"
	CodeUserNotActive      = "USER_NOT_ACTIVE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeConnectionNotFound = "CONNECTION_NOT_FOUND"
	CodeServerError        = "SERVER_ERROR"
)

// httpError combines an HTTP status code with a response body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrValidation):
		return &httpError{http.StatusBadRequest, ErrorResponse{Message: validationMessage(err), Code: CodeInvalidRequest}}
	case errors.Is(err, model.ErrInvalidID):
		return &httpError{http.StatusBadRequest, ErrorResponse{Message: "Invalid user ID format", Code: CodeInvalidID}}
	case errors.Is(err, model.ErrUsernameExists):
		return &httpError{http.StatusBadRequest, ErrorResponse{Message: "Username already exists", Code: CodeUsernameExists}}
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{Message: "User not found", Code: CodeUserNotFound}}
	case errors.Is(err, model.ErrUserBlocked):
		return &httpError{http.StatusForbidden, ErrorResponse{Message: "Your account has been blocked", Code: CodeUserBlocked}}
	case errors.Is(err, model.ErrUserNotActive):
		return &httpError{http.StatusConflict, ErrorResponse{Message: "User is not active", Code: CodeUserNotActive}}
	case errors.Is(err, model.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials", Code: CodeInvalidCredentials}}
	case errors.Is(err, model.ErrMissingToken):
		return &httpError{http.StatusBadRequest, ErrorResponse{Message: "Token is required", Code: CodeMissingToken}}
	case errors.Is(err, model.ErrInvalidToken):
		return &httpError{http.StatusUnauthorized, ErrorResponse{Message: "Token is not valid", Code: CodeInvalidToken}}
	case errors.Is(err, model.ErrForbidden):
		return &httpError{http.StatusForbidden, ErrorResponse{Message: "Admin privileges required", Code: CodeForbidden}}
	case errors.Is(err, model.ErrConnectionNotFound):
		return &httpError{http.StatusNotFound, ErrorResponse{Message: "Live connection not found", Code: CodeConnectionNotFound}}

	default:
		return &httpError{http.StatusInternalServerError, ErrorResponse{Message: "Server error", Code: CodeServerError, Error: err.Error()}}
	}
}

// validationMessage strips the sentinel prefix from a wrapped validation error
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": ")
	if msg == "" || msg == model.ErrValidation.Error() {
		return "Invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// NewUnauthorizedError creates the error for a request with no bearer token
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, ErrorResponse{Message: "No token, authorization denied", Code: CodeUnauthorized}}
}
