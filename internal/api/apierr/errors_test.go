package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/clickergame/internal/model"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{model.ErrValidation, http.StatusBadRequest},
		{model.ErrInvalidID, http.StatusBadRequest},
		{model.ErrUsernameExists, http.StatusBadRequest},
		{model.ErrMissingToken, http.StatusBadRequest},
		{model.ErrUserNotFound, http.StatusNotFound},
		{model.ErrConnectionNotFound, http.StatusNotFound},
		{model.ErrInvalidCredentials, http.StatusUnauthorized},
		{model.ErrInvalidToken, http.StatusUnauthorized},
		{model.ErrUserBlocked, http.StatusForbidden},
		{model.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("save user: %w", model.ErrUserNotFound), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
		{NewUnauthorizedError(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
		})
	}
}

func TestWriteErrorUnknownEchoesError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Server error", body.Message)
	assert.Equal(t, CodeServerError, body.Code)
	assert.Equal(t, "disk on fire", body.Error)
}

func TestWriteErrorKnownOmitsError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, model.ErrUserBlocked)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Your account has been blocked", body["message"])
	assert.Equal(t, CodeUserBlocked, body["code"])
	assert.NotContains(t, body, "error")
}

func TestValidationMessage(t *testing.T) {
	err := fmt.Errorf("%w: username and password are required", model.ErrValidation)
	assert.Equal(t, "Username and password are required", validationMessage(err))
	assert.Equal(t, "Invalid request", validationMessage(model.ErrValidation))
}
