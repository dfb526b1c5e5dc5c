package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/clickergame/internal/model"
)

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeCredentials(t *testing.T) {
	var req CredentialsRequest
	require.NoError(t, Decode(newRequest(`{"username":"alice","password":"pw"}`), &req))
	assert.Equal(t, "alice", req.Username)
	assert.Equal(t, "pw", req.Password)
}

func TestDecodeMissingFields(t *testing.T) {
	var req CredentialsRequest
	err := Decode(newRequest(`{}`), &req)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "username and password are required")

	err = Decode(newRequest(`{"username":"alice"}`), &req)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "password is required")
}

func TestDecodeEmptyBody(t *testing.T) {
	var req CredentialsRequest
	err := Decode(newRequest(``), &req)
	assert.ErrorIs(t, err, model.ErrValidation)

	var logout LogoutRequest
	assert.NoError(t, Decode(newRequest(``), &logout))
}

func TestDecodeMalformedJSON(t *testing.T) {
	var req CredentialsRequest
	err := Decode(newRequest(`{"username":`), &req)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestDecodePartialUpdate(t *testing.T) {
	var req UpdatePlayerRequest
	require.NoError(t, Decode(newRequest(`{"clickCount":5}`), &req))
	require.NotNil(t, req.ClickCount)
	assert.Equal(t, int64(5), *req.ClickCount)
	assert.Nil(t, req.Username)
	assert.Nil(t, req.Password)
}
