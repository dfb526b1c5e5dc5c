package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/clickergame/internal/api"
	"github.com/mcoot/clickergame/internal/api/apierr"
	"github.com/mcoot/clickergame/internal/api/response"
	"github.com/mcoot/clickergame/internal/factory"
	"github.com/mcoot/clickergame/internal/model"
	"github.com/mcoot/clickergame/internal/testutil"
)

// testServer wires the router over a test application
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:        testutil.NopLogger(),
		Metrics:       app.Metrics,
		Gatherer:      app.Registry,
		AuthService:   app.AuthService,
		PlayerService: app.PlayerService,
		LiveService:   app.LiveService,
		Hub:           app.Hub,
		StorageType:   factory.StorageTypeMemory,
		Storage:       app.Storage,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) register(t *testing.T, username, password string) *model.User {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/auth/register", credentials(username, password), "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp response.RegisterResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.NewPlayer
}

func (ts *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/auth/login", credentials(username, password), "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp response.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Token
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	_, err := ts.app.AuthService.EnsureAdmin(context.Background(), "root", "rootpw")
	require.NoError(t, err)
	return ts.login(t, "root", "rootpw")
}

func credentials(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.ErrorResponse {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHomeAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Welcome to the clicker game API", rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","storage":"memory"}`, rr.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	player := ts.register(t, "alice", "secret")
	assert.Equal(t, "alice", player.Username)
	assert.Equal(t, model.RolePlayer, player.Role)
	assert.Equal(t, model.StatusInactive, player.Status)
	assert.Equal(t, int64(0), player.ClickCount)

	rr := ts.request(http.MethodPost, "/api/auth/login", credentials("alice", "secret"), "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.LoginResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "alice Logged in successfully", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, player.ID, resp.User.ID)

	// The password hash never leaves the server
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/auth/register", map[string]string{"username": "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)

	ts.register(t, "alice", "secret")
	rr = ts.request(http.MethodPost, "/api/auth/register", credentials("alice", "other"), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, decodeError(t, rr).Code)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/auth/register", credentials("alice", strings.Repeat("p", 73)), "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, apierr.CodeInvalidRequest, body.Code)
	assert.Equal(t, "Password must be at most 72 bytes", body.Message)
}

func TestLoginWrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "secret")

	rr := ts.request(http.MethodPost, "/api/auth/login", credentials("alice", "wrong"), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, decodeError(t, rr).Code)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "secret")
	token := ts.login(t, "alice", "secret")

	// Token in the body
	rr := ts.request(http.MethodPost, "/api/auth/logout", map[string]string{"token": token}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.LogoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusInactive, resp.User.Status)

	// Token in the header
	rr = ts.request(http.MethodPost, "/api/auth/logout", nil, token)
	assert.Equal(t, http.StatusOK, rr.Code)

	// No token at all
	rr = ts.request(http.MethodPost, "/api/auth/logout", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeMissingToken, decodeError(t, rr).Code)
}

func TestPlayersRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/players/rankings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "No token, authorization denied", decodeError(t, rr).Message)

	rr = ts.request(http.MethodGet, "/api/players/rankings", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidToken, decodeError(t, rr).Code)
}

func TestAdminRoutesForbidPlayers(t *testing.T) {
	ts := newTestServer(t)
	player := ts.register(t, "alice", "secret")
	token := ts.login(t, "alice", "secret")

	rr := ts.request(http.MethodPatch, "/api/players/"+string(player.ID)+"/block", nil, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeForbidden, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPost, "/api/auth/admin/register", credentials("sneaky", "pw"), token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRankingsAndGetUser(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	alice := ts.register(t, "alice", "pw")
	ts.register(t, "bob", "pw")

	clicks := int64(7)
	rr := ts.request(http.MethodPut, "/api/players/"+string(alice.ID), map[string]any{"clickCount": clicks}, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/players/rankings", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	var rankings []model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rankings))
	require.Len(t, rankings, 2)
	assert.Equal(t, "alice", rankings[0].Username)
	assert.Equal(t, int64(7), rankings[0].ClickCount)
	assert.Equal(t, "bob", rankings[1].Username)

	rr = ts.request(http.MethodGet, "/api/players/user/"+string(alice.ID), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, alice.ID, got.ID)

	rr = ts.request(http.MethodGet, "/api/players/user/not-an-id", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid user ID format", decodeError(t, rr).Message)

	rr = ts.request(http.MethodGet, "/api/players/user/"+string(model.NewUserID()), nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminBlockCycle(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	alice := ts.register(t, "alice", "pw")
	ts.login(t, "alice", "pw")

	path := "/api/players/" + string(alice.ID) + "/block"

	rr := ts.request(http.MethodPatch, path, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	var user model.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, model.StatusBlocked, user.Status)

	rr = ts.request(http.MethodPost, "/api/auth/login", credentials("alice", "pw"), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeUserBlocked, decodeError(t, rr).Code)

	rr = ts.request(http.MethodPatch, path, nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, model.StatusInactive, user.Status)
}

func TestUpdateAndDeletePlayer(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	alice := ts.register(t, "alice", "pw")

	rr := ts.request(http.MethodPut, "/api/players/"+string(alice.ID), map[string]any{
		"username": "alicia",
		"password": "newpw",
	}, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	var updated response.UpdatePlayerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, "Player updated successfully", updated.Message)
	assert.Equal(t, "alicia", updated.Player.Username)

	ts.login(t, "alicia", "newpw")

	rr = ts.request(http.MethodPut, "/api/players/"+string(alice.ID), map[string]any{"clickCount": -1}, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPut, "/api/players/"+string(alice.ID), map[string]any{"password": strings.Repeat("p", 73)}, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, decodeError(t, rr).Code)

	rr = ts.request(http.MethodDelete, "/api/players/"+string(alice.ID), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"Player deleted successfully"}`, rr.Body.String())

	rr = ts.request(http.MethodDelete, "/api/players/"+string(alice.ID), nil, admin)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	alice := ts.register(t, "alice", "pw")
	token := ts.login(t, "alice", "pw")

	rr := ts.request(http.MethodDelete, "/api/players/"+string(alice.ID), nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/players/rankings", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminRegister(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)

	rr := ts.request(http.MethodPost, "/api/auth/admin/register", credentials("second", "pw"), admin)
	require.Equal(t, http.StatusCreated, rr.Code)

	stored, err := ts.app.Storage.GetUserByUsername(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)

	// Admins never show up in rankings
	rr = ts.request(http.MethodGet, "/api/players/rankings", nil, admin)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestLiveUnknownConnection(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/live/nope/click", map[string]string{"userId": string(model.NewUserID())}, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeConnectionNotFound, decodeError(t, rr).Code)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.request(http.MethodGet, "/api/health", nil, "")

	rr := ts.request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",route="/api/health",status="200"} 1`)
}

type liveEvent struct {
	name string
	data string
}

// nextEvent reads one SSE event, skipping keepalive comments
func nextEvent(t *testing.T, r *bufio.Reader) liveEvent {
	t.Helper()
	var ev liveEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data += strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			return ev
		}
	}
}

func TestLiveClickFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice", "pw")
	ts.login(t, "alice", "pw")

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/live/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	stream := bufio.NewReader(resp.Body)

	connected := nextEvent(t, stream)
	require.Equal(t, "connected", connected.name)
	var payload model.ConnectedPayload
	require.NoError(t, json.Unmarshal([]byte(connected.data), &payload))

	snapshot := nextEvent(t, stream)
	assert.Equal(t, "updateRankings", snapshot.name)

	body := strings.NewReader(`{"userId":"` + string(alice.ID) + `"}`)
	clickResp, err := http.Post(srv.URL+"/api/live/"+payload.ConnectionID+"/click", "application/json", body)
	require.NoError(t, err)
	clickResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, clickResp.StatusCode)

	clicked := nextEvent(t, stream)
	require.Equal(t, "updateClickCount", clicked.name)
	var count model.ClickCountPayload
	require.NoError(t, json.Unmarshal([]byte(clicked.data), &count))
	assert.Equal(t, alice.ID, count.UserID)
	assert.Equal(t, int64(1), count.NewClickCount)
	assert.Equal(t, model.StatusActive, count.Status)

	rankings := nextEvent(t, stream)
	require.Equal(t, "updateRankings", rankings.name)
	var users []model.User
	require.NoError(t, json.Unmarshal([]byte(rankings.data), &users))
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ClickCount)

	// A malformed id comes back as a targeted error event
	bad, err := http.Post(srv.URL+"/api/live/"+payload.ConnectionID+"/click", "application/json",
		strings.NewReader(`{"userId":"garbage"}`))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusAccepted, bad.StatusCode)

	errEvent := nextEvent(t, stream)
	require.Equal(t, "error", errEvent.name)
	var errPayload model.ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(errEvent.data), &errPayload))
	assert.Equal(t, model.LiveErrInvalidID, errPayload.Code)
}
