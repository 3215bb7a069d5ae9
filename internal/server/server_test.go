package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskd/internal/costs"
	"github.com/nhle/taskd/internal/live"
	"github.com/nhle/taskd/internal/model"
	"github.com/nhle/taskd/internal/notify"
	"github.com/nhle/taskd/internal/projects"
	"github.com/nhle/taskd/internal/store"
	"github.com/nhle/taskd/internal/tasks"
	"github.com/nhle/taskd/tests/testutil"
)

type fixture struct {
	srv      *httptest.Server
	store    *store.SQLiteStore
	registry *live.Registry
	tokens   *TokenIssuer
	owner    model.User
	task     model.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s := testutil.NewTestStore(t)
	owner := testutil.SeedUser(t, s, "Ana", "ana@example.com")
	task := testutil.SeedTask(t, s, owner, "Deploy", model.StatusPending, nil)

	reg := live.NewRegistry()
	notifier := notify.New(s, s, nil, reg, zerolog.Nop())
	services := Services{
		Tasks:    tasks.NewService(s, notifier, zerolog.Nop()),
		Projects: projects.NewService(s, zerolog.Nop()),
		Costs:    costs.NewService(s, zerolog.Nop()),
	}

	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(New(s, services, reg, tokens, []string{"*"}, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, store: s, registry: reg, tokens: tokens, owner: owner, task: task}
}

func (f *fixture) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := f.tokens.Issue(userID)
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "ana@example.com", Password: "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, f.owner.ID, out.User.ID)

	id, err := f.tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID, id)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "ana@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/auth/login", "", loginRequest{Email: "ghost@example.com", Password: "secret"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/notifications", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	other, err := NewTokenIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	forged, err := other.Issue(f.owner.ID)
	require.NoError(t, err)

	resp = f.do(t, http.MethodGet, "/api/notifications", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredToken(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := issuer.Issue(7)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(tok)
	assert.Error(t, err)
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestUpdateStatusPersistsNotification(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, f.owner.ID)

	resp := f.do(t, http.MethodPatch, "/api/tasks/"+itoa(f.task.ID)+"/status", tok,
		statusRequest{Status: model.StatusCompleted, Comment: "shipped"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var task model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
	assert.Equal(t, model.StatusCompleted, task.Status)

	resp = f.do(t, http.MethodGet, "/api/notifications", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []model.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, f.task.ID, list[0].TaskID)
	assert.Contains(t, list[0].Message, "Deploy")
	assert.Contains(t, list[0].Message, model.StatusCompleted)
}

func TestUpdateStatusErrors(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, f.owner.ID)

	resp := f.do(t, http.MethodPatch, "/api/tasks/"+itoa(f.task.ID)+"/status", tok, statusRequest{Status: " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, "/api/tasks/999/status", tok, statusRequest{Status: model.StatusCompleted})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, "/api/tasks/abc/status", tok, statusRequest{Status: model.StatusCompleted})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListNotificationsEmpty(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/notifications", f.token(t, f.owner.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []model.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMarkNotificationRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := testutil.SeedUser(t, f.store, "Bea", "bea@example.com")

	require.NoError(t, f.store.CreateNotification(ctx, model.Notification{
		ID:      "n-1",
		UserID:  f.owner.ID,
		TaskID:  f.task.ID,
		Message: "hello",
	}))

	resp := f.do(t, http.MethodPost, "/api/notifications/n-1/read", f.token(t, other.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/notifications/n-1/read", f.token(t, f.owner.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	unread, err := f.store.GetUnreadNotifications(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestWebSocketReceivesStatusChange(t *testing.T) {
	f := newFixture(t)
	tok := f.token(t, f.owner.ID)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/ws?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		_, ok := f.registry.Lookup(f.owner.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	resp := f.do(t, http.MethodPatch, "/api/tasks/"+itoa(f.task.ID)+"/status", tok,
		statusRequest{Status: model.StatusInProgress})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg live.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Contains(t, msg.Data, model.StatusPending)
	assert.Contains(t, msg.Data, model.StatusInProgress)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
