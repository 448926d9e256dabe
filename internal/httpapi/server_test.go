package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/chatbot"
	"github.com/haseebgb92/blooms-journey-sub000/internal/content"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
	"github.com/haseebgb92/blooms-journey-sub000/internal/notify"
	"github.com/haseebgb92/blooms-journey-sub000/internal/scheduler"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	repo   *store.SQLiteRepo
	clock  *clockwork.FakeClock
	router *gin.Engine
	ctx    context.Context
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()

	repo, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clk := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	bus := eventbus.New()
	chain := notify.NewChain(repo, bus, clk, zap.NewNop())

	table, err := content.Load()
	require.NoError(t, err)
	sched, err := scheduler.New(repo, chain, table, zap.NewNop(), clk, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.Shutdown() })

	chat := chatbot.New(repo, nil, bus, clk, zap.NewNop(), chatbot.Config{})
	t.Cleanup(chat.Shutdown)

	srv := NewServer(repo, sched, chat, chain, bus, clk, zap.NewNop())
	return &apiFixture{repo: repo, clock: clk, router: srv.Router(), ctx: ctx}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/alice/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["initialized"])

	// Re-initializing an active session succeeds.
	w = f.do(t, http.MethodPost, "/v1/users/alice/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["initialized"])

	w = f.do(t, http.MethodDelete, "/v1/users/alice/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Tearing down twice is harmless.
	w = f.do(t, http.MethodDelete, "/v1/users/alice/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListNotificationsEmpty(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/v1/users/alice/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeJSON(t, w)["items"].([]any)
	assert.Empty(t, items)
}

func TestSendThenList(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/alice/notifications", gin.H{
		"type":  "water_intake",
		"title": "Time to hydrate!",
		"body":  "Drink a glass of water",
		"data":  map[string]string{"time": "09:00"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeJSON(t, w)
	require.Equal(t, true, resp["sent"])
	require.NotEmpty(t, resp["id"])

	w = f.do(t, http.MethodGet, "/v1/users/alice/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeJSON(t, w)["items"].([]any)
	require.Len(t, items, 1)
	got := items[0].(map[string]any)
	assert.Equal(t, "water_intake", got["type"])
	assert.Equal(t, "Time to hydrate!", got["title"])
	assert.Equal(t, false, got["read"])

	// water_intake is actionable, so it shows in the reminder list too.
	w = f.do(t, http.MethodGet, "/v1/users/alice/reminders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeJSON(t, w)["items"].([]any), 1)
}

func TestSendRejectsBadPayload(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/alice/notifications", gin.H{
		"title": "no type",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/v1/users/alice/notifications", gin.H{
		"type":  "horoscope",
		"title": "unknown category",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkReadIdempotent(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/alice/notifications", gin.H{
		"type":  "medication",
		"title": "Medication reminder",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeJSON(t, w)["id"].(string)

	w = f.do(t, http.MethodPost, "/v1/users/alice/notifications/"+id+"/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodPost, "/v1/users/alice/notifications/"+id+"/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	items, err := f.repo.ListNotifications(f.ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Read)

	// Unknown ids are a no-op, not an error.
	w = f.do(t, http.MethodPost, "/v1/users/alice/notifications/nope/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestMarkCompletedTouchesActivity(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/users/alice/notifications", gin.H{
		"type":  "exercise",
		"title": "Gentle stretch",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	id := decodeJSON(t, w)["id"].(string)

	w = f.do(t, http.MethodPost, "/v1/users/alice/reminders/"+id+"/complete", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	items, err := f.repo.ListNotifications(f.ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Completed)

	act, err := f.repo.GetActivity(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().UTC().Truncate(time.Second), act.LastActiveTime.UTC())
}

func TestPostChatMessage(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/conversations/conv-1/messages", gin.H{
		"userId": "alice",
		"body":   "is it normal to feel tired?",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decodeJSON(t, w)["id"])

	msg, err := f.repo.LatestChatMessage(f.ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "is it normal to feel tired?", msg.Body)

	w = f.do(t, http.MethodPost, "/v1/conversations/conv-1/messages", gin.H{
		"body": "missing user",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloseConversation(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/v1/conversations/conv-2/messages", gin.H{
		"userId": "bob",
		"body":   "hello",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodDelete, "/v1/conversations/conv-2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Closing an unknown conversation is harmless.
	w = f.do(t, http.MethodDelete, "/v1/conversations/ghost", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
