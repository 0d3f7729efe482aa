package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/avvvet/monopoly-services/internal/gamesvc/session"
	"github.com/avvvet/monopoly-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	mu        sync.Mutex
	attachErr error
	attached  []string
	detached  []string
	actions   []session.Action
	handled   chan struct{}
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{handled: make(chan struct{}, 16)}
}

func (f *fakeSessions) Attach(_ context.Context, _ uint64, conn ws.Conn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, conn.ID())
	return conn.Send([]byte(`{"type":"init"}`))
}

func (f *fakeSessions) Detach(_ uint64, conn ws.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, conn.ID())
}

func (f *fakeSessions) Handle(_ context.Context, _ uint64, _ ws.Conn, action session.Action) error {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
	f.handled <- struct{}{}
	return nil
}

func (f *fakeSessions) detachedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.detached)
}

func newServer(t *testing.T, sessions Sessions, origins []string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v1/ws/{gameID}", NewHandler(sessions, origins).HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, gameId string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/" + gameId
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msg := map[string]any{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSocketDecodesActions(t *testing.T) {
	sessions := newFakeSessions()
	srv := newServer(t, sessions, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "42"), nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "init", readJSON(t, conn)["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, map[string]any{"type": "error", "error": "Invalid message format"}, readJSON(t, conn))

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "buy", "player_id": 5}))
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "teleport", "player_id": 5}))
	<-sessions.handled
	<-sessions.handled

	sessions.mu.Lock()
	assert.Equal(t, []session.Action{
		{Kind: session.ActionBuy, PlayerId: 5},
		{Kind: session.ActionUnknown, PlayerId: 5},
	}, sessions.actions)
	sessions.mu.Unlock()

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.Eventually(t, func() bool { return sessions.detachedCount() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestSocketUnknownGame(t *testing.T) {
	sessions := newFakeSessions()
	sessions.attachErr = models.ErrGameNotFound
	srv := newServer(t, sessions, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "42"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Game not found", readJSON(t, conn)["error"])
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure), "got %v", err)
}

func TestSocketAttachFailure(t *testing.T) {
	sessions := newFakeSessions()
	sessions.attachErr = errors.New("mongo down")
	srv := newServer(t, sessions, []string{"*"})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "42"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "Unable to join game", readJSON(t, conn)["error"])
}

func TestSocketRejectsBadGameID(t *testing.T) {
	srv := newServer(t, newFakeSessions(), []string{"*"})

	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, "zero"), nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSocketCheckOrigin(t *testing.T) {
	srv := newServer(t, newFakeSessions(), []string{"https://play.example"})

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv, "42"), header)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	header = http.Header{"Origin": []string{"https://play.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "42"), header)
	require.NoError(t, err)
	conn.Close()
}
