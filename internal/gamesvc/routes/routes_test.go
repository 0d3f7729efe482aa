package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/handlers"
	"github.com/avvvet/monopoly-services/internal/gamesvc/session"
	"github.com/avvvet/monopoly-services/internal/gamesvc/store"
	"github.com/avvvet/monopoly-services/internal/snowflake"
	sockethandlers "github.com/avvvet/monopoly-services/internal/socketsvc/handlers"
	"github.com/avvvet/monopoly-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*httptest.Server, *handlers.Handler) {
	t.Helper()
	coord := session.NewCoordinator(store.NewMemoryGameStore(), ws.NewRegistry(), snowflake.New())
	games := handlers.NewHandler(coord, handlers.NewTokenAuth("secret"), "0")
	sockets := sockethandlers.NewHandler(coord, []string{"*"})

	r := chi.NewRouter()
	SetRoutes(r, games, sockets.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, games
}

func post(t *testing.T, srv *httptest.Server, games *handlers.Handler, path string, playerId int64, body string) map[string]any {
	t.Helper()
	tok, err := handlers.IssueToken(games.TokenAuth(), playerId, time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Less(t, res.StatusCode, 300)

	rsp := handlers.Response{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rsp))
	return rsp.Data.(map[string]any)
}

func dial(t *testing.T, srv *httptest.Server, gameId string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/" + gameId
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	msg := map[string]any{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := newServer(t)

	res, err := srv.Client().Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = srv.Client().Post(srv.URL+"/v1/games", "application/json", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestGameOverSocket(t *testing.T) {
	srv, games := newServer(t)

	created := post(t, srv, games, "/v1/games", 1, `{"max_players":2}`)
	gameId := created["game_id"].(string)

	a := dial(t, srv, gameId)
	snap := read(t, a)
	assert.Equal(t, "init", snap["type"])
	assert.Equal(t, "waiting", snap["game"].(map[string]any)["status"])

	joined := post(t, srv, games, "/v1/games/"+gameId+"/join", 2, "")
	assert.Equal(t, "active", joined["status"])
	ev := read(t, a)
	assert.Equal(t, "joined", ev["type"])
	assert.Equal(t, float64(2), ev["player_id"])

	b := dial(t, srv, gameId)
	snap = read(t, b)
	assert.Equal(t, "active", snap["game"].(map[string]any)["status"])

	require.NoError(t, a.WriteJSON(map[string]any{"action": "roll", "player_id": 1}))
	rolledA, rolledB := read(t, a), read(t, b)
	assert.Equal(t, rolledA, rolledB)
	assert.Equal(t, "rolled", rolledA["type"])
	dice := rolledA["dice"].([]any)
	assert.Equal(t, dice[0].(float64)+dice[1].(float64), rolledA["position"])
	assert.Equal(t, float64(1500), rolledA["balance"])

	require.NoError(t, a.WriteJSON(map[string]any{"action": "prompt_buy", "player_id": 1}))
	canBuy := read(t, a)
	assert.Equal(t, "can_buy", canBuy["type"])
	assert.Equal(t, true, canBuy["can_buy"])

	require.NoError(t, b.WriteJSON(map[string]any{"action": "roll", "player_id": 99}))
	assert.Equal(t, map[string]any{"detail": session.DetailNotInGame}, read(t, b))

	require.NoError(t, a.WriteJSON(map[string]any{"action": "buy", "player_id": 1}))
	bought := read(t, b)
	assert.Equal(t, "bought", bought["type"])
	assert.Equal(t, true, bought["success"])
	assert.Equal(t, rolledA["position"], bought["property_id"])
	assert.Equal(t, read(t, a), bought)
}
