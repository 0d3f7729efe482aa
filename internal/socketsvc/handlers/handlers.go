package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/avvvet/monopoly-services/internal/comm"
	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/avvvet/monopoly-services/internal/gamesvc/session"
	"github.com/avvvet/monopoly-services/internal/socketsvc/ws"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const actionTimeout = 10 * time.Second

// Sessions is the part of the session coordinator a socket talks to.
type Sessions interface {
	Attach(ctx context.Context, gameId uint64, conn ws.Conn) error
	Detach(gameId uint64, conn ws.Conn)
	Handle(ctx context.Context, gameId uint64, conn ws.Conn, action session.Action) error
}

type Handler struct {
	upgrader websocket.Upgrader
	sessions Sessions
}

func NewHandler(sessions Sessions, allowedOrigins []string) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		sessions: sessions,
	}
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket attaches a web client to the game room named in the URL and
// feeds its actions to the coordinator until the socket closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameId, err := session.ParseGameID(chi.URLParam(r, "gameID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	client := ws.NewClient(socketId, conn)
	go client.WritePump()

	log.Infof("New WebSocket connection established: %s game %d", socketId, gameId)

	h.handleConnection(gameId, client)
}

func (h *Handler) handleConnection(gameId uint64, client *ws.Client) {
	socketId := client.ID()

	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.sessions.Detach(gameId, client)
		client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	err := h.sessions.Attach(ctx, gameId, client)
	cancel()
	if err != nil {
		log.Warnf("socket %s could not attach to game %d: %v", socketId, gameId, err)
		if errors.Is(err, models.ErrGameNotFound) {
			h.sendErrorToClient(client, "Game not found")
		} else {
			h.sendErrorToClient(client, "Unable to join game")
		}
		return
	}

	for {
		raw, err := client.ReadMessage()
		if err != nil {
			// Check if it's a normal close or unexpected error
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			return
		}

		message := comm.ActionMessage{}
		if err := json.Unmarshal(raw, &message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(client, "Invalid message format")
			continue // Don't break, just skip this message
		}

		log.Debugf("Received message from socket %s: action=%s", socketId, message.Action)

		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		if err := h.sessions.Handle(ctx, gameId, client, session.ActionFromMessage(message)); err != nil {
			log.Warnf("action %s from socket %s failed: %v", message.Action, socketId, err)
		}
		cancel()
	}
}

// sendErrorToClient queues a transport error for the client
func (h *Handler) sendErrorToClient(client *ws.Client, errorMsg string) {
	data, err := json.Marshal(comm.FrameError{Type: "error", Error: errorMsg})
	if err != nil {
		return
	}
	if err := client.Send(data); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}
