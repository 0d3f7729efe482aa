package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/avvvet/monopoly-services/internal/gamesvc/session"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const defaultMaxPlayers = models.MaxPlayers

// Games is the part of the session coordinator the REST routes use.
type Games interface {
	CreateGame(ctx context.Context, creator int64, maxPlayers int) (*models.Game, error)
	JoinGame(ctx context.Context, gameId uint64, playerId int64) (*models.Game, error)
	Snapshot(ctx context.Context, gameId uint64) (*models.Game, error)
}

type Handler struct {
	games     Games
	tokenAuth *jwtauth.JWTAuth
	port      string
}

func NewHandler(games Games, tokenAuth *jwtauth.JWTAuth, port string) *Handler {
	return &Handler{games: games, tokenAuth: tokenAuth, port: port}
}

func (h *Handler) TokenAuth() *jwtauth.JWTAuth {
	return h.tokenAuth
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type createGameRequest struct {
	MaxPlayers *int `json:"max_players"` // nil when absent
}

type GameCreated struct {
	GameId  string            `json:"game_id"`
	Status  models.GameStatus `json:"status"`
	Players []int64           `json:"players"`
}

type GameJoined struct {
	Status  models.GameStatus `json:"status"`
	Players []int64           `json:"players"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "game service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// CreateGameHandler creates a game with the caller in the first seat.
func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	playerId, err := PlayerIDFromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}

	maxPlayers, err := maxPlayersParam(r)
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
		return
	}

	game, err := h.games.CreateGame(r.Context(), playerId, maxPlayers)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "game created",
		Code:    http.StatusCreated,
		Data: GameCreated{
			GameId:  strconv.FormatUint(game.ID, 10),
			Status:  game.Status,
			Players: game.PlayerIDs(),
		},
	})
}

// JoinGameHandler seats the caller in the game named by the URL.
func (h *Handler) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	playerId, err := PlayerIDFromContext(r.Context())
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: err.Error()})
		return
	}
	gameId, ok := h.gameID(w, r)
	if !ok {
		return
	}

	game, err := h.games.JoinGame(r.Context(), gameId, playerId)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "joined",
		Code:    http.StatusOK,
		Data:    GameJoined{Status: game.Status, Players: game.PlayerIDs()},
	})
}

func (h *Handler) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	gameId, ok := h.gameID(w, r)
	if !ok {
		return
	}

	game, err := h.games.Snapshot(r.Context(), gameId)
	if err != nil {
		h.errorResponse(w, err)
		return
	}

	h.CreateResponse(w, Response{Code: http.StatusOK, Data: game})
}

// maxPlayersParam reads max_players from the query string, falling back to the
// JSON body. Only an absent value gets the default.
func maxPlayersParam(r *http.Request) (int, error) {
	if q := r.URL.Query(); q.Has("max_players") {
		n, err := strconv.Atoi(q.Get("max_players"))
		if err != nil {
			return 0, errors.New("invalid max_players")
		}
		return n, nil
	}

	req := createGameRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return 0, errors.New("invalid request body")
	}
	if req.MaxPlayers == nil {
		return defaultMaxPlayers, nil
	}
	return *req.MaxPlayers, nil
}

func (h *Handler) gameID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := session.ParseGameID(chi.URLParam(r, "gameID"))
	if err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "invalid game id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidMaxPlayers),
		errors.Is(err, models.ErrGameFull),
		errors.Is(err, models.ErrAlreadyJoined),
		errors.Is(err, models.ErrGameFinished):
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: err.Error()})
	case errors.Is(err, models.ErrGameNotFound):
		h.CreateResponse(w, Response{Code: http.StatusNotFound, Error: err.Error()})
	default:
		log.Errorf("request failed: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusInternalServerError, Error: "internal error"})
	}
}
