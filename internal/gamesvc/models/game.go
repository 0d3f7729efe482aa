package models

import (
	"errors"
	"time"
)

type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusFinished GameStatus = "finished"

	MinPlayers = 2
	MaxPlayers = 4
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameFull          = errors.New("game is full")
	ErrAlreadyJoined     = errors.New("player already joined")
	ErrGameFinished      = errors.New("game is finished")
	ErrInvalidMaxPlayers = errors.New("max players must be between 2 and 4")
)

// Game is the aggregate root: players, board and ownership are loaded, locked
// and saved together.
type Game struct {
	ID           uint64     `json:"id,string" bson:"_id"`
	MaxPlayers   int        `json:"max_players" bson:"max_players"`
	Players      []Player   `json:"players" bson:"players"` // join order is turn order
	Board        []Property `json:"board" bson:"board"`
	Status       GameStatus `json:"status" bson:"status"`
	CurrentIndex int        `json:"current_index" bson:"current_index"` // whose turn
	StartedAt    *time.Time `json:"started_at" bson:"started_at"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
}

// NewGame returns a waiting game with a fresh board and the creator seated first.
func NewGame(id uint64, maxPlayers int, creator int64, now time.Time) (*Game, error) {
	if maxPlayers < MinPlayers || maxPlayers > MaxPlayers {
		return nil, ErrInvalidMaxPlayers
	}

	g := &Game{
		ID:         id,
		MaxPlayers: maxPlayers,
		Players:    []Player{},
		Board:      NewBoard(),
		Status:     StatusWaiting,
		CreatedAt:  now.UTC(),
	}
	if err := g.AddPlayer(creator, now); err != nil {
		return nil, err
	}
	return g, nil
}

// AddPlayer seats playerID at the end of the turn order. The game becomes
// active once the last seat is taken.
func (g *Game) AddPlayer(playerID int64, now time.Time) error {
	if g.Status == StatusFinished {
		return ErrGameFinished
	}
	if g.PlayerIndex(playerID) >= 0 {
		return ErrAlreadyJoined
	}
	if len(g.Players) >= g.MaxPlayers {
		return ErrGameFull
	}

	g.Players = append(g.Players, NewPlayer(playerID))
	if len(g.Players) == g.MaxPlayers {
		started := now.UTC()
		g.Status = StatusActive
		g.StartedAt = &started
	}
	return nil
}

// PlayerIndex returns the seat of playerID or -1.
func (g *Game) PlayerIndex(playerID int64) int {
	for i, p := range g.Players {
		if p.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func (g *Game) PlayerIDs() []int64 {
	ids := make([]int64, len(g.Players))
	for i, p := range g.Players {
		ids[i] = p.PlayerID
	}
	return ids
}

// Clone returns a deep copy that shares no memory with g.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}

	c := *g
	c.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		c.Players[i] = p.clone()
	}
	c.Board = make([]Property, len(g.Board))
	for i, p := range g.Board {
		c.Board[i] = p.clone()
	}
	if g.StartedAt != nil {
		started := *g.StartedAt
		c.StartedAt = &started
	}
	return &c
}
