package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
)

// outbound event types
const (
	EventInit   = "init"
	EventRolled = "rolled"
	EventCanBuy = "can_buy"
	EventBought = "bought"
	EventJoined = "joined"
)

// ActionMessage is what a web client sends over the game socket.
type ActionMessage struct {
	Action   string `json:"action"` // "roll", "prompt_buy" or "buy"
	PlayerId int64  `json:"player_id"`
}

type InitEvent struct {
	Type string       `json:"type"`
	Game *models.Game `json:"game"`
}

type RolledEvent struct {
	Type     string `json:"type"`
	PlayerId int64  `json:"player_id"`
	Dice     [2]int `json:"dice"`
	Position int    `json:"position"`
	Balance  int    `json:"balance"`
}

type CanBuyEvent struct {
	Type     string          `json:"type"`
	CanBuy   bool            `json:"can_buy"`
	Property models.Property `json:"property"`
}

type BoughtEvent struct {
	Type       string `json:"type"`
	PlayerId   int64  `json:"player_id"`
	Success    bool   `json:"success"`
	PropertyId int    `json:"property_id"`
	Balance    int    `json:"balance"`
}

type JoinedEvent struct {
	Type     string            `json:"type"`
	PlayerId int64             `json:"player_id"`
	Status   models.GameStatus `json:"status"`
	Players  []int64           `json:"players"`
}

// ErrorEvent goes to the requesting connection only.
type ErrorEvent struct {
	Detail string `json:"detail"`
}

// FrameError answers a frame that could not be decoded.
type FrameError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// GameEvent is the NATS envelope for every event broadcast to a room.
type GameEvent struct {
	Type       string          `json:"type"`
	GameId     uint64          `json:"game_id,string"`
	PlayerId   int64           `json:"player_id"`
	InstanceId string          `json:"instance_id"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
}
