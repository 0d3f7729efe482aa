// Package session serializes everything that happens to a game. Each game id
// maps to a room whose lock is held from loading the aggregate through saving
// it and broadcasting the outcome, so two actions on the same game never
// interleave while different games proceed independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/avvvet/monopoly-services/internal/comm"
	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/avvvet/monopoly-services/internal/gamesvc/rules"
	"github.com/avvvet/monopoly-services/internal/socketsvc/ws"
	log "github.com/sirupsen/logrus"
)

// details sent back to the requesting connection
const (
	DetailNotInGame    = "Player not in game"
	DetailGameFinished = "Game is finished"
	DetailNotYourTurn  = "Not your turn"
	DetailNotSaved     = "Action could not be saved"
)

// Repository loads and saves whole games. Load returns models.ErrGameNotFound
// for unknown ids.
type Repository interface {
	Load(ctx context.Context, gameId uint64) (*models.Game, error)
	Save(ctx context.Context, game *models.Game) error
}

// Registry is the room fan-out, implemented by ws.Registry.
type Registry interface {
	Connect(roomId string, conn ws.Conn)
	Disconnect(roomId string, conn ws.Conn)
	Broadcast(roomId string, msg any)
	Send(conn ws.Conn, msg any) error
	Count(roomId string) int
}

// Publisher forwards broadcast events out of process.
type Publisher interface {
	PublishGameEvent(gameId uint64, playerId int64, eventType string, event any)
}

type IDGenerator interface {
	Generate() uint64
}

// TurnPolicy may veto a mutating action by the player at playerIdx.
type TurnPolicy func(g *models.Game, playerIdx int) error

type Option func(*Coordinator)

func WithPublisher(p Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

func WithTurnPolicy(p TurnPolicy) Option {
	return func(c *Coordinator) { c.turnPolicy = p }
}

func WithDice(roll func() (int, int)) Option {
	return func(c *Coordinator) { c.roll = roll }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

type Coordinator struct {
	repo       Repository
	registry   Registry
	ids        IDGenerator
	publisher  Publisher
	turnPolicy TurnPolicy
	roll       func() (int, int)
	now        func() time.Time

	mu    sync.Mutex
	rooms map[uint64]*room
}

// room holds the last saved state of one game. game is replaced, never
// mutated in place.
type room struct {
	mu     sync.Mutex
	id     uint64
	key    string
	game   *models.Game
	closed bool // evicted, callers holding this pointer must look up again
}

func NewCoordinator(repo Repository, registry Registry, ids IDGenerator, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:     repo,
		registry: registry,
		ids:      ids,
		roll:     rules.RollDice,
		now:      time.Now,
		rooms:    make(map[uint64]*room),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RoomKey is the registry room id for a game.
func RoomKey(gameId uint64) string {
	return strconv.FormatUint(gameId, 10)
}

var ErrInvalidGameID = errors.New("invalid game id")

// ParseGameID parses the decimal id used in URLs.
func ParseGameID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidGameID
	}
	return id, nil
}

// acquire returns the locked room for gameId with its game loaded.
func (c *Coordinator) acquire(ctx context.Context, gameId uint64) (*room, error) {
	for {
		c.mu.Lock()
		r, ok := c.rooms[gameId]
		if !ok {
			r = &room{id: gameId, key: RoomKey(gameId)}
			c.rooms[gameId] = r
		}
		c.mu.Unlock()

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			continue
		}
		if r.game == nil {
			g, err := c.repo.Load(ctx, gameId)
			if err != nil {
				c.release(r)
				return nil, err
			}
			r.game = g
		}
		return r, nil
	}
}

// release unlocks r, dropping it from the cache when nobody is watching.
func (c *Coordinator) release(r *room) {
	if c.registry.Count(r.key) == 0 {
		r.closed = true
		c.mu.Lock()
		if c.rooms[r.id] == r {
			delete(c.rooms, r.id)
		}
		c.mu.Unlock()
	}
	r.mu.Unlock()
}

// CreateGame stores a new waiting game with creator in the first seat.
func (c *Coordinator) CreateGame(ctx context.Context, creator int64, maxPlayers int) (*models.Game, error) {
	g, err := models.NewGame(c.ids.Generate(), maxPlayers, creator, c.now())
	if err != nil {
		return nil, err
	}
	if err := c.repo.Save(ctx, g); err != nil {
		return nil, fmt.Errorf("save new game: %w", err)
	}

	log.WithFields(log.Fields{"game": g.ID, "player": creator, "max_players": maxPlayers}).Info("game created")
	return g.Clone(), nil
}

// JoinGame seats playerId and tells everyone already in the room.
func (c *Coordinator) JoinGame(ctx context.Context, gameId uint64, playerId int64) (*models.Game, error) {
	r, err := c.acquire(ctx, gameId)
	if err != nil {
		return nil, err
	}
	defer c.release(r)

	next := r.game.Clone()
	if err := next.AddPlayer(playerId, c.now()); err != nil {
		return nil, err
	}

	event := comm.JoinedEvent{
		Type:     comm.EventJoined,
		PlayerId: playerId,
		Status:   next.Status,
		Players:  next.PlayerIDs(),
	}
	if err := c.commit(ctx, r, nil, next, playerId, event.Type, event); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Snapshot returns a copy of the last saved state of gameId.
func (c *Coordinator) Snapshot(ctx context.Context, gameId uint64) (*models.Game, error) {
	r, err := c.acquire(ctx, gameId)
	if err != nil {
		return nil, err
	}
	defer c.release(r)

	return r.game.Clone(), nil
}

// Attach sends conn the current snapshot and then adds it to the room. Both
// happen under the room lock, so the init event precedes every later broadcast.
func (c *Coordinator) Attach(ctx context.Context, gameId uint64, conn ws.Conn) error {
	r, err := c.acquire(ctx, gameId)
	if err != nil {
		return err
	}
	defer c.release(r)

	if err := c.registry.Send(conn, comm.InitEvent{Type: comm.EventInit, Game: r.game}); err != nil {
		return fmt.Errorf("send init to %s: %w", conn.ID(), err)
	}
	c.registry.Connect(r.key, conn)
	return nil
}

// Detach removes conn from the room. Safe to call more than once.
func (c *Coordinator) Detach(gameId uint64, conn ws.Conn) {
	c.registry.Disconnect(RoomKey(gameId), conn)

	c.mu.Lock()
	r, ok := c.rooms[gameId]
	c.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	c.release(r)
}

// Handle applies one action sent by conn. Rule outcomes are broadcast to the
// room, rejections and read-only answers go to conn only. The returned error
// covers infrastructure failures; the room stays usable either way.
func (c *Coordinator) Handle(ctx context.Context, gameId uint64, conn ws.Conn, action Action) error {
	r, err := c.acquire(ctx, gameId)
	if err != nil {
		return err
	}
	defer c.release(r)

	logger := log.WithFields(log.Fields{"game": gameId, "player": action.PlayerId, "action": action.Kind.String()})

	g := r.game
	idx := g.PlayerIndex(action.PlayerId)
	if idx < 0 {
		c.reply(conn, comm.ErrorEvent{Detail: DetailNotInGame})
		return nil
	}
	if g.Status == models.StatusFinished {
		c.reply(conn, comm.ErrorEvent{Detail: DetailGameFinished})
		return nil
	}

	switch action.Kind {
	case ActionPromptBuy:
		prop, ok := rules.CanPurchase(g, idx)
		c.reply(conn, comm.CanBuyEvent{Type: comm.EventCanBuy, CanBuy: ok, Property: prop})
		return nil

	case ActionRoll:
		if !c.allowed(conn, g, idx) {
			return nil
		}
		next := g.Clone()
		d1, d2 := c.roll()
		rules.MovePlayer(next, idx, d1+d2)
		rules.AdvanceTurn(next, idx)

		p := next.Players[idx]
		event := comm.RolledEvent{
			Type:     comm.EventRolled,
			PlayerId: p.PlayerID,
			Dice:     [2]int{d1, d2},
			Position: p.Position,
			Balance:  p.Balance,
		}
		logger.Debugf("rolled %d+%d to %d", d1, d2, p.Position)
		return c.commit(ctx, r, conn, next, p.PlayerID, event.Type, event)

	case ActionBuy:
		if !c.allowed(conn, g, idx) {
			return nil
		}
		next := g.Clone()
		ok := rules.PurchaseProperty(next, idx)
		rules.AdvanceTurn(next, idx)

		p := next.Players[idx]
		event := comm.BoughtEvent{
			Type:       comm.EventBought,
			PlayerId:   p.PlayerID,
			Success:    ok,
			PropertyId: next.Board[p.Position].ID,
			Balance:    p.Balance,
		}
		logger.Debugf("buy property %d success=%t", event.PropertyId, ok)
		return c.commit(ctx, r, conn, next, p.PlayerID, event.Type, event)
	}

	logger.Debug("ignoring unknown action")
	return nil
}

func (c *Coordinator) allowed(conn ws.Conn, g *models.Game, idx int) bool {
	if c.turnPolicy == nil {
		return true
	}
	if err := c.turnPolicy(g, idx); err != nil {
		detail := err.Error()
		if errors.Is(err, rules.ErrNotYourTurn) {
			detail = DetailNotYourTurn
		}
		c.reply(conn, comm.ErrorEvent{Detail: detail})
		return false
	}
	return true
}

// commit saves next and only then makes it the room state and announces it.
func (c *Coordinator) commit(ctx context.Context, r *room, conn ws.Conn, next *models.Game, playerId int64, eventType string, event any) error {
	if err := c.repo.Save(ctx, next); err != nil {
		log.WithFields(log.Fields{"game": r.id, "event": eventType}).Errorf("save failed, keeping previous state: %v", err)
		c.reply(conn, comm.ErrorEvent{Detail: DetailNotSaved})
		return fmt.Errorf("save game %d: %w", r.id, err)
	}

	r.game = next
	c.registry.Broadcast(r.key, event)
	if c.publisher != nil {
		c.publisher.PublishGameEvent(r.id, playerId, eventType, event)
	}
	return nil
}

func (c *Coordinator) reply(conn ws.Conn, msg any) {
	if conn == nil {
		return
	}
	if err := c.registry.Send(conn, msg); err != nil {
		log.Warnf("reply to %s failed: %v", conn.ID(), err)
	}
}
