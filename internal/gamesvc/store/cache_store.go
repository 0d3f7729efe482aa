package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/gomodule/redigo/redis"
	log "github.com/sirupsen/logrus"
)

// Backend is the durable store behind the cache.
type Backend interface {
	Load(ctx context.Context, gameId uint64) (*models.Game, error)
	Save(ctx context.Context, game *models.Game) error
}

// CachedGameStore keeps the latest saved snapshot of each game in Redis.
// Reads fall through to the backend on a miss. Saves hit the backend first,
// so a Redis failure can cost a cache refresh but never durability.
type CachedGameStore struct {
	next Backend
	pool *redis.Pool
	ttl  time.Duration
}

func NewCachedGameStore(next Backend, pool *redis.Pool, ttl time.Duration) *CachedGameStore {
	return &CachedGameStore{next: next, pool: pool, ttl: ttl}
}

// NewRedisPool dials redisURL, e.g. redis://localhost:6379/0.
func NewRedisPool(redisURL string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 60 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.DialURL(redisURL)
		},
	}
}

func cacheKey(gameId uint64) string {
	return fmt.Sprintf("game:%d", gameId)
}

func (s *CachedGameStore) Load(ctx context.Context, gameId uint64) (*models.Game, error) {
	if game, err := s.get(ctx, gameId); err == nil {
		return game, nil
	} else if !errors.Is(err, redis.ErrNil) {
		log.Warnf("redis get %s failed: %v", cacheKey(gameId), err)
	}

	game, err := s.next.Load(ctx, gameId)
	if err != nil {
		return nil, err
	}
	s.put(ctx, game)
	return game, nil
}

func (s *CachedGameStore) Save(ctx context.Context, game *models.Game) error {
	if err := s.next.Save(ctx, game); err != nil {
		return err
	}
	s.put(ctx, game)
	return nil
}

func (s *CachedGameStore) get(ctx context.Context, gameId uint64) (*models.Game, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", cacheKey(gameId)))
	if err != nil {
		return nil, err
	}

	game := &models.Game{}
	if err := json.Unmarshal(data, game); err != nil {
		return nil, fmt.Errorf("decode cached game %d: %w", gameId, err)
	}
	return game, nil
}

func (s *CachedGameStore) put(ctx context.Context, game *models.Game) {
	data, err := json.Marshal(game)
	if err != nil {
		log.Errorf("unable to marshal game %d for cache: %v", game.ID, err)
		return
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		log.Warnf("redis connection failed: %v", err)
		return
	}
	defer conn.Close()

	key := cacheKey(game.ID)
	args := redis.Args{}.Add(key, data)
	if secs := int(s.ttl.Seconds()); secs > 0 {
		args = args.Add("EX", secs)
	}
	if _, err := conn.Do("SET", args...); err != nil {
		log.Warnf("redis set %s failed: %v", key, err)
		// a stale entry would shadow the saved state
		if _, err := conn.Do("DEL", key); err != nil {
			log.Warnf("redis del %s failed: %v", key, err)
		}
	}
}
