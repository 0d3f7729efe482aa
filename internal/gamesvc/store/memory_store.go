package store

import (
	"context"
	"sync"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
)

// MemoryGameStore keeps games in process. Values are copied on the way in and
// out so callers never share state with the store.
type MemoryGameStore struct {
	mu    sync.RWMutex
	games map[uint64]*models.Game
}

func NewMemoryGameStore() *MemoryGameStore {
	return &MemoryGameStore{
		games: make(map[uint64]*models.Game),
	}
}

func (s *MemoryGameStore) Load(ctx context.Context, gameId uint64) (*models.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[gameId]
	if !ok {
		return nil, models.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *MemoryGameStore) Save(ctx context.Context, game *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.games[game.ID] = game.Clone()
	return nil
}
