// Package store keeps an append-only history of the events broadcast to game
// rooms.
package store

import (
	"context"
	"fmt"

	"github.com/avvvet/monopoly-services/internal/comm"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS game_events (
    id          BIGSERIAL PRIMARY KEY,
    game_id     BIGINT NOT NULL,
    player_id   BIGINT NOT NULL,
    type        TEXT NOT NULL,
    instance_id TEXT NOT NULL,
    data        JSONB NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS game_events_game_id_idx ON game_events (game_id, id);
`

type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create game_events: %w", err)
	}
	return nil
}

// Append records e. Game ids are snowflakes, which stay below 2^63.
func (s *EventStore) Append(ctx context.Context, e *comm.GameEvent) error {
	data := []byte(e.Data)
	if len(data) == 0 {
		data = []byte("null")
	}

	_, err := s.pool.Exec(ctx, `
        INSERT INTO game_events (game_id, player_id, type, instance_id, data, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, int64(e.GameId), e.PlayerId, e.Type, e.InstanceId, data, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert %s event for game %d: %w", e.Type, e.GameId, err)
	}
	return nil
}

// ListByGame returns up to limit events of gameId, oldest first.
func (s *EventStore) ListByGame(ctx context.Context, gameId uint64, limit int) ([]comm.GameEvent, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT game_id, player_id, type, instance_id, data, occurred_at
        FROM game_events
        WHERE game_id = $1
        ORDER BY id
        LIMIT $2
    `, int64(gameId), limit)
	if err != nil {
		return nil, fmt.Errorf("select events for game %d: %w", gameId, err)
	}
	defer rows.Close()

	var events []comm.GameEvent
	for rows.Next() {
		var (
			e      comm.GameEvent
			gameID int64
			data   []byte
		)
		if err := rows.Scan(&gameID, &e.PlayerId, &e.Type, &e.InstanceId, &data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e.GameId = uint64(gameID)
		e.Data = data
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}
