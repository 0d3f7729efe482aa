package rules

import (
	"testing"
	"time"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, players ...int64) *models.Game {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := models.NewGame(1, len(players), players[0], now)
	require.NoError(t, err)
	for _, id := range players[1:] {
		require.NoError(t, g.AddPlayer(id, now))
	}
	return g
}

func TestRollDiceRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		d1, d2 := RollDice()
		require.GreaterOrEqual(t, d1, 1)
		require.LessOrEqual(t, d1, 6)
		require.GreaterOrEqual(t, d2, 1)
		require.LessOrEqual(t, d2, 6)
		seen[d1] = true
		seen[d2] = true
	}
	assert.Len(t, seen, 6)
}

func TestMovePlayerAllStartsAndSteps(t *testing.T) {
	for start := 0; start < models.BoardSize; start++ {
		for steps := 2; steps <= 12; steps++ {
			g := newTestGame(t, 1, 2)
			g.Players[0].Position = start

			MovePlayer(g, 0, steps)

			assert.Equal(t, (start+steps)%models.BoardSize, g.Players[0].Position)
			want := models.StartingBalance
			if start+steps >= models.BoardSize {
				want += PassStartBonus
			}
			assert.Equal(t, want, g.Players[0].Balance, "start %d steps %d", start, steps)
		}
	}
}

func TestMovePlayerExamples(t *testing.T) {
	tests := []struct {
		name        string
		start       int
		steps       int
		wantPos     int
		wantBalance int
	}{
		{"wraps with bonus", 38, 5, 3, 1700},
		{"no bonus", 10, 5, 15, 1500},
		{"lands on start", 35, 5, 0, 1700},
		{"full lap in one move", 0, 40, 0, 1700},
		{"more than a lap", 39, 45, 4, 1700},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, 1, 2)
			g.Players[0].Position = tt.start

			MovePlayer(g, 0, tt.steps)

			assert.Equal(t, tt.wantPos, g.Players[0].Position)
			assert.Equal(t, tt.wantBalance, g.Players[0].Balance)
		})
	}
}

func TestCanPurchaseDoesNotMutate(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 3
	before := g.Clone()

	prop, ok := CanPurchase(g, 0)

	assert.True(t, ok)
	assert.Equal(t, 3, prop.ID)
	assert.Equal(t, 130, prop.Price)
	assert.Equal(t, before, g)
}

func TestCanPurchaseUnaffordable(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 3
	g.Players[0].Balance = 129

	_, ok := CanPurchase(g, 0)
	assert.False(t, ok)
}

func TestPurchaseProperty(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 3

	require.True(t, PurchaseProperty(g, 0))

	assert.Equal(t, 1370, g.Players[0].Balance)
	require.NotNil(t, g.Board[3].OwnerID)
	assert.Equal(t, int64(1), *g.Board[3].OwnerID)
	assert.Equal(t, []int{3}, g.Players[0].Properties)
}

func TestPurchasePropertyTwice(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 3
	require.True(t, PurchaseProperty(g, 0))
	after := g.Clone()

	assert.False(t, PurchaseProperty(g, 0))
	assert.Equal(t, after, g)
}

func TestPurchasePropertyOwnedByOther(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 3
	g.Players[1].Position = 3
	require.True(t, PurchaseProperty(g, 0))

	assert.False(t, PurchaseProperty(g, 1))
	assert.Equal(t, models.StartingBalance, g.Players[1].Balance)
	assert.Empty(t, g.Players[1].Properties)
	assert.Equal(t, int64(1), *g.Board[3].OwnerID)
}

func TestPurchasePropertyUnaffordable(t *testing.T) {
	g := newTestGame(t, 1, 2)
	g.Players[0].Position = 39
	g.Players[0].Balance = 100
	before := g.Clone()

	assert.False(t, PurchaseProperty(g, 0))
	assert.Equal(t, before, g)
}

func TestOwnershipStaysBidirectional(t *testing.T) {
	g := newTestGame(t, 1, 2, 3, 4)
	for step := 0; step < 200; step++ {
		idx := step % len(g.Players)
		MovePlayer(g, idx, 2+step%11)
		PurchaseProperty(g, idx)

		for _, prop := range g.Board {
			holders := 0
			for _, p := range g.Players {
				if p.Owns(prop.ID) {
					holders++
					require.NotNil(t, prop.OwnerID)
					require.Equal(t, p.PlayerID, *prop.OwnerID)
				}
			}
			if prop.Owned() {
				require.Equal(t, 1, holders, "property %d", prop.ID)
			} else {
				require.Equal(t, 0, holders, "property %d", prop.ID)
			}
		}
		for _, p := range g.Players {
			require.GreaterOrEqual(t, p.Balance, 0)
			require.GreaterOrEqual(t, p.Position, 0)
			require.Less(t, p.Position, models.BoardSize)
		}
	}
}

func TestAdvanceTurn(t *testing.T) {
	g := newTestGame(t, 1, 2, 3)

	AdvanceTurn(g, 0)
	assert.Equal(t, 1, g.CurrentIndex)
	AdvanceTurn(g, 2)
	assert.Equal(t, 0, g.CurrentIndex)
}

func TestStrictTurnOrder(t *testing.T) {
	g := newTestGame(t, 1, 2)

	assert.NoError(t, StrictTurnOrder(g, 0))
	assert.ErrorIs(t, StrictTurnOrder(g, 1), ErrNotYourTurn)
}
