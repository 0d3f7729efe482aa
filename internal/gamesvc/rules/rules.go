// Package rules holds the turn and economy rules applied to a game. Every
// function is synchronous and works on the aggregate it is handed; callers own
// the locking.
package rules

import (
	"errors"
	"math/rand"

	"github.com/avvvet/monopoly-services/internal/gamesvc/models"
)

// PassStartBonus is credited whenever a move reaches or crosses the start space.
const PassStartBonus = 200

var ErrNotYourTurn = errors.New("not your turn")

// RollDice draws two six sided dice.
func RollDice() (int, int) {
	return rand.Intn(6) + 1, rand.Intn(6) + 1
}

// MovePlayer advances the player by steps, wrapping around the board.
func MovePlayer(g *models.Game, playerIdx int, steps int) {
	p := &g.Players[playerIdx]
	sum := p.Position + steps

	p.Position = sum % len(g.Board)
	// bonus is decided on the raw sum so a full lap in one move still pays
	if sum >= len(g.Board) {
		p.Balance += PassStartBonus
	}
}

// CanPurchase reports whether the player could buy the space they stand on.
// It never mutates g.
func CanPurchase(g *models.Game, playerIdx int) (models.Property, bool) {
	p := g.Players[playerIdx]
	prop := g.Board[p.Position]
	return prop, !prop.Owned() && p.Balance >= prop.Price
}

// PurchaseProperty buys the space under the player. On false nothing changed.
func PurchaseProperty(g *models.Game, playerIdx int) bool {
	if _, ok := CanPurchase(g, playerIdx); !ok {
		return false
	}

	p := &g.Players[playerIdx]
	prop := &g.Board[p.Position]
	owner := p.PlayerID

	p.Balance -= prop.Price
	prop.OwnerID = &owner
	p.Properties = append(p.Properties, prop.ID)
	return true
}

// AdvanceTurn moves CurrentIndex to the seat after playerIdx.
func AdvanceTurn(g *models.Game, playerIdx int) {
	if len(g.Players) == 0 {
		return
	}
	g.CurrentIndex = (playerIdx + 1) % len(g.Players)
}

// StrictTurnOrder rejects actions from anyone but the current player.
func StrictTurnOrder(g *models.Game, playerIdx int) error {
	if g.CurrentIndex != playerIdx {
		return ErrNotYourTurn
	}
	return nil
}
