package models

const StartingBalance = 1500

// Player is a participant of one game.
type Player struct {
	PlayerID   int64 `json:"player_id" bson:"player_id"`
	Position   int   `json:"position" bson:"position"`
	Balance    int   `json:"balance" bson:"balance"`
	Properties []int `json:"properties" bson:"properties"` // ids of owned board spaces
}

func NewPlayer(playerID int64) Player {
	return Player{
		PlayerID:   playerID,
		Balance:    StartingBalance,
		Properties: []int{},
	}
}

func (p Player) Owns(propertyID int) bool {
	for _, id := range p.Properties {
		if id == propertyID {
			return true
		}
	}
	return false
}

func (p Player) clone() Player {
	c := p
	c.Properties = append(make([]int, 0, len(p.Properties)), p.Properties...)
	return c
}
