package models

import "fmt"

const (
	BoardSize = 40
)

// Property is a board space. Everything but OwnerID is fixed at creation.
type Property struct {
	ID      int    `json:"id" bson:"id"` // board position
	Name    string `json:"name" bson:"name"`
	Price   int    `json:"price" bson:"price"`
	Rent    []int  `json:"rent" bson:"rent"`         // tiered by house count
	OwnerID *int64 `json:"owner_id" bson:"owner_id"` // nil when unowned
}

func (p Property) Owned() bool {
	return p.OwnerID != nil
}

func (p Property) clone() Property {
	c := p
	if p.Rent != nil {
		c.Rent = append([]int(nil), p.Rent...)
	}
	if p.OwnerID != nil {
		owner := *p.OwnerID
		c.OwnerID = &owner
	}
	return c
}

// NewBoard builds the fixed 40 space board with deterministic pricing.
func NewBoard() []Property {
	board := make([]Property, BoardSize)
	for i := range board {
		board[i] = Property{
			ID:    i,
			Name:  fmt.Sprintf("Field %d", i),
			Price: 100 + i*10,
			Rent:  []int{10, 20, 30},
		}
	}
	return board
}
