package rules

import (
	"fmt"

	"github.com/google/uuid"
)

// Card values follow Temperature scoring: A=1, 2-10 face, J=0, Q=12, K=15,
// Joker=0. Suit is decorative and never affects rules.
type Card struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value int    `json:"value"`
	Suit  int    `json:"suit"`
}

type Rank struct {
	Label string
	Value int
}

var Ranks = []Rank{
	{"A", 1},
	{"2", 2},
	{"3", 3},
	{"4", 4},
	{"5", 5},
	{"6", 6},
	{"7", 7},
	{"8", 8},
	{"9", 9},
	{"10", 10},
	{"J", 0},
	{"Q", 12},
	{"K", 15},
}

const JokerLabel = "Joker"

func NewCardID() string {
	return uuid.NewString()
}

func (c Card) String() string {
	suits := []string{"♣", "♦", "♥", "♠"}
	if c.Label == JokerLabel {
		return "🃏"
	}
	suit := "?"
	if c.Suit >= 0 && c.Suit < len(suits) {
		suit = suits[c.Suit]
	}
	return fmt.Sprintf("%s%s", c.Label, suit)
}
