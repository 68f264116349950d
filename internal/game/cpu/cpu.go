// Package cpu is the computer opponent policy. It only reads a hand and
// returns what it would do; the engine applies the result like any human
// move.
package cpu

import (
	"Temperature/internal/game/rules"
)

// DrawDeck is the only draw source the policy ever picks.
const DrawDeck = "deck"

type Decision struct {
	Drop         []rules.Card
	Draw         string
	PlanShowNext bool
}

// ChooseDrop groups the hand by rank label and picks the group with the
// highest value*100+size score. Ties keep the first group encountered in
// hand order, so card value dominates group size.
func ChooseDrop(hand []rules.Card) []rules.Card {
	groups := make(map[string][]rules.Card)
	order := make([]string, 0, len(hand))
	for _, c := range hand {
		if _, ok := groups[c.Label]; !ok {
			order = append(order, c.Label)
		}
		groups[c.Label] = append(groups[c.Label], c)
	}

	var best []rules.Card
	bestScore := -1
	for _, label := range order {
		cards := groups[label]
		score := cards[0].Value*100 + len(cards)
		if score > bestScore {
			best, bestScore = cards, score
		}
	}
	if best == nil {
		return []rules.Card{}
	}
	return best
}

// Turn decides a full move for the given hand. PlanShowNext signals intent
// to call show at the start of the *next* turn, not this one; it fires when
// the hand the policy looked at totals under 15.
func Turn(hand []rules.Card) Decision {
	return Decision{
		Drop:         ChooseDrop(hand),
		Draw:         DrawDeck,
		PlanShowNext: rules.HandTotal(hand) < 15,
	}
}
