// Package rules holds the pure deck and scoring helpers for Temperature.
// Nothing here mutates game state beyond the slices it is handed.
package rules

// NewDeck builds a full 4-suit deck (suits decorative) plus two Jokers when
// requested, shuffled. A non-empty seed makes the ordering deterministic.
func NewDeck(useJokers bool, seed string) []Card {
	deck := make([]Card, 0, 54)
	for s := 0; s < 4; s++ {
		for _, r := range Ranks {
			deck = append(deck, Card{ID: NewCardID(), Label: r.Label, Value: r.Value, Suit: s})
		}
	}
	if useJokers {
		deck = append(deck, Card{ID: NewCardID(), Label: JokerLabel, Value: 0})
		deck = append(deck, Card{ID: NewCardID(), Label: JokerLabel, Value: 0})
	}
	var src Source
	if seed != "" {
		src = NewRNG(seed)
	}
	Shuffle(deck, src)
	return deck
}

// Shuffle is an in-place Fisher-Yates, last to first, swap index in [0,i].
// A nil src falls back to math/rand.
func Shuffle(cards []Card, src Source) {
	if src == nil {
		src = mathSource{}
	}
	for i := len(cards) - 1; i > 0; i-- {
		j := int(src.Float64() * float64(i+1))
		cards[i], cards[j] = cards[j], cards[i]
	}
}

func HandTotal(hand []Card) int {
	sum := 0
	for _, c := range hand {
		sum += c.Value
	}
	return sum
}

// CanMultiDrop reports whether a selection is a legal drop: non-empty and
// all one rank label (both Jokers share the label "Joker").
func CanMultiDrop(selection []Card) bool {
	if len(selection) == 0 {
		return false
	}
	first := selection[0].Label
	for _, c := range selection[1:] {
		if c.Label != first {
			return false
		}
	}
	return true
}

// Reshuffle recycles the discard into an empty deck, keeping the discard's
// top card in place. No-op if the deck still has cards or the discard has
// nothing to give up. Deck and discard tops are the slice ends.
func Reshuffle(deck, discard []Card, src Source) ([]Card, []Card) {
	if len(deck) > 0 || len(discard) <= 1 {
		return deck, discard
	}
	top := discard[len(discard)-1]
	rest := make([]Card, len(discard)-1)
	copy(rest, discard[:len(discard)-1])
	Shuffle(rest, src)
	return append(deck, rest...), []Card{top}
}
