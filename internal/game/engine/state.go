package engine

import (
	"Temperature/internal/game/rules"
)

type Mode string

const (
	// ModeSingle is a one-shot table: the first show ends the game.
	ModeSingle Mode = "one"
	// ModeRoom is multi-round play with cumulative scores and elimination.
	ModeRoom Mode = "room"
)

type Phase string

const (
	PhaseTurnStart Phase = "turn-start"
	PhaseRoundEnd  Phase = "round-end"
	PhaseGameOver  Phase = "game-over"
)

type DrawSource string

const (
	DrawDeck    DrawSource = "deck"
	DrawDiscard DrawSource = "discard"
)

type Player struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Human      bool         `json:"human"`
	Hand       []rules.Card `json:"hand"`
	Score      int          `json:"score"`
	Eliminated bool         `json:"eliminated"`
	// PendingShow is the CPU's note to itself to call show at its next
	// turn-start.
	PendingShow bool `json:"pendingShow"`
}

// GameState is the single authoritative snapshot. Turn order is fixed for
// the game's lifetime; elimination never removes a player from Players.
// Deck and Discard tops are the slice ends.
type GameState struct {
	Mode        Mode         `json:"mode"`
	TargetScore int          `json:"targetScore"`
	UseJokers   bool         `json:"useJokers"`
	Players     []*Player    `json:"players"`
	Deck        []rules.Card `json:"deck"`
	Discard     []rules.Card `json:"discard"`
	Current     int          `json:"current"`
	Phase       Phase        `json:"phase"`
	Round       int          `json:"round"`
	Winner      string       `json:"winner,omitempty"`
	LastScores  []int        `json:"lastScores,omitempty"`
}

// Options are the new-game settings. The caller clamps PlayerCount to [2,6]
// and HumanCount to [1,PlayerCount]; the engine only rejects outright
// nonsense.
type Options struct {
	PlayerCount int  `json:"playerCount"`
	HumanCount  int  `json:"humanCount"`
	Jokers      bool `json:"jokers"`
	RoomMode    bool `json:"roomMode"`
	TargetScore int  `json:"targetScore"`
}

// NetPlayer is a roster entry for a network game seat.
type NetPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (gs *GameState) CurrentPlayer() *Player {
	if gs == nil || gs.Current < 0 || gs.Current >= len(gs.Players) {
		return nil
	}
	return gs.Players[gs.Current]
}

func (gs *GameState) activeCount() int {
	n := 0
	for _, p := range gs.Players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}
