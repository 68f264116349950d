package engine

import (
	"context"
	"time"

	"Temperature/internal/game/cpu"
	"Temperature/internal/game/rules"
)

// scheduleCPULocked arms a one-shot timer when a CPU player's turn starts.
// The delay is pacing only, it carries no correctness weight.
func (s *Session) scheduleCPULocked() {
	st := s.state
	if st == nil || st.Phase != PhaseTurnStart {
		return
	}
	p := st.CurrentPlayer()
	if p == nil || p.Human {
		return
	}
	spread := int64(s.delayMax - s.delayMin)
	delay := s.delayMin
	if spread > 0 {
		delay += time.Duration(s.jitter.Int63n(spread + 1))
	}
	s.clock.AfterFunc(delay, s.cpuMove)
}

// cpuMove runs when the pacing timer fires. It resolves the session state
// fresh rather than trusting whatever was current when the timer was
// armed; a resume or snapshot replace may have happened in between.
func (s *Session) cpuMove() {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st == nil || st.Phase != PhaseTurnStart {
		return
	}
	p := st.CurrentPlayer()
	if p == nil || p.Human {
		return
	}

	// A queued show intent from the previous turn takes priority.
	if p.PendingShow {
		p.PendingShow = false
		_ = s.callShowLocked(ctx)
		return
	}

	dec := cpu.Turn(p.Hand)
	for _, c := range dec.Drop {
		if card, ok := removeByID(&p.Hand, c.ID); ok {
			st.Discard = append(st.Discard, card)
		}
	}
	if dec.Draw == cpu.DrawDeck {
		if len(st.Deck) == 0 {
			st.Deck, st.Discard = rules.Reshuffle(st.Deck, st.Discard, nil)
		}
		if len(st.Deck) > 0 {
			p.Hand = append(p.Hand, st.Deck[len(st.Deck)-1])
			st.Deck = st.Deck[:len(st.Deck)-1]
		}
	} else if len(st.Discard) > 0 {
		p.Hand = append(p.Hand, st.Discard[len(st.Discard)-1])
		st.Discard = st.Discard[:len(st.Discard)-1]
	}
	if dec.PlanShowNext {
		p.PendingShow = true
	}
	s.advanceTurnLocked(ctx)
}
