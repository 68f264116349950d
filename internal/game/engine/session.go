// Package engine owns the authoritative Temperature game state. A Session
// is an explicit handle: no package-level state, so multiple games can run
// side by side (and tests stay isolated).
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"

	"Temperature/internal/game/rules"
	"Temperature/internal/notify"
	"Temperature/internal/storage"
	"Temperature/internal/utils"
)

var (
	ErrNoGame           = errors.New("engine: no game in progress")
	ErrInvalidOptions   = errors.New("engine: invalid game options")
	ErrInvalidDrop      = errors.New("engine: selection is not a legal drop")
	ErrEmptyDiscard     = errors.New("engine: discard is empty")
	ErrShowNotAllowed   = errors.New("engine: show only at turn start")
	ErrWrongPhase       = errors.New("engine: operation not legal in this phase")
	ErrNotYourTurn      = errors.New("engine: not the local player's turn")
	ErrNotAuthoritative = errors.New("engine: only the host controls rounds")
)

// Forwarder redirects a non-authoritative participant's moves into network
// intents instead of local mutations. Set only on networked clients.
type Forwarder interface {
	ForwardDropDraw(label string, count int, from DrawSource) error
	ForwardShow() error
}

type Session struct {
	mu        sync.Mutex
	id        string
	state     *GameState
	selection []string

	store    storage.Store
	notifier notify.Notifier
	clock    quartz.Clock
	jitter   *rand.Rand

	delayMin time.Duration
	delayMax time.Duration

	localPlayer string
	forward     Forwarder
	onChange    func(snapshot []byte)
}

func NewSession(id string, store storage.Store, notifier notify.Notifier) *Session {
	return &Session{
		id:       id,
		store:    store,
		notifier: notifier,
		clock:    quartz.NewReal(),
		jitter:   rand.New(rand.NewSource(time.Now().UnixNano())),
		delayMin: 450 * time.Millisecond,
		delayMax: 750 * time.Millisecond,
	}
}

// SetClock swaps the CPU-pacing clock; tests use a quartz mock.
func (s *Session) SetClock(c quartz.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

func (s *Session) SetCPUDelay(min, max time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delayMin, s.delayMax = min, max
}

// SetOnChange registers the snapshot hook called after every persisted
// mutation. The host lobby uses it to broadcast STATE.
func (s *Session) SetOnChange(fn func(snapshot []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetForwarder puts the session in networked-client mode: every move is
// translated into an intent for the host, and localID is the player this
// side controls.
func (s *Session) SetForwarder(f Forwarder, localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forward = f
	s.localPlayer = localID
}

// SetLocalPlayer names the seat this process controls without attaching a
// forwarder; the host of a network game uses it so its terminal cannot act
// for the remote seat. Hotseat games leave it empty.
func (s *Session) SetLocalPlayer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localPlayer = id
}

// StartNewGame deals a local game: first HumanCount seats are human, the
// rest CPU, 7 cards each plus one discard.
func (s *Session) StartNewGame(ctx context.Context, opts Options) error {
	if opts.PlayerCount < 2 || opts.HumanCount < 1 || opts.HumanCount > opts.PlayerCount {
		return ErrInvalidOptions
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]*Player, 0, opts.PlayerCount)
	for i := 0; i < opts.PlayerCount; i++ {
		human := i < opts.HumanCount
		name := fmt.Sprintf("Player %d", i+1)
		if !human {
			name += " (CPU)"
		}
		players = append(players, &Player{ID: rules.NewCardID(), Name: name, Human: human})
	}
	s.startLocked(ctx, players, opts, "")

	if data, err := json.Marshal(opts); err == nil {
		if err := s.store.SaveConfig(ctx, data); err != nil {
			utils.Log.Warn("config save failed", "err", err)
		}
	}
	return nil
}

// StartNetworkGame seats the lobby roster (all human-controlled) and deals
// from a seed-shuffled deck, so host and client construct matching games
// independently.
func (s *Session) StartNetworkGame(ctx context.Context, seed string, roster []NetPlayer, opts Options) error {
	if len(roster) < 2 {
		return ErrInvalidOptions
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]*Player, 0, len(roster))
	for _, np := range roster {
		players = append(players, &Player{ID: np.ID, Name: np.Name, Human: true})
	}
	s.startLocked(ctx, players, opts, seed)
	return nil
}

func (s *Session) startLocked(ctx context.Context, players []*Player, opts Options, seed string) {
	deck := rules.NewDeck(opts.Jokers, seed)
	deck, discard := deal(players, deck)

	mode := ModeSingle
	if opts.RoomMode {
		mode = ModeRoom
	}
	target := opts.TargetScore
	if target == 0 {
		target = 150
	}
	s.state = &GameState{
		Mode:        mode,
		TargetScore: target,
		UseJokers:   opts.Jokers,
		Players:     players,
		Deck:        deck,
		Discard:     discard,
		Current:     0,
		Phase:       PhaseTurnStart,
		Round:       1,
	}
	s.selection = nil
	s.persistLocked(ctx)
	s.scheduleCPULocked()
}

// deal gives 7 cards to each player round-robin and seeds the discard with
// one card. Deck top is the slice end.
func deal(players []*Player, deck []rules.Card) (rest, discard []rules.Card) {
	for r := 0; r < 7; r++ {
		for _, p := range players {
			p.Hand = append(p.Hand, deck[len(deck)-1])
			deck = deck[:len(deck)-1]
		}
	}
	discard = append(discard, deck[len(deck)-1])
	deck = deck[:len(deck)-1]
	return deck, discard
}

// Resume restores a previously saved game, if any.
func (s *Session) Resume(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.LoadState(ctx, s.id)
	if err != nil || data == nil {
		return false, err
	}
	var st GameState
	if err := json.Unmarshal(data, &st); err != nil {
		return false, fmt.Errorf("engine: corrupt save: %w", err)
	}
	s.state = &st
	s.selection = nil
	s.scheduleCPULocked()
	return true, nil
}

// LoadOptions returns the last-used new-game options, or nil.
func (s *Session) LoadOptions(ctx context.Context) (*Options, error) {
	data, err := s.store.LoadConfig(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	var opts Options
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (s *Session) SetSelection(cardIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = append([]string(nil), cardIDs...)
}

func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// Snapshot returns a deep copy of the current state, or nil.
func (s *Session) Snapshot() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		return nil
	}
	var cp GameState
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil
	}
	return &cp
}

// ReplaceState swaps in a full snapshot received from the host. Clients
// never merge partially.
func (s *Session) ReplaceState(data []byte) error {
	var st GameState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("engine: bad snapshot: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	s.selection = nil
	return nil
}

func (s *Session) CanShowNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil && s.state.Phase == PhaseTurnStart
}

func (s *Session) IsHumanTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.CurrentPlayer()
	return p != nil && p.Human
}

// IsLocalTurn reports whether the locally-controlled identity is up. With
// no network attachment every human seat is local.
func (s *Session) IsLocalTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLocalTurnLocked()
}

func (s *Session) isLocalTurnLocked() bool {
	p := s.state.CurrentPlayer()
	if p == nil {
		return false
	}
	if s.localPlayer == "" {
		return p.Human
	}
	return p.ID == s.localPlayer
}

// PerformDropAndDraw moves the selected cards to the discard and draws one
// card back. On a networked client the move is forwarded to the host as an
// intent instead of applied locally.
func (s *Session) PerformDropAndDraw(ctx context.Context, cardIDs []string, src DrawSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrNoGame
	}
	if s.state.Phase != PhaseTurnStart {
		return ErrWrongPhase
	}
	p := s.state.CurrentPlayer()
	if p == nil || !p.Human {
		return nil // CPU turns are engine-driven
	}
	if s.localPlayer != "" && p.ID != s.localPlayer {
		s.notifier.Notify("Wait for your turn")
		return ErrNotYourTurn
	}

	selection := pickByID(p.Hand, cardIDs)
	if len(selection) == 0 || !rules.CanMultiDrop(selection) {
		s.notifier.Notify("Select cards of the same value to drop")
		return ErrInvalidDrop
	}

	if s.forward != nil {
		// Non-authoritative side: ranks and counts travel, card ids do
		// not, because this side's view of the host's hand ids is not
		// trustworthy.
		s.selection = nil
		if err := s.forward.ForwardDropDraw(selection[0].Label, len(selection), src); err != nil {
			s.notifier.Notify("Move not delivered. Still connected?")
			return err
		}
		return nil
	}

	return s.dropAndDrawLocked(ctx, selection, src)
}

// dropAndDrawLocked applies a validated same-rank drop for the current
// player, then draws. Caller holds the lock and has validated selection.
func (s *Session) dropAndDrawLocked(ctx context.Context, selection []rules.Card, src DrawSource) error {
	st := s.state
	p := st.CurrentPlayer()

	for _, c := range selection {
		if card, ok := removeByID(&p.Hand, c.ID); ok {
			st.Discard = append(st.Discard, card)
		}
	}

	if src == DrawDiscard {
		if len(st.Discard) == 0 {
			s.notifier.Notify("Discard empty")
			return ErrEmptyDiscard
		}
		p.Hand = append(p.Hand, st.Discard[len(st.Discard)-1])
		st.Discard = st.Discard[:len(st.Discard)-1]
	} else {
		if len(st.Deck) == 0 {
			st.Deck, st.Discard = rules.Reshuffle(st.Deck, st.Discard, nil)
		}
		if len(st.Deck) == 0 {
			// Both piles exhausted: skip the draw, the turn still ends.
			s.notifier.Notify("No cards to draw")
		} else {
			p.Hand = append(p.Hand, st.Deck[len(st.Deck)-1])
			st.Deck = st.Deck[:len(st.Deck)-1]
		}
	}

	s.selection = nil
	s.advanceTurnLocked(ctx)
	return nil
}

// CallShow ends the round (or game) and scores every hand. Legal only at
// turn start. On a networked client it becomes a TRY_SHOW intent.
func (s *Session) CallShow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrNoGame
	}
	if !s.isLocalTurnLocked() {
		s.notifier.Notify("Wait for your turn")
		return ErrNotYourTurn
	}
	if s.forward != nil {
		if err := s.forward.ForwardShow(); err != nil {
			s.notifier.Notify("Show not delivered. Still connected?")
			return err
		}
		return nil
	}
	return s.callShowLocked(ctx)
}

func (s *Session) callShowLocked(ctx context.Context) error {
	st := s.state
	if st.Phase != PhaseTurnStart {
		s.notifier.Notify("Show only at start of turn")
		return ErrShowNotAllowed
	}

	caller := st.Current
	totals := make([]int, len(st.Players))
	min := math.MaxInt
	for i, p := range st.Players {
		if p.Eliminated {
			totals[i] = math.MaxInt // sentinel: never the minimum
			continue
		}
		totals[i] = rules.HandTotal(p.Hand)
		if totals[i] < min {
			min = totals[i]
		}
	}
	lows := 0
	for i, p := range st.Players {
		if !p.Eliminated && totals[i] == min {
			lows++
		}
	}

	last := make([]int, len(st.Players))
	for i, p := range st.Players {
		if p.Eliminated {
			last[i] = 0
			continue
		}
		if i == caller {
			switch {
			case totals[i] == min && lows == 1:
				p.Score -= 20
				last[i] = -20
			case totals[i] == min:
				last[i] = 0 // tied for lowest: no penalty, no bonus
			default:
				p.Score += 70
				last[i] = 70
			}
			continue
		}
		p.Score += totals[i]
		last[i] = totals[i]
	}
	st.LastScores = last

	if st.Mode == ModeSingle {
		st.Winner = winnerByLowestScore(st.Players)
		st.Phase = PhaseGameOver
		s.persistLocked(ctx)
		return nil
	}

	for _, p := range st.Players {
		if !p.Eliminated && p.Score >= st.TargetScore {
			p.Eliminated = true
		}
	}
	if st.activeCount() <= 1 {
		st.Winner = ""
		for _, p := range st.Players {
			if !p.Eliminated {
				st.Winner = p.Name
				break
			}
		}
		st.Phase = PhaseGameOver
		s.persistLocked(ctx)
		return nil
	}
	st.Phase = PhaseRoundEnd
	s.persistLocked(ctx)
	return nil
}

// NextRound redeals for the surviving players. Room mode, round-end only.
func (s *Session) NextRound(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st == nil {
		return ErrNoGame
	}
	if s.forward != nil {
		// Clients never deal for themselves; the next round arrives as a
		// snapshot once the host starts it.
		s.notifier.Notify("Waiting for the host to deal the next round")
		return ErrNotAuthoritative
	}
	if st.Mode != ModeRoom || st.Phase != PhaseRoundEnd {
		return ErrWrongPhase
	}

	active := make([]*Player, 0, len(st.Players))
	for _, p := range st.Players {
		if !p.Eliminated {
			p.Hand = nil
			p.PendingShow = false
			active = append(active, p)
		}
	}
	deck := rules.NewDeck(st.UseJokers, "")
	st.Deck, st.Discard = deal(active, deck)
	st.Round++
	st.Phase = PhaseTurnStart
	for st.Players[st.Current].Eliminated {
		st.Current = (st.Current + 1) % len(st.Players)
	}
	st.LastScores = nil
	st.Winner = ""
	s.selection = nil
	s.persistLocked(ctx)
	s.scheduleCPULocked()
	return nil
}

// ApplyIntentDropDraw is the host-side entry for a client DROP_DRAW intent:
// the first count cards matching label in the current player's hand are
// dropped. No mutation (and so no broadcast) when the reference is stale.
func (s *Session) ApplyIntentDropDraw(ctx context.Context, label string, count int, src DrawSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrNoGame
	}
	if s.state.Phase != PhaseTurnStart {
		return ErrWrongPhase
	}
	if count <= 0 {
		return ErrInvalidDrop
	}
	p := s.state.CurrentPlayer()
	selection := make([]rules.Card, 0, count)
	for _, c := range p.Hand {
		if c.Label == label {
			selection = append(selection, c)
			if len(selection) == count {
				break
			}
		}
	}
	if len(selection) < count || !rules.CanMultiDrop(selection) {
		return fmt.Errorf("%w: %dx %q not in hand", ErrInvalidDrop, count, label)
	}
	return s.dropAndDrawLocked(ctx, selection, src)
}

// ApplyIntentShow re-validates and applies a client TRY_SHOW intent. State
// may have moved on since the client sent it, hence the re-check.
func (s *Session) ApplyIntentShow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return ErrNoGame
	}
	if s.state.Phase != PhaseTurnStart {
		return ErrShowNotAllowed
	}
	return s.callShowLocked(ctx)
}

func (s *Session) advanceTurnLocked(ctx context.Context) {
	st := s.state
	i := st.Current
	for {
		i = (i + 1) % len(st.Players)
		if !st.Players[i].Eliminated {
			break
		}
	}
	st.Current = i
	st.Phase = PhaseTurnStart
	s.persistLocked(ctx)
	s.scheduleCPULocked()
}

// persistLocked saves the snapshot and fans it out to the change hook.
// Save failures are logged and swallowed: the game keeps running on the
// in-memory state until a later save lands.
func (s *Session) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.state)
	if err != nil {
		utils.Log.Error("snapshot marshal failed", "err", err)
		return
	}
	if err := s.store.SaveState(ctx, s.id, data); err != nil {
		utils.Log.Warn("save failed", "err", err)
	}
	if s.onChange != nil {
		s.onChange(data)
	}
}

func winnerByLowestScore(players []*Player) string {
	best := ""
	bestScore := math.MaxInt
	for _, p := range players {
		if p.Score < bestScore {
			best, bestScore = p.Name, p.Score
		}
	}
	return best
}

func pickByID(hand []rules.Card, ids []string) []rules.Card {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]rules.Card, 0, len(ids))
	for _, c := range hand {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func removeByID(hand *[]rules.Card, id string) (rules.Card, bool) {
	for i, c := range *hand {
		if c.ID == id {
			*hand = append((*hand)[:i], (*hand)[i+1:]...)
			return c, true
		}
	}
	return rules.Card{}, false
}
