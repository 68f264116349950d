// Package lobby is the host-authoritative sync layer: room membership,
// intent submission (client to host) and snapshot broadcast (host to
// client), spoken over a two-party Transport.
package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"Temperature/internal/game/engine"
	"Temperature/internal/net/transport"
	"Temperature/internal/notify"
	"Temperature/internal/utils"
)

type Role string

const (
	RoleNone   Role = ""
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// Hooks are the explicit handles into the game layer. The lobby never
// reaches for shared state; everything it can do to a game goes through
// these.
type Hooks struct {
	// ApplyDropDraw and ApplyShow mutate the authoritative game (host).
	ApplyDropDraw func(ctx context.Context, label string, count int, from engine.DrawSource) error
	ApplyShow     func(ctx context.Context) error
	// ReplaceState swaps the client's local snapshot wholesale.
	ReplaceState func(snapshot []byte) error
	// StartNetworkGame constructs the local game from seed and roster;
	// you is the locally-controlled player id.
	StartNetworkGame func(ctx context.Context, seed string, roster []engine.NetPlayer, opts engine.Options, you string) error
}

// RoomInfo is a read-only view for display layers.
type RoomInfo struct {
	Role    Role
	RoomID  string
	Seed    string
	Players []RoomPlayer
}

type Lobby struct {
	mu       sync.Mutex
	tr       transport.Transport
	hooks    Hooks
	notifier notify.Notifier

	role     Role
	roomID   string
	seed     string
	players  []RoomPlayer
	hostID   string // host's own seat
	clientID string // host side: the remote seat, assigned at JOIN
	you      string // client side: seat assigned by INIT

	unsub    func()
	onUpdate func(RoomInfo)
}

func New(tr transport.Transport, hooks Hooks, notifier notify.Notifier) *Lobby {
	return &Lobby{tr: tr, hooks: hooks, notifier: notifier}
}

// OnUpdate registers a room-change callback for display layers.
func (l *Lobby) OnUpdate(fn func(RoomInfo)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onUpdate = fn
}

func (l *Lobby) Info() RoomInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.infoLocked()
}

func (l *Lobby) infoLocked() RoomInfo {
	players := make([]RoomPlayer, len(l.players))
	copy(players, l.players)
	return RoomInfo{Role: l.role, RoomID: l.roomID, Seed: l.seed, Players: players}
}

func (l *Lobby) pushUpdateLocked() {
	if l.onUpdate != nil {
		l.onUpdate(l.infoLocked())
	}
}

// Role reports which side of the session this lobby is, if any.
func (l *Lobby) Role() Role {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.role
}

// You returns the locally-controlled player id on a client, "" before INIT.
func (l *Lobby) You() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.you
}

// Leave exits the room from either side: best-effort LEAVE to the peer,
// close the channel, forget everything.
func (l *Lobby) Leave() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.tr.Send(string(MsgLeave), struct{}{}); err != nil {
		utils.Log.Debug("leave not delivered", "err", err)
	}
	l.resetLocked()
}

func (l *Lobby) resetLocked() {
	if l.unsub != nil {
		l.unsub()
		l.unsub = nil
	}
	_ = l.tr.Close()
	l.role = RoleNone
	l.roomID = ""
	l.seed = ""
	l.players = nil
	l.hostID = ""
	l.clientID = ""
	l.you = ""
	l.pushUpdateLocked()
}

// sendIntent ships a client request for an authoritative-side action.
func (l *Lobby) sendIntent(kind IntentKind, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return l.tr.Send(string(MsgIntent), IntentPayload{Kind: kind, Data: raw})
}

// ForwardDropDraw implements engine.Forwarder for networked clients.
func (l *Lobby) ForwardDropDraw(label string, count int, from engine.DrawSource) error {
	return l.sendIntent(IntentDropDraw, DropDrawIntent{Label: label, Count: count, From: string(from)})
}

// ForwardShow implements engine.Forwarder for networked clients.
func (l *Lobby) ForwardShow() error {
	return l.sendIntent(IntentTryShow, struct{}{})
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("lobby: empty payload")
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

func newRoomID() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

func newSeed() string {
	return fmt.Sprintf("%d", rand.Int63n(1_000_000_000))
}

func newPlayerID() string {
	return uuid.NewString()
}
