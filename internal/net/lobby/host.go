package lobby

import (
	"context"
	"errors"

	"Temperature/internal/game/engine"
	"Temperature/internal/net/signaling"
	"Temperature/internal/net/transport"
	"Temperature/internal/utils"
)

var ErrNotHost = errors.New("lobby: host-only operation")

// CreateRoom makes this lobby the host and returns the offer blob to hand
// to the joining peer. The blob carries the dial info, room id, the shared
// deck seed and the room token.
func (l *Lobby) CreateRoom(ctx context.Context, name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	offer, err := l.tr.CreateLocalOffer(ctx)
	if err != nil {
		return "", err
	}

	l.role = RoleHost
	l.roomID = newRoomID()
	l.seed = newSeed()
	l.hostID = newPlayerID()
	if name == "" {
		name = "Host"
	}
	l.players = []RoomPlayer{{ID: l.hostID, Name: name, IsHost: true}}

	offer.RoomID = l.roomID
	offer.Seed = l.seed
	blob, err := signaling.Encode(offer)
	if err != nil {
		l.resetLocked()
		return "", err
	}

	l.unsub = l.tr.OnMessage(l.handleHostMessage)
	l.pushUpdateLocked()
	return blob, nil
}

// AcceptAnswer completes negotiation with the client's answer blob.
func (l *Lobby) AcceptAnswer(ctx context.Context, answerBlob string) error {
	answer, err := signaling.Decode(answerBlob)
	if err != nil {
		return err
	}
	if answer.Type != signaling.TypeAnswer {
		return signaling.ErrFormat
	}
	return l.tr.ApplyRemoteAnswer(ctx, answer)
}

// StartGame deals the authoritative network game and broadcasts INIT so
// the client constructs the same deal from the shared seed.
func (l *Lobby) StartGame(ctx context.Context, opts engine.Options) error {
	l.mu.Lock()
	if l.role != RoleHost {
		l.mu.Unlock()
		return ErrNotHost
	}
	start := l.hooks.StartNetworkGame
	if start == nil {
		l.mu.Unlock()
		return errors.New("lobby: no game hook attached")
	}
	seed, hostID, clientID := l.seed, l.hostID, l.clientID
	players := append([]RoomPlayer(nil), l.players...)
	// the hook's first persisted snapshot re-enters BroadcastState, so it
	// must run outside the lock
	l.mu.Unlock()

	roster := make([]engine.NetPlayer, 0, len(players))
	for _, p := range players {
		roster = append(roster, engine.NetPlayer{ID: p.ID, Name: p.Name})
	}
	if err := start(ctx, seed, roster, opts, hostID); err != nil {
		return err
	}

	init := InitPayload{Seed: seed, Options: opts, Players: players, You: clientID}
	if err := l.tr.Send(string(MsgInit), init); err != nil {
		utils.Log.Warn("INIT not delivered", "err", err)
		return err
	}
	return nil
}

// BroadcastState pushes a full snapshot to the client. Wire failures are
// not fatal; the next successful broadcast makes the client whole again.
func (l *Lobby) BroadcastState(snapshot []byte) {
	l.mu.Lock()
	role := l.role
	l.mu.Unlock()
	if role != RoleHost {
		return
	}
	if err := l.tr.Send(string(MsgState), StatePayload{Snapshot: snapshot}); err != nil {
		utils.Log.Debug("STATE not delivered", "err", err)
	}
}

func (l *Lobby) handleHostMessage(env transport.Envelope) {
	switch MessageType(env.T) {
	case MsgJoin:
		l.handleJoin(env)
	case MsgLeave:
		l.mu.Lock()
		l.resetLocked()
		l.mu.Unlock()
	case MsgIntent:
		l.handleIntent(env)
	default:
		utils.Log.Debug("ignoring message", "type", env.T, "seq", env.Seq)
	}
}

func (l *Lobby) handleJoin(env transport.Envelope) {
	join, err := decodePayload[JoinPayload](env.P)
	if err != nil {
		utils.Log.Warn("bad JOIN payload", "err", err)
		return
	}

	l.mu.Lock()
	if l.clientID != "" {
		// two-party protocol: one client per room
		l.mu.Unlock()
		utils.Log.Warn("JOIN rejected, room full", "room", l.roomID)
		return
	}
	name := join.Name
	if name == "" {
		name = "Player"
	}
	l.clientID = newPlayerID()
	l.players = append(l.players, RoomPlayer{ID: l.clientID, Name: name, IsHost: false})
	list := RoomPlayersPayload{List: append([]RoomPlayer(nil), l.players...)}
	l.pushUpdateLocked()
	l.mu.Unlock()

	if err := l.tr.Send(string(MsgRoomPlayers), list); err != nil {
		utils.Log.Warn("ROOM_PLAYERS not delivered", "err", err)
	}
	l.notifier.Notify(name + " joined the room")
}

// handleIntent validates and applies a client request against the live
// game. A stale or illegal intent mutates nothing, so no STATE broadcast
// follows it.
func (l *Lobby) handleIntent(env transport.Envelope) {
	intent, err := decodePayload[IntentPayload](env.P)
	if err != nil {
		utils.Log.Warn("bad INTENT payload", "err", err)
		return
	}
	ctx := context.Background()

	switch intent.Kind {
	case IntentDropDraw:
		if l.hooks.ApplyDropDraw == nil {
			return
		}
		dd, err := decodePayload[DropDrawIntent](intent.Data)
		if err != nil {
			utils.Log.Warn("bad DROP_DRAW intent", "err", err)
			return
		}
		from := engine.DrawDeck
		if dd.From == string(engine.DrawDiscard) {
			from = engine.DrawDiscard
		}
		if err := l.hooks.ApplyDropDraw(ctx, dd.Label, dd.Count, from); err != nil {
			utils.Log.Warn("DROP_DRAW rejected", "label", dd.Label, "count", dd.Count, "err", err)
		}
	case IntentTryShow:
		if l.hooks.ApplyShow == nil {
			return
		}
		if err := l.hooks.ApplyShow(ctx); err != nil {
			utils.Log.Warn("TRY_SHOW rejected", "err", err)
		}
	default:
		utils.Log.Debug("ignoring intent", "kind", intent.Kind)
	}
}
