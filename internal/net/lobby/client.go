package lobby

import (
	"context"

	"Temperature/internal/game/engine"
	"Temperature/internal/net/signaling"
	"Temperature/internal/net/transport"
	"Temperature/internal/utils"
)

// JoinRoom decodes the host's offer blob, connects, announces ourselves
// with JOIN and returns the answer blob to hand back to the host.
func (l *Lobby) JoinRoom(ctx context.Context, name, offerBlob string) (string, error) {
	offer, err := signaling.Decode(offerBlob)
	if err != nil {
		return "", err
	}
	if offer.Type != signaling.TypeOffer {
		return "", signaling.ErrFormat
	}

	answer, err := l.tr.AcceptRemoteOffer(ctx, offer)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.role = RoleClient
	l.roomID = offer.RoomID
	if l.roomID == "" {
		l.roomID = "000000"
	}
	l.seed = offer.Seed
	if l.seed == "" {
		l.seed = "0"
	}
	l.unsub = l.tr.OnMessage(l.handleClientMessage)
	l.pushUpdateLocked()
	l.mu.Unlock()

	if name == "" {
		name = "Player"
	}
	if err := l.tr.Send(string(MsgJoin), JoinPayload{Name: name, RoomID: offer.RoomID}); err != nil {
		utils.Log.Warn("JOIN not delivered", "err", err)
	}

	return signaling.Encode(answer)
}

func (l *Lobby) handleClientMessage(env transport.Envelope) {
	switch MessageType(env.T) {
	case MsgRoomPlayers:
		list, err := decodePayload[RoomPlayersPayload](env.P)
		if err != nil {
			utils.Log.Warn("bad ROOM_PLAYERS payload", "err", err)
			return
		}
		l.mu.Lock()
		if len(list.List) > 0 {
			l.players = list.List
		}
		l.pushUpdateLocked()
		l.mu.Unlock()

	case MsgInit:
		init, err := decodePayload[InitPayload](env.P)
		if err != nil {
			utils.Log.Warn("bad INIT payload", "err", err)
			return
		}
		l.mu.Lock()
		l.you = init.You
		l.players = init.Players
		start := l.hooks.StartNetworkGame
		l.pushUpdateLocked()
		l.mu.Unlock()

		if start == nil {
			return
		}
		roster := make([]engine.NetPlayer, 0, len(init.Players))
		for _, p := range init.Players {
			roster = append(roster, engine.NetPlayer{ID: p.ID, Name: p.Name})
		}
		if err := start(context.Background(), init.Seed, roster, init.Options, init.You); err != nil {
			utils.Log.Error("network game init failed", "err", err)
		}

	case MsgState:
		state, err := decodePayload[StatePayload](env.P)
		if err != nil || len(state.Snapshot) == 0 {
			utils.Log.Warn("bad STATE payload", "err", err)
			return
		}
		if l.hooks.ReplaceState == nil {
			return
		}
		if err := l.hooks.ReplaceState(state.Snapshot); err != nil {
			utils.Log.Warn("snapshot rejected", "err", err)
		}

	case MsgLeave, MsgRoomClose:
		l.mu.Lock()
		l.resetLocked()
		l.mu.Unlock()

	default:
		utils.Log.Debug("ignoring message", "type", env.T, "seq", env.Seq)
	}
}
