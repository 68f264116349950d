package lobby

import (
	"encoding/json"

	"Temperature/internal/game/engine"
)

// MessageType tags every lobby envelope on the wire.
type MessageType string

const (
	MsgJoin        MessageType = "JOIN"
	MsgLeave       MessageType = "LEAVE"
	MsgInit        MessageType = "INIT"
	MsgRoomPlayers MessageType = "ROOM_PLAYERS"
	MsgState       MessageType = "STATE"
	MsgIntent      MessageType = "INTENT"
	MsgRoomClose   MessageType = "ROOM_CLOSE"
)

type IntentKind string

const (
	IntentDropDraw IntentKind = "DROP_DRAW"
	IntentTryShow  IntentKind = "TRY_SHOW"
)

type RoomPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost"`
}

type JoinPayload struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId,omitempty"`
}

type RoomPlayersPayload struct {
	List []RoomPlayer `json:"list"`
}

// InitPayload seeds the client's local game construction. You is the
// host-assigned id of the player this client controls.
type InitPayload struct {
	Seed    string         `json:"seed"`
	Options engine.Options `json:"options"`
	Players []RoomPlayer   `json:"players"`
	You     string         `json:"you"`
}

// StatePayload carries a full snapshot; clients replace, never merge.
type StatePayload struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

type IntentPayload struct {
	Kind IntentKind      `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DropDrawIntent names cards by rank and count, not id: the client cannot
// know the host-side ids of the current player's hand.
type DropDrawIntent struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	From  string `json:"from"`
}
