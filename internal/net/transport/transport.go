// Package transport is the point-to-point channel between exactly two
// peers: hard to establish, ordered and reliable once open.
package transport

import (
	"context"
	"encoding/json"
	"errors"

	"Temperature/internal/net/signaling"
)

var (
	ErrNotOpen       = errors.New("transport: channel not open")
	ErrPeerPresent   = errors.New("transport: a peer is already connected")
	ErrNoNegotiation = errors.New("transport: negotiation not completed")
)

// Envelope is the framing for every message on the channel. Seq is a
// monotonically increasing tag attached by the sender; receivers treat it
// as diagnostic only, the channel itself guarantees ordering.
type Envelope struct {
	T   string          `json:"t"`
	P   json.RawMessage `json:"p"`
	Seq uint64          `json:"seq"`
}

type Handler func(Envelope)

type Transport interface {
	// CreateLocalOffer produces this side's negotiation payload (host side).
	CreateLocalOffer(ctx context.Context) (signaling.Payload, error)
	// AcceptRemoteOffer consumes the host's offer and returns the answer
	// (client side).
	AcceptRemoteOffer(ctx context.Context, offer signaling.Payload) (signaling.Payload, error)
	// ApplyRemoteAnswer completes negotiation on the host side.
	ApplyRemoteAnswer(ctx context.Context, answer signaling.Payload) error
	// Send marshals payload into an Envelope and ships it. ErrNotOpen when
	// the channel is not established.
	Send(msgType string, payload any) error
	// OnMessage registers a handler; the returned func removes it.
	OnMessage(fn Handler) (remove func())
	// Close tears the channel down and clears all handlers.
	Close() error
}

func marshalEnvelope(msgType string, payload any, seq uint64) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{T: msgType, P: raw, Seq: seq}, nil
}
