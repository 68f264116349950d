package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Temperature/internal/net/signaling"
)

func dialPair(t *testing.T) (*WSHost, *WSClient) {
	t.Helper()
	host := NewWSHost("127.0.0.1:0", "test-secret")
	t.Cleanup(func() { _ = host.Close() })

	ctx := context.Background()
	offer, err := host.CreateLocalOffer(ctx)
	require.NoError(t, err)
	assert.Equal(t, signaling.TypeOffer, offer.Type)
	assert.Contains(t, offer.SDP, "ws://")
	assert.NotEmpty(t, offer.Token)

	client := NewWSClient()
	t.Cleanup(func() { _ = client.Close() })

	answer, err := client.AcceptRemoteOffer(ctx, offer)
	require.NoError(t, err)
	assert.Equal(t, signaling.TypeAnswer, answer.Type)

	require.NoError(t, host.ApplyRemoteAnswer(ctx, answer))
	return host, client
}

func TestWSNegotiateAndExchange(t *testing.T) {
	host, client := dialPair(t)

	hostGot := make(chan Envelope, 4)
	clientGot := make(chan Envelope, 4)
	host.OnMessage(func(env Envelope) { hostGot <- env })
	client.OnMessage(func(env Envelope) { clientGot <- env })

	require.NoError(t, host.Send("STATE", map[string]int{"round": 1}))
	require.NoError(t, client.Send("INTENT", map[string]string{"kind": "TRY_SHOW"}))

	select {
	case env := <-clientGot:
		assert.Equal(t, "STATE", env.T)
		assert.Equal(t, uint64(1), env.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("client never received STATE")
	}
	select {
	case env := <-hostGot:
		assert.Equal(t, "INTENT", env.T)
	case <-time.After(2 * time.Second):
		t.Fatal("host never received INTENT")
	}
}

func TestWSRejectsBadToken(t *testing.T) {
	host := NewWSHost("127.0.0.1:0", "test-secret")
	defer host.Close()

	ctx := context.Background()
	offer, err := host.CreateLocalOffer(ctx)
	require.NoError(t, err)

	offer.Token = "forged"
	client := NewWSClient()
	defer client.Close()
	_, err = client.AcceptRemoteOffer(ctx, offer)
	assert.Error(t, err, "upgrade must be refused without a valid token")
}

func TestWSSecondPeerRefused(t *testing.T) {
	host := NewWSHost("127.0.0.1:0", "test-secret")
	defer host.Close()

	ctx := context.Background()
	offer, err := host.CreateLocalOffer(ctx)
	require.NoError(t, err)

	first := NewWSClient()
	defer first.Close()
	_, err = first.AcceptRemoteOffer(ctx, offer)
	require.NoError(t, err)

	second := NewWSClient()
	defer second.Close()
	_, err = second.AcceptRemoteOffer(ctx, offer)
	assert.Error(t, err, "room holds exactly one remote peer")
}

func TestWSSendBeforeNegotiation(t *testing.T) {
	host := NewWSHost("127.0.0.1:0", "test-secret")
	defer host.Close()
	assert.ErrorIs(t, host.Send("STATE", struct{}{}), ErrNotOpen)

	client := NewWSClient()
	defer client.Close()
	assert.ErrorIs(t, client.Send("INTENT", struct{}{}), ErrNotOpen)
}

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("s3cr3t")
	tok, err := mintToken(secret, "session-1")
	require.NoError(t, err)

	assert.NoError(t, checkToken(secret, "session-1", tok))
	assert.Error(t, checkToken(secret, "session-2", tok), "token is bound to one session")
	assert.Error(t, checkToken([]byte("other"), "session-1", tok))
	assert.Error(t, checkToken(secret, "session-1", "not-a-jwt"))
}
