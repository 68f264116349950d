package lobby

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Temperature/internal/game/engine"
	"Temperature/internal/net/signaling"
	"Temperature/internal/net/transport"
	"Temperature/internal/notify"
	"Temperature/internal/storage"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

func TestCreateRoomProducesJoinableBlob(t *testing.T) {
	hostEnd, _ := transport.NewPipe()
	host := New(hostEnd, Hooks{}, notify.Discard{})

	blob, err := host.CreateRoom(context.Background(), "Ann")
	require.NoError(t, err)

	offer, err := signaling.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, signaling.TypeOffer, offer.Type)
	assert.Len(t, offer.RoomID, 6)
	assert.NotEmpty(t, offer.Seed)

	info := host.Info()
	assert.Equal(t, RoleHost, info.Role)
	require.Len(t, info.Players, 1)
	assert.Equal(t, "Ann", info.Players[0].Name)
	assert.True(t, info.Players[0].IsHost)
}

func TestJoinFlowSyncsRoster(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()
	host := New(hostEnd, Hooks{}, notify.Discard{})
	client := New(clientEnd, Hooks{}, notify.Discard{})
	ctx := context.Background()

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)

	answer, err := client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)
	require.NoError(t, host.AcceptAnswer(ctx, answer))

	assert.Equal(t, RoleClient, client.Role())
	assert.Equal(t, host.Info().RoomID, client.Info().RoomID)
	assert.Equal(t, host.Info().Seed, client.Info().Seed)

	require.Eventually(t, func() bool {
		return len(host.Info().Players) == 2 && len(client.Info().Players) == 2
	}, waitFor, tick, "JOIN then ROOM_PLAYERS must settle both rosters")

	names := []string{client.Info().Players[0].Name, client.Info().Players[1].Name}
	assert.Equal(t, []string{"Ann", "Ben"}, names)
}

func TestJoinRejectsBadBlob(t *testing.T) {
	_, clientEnd := transport.NewPipe()
	client := New(clientEnd, Hooks{}, notify.Discard{})

	_, err := client.JoinRoom(context.Background(), "Ben", "zzz-not-a-blob")
	assert.ErrorIs(t, err, signaling.ErrFormat)

	answerBlob, err := signaling.Encode(signaling.Payload{Type: signaling.TypeAnswer, SDP: "x"})
	require.NoError(t, err)
	_, err = client.JoinRoom(context.Background(), "Ben", answerBlob)
	assert.ErrorIs(t, err, signaling.ErrFormat, "an answer is not joinable")
}

func TestSecondJoinIgnored(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()
	host := New(hostEnd, Hooks{}, notify.Discard{})
	ctx := context.Background()

	_, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)

	require.NoError(t, clientEnd.Send(string(MsgJoin), JoinPayload{Name: "Ben"}))
	require.Eventually(t, func() bool { return len(host.Info().Players) == 2 }, waitFor, tick)

	require.NoError(t, clientEnd.Send(string(MsgJoin), JoinPayload{Name: "Cal"}))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, host.Info().Players, 2, "one client per room")
}

func TestStartGameSendsInitWithIdentity(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()

	var started struct {
		mu     sync.Mutex
		seed   string
		roster []engine.NetPlayer
		you    string
		calls  int
	}
	hostHooks := Hooks{
		StartNetworkGame: func(_ context.Context, seed string, roster []engine.NetPlayer, _ engine.Options, _ string) error {
			return nil
		},
	}
	host := New(hostEnd, hostHooks, notify.Discard{})

	clientHooks := Hooks{
		StartNetworkGame: func(_ context.Context, seed string, roster []engine.NetPlayer, _ engine.Options, you string) error {
			started.mu.Lock()
			defer started.mu.Unlock()
			started.seed, started.roster, started.you = seed, roster, you
			started.calls++
			return nil
		},
	}
	client := New(clientEnd, clientHooks, notify.Discard{})
	ctx := context.Background()

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)
	answer, err := client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)
	require.NoError(t, host.AcceptAnswer(ctx, answer))
	require.Eventually(t, func() bool { return len(host.Info().Players) == 2 }, waitFor, tick)

	require.NoError(t, host.StartGame(ctx, engine.Options{TargetScore: 150}))

	require.Eventually(t, func() bool {
		started.mu.Lock()
		defer started.mu.Unlock()
		return started.calls == 1
	}, waitFor, tick)

	started.mu.Lock()
	defer started.mu.Unlock()
	assert.Equal(t, host.Info().Seed, started.seed)
	require.Len(t, started.roster, 2)
	assert.Equal(t, started.roster[1].ID, started.you, "the host names the client's seat")
	assert.Equal(t, started.you, client.You())
}

func TestStartGameRequiresHost(t *testing.T) {
	_, clientEnd := transport.NewPipe()
	client := New(clientEnd, Hooks{StartNetworkGame: func(context.Context, string, []engine.NetPlayer, engine.Options, string) error { return nil }}, notify.Discard{})
	assert.ErrorIs(t, client.StartGame(context.Background(), engine.Options{}), ErrNotHost)
}

func TestIntentReachesHostHooks(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()

	var mu sync.Mutex
	var drops []DropDrawIntent
	var shows int
	host := New(hostEnd, Hooks{
		ApplyDropDraw: func(_ context.Context, label string, count int, from engine.DrawSource) error {
			mu.Lock()
			defer mu.Unlock()
			drops = append(drops, DropDrawIntent{Label: label, Count: count, From: string(from)})
			return nil
		},
		ApplyShow: func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			shows++
			return nil
		},
	}, notify.Discard{})
	client := New(clientEnd, Hooks{}, notify.Discard{})
	ctx := context.Background()

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)
	_, err = client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)

	require.NoError(t, client.ForwardDropDraw("K", 2, engine.DrawDiscard))
	require.NoError(t, client.ForwardShow())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(drops) == 1 && shows == 1
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, DropDrawIntent{Label: "K", Count: 2, From: "discard"}, drops[0])
}

func TestBroadcastStateReachesClient(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()
	host := New(hostEnd, Hooks{}, notify.Discard{})

	var mu sync.Mutex
	var got []byte
	client := New(clientEnd, Hooks{
		ReplaceState: func(snapshot []byte) error {
			mu.Lock()
			defer mu.Unlock()
			got = append([]byte(nil), snapshot...)
			return nil
		},
	}, notify.Discard{})
	ctx := context.Background()

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)
	_, err = client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)

	host.BroadcastState([]byte(`{"round":3}`))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, waitFor, tick)

	mu.Lock()
	assert.JSONEq(t, `{"round":3}`, string(got))
	mu.Unlock()

	// a client never broadcasts
	client.BroadcastState([]byte(`{}`))
}

func TestLeaveResetsBothSides(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()
	host := New(hostEnd, Hooks{}, notify.Discard{})
	client := New(clientEnd, Hooks{}, notify.Discard{})
	ctx := context.Background()

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)
	_, err = client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(host.Info().Players) == 2 }, waitFor, tick)

	client.Leave()
	assert.Equal(t, RoleNone, client.Role())
	require.Eventually(t, func() bool { return host.Role() == RoleNone }, waitFor, tick,
		"LEAVE must clear the host room too")
}

// Two real sessions wired the way the binary wires them: the host applies
// moves and broadcasts, the client forwards intents and swallows snapshots.
func TestHostClientGameStaysInSync(t *testing.T) {
	hostEnd, clientEnd := transport.NewPipe()
	ctx := context.Background()

	hostSession := engine.NewSession("host", storage.NewMemoryStore(), notify.Discard{})
	hostSession.SetClock(quartz.NewMock(t))
	clientSession := engine.NewSession("client", storage.NewMemoryStore(), notify.Discard{})
	clientSession.SetClock(quartz.NewMock(t))

	host := New(hostEnd, Hooks{
		ApplyDropDraw: hostSession.ApplyIntentDropDraw,
		ApplyShow:     hostSession.ApplyIntentShow,
		StartNetworkGame: func(ctx context.Context, seed string, roster []engine.NetPlayer, opts engine.Options, you string) error {
			if err := hostSession.StartNetworkGame(ctx, seed, roster, opts); err != nil {
				return err
			}
			hostSession.SetLocalPlayer(you)
			return nil
		},
	}, notify.Discard{})
	hostSession.SetOnChange(host.BroadcastState)

	var client *Lobby
	client = New(clientEnd, Hooks{
		ReplaceState: clientSession.ReplaceState,
		StartNetworkGame: func(ctx context.Context, seed string, roster []engine.NetPlayer, opts engine.Options, you string) error {
			if err := clientSession.StartNetworkGame(ctx, seed, roster, opts); err != nil {
				return err
			}
			clientSession.SetForwarder(client, you)
			return nil
		},
	}, notify.Discard{})

	blob, err := host.CreateRoom(ctx, "Ann")
	require.NoError(t, err)
	answer, err := client.JoinRoom(ctx, "Ben", blob)
	require.NoError(t, err)
	require.NoError(t, host.AcceptAnswer(ctx, answer))
	require.Eventually(t, func() bool { return len(host.Info().Players) == 2 }, waitFor, tick)

	require.NoError(t, host.StartGame(ctx, engine.Options{RoomMode: true, TargetScore: 150}))
	require.Eventually(t, func() bool { return client.You() != "" }, waitFor, tick)

	// host acts on its own turn; the resulting snapshot must reach the client
	hostState := hostSession.Snapshot()
	require.NotNil(t, hostState)
	hand := hostState.Players[0].Hand
	require.NoError(t, hostSession.PerformDropAndDraw(ctx, []string{hand[0].ID}, engine.DrawDeck))

	require.Eventually(t, func() bool {
		a, _ := json.Marshal(hostSession.Snapshot())
		b, _ := json.Marshal(clientSession.Snapshot())
		return string(a) == string(b)
	}, waitFor, tick, "client snapshot must converge on the host's")

	// client acts on its turn via an intent; the host applies and broadcasts
	cs := clientSession.Snapshot()
	require.Equal(t, 1, cs.Current)
	chand := cs.Players[1].Hand
	require.NoError(t, clientSession.PerformDropAndDraw(ctx, []string{chand[0].ID}, engine.DrawDeck))

	require.Eventually(t, func() bool {
		hs := hostSession.Snapshot()
		return hs.Current == 0 && len(hs.Players[1].Hand) == 7
	}, waitFor, tick, "the forwarded move must land on the host")

	require.Eventually(t, func() bool {
		a, _ := json.Marshal(hostSession.Snapshot())
		b, _ := json.Marshal(clientSession.Snapshot())
		return string(a) == string(b)
	}, waitFor, tick)
}
