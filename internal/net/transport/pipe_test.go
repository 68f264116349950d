package transport

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Temperature/internal/net/signaling"
)

func collect(p *Pipe) (*[]Envelope, *sync.Mutex, func()) {
	var mu sync.Mutex
	var got []Envelope
	remove := p.OnMessage(func(env Envelope) {
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	})
	return &got, &mu, remove
}

func waitFor(t *testing.T, mu *sync.Mutex, got *[]Envelope, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		have := len(*got)
		mu.Unlock()
		if have >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
}

func TestPipeDeliversInOrder(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	got, mu, _ := collect(b)

	for i := 0; i < 20; i++ {
		assert.NoError(t, a.Send("PING", map[string]int{"n": i}))
	}
	waitFor(t, mu, got, 20)

	mu.Lock()
	defer mu.Unlock()
	for i, env := range *got {
		assert.Equal(t, "PING", env.T)
		assert.Equal(t, uint64(i+1), env.Seq, "seq tags count up per sender")
	}
}

func TestPipeBothDirections(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	gotA, muA, _ := collect(a)
	gotB, muB, _ := collect(b)

	assert.NoError(t, a.Send("HELLO", struct{}{}))
	assert.NoError(t, b.Send("WORLD", struct{}{}))

	waitFor(t, muA, gotA, 1)
	waitFor(t, muB, gotB, 1)

	muA.Lock()
	assert.Equal(t, "WORLD", (*gotA)[0].T)
	muA.Unlock()
	muB.Lock()
	assert.Equal(t, "HELLO", (*gotB)[0].T)
	muB.Unlock()
}

func TestPipeRemoveHandler(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()
	defer b.Close()

	got, mu, remove := collect(b)
	assert.NoError(t, a.Send("ONE", struct{}{}))
	waitFor(t, mu, got, 1)

	remove()
	assert.NoError(t, a.Send("TWO", struct{}{}))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, *got, 1, "removed handler must not fire")
}

func TestPipeSendAfterClose(t *testing.T) {
	a, b := NewPipe()
	assert.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send("X", struct{}{}), ErrNotOpen)
	assert.ErrorIs(t, b.Send("X", struct{}{}), ErrNotOpen, "peer closed means channel down")
	assert.NoError(t, a.Close(), "second close is a no-op")
}

func TestPipeNegotiationStubs(t *testing.T) {
	a, _ := NewPipe()
	defer a.Close()
	ctx := context.Background()

	offer, err := a.CreateLocalOffer(ctx)
	assert.NoError(t, err)
	assert.Equal(t, signaling.TypeOffer, offer.Type)

	answer, err := a.AcceptRemoteOffer(ctx, offer)
	assert.NoError(t, err)
	assert.Equal(t, signaling.TypeAnswer, answer.Type)
	assert.NoError(t, a.ApplyRemoteAnswer(ctx, answer))
}
