package transport

import (
	"context"
	"sync"

	"Temperature/internal/net/signaling"
)

// Pipe is an in-process Transport pair: ordered, reliable, always
// "negotiated". Tests use it to exercise the lobby protocol without
// sockets.
type Pipe struct {
	mu       sync.Mutex
	peer     *Pipe
	handlers map[int]Handler
	nextID   int
	seq      uint64
	closed   bool
	inbox    chan Envelope
	done     chan struct{}
}

// NewPipe returns both ends of a connected channel.
func NewPipe() (*Pipe, *Pipe) {
	a := newPipeEnd()
	b := newPipeEnd()
	a.peer, b.peer = b, a
	go a.dispatch()
	go b.dispatch()
	return a, b
}

func newPipeEnd() *Pipe {
	return &Pipe{
		handlers: make(map[int]Handler),
		inbox:    make(chan Envelope, 64),
		done:     make(chan struct{}),
	}
}

// dispatch preserves delivery order by fanning out from a single goroutine.
func (p *Pipe) dispatch() {
	for {
		select {
		case env := <-p.inbox:
			p.mu.Lock()
			hs := make([]Handler, 0, len(p.handlers))
			for _, h := range p.handlers {
				hs = append(hs, h)
			}
			p.mu.Unlock()
			for _, h := range hs {
				h(env)
			}
		case <-p.done:
			return
		}
	}
}

func (p *Pipe) CreateLocalOffer(context.Context) (signaling.Payload, error) {
	return signaling.Payload{Type: signaling.TypeOffer, SDP: "pipe:local"}, nil
}

func (p *Pipe) AcceptRemoteOffer(context.Context, signaling.Payload) (signaling.Payload, error) {
	return signaling.Payload{Type: signaling.TypeAnswer, SDP: "pipe:remote"}, nil
}

func (p *Pipe) ApplyRemoteAnswer(context.Context, signaling.Payload) error { return nil }

func (p *Pipe) Send(msgType string, payload any) error {
	p.mu.Lock()
	if p.closed || p.peer == nil {
		p.mu.Unlock()
		return ErrNotOpen
	}
	p.seq++
	env, err := marshalEnvelope(msgType, payload, p.seq)
	peer := p.peer
	p.mu.Unlock()
	if err != nil {
		return err
	}

	peer.mu.Lock()
	closed := peer.closed
	peer.mu.Unlock()
	if closed {
		return ErrNotOpen
	}
	peer.inbox <- env
	return nil
}

func (p *Pipe) OnMessage(fn Handler) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers, id)
	}
}

func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.handlers = make(map[int]Handler)
	p.seq = 0
	close(p.done)
	return nil
}
