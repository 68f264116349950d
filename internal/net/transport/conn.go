package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// conn wraps one websocket peer with the usual read/write pumps and
// ping/pong keepalive.
type conn struct {
	ws         *websocket.Conn
	send       chan Envelope
	stop       chan struct{}
	closeOnce  sync.Once
	onEnvelope func(Envelope)
	onClose    func()
}

func newConn(ws *websocket.Conn, onEnvelope func(Envelope), onClose func()) *conn {
	c := &conn{
		ws:         ws,
		send:       make(chan Envelope, 64),
		stop:       make(chan struct{}),
		onEnvelope: onEnvelope,
		onClose:    onClose,
	}
	go c.writePump()
	go c.readPump()
	return c
}

func (c *conn) enqueue(env Envelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.stop:
		return ErrNotOpen
	}
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.stop:
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *conn) readPump() {
	defer c.close()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		c.onEnvelope(env)
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
}
