package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"Temperature/internal/net/signaling"
	"Temperature/internal/utils"
)

// negotiateWait bounds how long the host waits for the peer to show up
// after applying an answer.
const negotiateWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handlerSet is the shared OnMessage registry for the socket transports.
type handlerSet struct {
	mu   sync.Mutex
	m    map[int]Handler
	next int
}

func newHandlerSet() *handlerSet {
	return &handlerSet{m: make(map[int]Handler)}
}

func (s *handlerSet) add(fn Handler) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.m[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.m, id)
	}
}

func (s *handlerSet) emit(env Envelope) {
	s.mu.Lock()
	hs := make([]Handler, 0, len(s.m))
	for _, h := range s.m {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(env)
	}
}

func (s *handlerSet) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[int]Handler)
}

// WSHost listens for exactly one remote peer over a websocket. The "session
// description" in its offer is the dial URL; the offer also carries a
// signed token the client must present, so a blob is a capability for one
// room.
type WSHost struct {
	mu        sync.Mutex
	addr      string
	secret    []byte
	session   string // token subject; one per host instance
	srv       *http.Server
	ln        net.Listener
	peer      *conn
	handlers  *handlerSet
	seq       uint64
	connected chan struct{}
	closed    bool
}

func NewWSHost(addr, secret string) *WSHost {
	return &WSHost{
		addr:      addr,
		secret:    []byte(secret),
		session:   uuid.NewString(),
		handlers:  newHandlerSet(),
		connected: make(chan struct{}),
	}
}

func (h *WSHost) CreateLocalOffer(ctx context.Context) (signaling.Payload, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return signaling.Payload{}, ErrNotOpen
	}
	if h.ln == nil {
		ln, err := net.Listen("tcp", h.addr)
		if err != nil {
			return signaling.Payload{}, err
		}
		h.ln = ln

		gin.SetMode(gin.ReleaseMode)
		r := gin.New()
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		r.GET("/ws", h.serveWS)

		h.srv = &http.Server{Handler: r}
		go func() {
			if err := h.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				utils.Log.Error("host transport stopped", "err", err)
			}
		}()
	}

	token, err := mintToken(h.secret, h.session)
	if err != nil {
		return signaling.Payload{}, err
	}
	return signaling.Payload{
		Type:  signaling.TypeOffer,
		SDP:   fmt.Sprintf("ws://%s/ws", h.ln.Addr().String()),
		Token: token,
	}, nil
}

func (h *WSHost) serveWS(c *gin.Context) {
	if err := checkToken(h.secret, h.session, c.Query("token")); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
		return
	}

	h.mu.Lock()
	if h.peer != nil || h.closed {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "room is full"})
		return
	}
	h.mu.Unlock()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.peer = newConn(ws, h.handlers.emit, func() {
		h.mu.Lock()
		h.peer = nil
		h.mu.Unlock()
	})
	select {
	case <-h.connected:
	default:
		close(h.connected)
	}
	h.mu.Unlock()
	utils.Log.Info("peer connected")
}

// AcceptRemoteOffer is the client half of negotiation; a host never calls it.
func (h *WSHost) AcceptRemoteOffer(context.Context, signaling.Payload) (signaling.Payload, error) {
	return signaling.Payload{}, errors.New("transport: host cannot accept an offer")
}

// ApplyRemoteAnswer waits (bounded) for the peer the answer promises.
func (h *WSHost) ApplyRemoteAnswer(ctx context.Context, answer signaling.Payload) error {
	if answer.Type != signaling.TypeAnswer || answer.SDP == "" {
		return signaling.ErrFormat
	}
	select {
	case <-h.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(negotiateWait):
		return ErrNoNegotiation
	}
}

func (h *WSHost) Send(msgType string, payload any) error {
	h.mu.Lock()
	peer := h.peer
	if peer == nil || h.closed {
		h.mu.Unlock()
		return ErrNotOpen
	}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	env, err := marshalEnvelope(msgType, payload, seq)
	if err != nil {
		return err
	}
	return peer.enqueue(env)
}

func (h *WSHost) OnMessage(fn Handler) (remove func()) {
	return h.handlers.add(fn)
}

func (h *WSHost) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	peer, srv := h.peer, h.srv
	h.peer = nil
	h.seq = 0
	h.mu.Unlock()

	// closing the peer fires its onClose callback, which takes the mutex
	h.handlers.clear()
	if peer != nil {
		peer.close()
	}
	if srv != nil {
		_ = srv.Close()
	}
	return nil
}

// WSClient dials the URL in a host's offer.
type WSClient struct {
	mu       sync.Mutex
	peer     *conn
	handlers *handlerSet
	seq      uint64
	closed   bool
}

func NewWSClient() *WSClient {
	return &WSClient{handlers: newHandlerSet()}
}

func (w *WSClient) CreateLocalOffer(context.Context) (signaling.Payload, error) {
	return signaling.Payload{}, errors.New("transport: client cannot offer")
}

func (w *WSClient) AcceptRemoteOffer(ctx context.Context, offer signaling.Payload) (signaling.Payload, error) {
	if offer.Type != signaling.TypeOffer || offer.SDP == "" {
		return signaling.Payload{}, signaling.ErrFormat
	}
	url := offer.SDP
	if offer.Token != "" {
		url += "?token=" + offer.Token
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return signaling.Payload{}, fmt.Errorf("transport: dial %s: %w", offer.SDP, err)
	}

	w.mu.Lock()
	w.peer = newConn(ws, w.handlers.emit, func() {
		w.mu.Lock()
		w.peer = nil
		w.mu.Unlock()
	})
	w.mu.Unlock()

	return signaling.Payload{
		Type: signaling.TypeAnswer,
		SDP:  "ws-peer:" + ws.LocalAddr().String(),
	}, nil
}

func (w *WSClient) ApplyRemoteAnswer(context.Context, signaling.Payload) error {
	return errors.New("transport: client cannot apply an answer")
}

func (w *WSClient) Send(msgType string, payload any) error {
	w.mu.Lock()
	peer := w.peer
	if peer == nil || w.closed {
		w.mu.Unlock()
		return ErrNotOpen
	}
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	env, err := marshalEnvelope(msgType, payload, seq)
	if err != nil {
		return err
	}
	return peer.enqueue(env)
}

func (w *WSClient) OnMessage(fn Handler) (remove func()) {
	return w.handlers.add(fn)
}

func (w *WSClient) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	peer := w.peer
	w.peer = nil
	w.seq = 0
	w.mu.Unlock()

	w.handlers.clear()
	if peer != nil {
		peer.close()
	}
	return nil
}

func mintToken(secret []byte, roomID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   roomID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func checkToken(secret []byte, roomID, token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid || claims.Subject != roomID {
		return errors.New("transport: token does not match room")
	}
	return nil
}
