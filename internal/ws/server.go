package ws

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"belote-lobby/internal/fanout"
	"belote-lobby/internal/game"
	"belote-lobby/internal/lobby"
	"belote-lobby/internal/store"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Coordinator is the room state machine the socket layer drives.
type Coordinator interface {
	Join(ctx context.Context, roomID, playerID string, sub fanout.Subscriber) (game.Player, lobby.Welcome, error)
	Disconnect(ctx context.Context, roomID, playerID string) error
	Leave(ctx context.Context, roomID, playerID string) error
	ToggleReady(ctx context.Context, roomID, playerID string) (bool, error)
	StartGame(ctx context.Context, roomID, playerID string) error
	SendChat(ctx context.Context, roomID, playerID, text string) (game.ChatMessage, error)
	Unsubscribe(roomID string, sub fanout.Subscriber)
}

type Options struct {
	// MessageRate and MessageBurst bound inbound commands per connection.
	MessageRate  rate.Limit
	MessageBurst int
}

type Server struct {
	coord    Coordinator
	upgrader websocket.Upgrader
	opts     Options

	mu       sync.Mutex
	presence map[presenceKey]*presence
	conns    map[*conn]struct{}
	closed   bool
	served   sync.WaitGroup
}

type presenceKey struct {
	roomID   string
	playerID string
}

// presence counts a player's open sockets in a room. Join and Disconnect
// for one player run under its mu so tabs opening and closing cannot
// interleave with each other's coordinator calls.
type presence struct {
	mu   sync.Mutex
	n    int
	dead bool
}

func NewServer(coord Coordinator, opts Options) *Server {
	if opts.MessageRate <= 0 {
		opts.MessageRate = 5
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 10
	}
	return &Server{
		coord:    coord,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		opts:     opts,
		presence: map[presenceKey]*presence{},
		conns:    map[*conn]struct{}{},
	}
}

// Close shuts every live socket and waits until each has been detached from
// its room, or ctx ends. Sockets upgraded after Close are turned away.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	live := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		live = append(live, c)
	}
	s.mu.Unlock()

	for _, c := range live {
		c.shutdown()
	}
	done := make(chan struct{})
	go func() {
		s.served.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Int("sockets", len(live)).Msg("ws_closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.served.Add(1)
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.served.Done()
}

// PlayerIDFromToken derives the stable participant id for a client token.
func PlayerIDFromToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:8])
}

type conn struct {
	cc        ConnContext
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
}

func newConn(cc ConnContext, ws *websocket.Conn, limiter *rate.Limiter) *conn {
	return &conn{
		cc:      cc,
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		limiter: limiter,
	}
}

// Deliver queues ev for the writer. A connection that cannot keep up is
// closed; it recovers state through the welcome on its next join.
func (c *conn) Deliver(ev fanout.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("conn_id", c.cc.ConnID).Str("event", ev.Type).Msg("ws_encode_failed")
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- b:
	default:
		slowConsumers.Add(1)
		log.Warn().Str("conn_id", c.cc.ConnID).Str("room_id", c.cc.RoomID).Msg("ws_slow_consumer_closed")
		c.shutdown()
	}
}

func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// ServeRoom upgrades the request and attaches the socket to roomID. The
// participant is identified by the token query parameter; a client without
// one is issued a fresh token.
func (s *Server) ServeRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	issued := token == ""
	if issued {
		token = store.NewID()
	}
	cc := ConnContext{
		ConnID:   store.NewID(),
		RoomID:   roomID,
		PlayerID: PlayerIDFromToken(token),
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("ws_upgrade_failed")
		return
	}
	c := newConn(cc, wsConn, rate.NewLimiter(s.opts.MessageRate, s.opts.MessageBurst))
	if !s.track(c) {
		c.Deliver(fanout.NewEvent(roomID, lobby.EventError, lobby.ErrorPayload{Code: "server_shutting_down", Message: "Server is shutting down"}))
		s.flushAndClose(c)
		return
	}
	defer s.untrack(c)
	connectionsActive.Add(1)
	defer connectionsActive.Add(-1)

	if issued {
		c.Deliver(fanout.NewEvent(roomID, EventSession, SessionInfo{Token: token, PlayerID: cc.PlayerID}))
	}
	if err := s.attach(r.Context(), c); err != nil {
		c.Deliver(lobby.ErrorEvent(roomID, err))
		s.flushAndClose(c)
		return
	}
	go s.writeLoop(c)
	log.Info().Str("conn_id", cc.ConnID).Str("room_id", roomID).Str("player_id", cc.PlayerID).Msg("ws_attached")

	s.readLoop(c)

	s.coord.Unsubscribe(roomID, c)
	c.shutdown()
	s.detach(c)
}

func (s *Server) lockPresence(key presenceKey) *presence {
	for {
		s.mu.Lock()
		p := s.presence[key]
		if p == nil {
			p = &presence{}
			s.presence[key] = p
		}
		s.mu.Unlock()
		p.mu.Lock()
		if !p.dead {
			return p
		}
		p.mu.Unlock()
	}
}

func (s *Server) dropPresence(key presenceKey, p *presence) {
	s.mu.Lock()
	if s.presence[key] == p {
		delete(s.presence, key)
	}
	s.mu.Unlock()
	p.dead = true
}

func (s *Server) attach(ctx context.Context, c *conn) error {
	key := presenceKey{roomID: c.cc.RoomID, playerID: c.cc.PlayerID}
	p := s.lockPresence(key)
	defer p.mu.Unlock()
	if _, _, err := s.coord.Join(ctx, c.cc.RoomID, c.cc.PlayerID, c); err != nil {
		if p.n == 0 {
			s.dropPresence(key, p)
		}
		return err
	}
	p.n++
	return nil
}

// detach disconnects the player once its last socket in the room is gone.
// The presence entry stays registered until Disconnect returns, so a socket
// for the same player that arrives meanwhile waits on p.mu and joins after
// the disconnect instead of before it.
func (s *Server) detach(c *conn) {
	key := presenceKey{roomID: c.cc.RoomID, playerID: c.cc.PlayerID}
	p := s.lockPresence(key)
	defer p.mu.Unlock()
	p.n--
	if p.n > 0 {
		return
	}
	if err := s.coord.Disconnect(context.Background(), c.cc.RoomID, c.cc.PlayerID); err != nil {
		log.Error().Err(err).Str("room_id", c.cc.RoomID).Str("player_id", c.cc.PlayerID).Msg("ws_disconnect_failed")
	}
	s.dropPresence(key, p)
}

func (s *Server) readLoop(c *conn) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", c.cc.ConnID).Msg("ws_read_closed")
			}
			return
		}
		messagesIn.Add(1)
		s.handleMessage(context.Background(), c, msg)
	}
}

func (s *Server) writeLoop(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// flushAndClose writes whatever is queued on the caller's goroutine and
// closes the socket. Used when a socket never got attached to a room.
func (s *Server) flushAndClose(c *conn) {
	defer c.shutdown()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, c *conn, raw []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(c, "invalid_message", "Message is not valid JSON")
		return
	}
	if !c.limiter.Allow() {
		rateLimited.Add(1)
		s.sendError(c, "rate_limited", "Too many messages, slow down")
		return
	}
	cc := c.cc
	var err error
	switch msg.Type {
	case MsgChat:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			return
		}
		_, err = s.coord.SendChat(ctx, cc.RoomID, cc.PlayerID, text)
	case MsgToggleReady:
		_, err = s.coord.ToggleReady(ctx, cc.RoomID, cc.PlayerID)
	case MsgStartGame:
		err = s.coord.StartGame(ctx, cc.RoomID, cc.PlayerID)
	case MsgLeave:
		err = s.coord.Leave(ctx, cc.RoomID, cc.PlayerID)
		if err == nil {
			log.Info().Str("conn_id", cc.ConnID).Str("room_id", cc.RoomID).Str("player_id", cc.PlayerID).Msg("ws_player_left")
			c.shutdown()
			return
		}
	default:
		s.sendError(c, "unknown_message_type", "Unknown message type: "+msg.Type)
		return
	}
	if err == nil {
		return
	}
	if !lobby.IsUserError(err) {
		log.Error().Err(err).Str("room_id", cc.RoomID).Str("player_id", cc.PlayerID).Str("type", msg.Type).Msg("ws_command_failed")
	}
	c.Deliver(lobby.ErrorEvent(cc.RoomID, err))
}

func (s *Server) sendError(c *conn, code, message string) {
	c.Deliver(fanout.NewEvent(c.cc.RoomID, lobby.EventError, lobby.ErrorPayload{Code: code, Message: message}))
}
