// Package websocket provides WebSocket connection handling with in-band
// authentication. Clients connect unauthenticated and must present a
// credential in an auth frame before sending or receiving chat messages.
package websocket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/samarthnaikk/ychat20/internal/auth"
	"github.com/samarthnaikk/ychat20/internal/constants"
	chaterrors "github.com/samarthnaikk/ychat20/internal/errors"
	"github.com/samarthnaikk/ychat20/internal/message"
	"github.com/samarthnaikk/ychat20/internal/metrics"
	"github.com/samarthnaikk/ychat20/internal/registry"
	"github.com/samarthnaikk/ychat20/internal/util"
)

var (
	// upgrader configures the WebSocket upgrade.
	// SECURITY: In production, this service MUST be deployed behind a reverse
	// proxy that terminates TLS, ensuring all WebSocket connections use WSS.
	// The CheckOrigin function is configured per-handler to validate origins.
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	// pongWait is the time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// pingPeriod is the interval for sending ping messages (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// writeWait is the time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// deliverTimeout bounds persist-then-deliver for a single chat frame
	deliverTimeout = 10 * time.Second
)

// State is the lifecycle state of a connection session.
type State int

const (
	// StateUnauthenticated is the initial state after upgrade. Only auth and
	// ping frames are meaningful here.
	StateUnauthenticated State = iota
	// StateAuthenticated means the session is bound to a user id and chat
	// frames are accepted.
	StateAuthenticated
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Connection represents an active WebSocket connection and its session state.
type Connection struct {
	// conn is the underlying WebSocket connection
	conn *websocket.Conn

	// ConnectionID is a unique identifier for this connection
	ConnectionID string

	// userID is the authenticated user's id, zero until auth succeeds
	userID int64

	// state is the session lifecycle state
	state State

	// send is a buffered channel for outbound messages
	send chan []byte

	// closing indicates the connection is being torn down.
	// Set before closing the send channel to prevent send-on-closed-channel panics.
	closing atomic.Bool

	// mu protects userID and state
	mu sync.RWMutex
}

// NewConnectionForTest creates a bare Connection for tests.
func NewConnectionForTest() *Connection {
	return &Connection{
		ConnectionID: newConnectionID(),
		send:         make(chan []byte, constants.SendBufferSize),
	}
}

// UserID returns the authenticated user id, or zero before authentication.
func (c *Connection) UserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// State returns the current session state.
func (c *Connection) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// authenticate transitions the session to StateAuthenticated, binding userID.
// Returns false if the session is already authenticated or closed.
func (c *Connection) authenticate(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUnauthenticated {
		return false
	}
	c.userID = userID
	c.state = StateAuthenticated
	return true
}

// setClosed marks the session state terminal.
func (c *Connection) setClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}

// Close closes the underlying WebSocket connection.
func (c *Connection) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// SetClosing marks the connection as closing.
// After this call, SafeSend will return false.
func (c *Connection) SetClosing() {
	c.closing.Store(true)
}

// SafeSend attempts to send data to the connection's send channel.
// Returns false if the connection is closing or the channel is full.
// This is the preferred method for sending data to avoid panics on closed channels.
func (c *Connection) SafeSend(data []byte) bool {
	if c.closing.Load() {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ReceiveForTest returns the send channel as a receive channel for tests to
// verify messages sent to the connection.
func (c *Connection) ReceiveForTest() <-chan []byte {
	return c.send
}

// Authenticator resolves a credential token to a user id.
type Authenticator interface {
	Resolve(token string) (int64, error)
}

// Deliverer persists a message and pushes it to the receiver if online.
type Deliverer interface {
	Deliver(ctx context.Context, senderID, receiverID int64, content string) (*message.ChatMessage, error)
}

// Handler manages WebSocket upgrades and the per-connection session loop.
type Handler struct {
	auth           Authenticator
	router         Deliverer
	registry       *registry.Registry
	logger         *zap.SugaredLogger
	maxMessageSize int64
	allowedOrigins map[string]bool

	// connections tracks every live connection by connection id, including
	// ones that never authenticate
	connections map[string]*Connection
	mu          sync.RWMutex
}

// NewHandler creates a WebSocket handler.
func NewHandler(auth Authenticator, router Deliverer, reg *registry.Registry, logger *zap.SugaredLogger, maxMessageSize int64) *Handler {
	return &Handler{
		auth:           auth,
		router:         router,
		registry:       reg,
		logger:         logger,
		maxMessageSize: maxMessageSize,
		allowedOrigins: make(map[string]bool),
		connections:    make(map[string]*Connection),
	}
}

// SetAllowedOrigins configures the allowed origins for WebSocket connections.
// If no origins are set, all origins are allowed (development mode).
func (h *Handler) SetAllowedOrigins(origins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.allowedOrigins = make(map[string]bool)
	for _, origin := range origins {
		h.allowedOrigins[origin] = true
	}

	h.logger.Infow("Configured allowed origins",
		"count", len(origins),
		"origins", origins)
}

// IsOpenOrigin returns true when no allowed origins are configured, meaning
// all origins are accepted. Acceptable only behind a reverse proxy that
// performs its own origin validation.
func (h *Handler) IsOpenOrigin() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allowedOrigins) == 0
}

// checkOrigin validates the origin of a WebSocket upgrade request.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.allowedOrigins) == 0 {
		return true
	}
	if h.allowedOrigins[origin] {
		return true
	}

	h.logger.Warnw("Origin not allowed",
		"origin", origin,
		"component", "websocket")
	return false
}

// HandleWebSocket upgrades the HTTP request and starts the session loop.
// Authentication happens in-band after the upgrade, so the upgrade itself
// carries no credential.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	localUpgrader := upgrader
	localUpgrader.CheckOrigin = h.checkOrigin

	conn, err := localUpgrader.Upgrade(w, r, nil)
	if err != nil {
		util.LogError(h.logger, "websocket", "upgrade connection", err)
		return
	}

	conn.SetReadLimit(h.maxMessageSize)

	connection := &Connection{
		conn:         conn,
		ConnectionID: newConnectionID(),
		send:         make(chan []byte, constants.SendBufferSize),
	}

	h.trackConnection(connection)

	h.logger.Infow("WebSocket connection established",
		"connection_id", connection.ConnectionID,
		"remote_addr", r.RemoteAddr,
		"component", "websocket")

	util.SafeGo(h.logger, "readPump", func() { h.readPump(connection) })
	util.SafeGo(h.logger, "writePump", func() { connection.writePump() })
}

// newConnectionID generates a random connection identifier.
func newConnectionID() string {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return fmt.Sprintf("conn-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("conn-%d-%s", time.Now().UnixNano(), hex.EncodeToString(randomBytes))
}

// trackConnection adds a connection to the live connections map.
func (h *Handler) trackConnection(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[c.ConnectionID] = c
	metrics.WebSocketConnections.Inc()
}

// untrackConnection removes a connection from the live connections map,
// closes its send channel, and releases its registry binding.
func (h *Handler) untrackConnection(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[c.ConnectionID]; !ok {
		return
	}
	delete(h.connections, c.ConnectionID)

	c.SetClosing()
	close(c.send)
	metrics.WebSocketConnections.Dec()

	userID := c.UserID()
	if userID != 0 {
		// Only remove the registry binding if this connection still owns it.
		// A superseded connection must not unregister its replacement.
		if h.registry.Deregister(userID, c) {
			metrics.AuthenticatedSessions.Dec()
		}
	}

	h.logger.Infow("Connection unregistered",
		"connection_id", c.ConnectionID,
		"user_id", userID,
		"component", "websocket")
}

// TrackConnectionForTest registers a connection for testing purposes.
func (h *Handler) TrackConnectionForTest(c *Connection) {
	h.trackConnection(c)
}

// sendError sends a structured error frame to the client.
// Uses SafeSend to avoid blocking if the channel is full.
func (c *Connection) sendError(msg string) {
	payload, err := util.MarshalJSON(message.NewErrorFrame(msg))
	if err != nil {
		return
	}
	c.SafeSend(payload)
}

// sendFrame marshals and enqueues an outbound frame.
func (c *Connection) sendFrame(v interface{}) bool {
	payload, err := util.MarshalJSON(v)
	if err != nil {
		return false
	}
	return c.SafeSend(payload)
}

// readPump reads frames from the WebSocket connection and dispatches them
// through the session state machine until the connection closes.
func (h *Handler) readPump(c *Connection) {
	defer func() {
		c.setClosed()
		h.untrackConnection(c)
		c.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				h.logger.Warnw("WebSocket message size limit exceeded",
					"connection_id", c.ConnectionID,
					"limit", h.maxMessageSize,
					"component", "websocket")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				util.LogError(h.logger, "websocket", "handle unexpected close", err,
					"connection_id", c.ConnectionID,
					"user_id", c.UserID())
			} else {
				h.logger.Infow("WebSocket connection closing",
					"connection_id", c.ConnectionID,
					"user_id", c.UserID(),
					"component", "websocket")
			}
			break
		}

		metrics.MessagesReceived.Inc()

		var frame message.Frame
		if err := util.UnmarshalJSON(raw, &frame); err != nil {
			metrics.MessageErrors.Inc()
			h.logger.Warnw("Failed to parse frame",
				"connection_id", c.ConnectionID,
				"error", err)
			c.sendError(chaterrors.ErrInvalidMessageFormat(err).Message)
			continue
		}

		if fatal := h.handleFrame(c, &frame); fatal {
			break
		}
	}
}

// handleFrame dispatches a single inbound frame. Returns true if the session
// must be torn down.
func (h *Handler) handleFrame(c *Connection, frame *message.Frame) (fatal bool) {
	switch frame.Type {
	case message.TypeAuth:
		return h.handleAuth(c, frame)
	case message.TypeMessage:
		h.handleChat(c, frame)
		return false
	case message.TypePing:
		c.sendFrame(message.NewPongFrame())
		return false
	default:
		metrics.MessageErrors.Inc()
		c.sendError(chaterrors.ErrUnknownMessageType().Message)
		return false
	}
}

// handleAuth processes an auth frame. A missing token is a recoverable
// mistake; an invalid token closes the connection. On success the user's
// registry binding moves to this connection, superseding any previous one.
func (h *Handler) handleAuth(c *Connection, frame *message.Frame) (fatal bool) {
	if c.State() == StateAuthenticated {
		c.sendError(chaterrors.ErrAlreadyAuthenticated().Message)
		return false
	}

	if frame.Token == "" {
		metrics.AuthFailures.Inc()
		c.sendError(chaterrors.ErrMissingToken().Message)
		return false
	}

	userID, err := h.auth.Resolve(frame.Token)
	if err != nil {
		metrics.AuthFailures.Inc()
		chatErr := chaterrors.ErrInvalidToken(err)
		if errors.Is(err, auth.ErrExpiredToken) {
			chatErr = chaterrors.ErrExpiredToken(err)
		}
		h.logger.Warnw("Authentication failed",
			"connection_id", c.ConnectionID,
			"error", err,
			"code", chatErr.Code,
			"component", "websocket")
		c.sendError(chatErr.Message)
		return true
	}

	if !c.authenticate(userID) {
		c.sendError(chaterrors.ErrAlreadyAuthenticated().Message)
		return false
	}

	prev := h.registry.Register(userID, c)
	if prev != nil {
		metrics.SessionsSuperseded.Inc()
		h.logger.Infow("Superseding previous connection for user",
			"user_id", userID,
			"connection_id", c.ConnectionID)
		if err := prev.Close(); err != nil {
			util.LogError(h.logger, "websocket", "close superseded connection", err,
				"user_id", userID)
		}
	} else {
		metrics.AuthenticatedSessions.Inc()
	}

	h.logger.Infow("User authenticated",
		"user_id", userID,
		"connection_id", c.ConnectionID,
		"component", "websocket")

	c.sendFrame(message.NewAuthSuccessFrame(userID))
	return false
}

// handleChat processes a chat frame: state check, field validation, then
// persist-then-deliver through the router. The sender gets an ack only after
// the message is durable.
func (h *Handler) handleChat(c *Connection, frame *message.Frame) {
	if c.State() != StateAuthenticated {
		c.sendError(chaterrors.ErrNotAuthenticated().Message)
		return
	}
	senderID := c.UserID()

	content, verr := frame.ValidateChat(senderID)
	if verr != nil {
		metrics.MessageErrors.Inc()
		c.sendError(verr.Message)
		return
	}

	ctx, cancel := util.NewTimeoutContext(deliverTimeout)
	defer cancel()

	msg, err := h.router.Deliver(ctx, senderID, frame.ReceiverID, content)
	if err != nil {
		metrics.MessageErrors.Inc()
		util.LogError(h.logger, "websocket", "deliver message", err,
			"connection_id", c.ConnectionID,
			"sender_id", senderID,
			"receiver_id", frame.ReceiverID)

		var chatErr *chaterrors.ChatError
		if errors.As(err, &chatErr) {
			c.sendError(chatErr.Message)
		} else {
			c.sendError("Failed to send message")
		}
		return
	}

	c.sendFrame(message.NewSentFrame(msg))
}

// HandleFrameForTest exposes frame dispatch for tests.
func (h *Handler) HandleFrameForTest(c *Connection, frame *message.Frame) bool {
	return h.handleFrame(c, frame)
}

// writePump writes messages to the WebSocket connection. It sends periodic
// ping messages for heartbeat and drains the send channel until it closes.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ShutdownWithContext gracefully closes all active WebSocket connections.
// It respects the context deadline and returns its error if exceeded.
func (h *Handler) ShutdownWithContext(ctx context.Context) error {
	h.logger.Infow("Shutting down WebSocket handler, closing all connections")

	h.mu.Lock()
	connections := make([]*Connection, 0, len(h.connections))
	for _, c := range h.connections {
		connections = append(connections, c)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range connections {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()

			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"))
			}
			c.Close()
		}(c)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Infow("All WebSocket connections closed gracefully")
		return nil
	case <-ctx.Done():
		h.logger.Warnw("Shutdown deadline exceeded, forcing closure",
			"remaining_connections", len(connections))
		return ctx.Err()
	}
}
