package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub tracks WebSocket connections and room membership, and fans
// broadcasts out to every participant of a room. Delivery order per
// connection follows send order; the per-room intent serialization
// upstream is what makes that a single total order per room.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection // participant id -> connection
	rooms       map[string][]uuid.UUID    // room code -> participant ids
	logger      zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		rooms:       make(map[string][]uuid.UUID),
		logger:      logger,
	}
}

// Register adds a connection for a participant, replacing (and
// closing) any previous one, which is how a reconnect takes over an
// identity.
func (h *Hub) Register(participantID uuid.UUID, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[participantID]; exists {
		old.Close()
	}
	h.connections[participantID] = conn
	h.logger.Debug().Str("participant_id", participantID.String()).Msg("connection registered")
}

// Unregister drops a participant's connection and removes them from
// every room, but only while the hub still maps the participant to the
// given connection. A reconnect replaces the mapping first, so the
// replaced socket's teardown must not touch its successor. Reports
// whether the participant was removed.
func (h *Hub) Unregister(participantID uuid.UUID, conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	current, exists := h.connections[participantID]
	if !exists || current != conn {
		return false
	}
	current.Close()
	delete(h.connections, participantID)
	for code, ids := range h.rooms {
		for i, id := range ids {
			if id == participantID {
				h.rooms[code] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
	return true
}

// JoinRoom subscribes a participant to a room's broadcasts.
func (h *Hub) JoinRoom(code string, participantID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := h.rooms[code]
	for _, id := range ids {
		if id == participantID {
			return
		}
	}
	h.rooms[code] = append(ids, participantID)
}

// LeaveRoom unsubscribes a participant.
func (h *Hub) LeaveRoom(code string, participantID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := h.rooms[code]
	for i, id := range ids {
		if id == participantID {
			h.rooms[code] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// DropRoom removes a room's membership list entirely.
func (h *Hub) DropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Broadcast sends a message to every participant of a room.
func (h *Hub) Broadcast(code string, msg Message) {
	h.mu.RLock()
	ids := append([]uuid.UUID(nil), h.rooms[code]...)
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.Send(id, msg); err != nil {
			h.logger.Warn().Err(err).
				Str("room", code).
				Str("participant_id", id.String()).
				Str("type", msg.Type).
				Msg("broadcast send failed")
		}
	}
}

// Send delivers a message to a single participant.
func (h *Hub) Send(participantID uuid.UUID, msg Message) error {
	h.mu.RLock()
	conn, exists := h.connections[participantID]
	h.mu.RUnlock()

	if !exists {
		return ErrConnectionNotFound
	}
	return conn.Send(msg)
}

// Connected reports whether a participant currently holds a live
// connection.
func (h *Hub) Connected(participantID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[participantID]
	return ok
}

// Keepalive timing. pingPeriod must be shorter than pongWait so the
// read deadline is refreshed before it expires.
const pongWait = 60 * time.Second

var pingPeriod = 54 * time.Second

// Connection wraps one WebSocket with a buffered send queue so a slow
// client cannot block a room's broadcast loop.
type Connection struct {
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps an upgraded WebSocket.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:   conn,
		sendCh: make(chan Message, 256),
		logger: logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts the connection down. Safe to call twice.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	c.conn.Close()
}

// WritePump drains the send queue onto the socket and pings idle
// connections so their read deadline keeps getting refreshed.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump decodes inbound envelopes and hands them to the handler
// until the connection drops.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Str("type", msg.Type).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionNotFound = &Error{Code: "connection_not_found", Message: "Participant connection not found"}
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
