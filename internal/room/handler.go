package room

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quizhall/jeopardy-server/internal/auth"
	"github.com/quizhall/jeopardy-server/internal/metrics"
	httperrors "github.com/quizhall/jeopardy-server/pkg/http/errors"
	ws "github.com/quizhall/jeopardy-server/pkg/http/ws"
)

// Upgrader for room WebSocket connections. Origin checking is left to
// the deployment's reverse proxy.
var Upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler is the WebSocket boundary: it upgrades connections, binds
// them to a room via create/join/resume, and forwards every further
// intent to the room actor.
type Handler struct {
	rooms  *Manager
	hub    *ws.Hub
	tokens *auth.Manager
	logger zerolog.Logger
}

// NewHandler creates the room WebSocket handler.
func NewHandler(rooms *Manager, hub *ws.Hub, tokens *auth.Manager, logger zerolog.Logger) *Handler {
	return &Handler{
		rooms:  rooms,
		hub:    hub,
		tokens: tokens,
		logger: logger,
	}
}

// connState tracks what one socket is bound to. It is only touched
// from that connection's read loop.
type connState struct {
	participantID uuid.UUID
	room          *Room
	bound         bool
}

// HandleWebSocket upgrades the connection and runs its read loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	wsConn := ws.NewConnection(conn, h.logger)
	go wsConn.WritePump()
	metrics.ParticipantsConnected.Inc()

	state := &connState{}
	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(wsConn, state, msg)
	})

	metrics.ParticipantsConnected.Dec()
	if state.bound {
		// A resume may have handed this identity to a newer socket;
		// only the socket that still owns it tears the participant
		// down.
		if h.hub.Unregister(state.participantID, wsConn) {
			state.room.ParticipantGone(state.participantID)
		}
	}
}

// handleMessage routes one inbound envelope. Before a connection is
// bound it may only create, join or resume; afterwards everything goes
// through the room actor.
func (h *Handler) handleMessage(conn *ws.Connection, state *connState, msg ws.Message) error {
	if !state.bound {
		switch msg.Type {
		case ws.TypeCreateRoom:
			return h.handleCreateRoom(conn, state, msg.Payload)
		case ws.TypeJoinRoom:
			return h.handleJoinRoom(conn, state, msg.Payload)
		case ws.TypeRejoinRoom:
			return h.handleRejoinRoom(conn, state, msg.Payload)
		default:
			return h.sendError(conn, httperrors.ErrCodeInvalidRequest, "not in a room")
		}
	}

	switch msg.Type {
	case ws.TypeCreateRoom, ws.TypeJoinRoom, ws.TypeRejoinRoom:
		return h.sendError(conn, httperrors.ErrCodeInvalidRequest, "already in a room")
	default:
		state.room.Dispatch(state.participantID, msg)
		return nil
	}
}

func (h *Handler) handleCreateRoom(conn *ws.Connection, state *connState, payload json.RawMessage) error {
	var req ws.CreateRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "invalid create_room payload")
	}

	hostID := uuid.New()
	room, err := h.rooms.Create(hostID, req.Capacity)
	if err != nil {
		code, _ := errorCode(err)
		return h.sendError(conn, code, err.Error())
	}

	token, err := h.tokens.Issue(room.Code(), hostID, "", auth.RoleHost)
	if err != nil {
		h.rooms.Remove(room.Code())
		return h.sendError(conn, httperrors.ErrCodeInternalError, "token issue failed")
	}

	h.bind(conn, state, room, hostID)
	return conn.Send(ws.NewMessage(ws.TypeRoomCreated, ws.RoomCreatedPayload{
		Code:        room.Code(),
		Capacity:    req.Capacity,
		ResumeToken: token,
	}))
}

func (h *Handler) handleJoinRoom(conn *ws.Connection, state *connState, payload json.RawMessage) error {
	var req ws.JoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "invalid join_room payload")
	}

	room, err := h.rooms.Get(req.Code)
	if err != nil {
		return h.sendError(conn, httperrors.ErrCodeRoomNotFound, "unknown room code")
	}

	// Register the connection before joining so the join broadcasts,
	// which include this player, reach them too. A failed join
	// unregisters.
	playerID := uuid.New()
	h.hub.Register(playerID, conn)
	h.hub.JoinRoom(room.Code(), playerID)

	player, token, players, err := room.Join(playerID, req.Name)
	if err != nil {
		h.hub.Unregister(playerID, conn)
		code, _ := errorCode(err)
		return h.sendError(conn, code, err.Error())
	}

	state.participantID = player.ID
	state.room = room
	state.bound = true

	return conn.Send(ws.NewMessage(ws.TypeRoomJoined, ws.RoomJoinedPayload{
		Code:        room.Code(),
		PlayerID:    player.ID.String(),
		ResumeToken: token,
		Players:     players,
	}))
}

func (h *Handler) handleRejoinRoom(conn *ws.Connection, state *connState, payload json.RawMessage) error {
	var req ws.RejoinRoomPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "invalid rejoin_room payload")
	}

	claims, err := h.tokens.Validate(req.Token)
	if err != nil {
		return h.sendError(conn, httperrors.ErrCodeInvalidToken, "invalid resume token")
	}

	room, err := h.rooms.Get(claims.RoomCode)
	if err != nil {
		return h.sendError(conn, httperrors.ErrCodeRoomNotFound, "room no longer exists")
	}

	h.bind(conn, state, room, claims.ParticipantID)
	if err := room.Resume(claims); err != nil {
		h.hub.Unregister(claims.ParticipantID, conn)
		state.bound = false
		code, _ := errorCode(err)
		if errors.Is(err, auth.ErrInvalidToken) {
			code = httperrors.ErrCodeInvalidToken
		}
		return h.sendError(conn, code, err.Error())
	}
	return nil
}

func (h *Handler) bind(conn *ws.Connection, state *connState, room *Room, participantID uuid.UUID) {
	state.participantID = participantID
	state.room = room
	state.bound = true
	h.hub.Register(participantID, conn)
	h.hub.JoinRoom(room.Code(), participantID)
}

func (h *Handler) sendError(conn *ws.Connection, code, message string) error {
	return conn.Send(ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message}))
}
