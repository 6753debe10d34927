package wsserver

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/effectiveone/facebook-clone-backend/modules/presence"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

const defaultSendQueue = 64

var (
	// ErrConnectionGone is returned when pushing to a connection that is no longer live.
	ErrConnectionGone = errors.New("connection is not live")
	// ErrSlowConnection is returned when a connection's send queue is full. The connection is closed.
	ErrSlowConnection = errors.New("send queue full, connection closed")
)

// Server runs the websocket protocol over the presence registries.
type Server struct {
	connections *presence.ConnectionRegistry
	rooms       *presence.RoomRegistry
	dispatcher  *presence.Dispatcher
	identifier  Identifier
	limiter     Limiter
	sendQueue   int
	logger      types.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

var _ presence.Pusher = (*Server)(nil)

// Option configures a Server.
type Option func(*Server)

// WithIdentifier sets how identity assertions are resolved.
func WithIdentifier(identifier Identifier) Option {
	return func(s *Server) {
		s.identifier = identifier
	}
}

// WithLimiter sets the inbound message limiter.
func WithLimiter(limiter Limiter) Option {
	return func(s *Server) {
		s.limiter = limiter
	}
}

// WithSendQueue sets the per-connection send queue size.
func WithSendQueue(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.sendQueue = size
		}
	}
}

// NewServer creates a server over the given registries and dispatcher.
func NewServer(
	connections *presence.ConnectionRegistry,
	rooms *presence.RoomRegistry,
	dispatcher *presence.Dispatcher,
	logger types.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		connections: connections,
		rooms:       rooms,
		dispatcher:  dispatcher,
		identifier:  TrustIdentifier{},
		limiter:     NewTokenBucketLimiter(messagesPerSecond, burstSize),
		sendQueue:   defaultSendQueue,
		logger:      logger,
		clients:     make(map[string]*client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle serves one websocket connection until it terminates.
func (s *Server) Handle(c conn) {
	cl := newClient(uuid.New().String(), c, s.sendQueue)
	s.addClient(cl)
	defer s.terminate(cl)

	go cl.writePump()

	s.logger.Info("WebSocket connected", "connectionID", cl.id)
	s.sendTo(cl, TypeOnlineUsers, OnlineUsersPayload{OnlineUsers: s.connections.OnlineUserIDs()})

	cl.prepareRead()
	ctx := context.Background()
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("WebSocket read failed", "connectionID", cl.id, "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(cl, "", CodeInvalidMessage, "invalid message format")
			continue
		}

		if !s.allow(ctx, cl) {
			s.sendError(cl, msg.Type, CodeRateLimited, "rate limit exceeded, please slow down")
			continue
		}

		s.handleMessage(ctx, cl, msg)
	}
}

func (s *Server) allow(ctx context.Context, cl *client) bool {
	allowed, err := s.limiter.Allow(ctx, cl.id)
	if err != nil {
		// Limiter outages must not take the socket down.
		s.logger.Warn("Rate limiter failed, message allowed", "connectionID", cl.id, "error", err)
		return true
	}
	return allowed
}

func (s *Server) handleMessage(ctx context.Context, cl *client, msg Message) {
	switch msg.Type {
	case TypeIdentityAssert:
		s.handleIdentity(ctx, cl, msg.Payload)
	case TypeRoomCreate:
		s.handleRoomCreate(cl)
	case TypeRoomJoin:
		s.handleRoomJoin(cl, msg.Payload)
	case TypeRoomLeave:
		s.handleRoomLeave(cl, msg.Payload)
	case TypeDirectChatHistory:
		s.handleChatHistory(ctx, cl, msg.Payload)
	case TypePing:
		s.sendTo(cl, TypePong, nil)
	default:
		s.sendError(cl, msg.Type, CodeInvalidMessage, "unknown message type: "+msg.Type)
	}
}

func (s *Server) handleIdentity(ctx context.Context, cl *client, payload json.RawMessage) {
	var req IdentityPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(cl, TypeIdentityAssert, CodeInvalidMessage, "invalid identity payload")
		return
	}

	userID, err := s.identifier.Identify(ctx, req)
	if err != nil {
		s.logger.Debug("Identity rejected", "connectionID", cl.id, "error", err)
		s.sendError(cl, TypeIdentityAssert, CodeUnauthorized, err.Error())
		return
	}

	if cl.userID != "" {
		if cl.userID != userID {
			s.sendError(cl, TypeIdentityAssert, CodeUnauthorized, "connection is bound to another user")
		}
		return
	}

	cl.userID = userID
	s.connections.Register(userID, cl.id)
	s.logger.Info("Connection identified", "connectionID", cl.id, "userID", userID)

	s.broadcastOnlineUsers()

	// Initial snapshots for the new session.
	go func() {
		s.dispatcher.NotifyFriendsChanged(context.Background(), userID)
		s.dispatcher.NotifyPendingInvitationsChanged(context.Background(), userID)
	}()
}

func (s *Server) handleRoomCreate(cl *client) {
	if !s.identified(cl, TypeRoomCreate) {
		return
	}

	s.leaveCurrentRoom(cl)

	roomID, err := s.rooms.CreateRoom(cl.userID, cl.id)
	if err != nil {
		s.sendRoomError(cl, TypeRoomCreate, err)
		return
	}

	s.logger.Info("Room created", "roomID", roomID, "userID", cl.userID)
	s.sendTo(cl, TypeRoomCreated, RoomCreatedPayload{RoomID: roomID})
	if room, ok := s.rooms.Room(roomID); ok {
		s.broadcastRoomUpdate(roomID, room.Participants)
	}
}

func (s *Server) handleRoomJoin(cl *client, payload json.RawMessage) {
	if !s.identified(cl, TypeRoomJoin) {
		return
	}

	var req RoomPayload
	if err := json.Unmarshal(payload, &req); err != nil || strings.TrimSpace(req.RoomID) == "" {
		s.sendError(cl, TypeRoomJoin, CodeInvalidMessage, "roomId is required")
		return
	}

	res, err := s.rooms.MoveTo(req.RoomID, cl.userID, cl.id)
	if err != nil {
		s.sendRoomError(cl, TypeRoomJoin, err)
		return
	}

	if res.LeftRoomID != "" {
		s.logger.Info("Room left", "roomID", res.LeftRoomID, "connectionID", cl.id, "deleted", res.Left.Deleted)
		if !res.Left.Deleted {
			s.broadcastRoomUpdate(res.LeftRoomID, res.Left.Participants)
		}
	}
	s.logger.Info("Room joined", "roomID", req.RoomID, "userID", cl.userID, "participants", len(res.Participants))
	s.broadcastRoomUpdate(req.RoomID, res.Participants)
}

func (s *Server) handleRoomLeave(cl *client, payload json.RawMessage) {
	if !s.identified(cl, TypeRoomLeave) {
		return
	}

	var req RoomPayload
	if err := json.Unmarshal(payload, &req); err != nil || strings.TrimSpace(req.RoomID) == "" {
		s.sendError(cl, TypeRoomLeave, CodeInvalidMessage, "roomId is required")
		return
	}

	res, err := s.rooms.LeaveRoom(req.RoomID, cl.id)
	if err != nil {
		s.sendRoomError(cl, TypeRoomLeave, err)
		return
	}

	s.logger.Info("Room left", "roomID", req.RoomID, "userID", cl.userID, "deleted", res.Deleted)
	if !res.Deleted {
		s.broadcastRoomUpdate(req.RoomID, res.Participants)
	}
}

func (s *Server) handleChatHistory(ctx context.Context, cl *client, payload json.RawMessage) {
	if !s.identified(cl, TypeDirectChatHistory) {
		return
	}

	var req ChatHistoryPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.ReceiverUserID == "" {
		s.sendError(cl, TypeDirectChatHistory, CodeInvalidMessage, "receiverUserId is required")
		return
	}

	s.dispatcher.NotifyDirectChatHistory(ctx, cl.userID, req.ReceiverUserID, cl.id)
}

func (s *Server) identified(cl *client, requestType string) bool {
	if cl.userID == "" {
		s.sendRoomError(cl, requestType, presence.ErrUnauthorized)
		return false
	}
	return true
}

// leaveCurrentRoom removes the connection from its room, if any, and updates the remaining participants.
func (s *Server) leaveCurrentRoom(cl *client) {
	roomID, res, ok := s.rooms.RemoveConnectionEverywhere(cl.id)
	if !ok {
		return
	}
	s.logger.Info("Room left", "roomID", roomID, "connectionID", cl.id, "deleted", res.Deleted)
	if !res.Deleted {
		s.broadcastRoomUpdate(roomID, res.Participants)
	}
}

// terminate runs once per connection, whatever ended it.
func (s *Server) terminate(cl *client) {
	cl.cleanupOnce.Do(func() { s.cleanup(cl) })
}

func (s *Server) cleanup(cl *client) {
	s.removeClient(cl.id)
	cl.close()
	<-cl.pumpDone
	s.limiter.Release(cl.id)

	userID, registered := s.connections.Unregister(cl.id)
	s.leaveCurrentRoom(cl)
	if registered {
		s.broadcastOnlineUsers()
	}

	s.logger.Info("WebSocket disconnected", "connectionID", cl.id, "userID", userID)
}

// Push implements presence.Pusher. It never blocks on the network.
func (s *Server) Push(connectionID, event string, payload any) error {
	frame, err := encode(event, payload)
	if err != nil {
		return err
	}

	s.mu.RLock()
	cl, ok := s.clients[connectionID]
	s.mu.RUnlock()
	if !ok {
		return ErrConnectionGone
	}
	return s.deliver(cl, frame)
}

// Broadcast sends an event to every live connection.
func (s *Server) Broadcast(event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		s.logger.Error("Failed to marshal broadcast", "event", event, "error", err)
		return
	}

	for _, cl := range s.snapshot() {
		s.deliver(cl, frame)
	}
}

// CloseAll closes every live connection.
func (s *Server) CloseAll() {
	for _, cl := range s.snapshot() {
		cl.close()
	}
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcastOnlineUsers() {
	s.Broadcast(TypeOnlineUsers, OnlineUsersPayload{OnlineUsers: s.connections.OnlineUserIDs()})
}

func (s *Server) broadcastRoomUpdate(roomID string, participants []domain.Participant) {
	frame, err := encode(TypeRoomUpdate, RoomUpdatePayload{RoomID: roomID, Participants: participants})
	if err != nil {
		s.logger.Error("Failed to marshal room update", "roomID", roomID, "error", err)
		return
	}

	for _, p := range participants {
		s.mu.RLock()
		cl, ok := s.clients[p.ConnectionID]
		s.mu.RUnlock()
		if ok {
			s.deliver(cl, frame)
		}
	}
}

func (s *Server) sendTo(cl *client, msgType string, payload any) {
	frame, err := encode(msgType, payload)
	if err != nil {
		s.logger.Error("Failed to marshal message", "type", msgType, "error", err)
		return
	}
	s.deliver(cl, frame)
}

func (s *Server) sendError(cl *client, requestType, code, message string) {
	frame, err := encodeError(requestType, code, message)
	if err != nil {
		s.logger.Error("Failed to marshal error message", "error", err)
		return
	}
	s.deliver(cl, frame)
}

func (s *Server) sendRoomError(cl *client, requestType string, err error) {
	code := CodeInternal
	switch {
	case errors.Is(err, presence.ErrUnauthorized):
		code = CodeUnauthorized
	case presence.IsNotFound(err):
		code = CodeNotFound
	case errors.Is(err, presence.ErrAlreadyJoined):
		code = CodeAlreadyJoined
	default:
		s.logger.Error("Room operation failed", "type", requestType, "connectionID", cl.id, "error", err)
	}
	s.sendError(cl, requestType, code, err.Error())
}

func (s *Server) deliver(cl *client, frame []byte) error {
	queued, full := cl.enqueue(frame)
	if queued {
		return nil
	}
	if full {
		s.logger.Warn("Send queue full, closing slow connection", "connectionID", cl.id)
		cl.abort()
		return ErrSlowConnection
	}
	return ErrConnectionGone
}

func (s *Server) addClient(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[cl.id] = cl
}

func (s *Server) removeClient(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

func (s *Server) snapshot() []*client {
	s.mu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for _, cl := range s.clients {
		clients = append(clients, cl)
	}
	s.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}
