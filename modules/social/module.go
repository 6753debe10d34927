package social

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/effectiveone/facebook-clone-backend/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module provides the social graph as request-reply services and emits
// events whenever what online users see has changed.
type Module struct {
	db       *gorm.DB
	service  *Service
	eventBus mono.EventBus
	dbPath   string
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new social module backed by the sqlite file at dbPath.
func NewModule(dbPath string, logger types.Logger) *Module {
	return &Module{
		dbPath: dbPath,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "social"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.FriendsChangedV1.ToBase(),
		events.PendingInvitationsChangedV1.ToBase(),
		events.InvitationStatusChangedV1.ToBase(),
		events.DirectMessageSentV1.ToBase(),
	}
}

// Start opens the database and builds the service.
func (m *Module) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		return err
	}

	m.service = NewService(repo, &busNotifier{bus: m.eventBus, logger: m.logger}, m.logger)
	m.logger.Info("Social module started", "database", m.dbPath)
	return nil
}

// Stop closes the database.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Social module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// Handlers read m.service lazily because services are registered before Start.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateUser, json.Unmarshal, json.Marshal, m.handleCreateUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetUser, json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceInvite, json.Unmarshal, json.Marshal, m.handleInvite,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceInvite, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAcceptInvitation, json.Unmarshal, json.Marshal, m.handleAccept,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceAcceptInvitation, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRejectInvitation, json.Unmarshal, json.Marshal, m.handleReject,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRejectInvitation, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUnfriend, json.Unmarshal, json.Marshal, m.handleUnfriend,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUnfriend, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendDirectMessage, json.Unmarshal, json.Marshal, m.handleSendDirectMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendDirectMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceFriendsOf, json.Unmarshal, json.Marshal, m.handleFriendsOf,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceFriendsOf, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServicePendingInvitationsOf, json.Unmarshal, json.Marshal, m.handlePendingInvitationsOf,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServicePendingInvitationsOf, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDirectChatHistory, json.Unmarshal, json.Marshal, m.handleDirectChatHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDirectChatHistory, err)
	}

	m.logger.Info("Registered social services")
	return nil
}

// resultOf converts a domain error into a Result; other errors are returned as-is.
func resultOf(err error) (Result, error) {
	if code, ok := codeOf(err); ok {
		return Result{ErrorCode: code}, nil
	}
	return Result{}, err
}

func (m *Module) handleCreateUser(ctx context.Context, req CreateUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.CreateUser(ctx, CreateUserInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Picture:   req.Picture,
	})
	if err != nil {
		res, err := resultOf(err)
		return UserResponse{Result: res}, err
	}
	return UserResponse{User: user}, nil
}

func (m *Module) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		res, err := resultOf(err)
		return UserResponse{Result: res}, err
	}
	return UserResponse{User: user}, nil
}

func (m *Module) handleInvite(ctx context.Context, req InviteRequest, _ *mono.Msg) (InviteResponse, error) {
	inv, err := m.service.Invite(ctx, req.SenderID, req.TargetEmail)
	if err != nil {
		res, err := resultOf(err)
		return InviteResponse{Result: res}, err
	}
	return InviteResponse{InvitationID: inv.ID}, nil
}

func (m *Module) handleAccept(ctx context.Context, req DecisionRequest, _ *mono.Msg) (Result, error) {
	if err := m.service.Accept(ctx, req.ReceiverID, req.InvitationID); err != nil {
		return resultOf(err)
	}
	return Result{}, nil
}

func (m *Module) handleReject(ctx context.Context, req DecisionRequest, _ *mono.Msg) (Result, error) {
	if err := m.service.Reject(ctx, req.ReceiverID, req.InvitationID); err != nil {
		return resultOf(err)
	}
	return Result{}, nil
}

func (m *Module) handleUnfriend(ctx context.Context, req UnfriendRequest, _ *mono.Msg) (Result, error) {
	if err := m.service.Unfriend(ctx, req.UserID, req.FriendID); err != nil {
		return resultOf(err)
	}
	return Result{}, nil
}

func (m *Module) handleSendDirectMessage(ctx context.Context, req SendDirectMessageRequest, _ *mono.Msg) (SendDirectMessageResponse, error) {
	msg, err := m.service.SendDirectMessage(ctx, req.AuthorID, req.ReceiverID, req.Content)
	if err != nil {
		res, err := resultOf(err)
		return SendDirectMessageResponse{Result: res}, err
	}
	return SendDirectMessageResponse{Message: msg}, nil
}

func (m *Module) handleFriendsOf(ctx context.Context, req UserRequest, _ *mono.Msg) (FriendsResponse, error) {
	friends, err := m.service.FriendsOf(ctx, req.UserID)
	if err != nil {
		return FriendsResponse{}, err
	}
	return FriendsResponse{Friends: friends}, nil
}

func (m *Module) handlePendingInvitationsOf(ctx context.Context, req UserRequest, _ *mono.Msg) (PendingInvitationsResponse, error) {
	invitations, err := m.service.PendingInvitationsOf(ctx, req.UserID)
	if err != nil {
		return PendingInvitationsResponse{}, err
	}
	return PendingInvitationsResponse{PendingInvitations: invitations}, nil
}

func (m *Module) handleDirectChatHistory(ctx context.Context, req ChatHistoryRequest, _ *mono.Msg) (ChatHistoryResponse, error) {
	history, err := m.service.DirectChatHistory(ctx, req.UserID, req.ReceiverID)
	if err != nil {
		return ChatHistoryResponse{}, err
	}
	return ChatHistoryResponse{History: history}, nil
}

// Service returns the social service.
func (m *Module) Service() *Service {
	return m.service
}

// busNotifier publishes social mutations on the event bus.
type busNotifier struct {
	bus    mono.EventBus
	logger types.Logger
}

func (n *busNotifier) FriendsChanged(_ context.Context, userIDs ...string) {
	evt := events.FriendsChangedEvent{UserIDs: userIDs, Timestamp: time.Now()}
	if err := events.FriendsChangedV1.Publish(n.bus, evt, nil); err != nil {
		n.logger.Warn("Failed to publish FriendsChanged event", "error", err)
	}
}

func (n *busNotifier) PendingInvitationsChanged(_ context.Context, userID string) {
	evt := events.PendingInvitationsChangedEvent{UserID: userID, Timestamp: time.Now()}
	if err := events.PendingInvitationsChangedV1.Publish(n.bus, evt, nil); err != nil {
		n.logger.Warn("Failed to publish PendingInvitationsChanged event", "error", err)
	}
}

func (n *busNotifier) InvitationStatusChanged(_ context.Context, userID, counterpartyID string, status presence.InvitationStatus) {
	evt := events.InvitationStatusChangedEvent{
		UserID:         userID,
		CounterpartyID: counterpartyID,
		Status:         string(status),
		Timestamp:      time.Now(),
	}
	if err := events.InvitationStatusChangedV1.Publish(n.bus, evt, nil); err != nil {
		n.logger.Warn("Failed to publish InvitationStatusChanged event", "error", err)
	}
}

func (n *busNotifier) DirectMessageSent(_ context.Context, conversationID, authorID, receiverID string) {
	evt := events.DirectMessageSentEvent{
		ConversationID: conversationID,
		AuthorID:       authorID,
		ReceiverID:     receiverID,
		Timestamp:      time.Now(),
	}
	if err := events.DirectMessageSentV1.Publish(n.bus, evt, nil); err != nil {
		n.logger.Warn("Failed to publish DirectMessageSent event", "error", err)
	}
}
