package presence

import (
	"context"
	"fmt"
	"time"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/effectiveone/facebook-clone-backend/events"
	"github.com/effectiveone/facebook-clone-backend/modules/social"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the connection and room registries and turns social events
// into targeted pushes.
type Module struct {
	connections *ConnectionRegistry
	rooms       *RoomRegistry
	dispatcher  *Dispatcher
	logger      types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the presence module.
func NewModule(logger types.Logger, dispatchTimeout time.Duration, opts ...RoomOption) *Module {
	connections := NewConnectionRegistry()
	return &Module{
		connections: connections,
		rooms:       NewRoomRegistry(opts...),
		dispatcher:  NewDispatcher(connections, logger, dispatchTimeout),
		logger:      logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presence"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"social"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "social":
		m.dispatcher.SetCollaborator(social.NewSocialAdapter(container))
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Presence module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	users, conns := m.connections.Count()
	m.logger.Info("Presence module stopped", "users", users, "connections", conns, "rooms", m.rooms.Count())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	users, conns := m.connections.Count()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": users,
			"connections":  conns,
			"rooms":        m.rooms.Count(),
		},
	}
}

// RegisterEventConsumers subscribes to social events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.FriendsChangedV1, m.handleFriendsChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register FriendsChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.PendingInvitationsChangedV1, m.handlePendingInvitationsChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register PendingInvitationsChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.InvitationStatusChangedV1, m.handleInvitationStatusChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register InvitationStatusChanged consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.DirectMessageSentV1, m.handleDirectMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register DirectMessageSent consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", "FriendsChanged, PendingInvitationsChanged, InvitationStatusChanged, DirectMessageSent")
	return nil
}

// Event handlers never return errors: a failed push must not be redelivered.

func (m *Module) handleFriendsChanged(ctx context.Context, event events.FriendsChangedEvent, _ *mono.Msg) error {
	for _, userID := range event.UserIDs {
		m.dispatcher.NotifyFriendsChanged(ctx, userID)
	}
	return nil
}

func (m *Module) handlePendingInvitationsChanged(ctx context.Context, event events.PendingInvitationsChangedEvent, _ *mono.Msg) error {
	m.dispatcher.NotifyPendingInvitationsChanged(ctx, event.UserID)
	return nil
}

func (m *Module) handleInvitationStatusChanged(ctx context.Context, event events.InvitationStatusChangedEvent, _ *mono.Msg) error {
	m.dispatcher.NotifyInvitationStatusChanged(ctx, event.UserID, event.CounterpartyID, domain.InvitationStatus(event.Status))
	return nil
}

func (m *Module) handleDirectMessageSent(ctx context.Context, event events.DirectMessageSentEvent, _ *mono.Msg) error {
	m.dispatcher.NotifyDirectChatHistory(ctx, event.AuthorID, event.ReceiverID, "")
	return nil
}

// SetPusher wires the transport that delivers targeted pushes.
func (m *Module) SetPusher(p Pusher) {
	m.dispatcher.SetPusher(p)
}

// Connections returns the connection registry.
func (m *Module) Connections() *ConnectionRegistry {
	return m.connections
}

// Rooms returns the room registry.
func (m *Module) Rooms() *RoomRegistry {
	return m.rooms
}

// Dispatcher returns the update dispatcher.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}
