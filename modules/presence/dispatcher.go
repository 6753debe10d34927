package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Outbound event names of targeted pushes.
const (
	EventFriendsList             = "friends-list"
	EventFriendsInvitations      = "friends-invitations"
	EventInvitationStatusChanged = "invitation-status-changed"
	EventDirectChatHistory       = "direct-chat-history"
)

const defaultDispatchTimeout = 5 * time.Second

// Pusher enqueues an event for one live connection. It must not block on the network.
type Pusher interface {
	Push(connectionID, event string, payload any) error
}

// Collaborator provides the domain snapshots that targeted pushes carry.
type Collaborator interface {
	FriendsOf(ctx context.Context, userID string) ([]domain.Friend, error)
	PendingInvitationsOf(ctx context.Context, userID string) ([]domain.PendingInvitation, error)
	DirectChatHistory(ctx context.Context, userID, receiverID string) (*domain.DirectChatHistory, error)
}

// FriendsListPayload is the payload of a friends-list event.
type FriendsListPayload struct {
	Friends []domain.Friend `json:"friends"`
}

// PendingInvitationsPayload is the payload of a friends-invitations event.
type PendingInvitationsPayload struct {
	PendingInvitations []domain.PendingInvitation `json:"pendingInvitations"`
}

// InvitationStatusPayload is the payload of an invitation-status-changed event.
// The deciding user gets TargetUserID, the counterparty gets UserID.
type InvitationStatusPayload struct {
	UserID       string                  `json:"userId,omitempty"`
	TargetUserID string                  `json:"targetUserId,omitempty"`
	Status       domain.InvitationStatus `json:"status"`
}

// Dispatcher pushes fresh domain snapshots to every live connection of a user.
// All Notify methods are fire-and-forget: failures are logged, never returned.
type Dispatcher struct {
	connections *ConnectionRegistry
	logger      types.Logger
	timeout     time.Duration
	group       singleflight.Group

	mu     sync.RWMutex
	pusher Pusher
	source Collaborator

	refreshMu  sync.Mutex
	generation uint64
	refreshes  map[string]*refresh
}

// refresh orders the snapshots of one key. A snapshot is only pushed when it is
// newer than the last one pushed.
type refresh struct {
	pushed  uint64
	callers int
	pushMu  sync.Mutex
}

// snapshot is a fetch result tagged with the generation current when the fetch started.
// Generations increase with every notify, across all keys.
type snapshot struct {
	gen  uint64
	data any
}

// NewDispatcher creates a dispatcher over the given connection registry.
// A non-positive timeout selects the default.
func NewDispatcher(connections *ConnectionRegistry, logger types.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Dispatcher{
		connections: connections,
		logger:      logger,
		timeout:     timeout,
		refreshes:   make(map[string]*refresh),
	}
}

// SetPusher sets the transport used to deliver events.
func (d *Dispatcher) SetPusher(p Pusher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pusher = p
}

// SetCollaborator sets the source of friend, invitation and chat snapshots.
func (d *Dispatcher) SetCollaborator(c Collaborator) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = c
}

func (d *Dispatcher) wiring() (Pusher, Collaborator) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pusher, d.source
}

// NotifyFriendsChanged pushes the current friend list of userID to all its connections.
func (d *Dispatcher) NotifyFriendsChanged(ctx context.Context, userID string) {
	if !d.online(userID) {
		return
	}
	_, source := d.wiring()
	if source == nil {
		d.logger.Warn("No collaborator configured, friends-list push skipped", "userID", userID)
		return
	}

	err := d.refresh(ctx, "friends:"+userID, func(fctx context.Context) (any, error) {
		return source.FriendsOf(fctx, userID)
	}, func(v any) {
		friends, _ := v.([]domain.Friend)
		if friends == nil {
			friends = []domain.Friend{}
		}
		n := d.pushToUser(userID, EventFriendsList, FriendsListPayload{Friends: friends})
		d.logger.Info("Pushed friends list", "userID", userID, "friends", len(friends), "connections", n)
	})
	if err != nil {
		d.logFetchFailure(EventFriendsList, userID, err)
	}
}

// NotifyPendingInvitationsChanged pushes the pending invitations of userID to all its connections.
func (d *Dispatcher) NotifyPendingInvitationsChanged(ctx context.Context, userID string) {
	if !d.online(userID) {
		return
	}
	_, source := d.wiring()
	if source == nil {
		d.logger.Warn("No collaborator configured, friends-invitations push skipped", "userID", userID)
		return
	}

	err := d.refresh(ctx, "invitations:"+userID, func(fctx context.Context) (any, error) {
		return source.PendingInvitationsOf(fctx, userID)
	}, func(v any) {
		invitations, _ := v.([]domain.PendingInvitation)
		if invitations == nil {
			invitations = []domain.PendingInvitation{}
		}
		n := d.pushToUser(userID, EventFriendsInvitations, PendingInvitationsPayload{PendingInvitations: invitations})
		d.logger.Info("Pushed pending invitations", "userID", userID, "invitations", len(invitations), "connections", n)
	})
	if err != nil {
		d.logFetchFailure(EventFriendsInvitations, userID, err)
	}
}

// NotifyInvitationStatusChanged tells both parties of an invitation about its new status.
// The two pushes are independent of each other.
func (d *Dispatcher) NotifyInvitationStatusChanged(_ context.Context, userID, counterpartyID string, status domain.InvitationStatus) {
	if n := d.pushToUser(userID, EventInvitationStatusChanged, InvitationStatusPayload{
		TargetUserID: counterpartyID,
		Status:       status,
	}); n > 0 {
		d.logger.Info("Pushed invitation status", "userID", userID, "status", status, "connections", n)
	}

	if n := d.pushToUser(counterpartyID, EventInvitationStatusChanged, InvitationStatusPayload{
		UserID: userID,
		Status: status,
	}); n > 0 {
		d.logger.Info("Pushed invitation status", "userID", counterpartyID, "status", status, "connections", n)
	}
}

// NotifyDirectChatHistory pushes the direct conversation between userID and receiverID.
// With toConnectionID set only that connection receives it, otherwise every live
// connection of both participants does.
func (d *Dispatcher) NotifyDirectChatHistory(ctx context.Context, userID, receiverID, toConnectionID string) {
	if toConnectionID == "" && !d.online(userID) && !d.online(receiverID) {
		return
	}
	_, source := d.wiring()
	if source == nil {
		d.logger.Warn("No collaborator configured, chat history push skipped", "userID", userID)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	history, err := source.DirectChatHistory(fctx, userID, receiverID)
	if err != nil {
		d.logFetchFailure(EventDirectChatHistory, userID, err)
		return
	}
	if history == nil {
		return
	}

	if toConnectionID != "" {
		d.pushToConnection(toConnectionID, EventDirectChatHistory, history)
		return
	}
	for _, participant := range history.Participants {
		d.pushToUser(participant, EventDirectChatHistory, history)
	}
}

// refresh fetches a snapshot for key and pushes it. Concurrent callers share one
// fetch, but a caller is only served by a fetch that started after it was called:
// a fetch already in flight may predate the change being notified. Snapshots older
// than the last pushed one are dropped, so the newest push always wins.
func (d *Dispatcher) refresh(ctx context.Context, key string, fetch func(context.Context) (any, error), push func(any)) error {
	st, want := d.beginRefresh(key)
	defer d.endRefresh(key, st)

	for {
		v, err, _ := d.group.Do(key, func() (any, error) {
			gen := d.currentGeneration()
			fctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			data, err := fetch(fctx)
			return snapshot{gen: gen, data: data}, err
		})
		snap, _ := v.(snapshot)
		if snap.gen < want {
			// Started before this call; its result may be stale.
			continue
		}
		if err != nil {
			return err
		}

		st.pushMu.Lock()
		if snap.gen > st.pushed {
			st.pushed = snap.gen
			push(snap.data)
		}
		st.pushMu.Unlock()
		return nil
	}
}

func (d *Dispatcher) beginRefresh(key string) (*refresh, uint64) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	st, ok := d.refreshes[key]
	if !ok {
		st = &refresh{}
		d.refreshes[key] = st
	}
	st.callers++
	d.generation++
	return st, d.generation
}

func (d *Dispatcher) currentGeneration() uint64 {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()
	return d.generation
}

func (d *Dispatcher) endRefresh(key string, st *refresh) {
	d.refreshMu.Lock()
	defer d.refreshMu.Unlock()

	st.callers--
	if st.callers == 0 {
		delete(d.refreshes, key)
	}
}

func (d *Dispatcher) online(userID string) bool {
	if len(d.connections.ActiveConnections(userID)) == 0 {
		d.logger.Debug("User has no live connections, push skipped", "userID", userID)
		return false
	}
	return true
}

// pushToUser delivers to the connections live at call time and returns how many accepted it.
func (d *Dispatcher) pushToUser(userID, event string, payload any) int {
	delivered := 0
	for _, connectionID := range d.connections.ActiveConnections(userID) {
		if d.pushToConnection(connectionID, event, payload) {
			delivered++
		}
	}
	return delivered
}

func (d *Dispatcher) pushToConnection(connectionID, event string, payload any) bool {
	pusher, _ := d.wiring()
	if pusher == nil {
		d.logger.Warn("No pusher configured, event dropped", "event", event, "connectionID", connectionID)
		return false
	}
	if err := pusher.Push(connectionID, event, payload); err != nil {
		d.logger.Warn("Push failed", "event", event, "connectionID", connectionID, "error", err)
		return false
	}
	return true
}

func (d *Dispatcher) logFetchFailure(event, userID string, err error) {
	d.logger.Error("Snapshot fetch failed, push suppressed",
		"event", event,
		"userID", userID,
		"error", fmt.Errorf("%w: %v", ErrCollaborator, err))
}
