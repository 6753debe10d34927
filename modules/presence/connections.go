package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// ConnectionRegistry tracks which live connections represent which user.
// A user with no connections is offline and has no entry.
type ConnectionRegistry struct {
	byUser       map[string]map[string]struct{}
	byConnection map[string]string
	mu           sync.RWMutex
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser:       make(map[string]map[string]struct{}),
		byConnection: make(map[string]string),
	}
}

// Register attaches connectionID to userID. Registering the same pair twice is a no-op.
// A connection registered under another user is moved.
func (r *ConnectionRegistry) Register(userID, connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byConnection[connectionID]; ok {
		if owner == userID {
			return
		}
		r.detachLocked(owner, connectionID)
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[userID] = conns
	}
	conns[connectionID] = struct{}{}
	r.byConnection[connectionID] = userID
}

// Unregister removes connectionID and returns the user it belonged to.
// Unknown connections are ignored.
func (r *ConnectionRegistry) Unregister(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConnection[connectionID]
	if !ok {
		return "", false
	}
	r.detachLocked(userID, connectionID)
	delete(r.byConnection, connectionID)
	return userID, true
}

func (r *ConnectionRegistry) detachLocked(userID, connectionID string) {
	conns := r.byUser[userID]
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(r.byUser, userID)
	}
}

// ActiveConnections returns the live connections of userID, sorted.
func (r *ConnectionRegistry) ActiveConnections(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := lo.Keys(r.byUser[userID])
	sort.Strings(ids)
	return ids
}

// OnlineUserIDs returns the distinct users with at least one live connection, sorted.
func (r *ConnectionRegistry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := lo.Keys(r.byUser)
	sort.Strings(ids)
	return ids
}

// UserOf returns the user a connection is registered under.
func (r *ConnectionRegistry) UserOf(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConnection[connectionID]
	return userID, ok
}

// Count returns the number of online users and registered connections.
func (r *ConnectionRegistry) Count() (users, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), len(r.byConnection)
}
