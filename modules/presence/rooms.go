package presence

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
	nanoid "github.com/jaevor/go-nanoid"
)

const (
	roomIDLength      = 16
	maxRoomIDAttempts = 8
)

var errRoomIDCollision = errors.New("could not generate a unique room id")

// LeaveResult describes a room after a participant left.
// When Deleted is true the room no longer exists and Participants is nil.
type LeaveResult struct {
	Participants []domain.Participant
	Deleted      bool
}

type room struct {
	id           string
	participants []domain.Participant
	createdAt    time.Time
}

// RoomRegistry holds the live rooms and the room each connection belongs to.
// A connection is a participant of at most one room. Empty rooms are deleted.
type RoomRegistry struct {
	rooms        map[string]*room
	byConnection map[string]string
	newID        func() string
	mu           sync.Mutex
}

// RoomOption configures a RoomRegistry.
type RoomOption func(*RoomRegistry)

// WithRoomIDGenerator replaces the nanoid room id generator.
func WithRoomIDGenerator(gen func() string) RoomOption {
	return func(r *RoomRegistry) {
		r.newID = gen
	}
}

// NewRoomRegistry creates an empty room registry.
func NewRoomRegistry(opts ...RoomOption) *RoomRegistry {
	r := &RoomRegistry{
		rooms:        make(map[string]*room),
		byConnection: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newID == nil {
		gen, err := nanoid.Standard(roomIDLength)
		if err != nil {
			panic(fmt.Sprintf("presence: room id generator: %v", err))
		}
		r.newID = gen
	}
	return r
}

// CreateRoom creates a room with the creator as its first participant.
func (r *RoomRegistry) CreateRoom(userID, connectionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConnection[connectionID]; ok {
		return "", ErrAlreadyJoined
	}

	id, err := r.uniqueIDLocked()
	if err != nil {
		return "", err
	}

	r.rooms[id] = &room{
		id:           id,
		participants: []domain.Participant{{UserID: userID, ConnectionID: connectionID}},
		createdAt:    time.Now(),
	}
	r.byConnection[connectionID] = id
	return id, nil
}

func (r *RoomRegistry) uniqueIDLocked() (string, error) {
	for i := 0; i < maxRoomIDAttempts; i++ {
		id := r.newID()
		if _, taken := r.rooms[id]; !taken && id != "" {
			return id, nil
		}
	}
	return "", errRoomIDCollision
}

// JoinRoom appends a participant and returns the updated participant list.
func (r *RoomRegistry) JoinRoom(roomID, userID, connectionID string) ([]domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("join %s: %w", roomID, ErrRoomNotFound)
	}
	if _, joined := r.byConnection[connectionID]; joined {
		return nil, fmt.Errorf("join %s: %w", roomID, ErrAlreadyJoined)
	}

	rm.participants = append(rm.participants, domain.Participant{UserID: userID, ConnectionID: connectionID})
	r.byConnection[connectionID] = roomID
	return cloneParticipants(rm.participants), nil
}

// MoveResult describes a join that may have taken the connection out of another room.
type MoveResult struct {
	Participants []domain.Participant
	// LeftRoomID is empty when the connection was not in a room before.
	LeftRoomID string
	Left       LeaveResult
}

// MoveTo joins roomID, leaving the room the connection is currently in.
// On error nothing changes: the connection stays where it was.
func (r *RoomRegistry) MoveTo(roomID, userID, connectionID string) (MoveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return MoveResult{}, fmt.Errorf("join %s: %w", roomID, ErrRoomNotFound)
	}

	var res MoveResult
	if current, joined := r.byConnection[connectionID]; joined {
		if current == roomID {
			return MoveResult{}, fmt.Errorf("join %s: %w", roomID, ErrAlreadyJoined)
		}
		res.LeftRoomID = current
		res.Left = r.leaveLocked(current, connectionID)
	}

	rm.participants = append(rm.participants, domain.Participant{UserID: userID, ConnectionID: connectionID})
	r.byConnection[connectionID] = roomID
	res.Participants = cloneParticipants(rm.participants)
	return res, nil
}

// LeaveRoom removes connectionID from roomID. The room is deleted when it becomes empty.
func (r *RoomRegistry) LeaveRoom(roomID, connectionID string) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[roomID]; !ok {
		return LeaveResult{}, fmt.Errorf("leave %s: %w", roomID, ErrRoomNotFound)
	}
	if r.byConnection[connectionID] != roomID {
		return LeaveResult{}, fmt.Errorf("leave %s: %w", roomID, ErrNotParticipant)
	}
	return r.leaveLocked(roomID, connectionID), nil
}

// RemoveConnectionEverywhere removes connectionID from the room it belongs to, if any.
// It returns the affected room id and the leave result. Calling it again is a no-op.
func (r *RoomRegistry) RemoveConnectionEverywhere(connectionID string) (string, LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.byConnection[connectionID]
	if !ok {
		return "", LeaveResult{}, false
	}
	return roomID, r.leaveLocked(roomID, connectionID), true
}

func (r *RoomRegistry) leaveLocked(roomID, connectionID string) LeaveResult {
	delete(r.byConnection, connectionID)

	rm, ok := r.rooms[roomID]
	if !ok {
		return LeaveResult{Deleted: true}
	}

	kept := rm.participants[:0]
	for _, p := range rm.participants {
		if p.ConnectionID != connectionID {
			kept = append(kept, p)
		}
	}
	rm.participants = kept

	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
		return LeaveResult{Deleted: true}
	}
	return LeaveResult{Participants: cloneParticipants(rm.participants)}
}

// RoomOf returns the room a connection is a participant of.
func (r *RoomRegistry) RoomOf(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.byConnection[connectionID]
	return roomID, ok
}

// Room returns a snapshot of a live room.
func (r *RoomRegistry) Room(roomID string) (domain.Room, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	return rm.snapshot(), true
}

// Rooms returns snapshots of all live rooms, oldest first.
func (r *RoomRegistry) Rooms() []domain.Room {
	r.mu.Lock()
	rooms := make([]domain.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm.snapshot())
	}
	r.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

// Count returns the number of live rooms.
func (r *RoomRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (rm *room) snapshot() domain.Room {
	return domain.Room{
		ID:           rm.id,
		Participants: cloneParticipants(rm.participants),
		CreatedAt:    rm.createdAt,
	}
}

func cloneParticipants(ps []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, len(ps))
	copy(out, ps)
	return out
}
