package presence

import "errors"

// Registry and dispatch errors.
var (
	// ErrRoomNotFound is returned when a room id does not reference a live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotParticipant is returned when a connection leaves a room it is not part of.
	ErrNotParticipant = errors.New("connection is not a participant of the room")
	// ErrAlreadyJoined is returned when a connection is already a room participant.
	ErrAlreadyJoined = errors.New("connection already joined a room")
	// ErrUnauthorized is returned when a room operation comes from an anonymous connection.
	ErrUnauthorized = errors.New("connection has not asserted an identity")
	// ErrCollaborator wraps failures of the social collaborator.
	ErrCollaborator = errors.New("collaborator failure")
)

// IsNotFound reports whether err means a room or participant reference is no longer valid.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrNotParticipant)
}
