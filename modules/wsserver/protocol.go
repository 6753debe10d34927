package wsserver

import (
	"encoding/json"

	domain "github.com/effectiveone/facebook-clone-backend/domain/presence"
)

// Inbound message types.
const (
	TypeIdentityAssert    = "identity-assert"
	TypeRoomCreate        = "room-create"
	TypeRoomJoin          = "room-join"
	TypeRoomLeave         = "room-leave"
	TypeDirectChatHistory = "direct-chat-history"
	TypePing              = "ping"
)

// Outbound message types. Targeted pushes use the presence event names.
const (
	TypeOnlineUsers = "online-users"
	TypeRoomCreated = "room-created"
	TypeRoomUpdate  = "room-update"
	TypePong        = "pong"
	TypeError       = "error"
)

// Error codes carried in error acknowledgements.
const (
	CodeUnauthorized   = "unauthorized"
	CodeNotFound       = "not_found"
	CodeAlreadyJoined  = "already_joined"
	CodeInvalidMessage = "invalid_message"
	CodeRateLimited    = "rate_limited"
	CodeInternal       = "internal"
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// IdentityPayload asserts which user a connection represents.
type IdentityPayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token,omitempty"`
}

// RoomPayload addresses an existing room.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// ChatHistoryPayload requests the direct conversation with another user.
type ChatHistoryPayload struct {
	ReceiverUserID string `json:"receiverUserId"`
}

// OnlineUsersPayload lists the users with at least one live connection.
type OnlineUsersPayload struct {
	OnlineUsers []string `json:"onlineUsers"`
}

// RoomCreatedPayload is unicast to the creator of a room.
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// RoomUpdatePayload is sent to every participant after the participant list changed.
type RoomUpdatePayload struct {
	RoomID       string               `json:"roomId"`
	Participants []domain.Participant `json:"participants"`
}

// ErrorPayload details a rejected inbound message.
type ErrorPayload struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	RequestType string `json:"requestType,omitempty"`
}

func encode(msgType string, payload any) ([]byte, error) {
	msg := Message{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}

func encodeError(requestType, code, message string) ([]byte, error) {
	raw, err := json.Marshal(ErrorPayload{Error: message, Code: code, RequestType: requestType})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: TypeError, Payload: raw, Error: message})
}
