package presence

import "time"

// Participant is one connection taking part in a room.
type Participant struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// Room is a snapshot of a live room.
type Room struct {
	ID           string        `json:"roomId"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Friend is the projection of a friend pushed in friends-list events.
type Friend struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture"`
}

// InvitationSender is the minimal sender projection attached to a pending invitation.
type InvitationSender struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Picture   string `json:"picture"`
}

// PendingInvitation is a friend invitation waiting for the receiver's decision.
type PendingInvitation struct {
	ID         string           `json:"id"`
	Sender     InvitationSender `json:"senderId"`
	ReceiverID string           `json:"receiverId"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// InvitationStatus is the outcome of a friend invitation.
type InvitationStatus string

const (
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// ChatMessage is one message of a direct conversation.
type ChatMessage struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DirectChatHistory is the full history of a two-party conversation.
type DirectChatHistory struct {
	ConversationID string        `json:"conversationId"`
	Participants   []string      `json:"participants"`
	Messages       []ChatMessage `json:"messages"`
}
