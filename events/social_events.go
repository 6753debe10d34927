package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// FriendsChangedEvent is emitted when the friend list of one or more users changed.
type FriendsChangedEvent struct {
	UserIDs   []string  `json:"user_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingInvitationsChangedEvent is emitted when the pending invitations of a receiver changed.
type PendingInvitationsChangedEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// InvitationStatusChangedEvent is emitted when an invitation was accepted or rejected.
// UserID is the user who decided, CounterpartyID the other party.
type InvitationStatusChangedEvent struct {
	UserID         string    `json:"user_id"`
	CounterpartyID string    `json:"counterparty_id"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// DirectMessageSentEvent is emitted when a message was stored in a direct conversation.
type DirectMessageSentEvent struct {
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	ReceiverID     string    `json:"receiver_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// Event definitions for the social domain.
var (
	FriendsChangedV1 = helper.EventDefinition[FriendsChangedEvent](
		"social",
		"FriendsChanged",
		"v1",
	)

	PendingInvitationsChangedV1 = helper.EventDefinition[PendingInvitationsChangedEvent](
		"social",
		"PendingInvitationsChanged",
		"v1",
	)

	InvitationStatusChangedV1 = helper.EventDefinition[InvitationStatusChangedEvent](
		"social",
		"InvitationStatusChanged",
		"v1",
	)

	DirectMessageSentV1 = helper.EventDefinition[DirectMessageSentEvent](
		"social",
		"DirectMessageSent",
		"v1",
	)
)
