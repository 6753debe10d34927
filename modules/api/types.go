package api

import (
	"time"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	domain "github.com/effectiveone/facebook-clone-backend/domain/social"
)

// CreateUserRequest represents a user profile creation request.
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=2,max=50"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
	Picture   string `json:"picture" validate:"omitempty,url"`
}

// CreateUserResponse returns the new user with an access token for it.
type CreateUserResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	ExpiresIn   int64        `json:"expiresIn"`
	TokenType   string       `json:"tokenType"`
}

// InviteRequest represents a friend invitation request.
type InviteRequest struct {
	TargetMailAddress string `json:"targetMailAddress" validate:"required,email"`
}

// InviteResponse returns the id of the created invitation.
type InviteResponse struct {
	ID string `json:"id"`
}

// DecisionRequest identifies the invitation to accept or reject.
type DecisionRequest struct {
	ID string `json:"id" validate:"required"`
}

// DecisionResponse reports the new status of an invitation.
type DecisionResponse struct {
	ID     string                    `json:"id"`
	Status presence.InvitationStatus `json:"status"`
}

// FriendsResponse lists the friends of the caller.
type FriendsResponse struct {
	Friends []presence.Friend `json:"friends"`
}

// DirectMessageRequest represents a direct message to another user.
type DirectMessageRequest struct {
	ReceiverUserID string `json:"receiverUserId" validate:"required"`
	Content        string `json:"content" validate:"required,max=2000"`
}

// PresenceResponse is a snapshot of who is online and which rooms are open.
type PresenceResponse struct {
	OnlineUsers []string      `json:"onlineUsers"`
	Rooms       []RoomSummary `json:"rooms"`
}

// RoomSummary is a room without its connection ids.
type RoomSummary struct {
	ID           string    `json:"roomId"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
