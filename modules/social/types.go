package social

import (
	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	domain "github.com/effectiveone/facebook-clone-backend/domain/social"
)

// Service names registered in the social service container.
const (
	ServiceCreateUser           = "create-user"
	ServiceGetUser              = "get-user"
	ServiceInvite               = "invite"
	ServiceAcceptInvitation     = "accept-invitation"
	ServiceRejectInvitation     = "reject-invitation"
	ServiceUnfriend             = "unfriend"
	ServiceSendDirectMessage    = "send-direct-message"
	ServiceFriendsOf            = "friends-of"
	ServicePendingInvitationsOf = "pending-invitations-of"
	ServiceDirectChatHistory    = "direct-chat-history"
)

// Result carries a domain failure as a code instead of a transport error.
type Result struct {
	ErrorCode string `json:"error_code,omitempty"`
}

func (r Result) err() error {
	if r.ErrorCode == "" {
		return nil
	}
	return errorFromCode(r.ErrorCode)
}

// CreateUserRequest is the request for create-user.
type CreateUserRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   string `json:"picture"`
}

// UserResponse is the response for create-user and get-user.
type UserResponse struct {
	Result
	User *domain.User `json:"user,omitempty"`
}

// GetUserRequest is the request for get-user.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// InviteRequest is the request for invite.
type InviteRequest struct {
	SenderID    string `json:"sender_id"`
	TargetEmail string `json:"target_email"`
}

// InviteResponse is the response for invite.
type InviteResponse struct {
	Result
	InvitationID string `json:"invitation_id,omitempty"`
}

// DecisionRequest is the request for accept-invitation and reject-invitation.
type DecisionRequest struct {
	ReceiverID   string `json:"receiver_id"`
	InvitationID string `json:"invitation_id"`
}

// UnfriendRequest is the request for unfriend.
type UnfriendRequest struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`
}

// SendDirectMessageRequest is the request for send-direct-message.
type SendDirectMessageRequest struct {
	AuthorID   string `json:"author_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// SendDirectMessageResponse is the response for send-direct-message.
type SendDirectMessageResponse struct {
	Result
	Message *presence.ChatMessage `json:"message,omitempty"`
}

// UserRequest addresses the snapshot services by user.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// FriendsResponse is the response for friends-of.
type FriendsResponse struct {
	Friends []presence.Friend `json:"friends"`
}

// PendingInvitationsResponse is the response for pending-invitations-of.
type PendingInvitationsResponse struct {
	PendingInvitations []presence.PendingInvitation `json:"pending_invitations"`
}

// ChatHistoryRequest is the request for direct-chat-history.
type ChatHistoryRequest struct {
	UserID     string `json:"user_id"`
	ReceiverID string `json:"receiver_id"`
}

// ChatHistoryResponse is the response for direct-chat-history.
type ChatHistoryResponse struct {
	History *presence.DirectChatHistory `json:"history,omitempty"`
}
