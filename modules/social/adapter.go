package social

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	domain "github.com/effectiveone/facebook-clone-backend/domain/social"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// SocialPort defines the social operations other modules use.
type SocialPort interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	Invite(ctx context.Context, senderID, targetEmail string) (string, error)
	Accept(ctx context.Context, receiverID, invitationID string) error
	Reject(ctx context.Context, receiverID, invitationID string) error
	Unfriend(ctx context.Context, userID, friendID string) error
	SendDirectMessage(ctx context.Context, authorID, receiverID, content string) (*presence.ChatMessage, error)
	FriendsOf(ctx context.Context, userID string) ([]presence.Friend, error)
	PendingInvitationsOf(ctx context.Context, userID string) ([]presence.PendingInvitation, error)
	DirectChatHistory(ctx context.Context, userID, receiverID string) (*presence.DirectChatHistory, error)
}

// SocialAdapter implements SocialPort using the service container.
type SocialAdapter struct {
	container mono.ServiceContainer
}

var _ SocialPort = (*SocialAdapter)(nil)

// NewSocialAdapter creates a new SocialAdapter.
func NewSocialAdapter(container mono.ServiceContainer) *SocialAdapter {
	if container == nil {
		panic("social: ServiceContainer is nil")
	}
	return &SocialAdapter{container: container}
}

// CreateUser registers a user profile.
func (a *SocialAdapter) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCreateUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceCreateUser, err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// GetUser retrieves a user by id.
func (a *SocialAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceGetUser, err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Invite sends a friend invitation and returns its id.
func (a *SocialAdapter) Invite(ctx context.Context, senderID, targetEmail string) (string, error) {
	req := InviteRequest{SenderID: senderID, TargetEmail: targetEmail}
	var resp InviteResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceInvite,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return "", fmt.Errorf("%s request failed: %w", ServiceInvite, err)
	}
	if err := resp.err(); err != nil {
		return "", err
	}
	return resp.InvitationID, nil
}

// Accept accepts an invitation on behalf of its receiver.
func (a *SocialAdapter) Accept(ctx context.Context, receiverID, invitationID string) error {
	req := DecisionRequest{ReceiverID: receiverID, InvitationID: invitationID}
	var resp Result
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceAcceptInvitation,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", ServiceAcceptInvitation, err)
	}
	return resp.err()
}

// Reject rejects an invitation on behalf of its receiver.
func (a *SocialAdapter) Reject(ctx context.Context, receiverID, invitationID string) error {
	req := DecisionRequest{ReceiverID: receiverID, InvitationID: invitationID}
	var resp Result
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRejectInvitation,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", ServiceRejectInvitation, err)
	}
	return resp.err()
}

// Unfriend removes a friendship.
func (a *SocialAdapter) Unfriend(ctx context.Context, userID, friendID string) error {
	req := UnfriendRequest{UserID: userID, FriendID: friendID}
	var resp Result
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceUnfriend,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", ServiceUnfriend, err)
	}
	return resp.err()
}

// SendDirectMessage stores a direct message.
func (a *SocialAdapter) SendDirectMessage(ctx context.Context, authorID, receiverID, content string) (*presence.ChatMessage, error) {
	req := SendDirectMessageRequest{AuthorID: authorID, ReceiverID: receiverID, Content: content}
	var resp SendDirectMessageResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSendDirectMessage,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceSendDirectMessage, err)
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	return resp.Message, nil
}

// FriendsOf returns the friend projections of a user.
func (a *SocialAdapter) FriendsOf(ctx context.Context, userID string) ([]presence.Friend, error) {
	req := UserRequest{UserID: userID}
	var resp FriendsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceFriendsOf,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceFriendsOf, err)
	}
	return resp.Friends, nil
}

// PendingInvitationsOf returns the pending invitations of a user.
func (a *SocialAdapter) PendingInvitationsOf(ctx context.Context, userID string) ([]presence.PendingInvitation, error) {
	req := UserRequest{UserID: userID}
	var resp PendingInvitationsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServicePendingInvitationsOf,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServicePendingInvitationsOf, err)
	}
	return resp.PendingInvitations, nil
}

// DirectChatHistory returns the direct conversation between two users, or nil.
func (a *SocialAdapter) DirectChatHistory(ctx context.Context, userID, receiverID string) (*presence.DirectChatHistory, error) {
	req := ChatHistoryRequest{UserID: userID, ReceiverID: receiverID}
	var resp ChatHistoryResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceDirectChatHistory,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceDirectChatHistory, err)
	}
	return resp.History, nil
}
