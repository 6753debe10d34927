package social

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/effectiveone/facebook-clone-backend/domain/presence"
	domain "github.com/effectiveone/facebook-clone-backend/domain/social"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Notifier is told about committed mutations that change what online users should see.
// Implementations must not fail the mutation.
type Notifier interface {
	FriendsChanged(ctx context.Context, userIDs ...string)
	PendingInvitationsChanged(ctx context.Context, userID string)
	InvitationStatusChanged(ctx context.Context, userID, counterpartyID string, status presence.InvitationStatus)
	DirectMessageSent(ctx context.Context, conversationID, authorID, receiverID string)
}

// CreateUserInput holds the profile fields of a new user.
type CreateUserInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Picture   string
}

// Service implements the social graph use cases.
type Service struct {
	repo     *Repository
	notifier Notifier
	logger   types.Logger
}

// NewService creates a new social service.
func NewService(repo *Repository, notifier Notifier, logger types.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateUser registers a user profile.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.repo.FindUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Username:  in.Username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Picture:   in.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", "userID", user.ID, "email", user.Email)
	return user, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// Invite sends a friend invitation from senderID to the user owning targetEmail.
func (s *Service) Invite(ctx context.Context, senderID, targetEmail string) (*domain.FriendInvitation, error) {
	sender, err := s.repo.FindUserByID(ctx, senderID)
	if err != nil {
		return nil, err
	}

	targetEmail = normalizeEmail(targetEmail)
	if sender.Email == targetEmail {
		return nil, ErrSelfInvitation
	}

	target, err := s.repo.FindUserByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.InvitationExists(ctx, sender.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyInvited
	}

	friends, err := s.repo.AreFriends(ctx, sender.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	inv := &domain.FriendInvitation{
		ID:         uuid.New().String(),
		SenderID:   sender.ID,
		ReceiverID: target.ID,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("Invitation sent", "invitationID", inv.ID, "senderID", sender.ID, "receiverID", target.ID)
	s.notifier.PendingInvitationsChanged(ctx, target.ID)
	return inv, nil
}

// Accept makes the invitation's sender and receiver friends. Only the receiver may accept.
func (s *Service) Accept(ctx context.Context, receiverID, invitationID string) error {
	inv, err := s.decidable(ctx, receiverID, invitationID)
	if err != nil {
		return err
	}

	if err := s.repo.AcceptInvitation(ctx, inv); err != nil {
		return err
	}

	s.logger.Info("Invitation accepted", "invitationID", inv.ID, "senderID", inv.SenderID, "receiverID", inv.ReceiverID)
	s.notifier.FriendsChanged(ctx, inv.SenderID, inv.ReceiverID)
	s.notifier.PendingInvitationsChanged(ctx, inv.ReceiverID)
	s.notifier.InvitationStatusChanged(ctx, inv.ReceiverID, inv.SenderID, presence.InvitationAccepted)
	return nil
}

// Reject deletes the invitation. Only the receiver may reject.
func (s *Service) Reject(ctx context.Context, receiverID, invitationID string) error {
	inv, err := s.decidable(ctx, receiverID, invitationID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteInvitation(ctx, inv.ID); err != nil {
		return err
	}

	s.logger.Info("Invitation rejected", "invitationID", inv.ID, "senderID", inv.SenderID, "receiverID", inv.ReceiverID)
	s.notifier.PendingInvitationsChanged(ctx, inv.ReceiverID)
	s.notifier.InvitationStatusChanged(ctx, inv.ReceiverID, inv.SenderID, presence.InvitationRejected)
	return nil
}

func (s *Service) decidable(ctx context.Context, receiverID, invitationID string) (*domain.FriendInvitation, error) {
	inv, err := s.repo.FindInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.ReceiverID != receiverID {
		return nil, ErrNotReceiver
	}
	return inv, nil
}

// Unfriend removes the friendship between userID and friendID.
func (s *Service) Unfriend(ctx context.Context, userID, friendID string) error {
	if err := s.repo.RemoveFriendship(ctx, userID, friendID); err != nil {
		return err
	}

	s.logger.Info("Friendship removed", "userID", userID, "friendID", friendID)
	s.notifier.FriendsChanged(ctx, userID, friendID)
	return nil
}

// FriendsOf returns the friend projections of userID.
func (s *Service) FriendsOf(ctx context.Context, userID string) ([]presence.Friend, error) {
	users, err := s.repo.FriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u domain.User, _ int) presence.Friend {
		return presence.Friend{
			ID:        u.ID,
			Email:     u.Email,
			Username:  u.Username,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Picture:   u.Picture,
		}
	}), nil
}

// PendingInvitationsOf returns the invitations waiting for userID with a minimal sender projection.
func (s *Service) PendingInvitationsOf(ctx context.Context, userID string) ([]presence.PendingInvitation, error) {
	invitations, err := s.repo.PendingInvitations(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(invitations, func(inv domain.FriendInvitation, _ int) presence.PendingInvitation {
		return presence.PendingInvitation{
			ID: inv.ID,
			Sender: presence.InvitationSender{
				ID:        inv.Sender.ID,
				Username:  inv.Sender.Username,
				Email:     inv.Sender.Email,
				FirstName: inv.Sender.FirstName,
				LastName:  inv.Sender.LastName,
				Picture:   inv.Sender.Picture,
			},
			ReceiverID: inv.ReceiverID,
			CreatedAt:  inv.CreatedAt,
		}
	}), nil
}

// SendDirectMessage stores a message from authorID to receiverID.
func (s *Service) SendDirectMessage(ctx context.Context, authorID, receiverID, content string) (*presence.ChatMessage, error) {
	if authorID == receiverID {
		return nil, ErrSelfMessage
	}
	if _, err := s.repo.FindUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	conv, err := s.repo.FindOrCreateConversation(ctx, authorID, receiverID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Debug("Direct message stored", "conversationID", conv.ID, "authorID", authorID)
	s.notifier.DirectMessageSent(ctx, conv.ID, authorID, receiverID)
	return toChatMessage(*msg), nil
}

// DirectChatHistory returns the conversation between userID and receiverID,
// or nil when they never exchanged a message.
func (s *Service) DirectChatHistory(ctx context.Context, userID, receiverID string) (*presence.DirectChatHistory, error) {
	conv, err := s.repo.FindConversation(ctx, userID, receiverID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, nil
		}
		return nil, err
	}

	messages, err := s.repo.Messages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("chat history %s: %w", conv.ID, err)
	}

	return &presence.DirectChatHistory{
		ConversationID: conv.ID,
		Participants:   []string{conv.ParticipantA, conv.ParticipantB},
		Messages: lo.Map(messages, func(m domain.Message, _ int) presence.ChatMessage {
			return *toChatMessage(m)
		}),
	}, nil
}

func toChatMessage(m domain.Message) *presence.ChatMessage {
	return &presence.ChatMessage{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
