package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/effectiveone/facebook-clone-backend/domain/social"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides access to the social graph storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new social repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the social tables.
func (r *Repository) Migrate() error {
	if err := r.db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("failed to migrate social schema: %w", err)
	}
	return nil
}

// CreateUser saves a new user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByID retrieves a user by id.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindUserByEmail retrieves a user by email address.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// CreateInvitation saves a new friend invitation.
func (r *Repository) CreateInvitation(ctx context.Context, inv *domain.FriendInvitation) error {
	if err := r.db.WithContext(ctx).Omit("Sender").Create(inv).Error; err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// FindInvitation retrieves an invitation by id.
func (r *Repository) FindInvitation(ctx context.Context, id string) (*domain.FriendInvitation, error) {
	var inv domain.FriendInvitation
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return &inv, nil
}

// InvitationExists reports whether senderID already invited receiverID.
func (r *Repository) InvitationExists(ctx context.Context, senderID, receiverID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FriendInvitation{}).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check invitation: %w", err)
	}
	return count > 0, nil
}

// DeleteInvitation removes an invitation by id.
func (r *Repository) DeleteInvitation(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.FriendInvitation{}, "id = ?", id)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// PendingInvitations returns the invitations received by receiverID with their senders, oldest first.
func (r *Repository) PendingInvitations(ctx context.Context, receiverID string) ([]domain.FriendInvitation, error) {
	var invitations []domain.FriendInvitation
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("receiver_id = ?", receiverID).
		Order("created_at ASC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	return invitations, nil
}

// AcceptInvitation stores the friendship in both directions and deletes the invitation atomically.
func (r *Repository) AcceptInvitation(ctx context.Context, inv *domain.FriendInvitation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		pair := []domain.Friendship{
			{UserID: inv.SenderID, FriendID: inv.ReceiverID, CreatedAt: now},
			{UserID: inv.ReceiverID, FriendID: inv.SenderID, CreatedAt: now},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&pair).Error; err != nil {
			return fmt.Errorf("failed to create friendship: %w", err)
		}
		if err := tx.Delete(&domain.FriendInvitation{}, "id = ?", inv.ID).Error; err != nil {
			return fmt.Errorf("failed to delete invitation: %w", err)
		}
		return nil
	})
}

// AreFriends reports whether userID and otherID are friends.
func (r *Repository) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, otherID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check friendship: %w", err)
	}
	return count > 0, nil
}

// RemoveFriendship deletes both directions of a friendship.
func (r *Repository) RemoveFriendship(ctx context.Context, userID, friendID string) error {
	result := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", userID, friendID, friendID, userID).
		Delete(&domain.Friendship{})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFriends
	}
	return nil
}

// FriendsOf returns the friends of userID ordered by username.
func (r *Repository) FriendsOf(ctx context.Context, userID string) ([]domain.User, error) {
	var friends []domain.User
	err := r.db.WithContext(ctx).
		Joins("JOIN friendships ON friendships.friend_id = users.id").
		Where("friendships.user_id = ?", userID).
		Order("users.username ASC").
		Find(&friends).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	return friends, nil
}

// FindConversation retrieves the direct conversation between two users.
func (r *Repository) FindConversation(ctx context.Context, userID, otherID string) (*domain.Conversation, error) {
	a, b := orderedPair(userID, otherID)
	var conv domain.Conversation
	err := r.db.WithContext(ctx).
		First(&conv, "type = ? AND participant_a = ? AND participant_b = ?", domain.ConversationTypeDirect, a, b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conv, nil
}

// FindOrCreateConversation returns the direct conversation between two users, creating it if needed.
func (r *Repository) FindOrCreateConversation(ctx context.Context, userID, otherID string) (*domain.Conversation, error) {
	conv, err := r.FindConversation(ctx, userID, otherID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	a, b := orderedPair(userID, otherID)
	conv = &domain.Conversation{
		ID:           uuid.New().String(),
		Type:         domain.ConversationTypeDirect,
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// AddMessage saves a message.
func (r *Repository) AddMessage(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// Messages returns the messages of a conversation, oldest first.
func (r *Repository) Messages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func orderedPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}
