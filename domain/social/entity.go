package social

import "time"

// ConversationTypeDirect marks a two-party conversation.
const ConversationTypeDirect = "DIRECT"

// User represents a user profile in the social graph.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null;type:text" json:"email"`
	Username  string    `gorm:"not null;type:text" json:"username"`
	FirstName string    `gorm:"type:text" json:"firstName"`
	LastName  string    `gorm:"type:text" json:"lastName"`
	Picture   string    `gorm:"type:text" json:"picture"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Friendship is one direction of a friend relation. Both directions are stored.
type Friendship struct {
	UserID    string `gorm:"primaryKey;type:text"`
	FriendID  string `gorm:"primaryKey;type:text"`
	CreatedAt time.Time
}

// TableName returns the table name for the Friendship entity.
func (Friendship) TableName() string {
	return "friendships"
}

// FriendInvitation is a pending friend request from sender to receiver.
type FriendInvitation struct {
	ID         string `gorm:"primaryKey;type:text"`
	SenderID   string `gorm:"index;not null;type:text"`
	ReceiverID string `gorm:"index;not null;type:text"`
	Sender     User   `gorm:"foreignKey:SenderID"`
	CreatedAt  time.Time
}

// TableName returns the table name for the FriendInvitation entity.
func (FriendInvitation) TableName() string {
	return "friend_invitations"
}

// Conversation groups messages between participants.
// ParticipantA is always the lexically smaller id.
type Conversation struct {
	ID           string `gorm:"primaryKey;type:text"`
	Type         string `gorm:"not null;type:text"`
	ParticipantA string `gorm:"uniqueIndex:idx_conversation_pair;not null;type:text"`
	ParticipantB string `gorm:"uniqueIndex:idx_conversation_pair;not null;type:text"`
	CreatedAt    time.Time
}

// TableName returns the table name for the Conversation entity.
func (Conversation) TableName() string {
	return "conversations"
}

// Message is a single message inside a conversation.
type Message struct {
	ID             string `gorm:"primaryKey;type:text"`
	ConversationID string `gorm:"index;not null;type:text"`
	AuthorID       string `gorm:"not null;type:text"`
	Content        string `gorm:"not null;type:text"`
	CreatedAt      time.Time
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// Models lists every entity managed by the social store, in migration order.
func Models() []any {
	return []any{&User{}, &Friendship{}, &FriendInvitation{}, &Conversation{}, &Message{}}
}
