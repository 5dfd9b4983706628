// ABOUTME: Store interface and data types for ember persistence
// ABOUTME: Defines Conversation, Message structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when trying to create a conversation
// for a participant pair that already has one
var ErrDuplicateConversation = errors.New("conversation already exists")

// DefaultRetentionWindow is how long a conversation lives before the
// sweeper reclaims it and its messages.
const DefaultRetentionWindow = 24 * time.Hour

// Conversation represents a direct conversation between exactly two users.
// The participant pair is stored normalized (lo < hi) so that the pair is
// order-independent and the UNIQUE index guarantees at most one conversation
// per pair.
type Conversation struct {
	ID            string
	ParticipantLo string
	ParticipantHi string
	LastMessage   string
	LastMessageAt *time.Time
	Unread        map[string]int // per-participant unread counters
	CreatedAt     time.Time
	ExpiresAt     time.Time // CreatedAt + retention window, never extended
}

// Participants returns both participant IDs in normalized order.
func (c *Conversation) Participants() [2]string {
	return [2]string{c.ParticipantLo, c.ParticipantHi}
}

// Peer returns the other participant for the given user ID.
func (c *Conversation) Peer(userID string) string {
	if c.ParticipantLo == userID {
		return c.ParticipantHi
	}
	return c.ParticipantLo
}

// NormalizePair returns the two user IDs in lexicographic order so that
// (a, b) and (b, a) identify the same conversation.
func NormalizePair(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Message represents a single message within a conversation.
// Immutable once created except for the Read flag. JSON tags match the
// wire shape pushed over the live delivery channels.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Content        string    `json:"content"`
	Attachments    []string  `json:"attachments,omitempty"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store defines the interface for conversation and message persistence
type Store interface {
	// Conversation directory
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversationByParticipants(ctx context.Context, a, b string) (*Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]*Conversation, error)
	IncrementUnread(ctx context.Context, conversationID, userID string) error
	ResetUnread(ctx context.Context, conversationID, userID string) error
	Touch(ctx context.Context, conversationID, lastMessage string, at time.Time) error
	DeleteConversation(ctx context.Context, id string) error
	ClearConversation(ctx context.Context, id string) error

	// Messages
	SaveMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)
	MarkMessageRead(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	ListUnreadMessages(ctx context.Context, userID string) ([]*Message, error)

	// Retention
	DeleteExpiredConversations(ctx context.Context, now time.Time) (int, error)

	Close() error
}
