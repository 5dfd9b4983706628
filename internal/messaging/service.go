// ABOUTME: Messaging service orchestrating conversation resolution, persistence, and live delivery
// ABOUTME: All direct-message operations flow through here atop the store and notifier

package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/ember/internal/identity"
	"github.com/2389/ember/internal/notify"
	"github.com/2389/ember/internal/store"
	"github.com/2389/ember/internal/throttle"
)

// ErrEmptyContent is returned when a send request carries no message body
var ErrEmptyContent = errors.New("message content is empty")

// ErrInvalidParticipants is returned for a malformed participant pair
// (missing IDs, or sender and recipient are the same user)
var ErrInvalidParticipants = errors.New("invalid participant pair")

// ErrConflict is returned when conversation creation keeps colliding past
// the retry bound
var ErrConflict = errors.New("conversation creation conflict")

// maxCreateAttempts bounds the find-or-create retry loop so contention
// never spins forever.
const maxCreateAttempts = 3

// Typing indicators from the same sender to the same recipient are
// collapsed to one broadcast per window.
const (
	typingWindow   = 3 * time.Second
	typingMaxPairs = 4096
)

// Service is the orchestration layer for direct messaging. It resolves
// conversations, persists messages, keeps unread counters in step, and
// pushes best-effort live notifications.
type Service struct {
	store      store.Store
	directory  identity.Directory
	notifier   *notify.Notifier
	retention  time.Duration
	typingGate *throttle.Limiter
	logger     *slog.Logger
}

// NewService creates a messaging service. Retention controls how far in the
// future new conversations expire; zero means store.DefaultRetentionWindow.
// Pass nil logger for default.
func NewService(st store.Store, directory identity.Directory, notifier *notify.Notifier, retention time.Duration, logger *slog.Logger) *Service {
	if retention <= 0 {
		retention = store.DefaultRetentionWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		directory:  directory,
		notifier:   notifier,
		retention:  retention,
		typingGate: throttle.New(typingWindow, typingMaxPairs),
		logger:     logger.With("component", "messaging"),
	}
}

// SendRequest contains everything needed to send a direct message.
// ConversationID is optional; when empty the conversation is resolved from
// the participant pair.
type SendRequest struct {
	SenderID       string
	RecipientID    string
	Content        string
	Attachments    []string
	ConversationID string
}

// SendMessage persists a message, updates the conversation aggregate, and
// notifies the recipient if connected. Returns the persisted message.
func (s *Service) SendMessage(ctx context.Context, req *SendRequest) (*store.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if req.SenderID == "" || req.RecipientID == "" || req.SenderID == req.RecipientID {
		return nil, ErrInvalidParticipants
	}

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       req.SenderID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
		Attachments:    req.Attachments,
		CreatedAt:      now,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("saving message: %w", err)
	}

	if err := s.store.Touch(ctx, conv.ID, req.Content, now); err != nil {
		return nil, fmt.Errorf("updating conversation summary: %w", err)
	}
	if err := s.store.IncrementUnread(ctx, conv.ID, req.RecipientID); err != nil {
		return nil, fmt.Errorf("incrementing unread: %w", err)
	}

	s.logger.Debug("message sent",
		"message_id", msg.ID,
		"conversation_id", conv.ID,
		"sender", req.SenderID,
		"recipient", req.RecipientID)

	// Live delivery is best-effort; a disconnected recipient catches up
	// from the store.
	s.notifier.Publish(req.RecipientID, &notify.Event{
		Kind:     notify.KindMessageDelivered,
		Message:  msg,
		SenderID: req.SenderID,
	})

	return msg, nil
}

// resolveConversation finds the conversation for the request, creating one
// on first contact. Concurrent first-contact sends race on the pair's
// UNIQUE index; the loser re-looks-up the winner's record. Retries are
// bounded so persistent contention surfaces as ErrConflict.
func (s *Service) resolveConversation(ctx context.Context, req *SendRequest) (*store.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("looking up conversation %s: %w", req.ConversationID, err)
		}
		return conv, nil
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		conv, err := s.store.GetConversationByParticipants(ctx, req.SenderID, req.RecipientID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("looking up conversation by participants: %w", err)
		}

		now := time.Now()
		lo, hi := store.NormalizePair(req.SenderID, req.RecipientID)
		conv = &store.Conversation{
			ID:            uuid.New().String(),
			ParticipantLo: lo,
			ParticipantHi: hi,
			CreatedAt:     now,
			ExpiresAt:     now.Add(s.retention),
		}
		err = s.store.CreateConversation(ctx, conv)
		if err == nil {
			s.logger.Debug("conversation created",
				"conversation_id", conv.ID,
				"participants", lo+","+hi)
			return conv, nil
		}
		if errors.Is(err, store.ErrDuplicateConversation) {
			// Lost the race; loop back and reuse the winner's record
			s.logger.Debug("conversation creation hit duplicate, retrying lookup",
				"participants", lo+","+hi,
				"attempt", attempt+1)
			continue
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	return nil, ErrConflict
}

// ConversationView is a conversation enriched with participant profile
// summaries for listing.
type ConversationView struct {
	Conversation *store.Conversation
	Profiles     []*identity.UserSummary
}

// ListConversations returns the user's conversations, most recent activity
// first, each enriched with both participants' profile summaries. An
// identity lookup failure degrades to a bare ID summary rather than
// failing the listing.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]*ConversationView, error) {
	conversations, err := s.store.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	views := make([]*ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		view := &ConversationView{Conversation: conv}
		for _, participant := range conv.Participants() {
			summary, err := s.directory.GetUserSummary(ctx, participant)
			if err != nil {
				s.logger.Warn("identity lookup failed",
					"user_id", participant,
					"error", err)
				summary = &identity.UserSummary{ID: participant}
			}
			view.Profiles = append(view.Profiles, summary)
		}
		views = append(views, view)
	}
	return views, nil
}

// ListMessages returns all messages in a conversation, chronological order.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	return s.store.ListMessages(ctx, conversationID)
}

// MarkMessageRead flags a message as read and resets the recipient's unread
// counter on its conversation. Returns the updated message, or nil without
// error when the message no longer exists (it may have expired between the
// client's view and the read call).
func (s *Service) MarkMessageRead(ctx context.Context, messageID string) (*store.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up message: %w", err)
	}

	if err := s.store.MarkMessageRead(ctx, messageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Swept between lookup and update
			return nil, nil
		}
		return nil, fmt.Errorf("marking message read: %w", err)
	}
	if err := s.store.ResetUnread(ctx, msg.ConversationID, msg.RecipientID); err != nil {
		return nil, fmt.Errorf("resetting unread: %w", err)
	}

	msg.Read = true
	return msg, nil
}

// UnreadReport is the global unread inbox for a user.
type UnreadReport struct {
	Count    int
	Messages []*store.Message
}

// GetUnread returns every unread message addressed to the user across all
// conversations.
func (s *Service) GetUnread(ctx context.Context, userID string) (*UnreadReport, error) {
	messages, err := s.store.ListUnreadMessages(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}
	return &UnreadReport{Count: len(messages), Messages: messages}, nil
}

// DeleteMessage removes a single message. Deleting an absent message is a
// no-op success.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	return s.store.DeleteMessage(ctx, messageID)
}

// DeleteConversation removes a conversation and all its messages.
// Idempotent.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string) error {
	return s.store.DeleteConversation(ctx, conversationID)
}

// ClearConversation removes all messages from a conversation while keeping
// the record, resetting its summary and unread counters. Idempotent.
func (s *Service) ClearConversation(ctx context.Context, conversationID string) error {
	return s.store.ClearConversation(ctx, conversationID)
}

// Typing pushes a transient typing indicator to the recipient. Nothing is
// persisted, delivery is best-effort, and repeated signals from the same
// pair inside the throttle window are collapsed.
func (s *Service) Typing(senderID, recipientID string) {
	if senderID == "" || recipientID == "" {
		return
	}
	if !s.typingGate.Allow(senderID + "\x00" + recipientID) {
		return
	}
	s.notifier.Publish(recipientID, &notify.Event{
		Kind:     notify.KindTyping,
		SenderID: senderID,
	})
}
