// ABOUTME: Conversation directory operations for the SQLite store
// ABOUTME: Handles pair-unique creation, activity ordering, unread counters, and cascade deletion

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateConversation inserts a new conversation and seeds zero unread
// counters for both participants. If a conversation for the same
// participant pair already exists, it returns ErrDuplicateConversation.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.ExpiresAt.IsZero() {
		conv.ExpiresAt = conv.CreatedAt.Add(DefaultRetentionWindow)
	}
	conv.ParticipantLo, conv.ParticipantHi = NormalizePair(conv.ParticipantLo, conv.ParticipantHi)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastMessageAt *string
	if conv.LastMessageAt != nil {
		v := formatTime(*conv.LastMessageAt)
		lastMessageAt = &v
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_lo, participant_hi, last_message, last_message_at, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, conv.ID, conv.ParticipantLo, conv.ParticipantHi, conv.LastMessage, lastMessageAt,
		formatTime(conv.CreatedAt), formatTime(conv.ExpiresAt))
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	for _, userID := range conv.Participants() {
		count := 0
		if conv.Unread != nil {
			count = conv.Unread[userID]
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_unread (conversation_id, user_id, count)
			VALUES (?, ?, ?)
		`, conv.ID, userID, count); err != nil {
			return fmt.Errorf("seeding unread counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing conversation: %w", err)
	}

	s.logger.Debug("created conversation",
		"id", conv.ID,
		"participants", conv.ParticipantLo+","+conv.ParticipantHi)
	return nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, participant_lo, participant_hi, last_message, last_message_at, created_at, expires_at
		FROM conversations
		WHERE id = ?
	`, id)
	return s.scanConversation(ctx, row)
}

// GetConversationByParticipants retrieves the conversation for an unordered
// participant pair. Returns ErrNotFound if no conversation exists.
func (s *SQLiteStore) GetConversationByParticipants(ctx context.Context, a, b string) (*Conversation, error) {
	lo, hi := NormalizePair(a, b)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, participant_lo, participant_hi, last_message, last_message_at, created_at, expires_at
		FROM conversations
		WHERE participant_lo = ? AND participant_hi = ?
	`, lo, hi)
	return s.scanConversation(ctx, row)
}

func (s *SQLiteStore) scanConversation(ctx context.Context, row *sql.Row) (*Conversation, error) {
	var conv Conversation
	var lastMessageAt sql.NullString
	var createdAt, expiresAt string

	err := row.Scan(
		&conv.ID,
		&conv.ParticipantLo,
		&conv.ParticipantHi,
		&conv.LastMessage,
		&lastMessageAt,
		&createdAt,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	conv.CreatedAt = parseTime(createdAt)
	conv.ExpiresAt = parseTime(expiresAt)
	if lastMessageAt.Valid {
		t := parseTime(lastMessageAt.String)
		conv.LastMessageAt = &t
	}

	if err := s.loadUnread(ctx, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// loadUnread populates the per-participant unread counters for a conversation.
func (s *SQLiteStore) loadUnread(ctx context.Context, conv *Conversation) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, count FROM conversation_unread WHERE conversation_id = ?
	`, conv.ID)
	if err != nil {
		return fmt.Errorf("loading unread counters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	conv.Unread = make(map[string]int, 2)
	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return err
		}
		conv.Unread[userID] = count
	}
	return rows.Err()
}

// ListConversationsForUser returns all conversations the user participates in,
// ordered by most recent activity first. Conversations with no messages yet
// sort by creation time.
func (s *SQLiteStore) ListConversationsForUser(ctx context.Context, userID string) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_lo, participant_hi, last_message, last_message_at, created_at, expires_at
		FROM conversations
		WHERE participant_lo = ? OR participant_hi = ?
		ORDER BY COALESCE(last_message_at, created_at) DESC
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conversations []*Conversation
	for rows.Next() {
		var conv Conversation
		var lastMessageAt sql.NullString
		var createdAt, expiresAt string
		if err := rows.Scan(
			&conv.ID,
			&conv.ParticipantLo,
			&conv.ParticipantHi,
			&conv.LastMessage,
			&lastMessageAt,
			&createdAt,
			&expiresAt,
		); err != nil {
			return nil, err
		}
		conv.CreatedAt = parseTime(createdAt)
		conv.ExpiresAt = parseTime(expiresAt)
		if lastMessageAt.Valid {
			t := parseTime(lastMessageAt.String)
			conv.LastMessageAt = &t
		}
		conversations = append(conversations, &conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, conv := range conversations {
		if err := s.loadUnread(ctx, conv); err != nil {
			return nil, err
		}
	}
	return conversations, nil
}

// IncrementUnread atomically adds one to the user's unread counter on the
// conversation. The upsert keeps the operation safe against a counter row
// missing after a partial clear.
func (s *SQLiteStore) IncrementUnread(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_unread (conversation_id, user_id, count)
		VALUES (?, ?, 1)
		ON CONFLICT (conversation_id, user_id) DO UPDATE SET count = count + 1
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("incrementing unread: %w", err)
	}
	return nil
}

// ResetUnread sets the user's unread counter on the conversation to zero.
func (s *SQLiteStore) ResetUnread(ctx context.Context, conversationID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversation_unread SET count = 0
		WHERE conversation_id = ? AND user_id = ?
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("resetting unread: %w", err)
	}
	return nil
}

// Touch updates the denormalized last-message summary used for listing.
func (s *SQLiteStore) Touch(ctx context.Context, conversationID, lastMessage string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_message = ?, last_message_at = ?
		WHERE id = ?
	`, lastMessage, formatTime(at), conversationID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	return nil
}

// DeleteConversation removes a conversation along with its messages and
// unread counters in a single transaction. Deleting an absent conversation
// is a no-op.
func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteConversationTx(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	s.logger.Debug("deleted conversation", "id", id)
	return nil
}

// deleteConversationTx cascades a conversation deletion inside an open
// transaction. Messages go first so a failure never strands orphans.
func deleteConversationTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_unread WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting unread counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// ClearConversation deletes all messages for a conversation but keeps the
// record, resetting its last-message summary and unread counters.
// Clearing an absent conversation is a no-op.
func (s *SQLiteStore) ClearConversation(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversation_unread SET count = 0 WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("resetting unread counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message = '', last_message_at = NULL WHERE id = ?
	`, id); err != nil {
		return fmt.Errorf("resetting summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}

	s.logger.Debug("cleared conversation", "id", id)
	return nil
}

// DeleteExpiredConversations removes every conversation whose expiry is at
// or before now, cascading to messages and unread counters. Each
// conversation is reclaimed in its own transaction so one failure doesn't
// block the rest. Returns the number of conversations deleted.
func (s *SQLiteStore) DeleteExpiredConversations(ctx context.Context, now time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM conversations WHERE expires_at <= ?
	`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("querying expired conversations: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	deleted := 0
	var firstErr error
	for _, id := range ids {
		if err := s.DeleteConversation(ctx, id); err != nil {
			s.logger.Error("failed to reclaim expired conversation", "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
