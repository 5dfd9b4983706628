// ABOUTME: Message persistence operations for the SQLite store
// ABOUTME: Handles append, chronological listing, read flags, and the global unread inbox

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveMessage appends a message to its conversation.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	var attachmentsJSON *string
	if len(msg.Attachments) > 0 {
		b, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("marshaling attachments: %w", err)
		}
		str := string(b)
		attachmentsJSON = &str
	}

	read := 0
	if msg.Read {
		read = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, recipient_id, content, attachments, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Content,
		attachmentsJSON, read, formatTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "id", msg.ID, "conversation_id", msg.ConversationID)
	return nil
}

// GetMessage retrieves a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, recipient_id, content, attachments, read, created_at
		FROM messages
		WHERE id = ?
	`, id)

	msg, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	return msg, nil
}

// ListMessages returns all messages for a conversation in chronological
// order. Ties on created_at are broken by insertion order (rowid), keeping
// racing sends stable.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, recipient_id, content, attachments, read, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

// MarkMessageRead sets the read flag on a message.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read = 1 WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage removes a single message by ID. Deleting an absent message
// is a no-op.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// ListUnreadMessages returns every unread message addressed to the user,
// across all conversations, oldest first.
func (s *SQLiteStore) ListUnreadMessages(ctx context.Context, userID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, recipient_id, content, attachments, read, created_at
		FROM messages
		WHERE recipient_id = ? AND read = 0
		ORDER BY created_at ASC, rowid ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

func collectMessages(rows *sql.Rows) ([]*Message, error) {
	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(scan func(dest ...any) error) (*Message, error) {
	var msg Message
	var attachmentsJSON sql.NullString
	var read int
	var createdAt string

	if err := scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&attachmentsJSON,
		&read,
		&createdAt,
	); err != nil {
		return nil, err
	}

	msg.Read = read != 0
	msg.CreatedAt = parseTime(createdAt)
	if attachmentsJSON.Valid {
		if err := json.Unmarshal([]byte(attachmentsJSON.String), &msg.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshaling attachments: %w", err)
		}
	}
	return &msg, nil
}
