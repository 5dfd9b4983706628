// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers pair uniqueness, unread counters, message ordering, cascades, and expiry

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	return s
}

func newTestConversation(a, b string) *Conversation {
	lo, hi := NormalizePair(a, b)
	now := time.Now()
	return &Conversation{
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     now,
		ExpiresAt:     now.Add(DefaultRetentionWindow),
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNormalizePair(t *testing.T) {
	lo, hi := NormalizePair("bob", "alice")
	if lo != "alice" || hi != "bob" {
		t.Errorf("NormalizePair(bob, alice) = (%q, %q), want (alice, bob)", lo, hi)
	}

	lo, hi = NormalizePair("alice", "bob")
	if lo != "alice" || hi != "bob" {
		t.Errorf("NormalizePair(alice, bob) = (%q, %q), want (alice, bob)", lo, hi)
	}
}

func TestCreateAndGetConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")

	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("CreateConversation did not assign an ID")
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}

	if got.ParticipantLo != "alice" || got.ParticipantHi != "bob" {
		t.Errorf("participants mismatch: got (%q, %q)", got.ParticipantLo, got.ParticipantHi)
	}
	// RFC3339Nano round-trip keeps nanosecond precision
	if !got.CreatedAt.Equal(conv.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", got.CreatedAt, conv.CreatedAt)
	}
	if got.Unread["alice"] != 0 || got.Unread["bob"] != 0 {
		t.Errorf("unread counters not seeded to zero: %v", got.Unread)
	}
}

func TestCreateConversation_DuplicatePair(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.CreateConversation(ctx, newTestConversation("alice", "bob")); err != nil {
		t.Fatalf("first CreateConversation failed: %v", err)
	}

	// Same pair in reverse order must collide
	err := s.CreateConversation(ctx, newTestConversation("bob", "alice"))
	if err != ErrDuplicateConversation {
		t.Errorf("expected ErrDuplicateConversation, got %v", err)
	}
}

func TestGetConversationByParticipants_OrderIndependent(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	got, err := s.GetConversationByParticipants(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("GetConversationByParticipants failed: %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("ID mismatch: got %q, want %q", got.ID, conv.ID)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if _, err := s.GetConversation(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetConversationByParticipants(ctx, "x", "y"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListConversationsForUser_OrderedByActivity(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	// Three conversations for alice, touched at staggered times
	peers := []string{"bob", "carol", "dave"}
	ids := make(map[string]string)
	for i, peer := range peers {
		conv := newTestConversation("alice", peer)
		conv.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		conv.ExpiresAt = conv.CreatedAt.Add(DefaultRetentionWindow)
		if err := s.CreateConversation(ctx, conv); err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
		ids[peer] = conv.ID
	}

	// carol's conversation gets the most recent activity
	if err := s.Touch(ctx, ids["carol"], "hey", base.Add(30*time.Minute)); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if err := s.Touch(ctx, ids["bob"], "yo", base.Add(10*time.Minute)); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	list, err := s.ListConversationsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListConversationsForUser failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(list))
	}

	// carol (touched latest), then bob (touched), then dave (creation time only)
	wantOrder := []string{ids["carol"], ids["bob"], ids["dave"]}
	for i, want := range wantOrder {
		if list[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestIncrementAndResetUnread(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementUnread(ctx, conv.ID, "bob"); err != nil {
			t.Fatalf("IncrementUnread failed: %v", err)
		}
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Unread["bob"] != 3 {
		t.Errorf("unread[bob] = %d, want 3", got.Unread["bob"])
	}
	if got.Unread["alice"] != 0 {
		t.Errorf("unread[alice] = %d, want 0", got.Unread["alice"])
	}

	if err := s.ResetUnread(ctx, conv.ID, "bob"); err != nil {
		t.Fatalf("ResetUnread failed: %v", err)
	}
	got, err = s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.Unread["bob"] != 0 {
		t.Errorf("unread[bob] after reset = %d, want 0", got.Unread["bob"])
	}
}

func TestSaveAndListMessages_ChronologicalOrder(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		msg := &Message{
			ConversationID: conv.ID,
			SenderID:       "alice",
			RecipientID:    "bob",
			Content:        fmt.Sprintf("message %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	messages, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		want := fmt.Sprintf("message %d", i)
		if msg.Content != want {
			t.Errorf("position %d: got %q, want %q", i, msg.Content, want)
		}
	}
}

func TestListMessages_InsertionOrderTieBreak(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	// All messages share one timestamp; listing must preserve send order
	at := time.Now()
	for i := 0; i < 4; i++ {
		msg := &Message{
			ConversationID: conv.ID,
			SenderID:       "alice",
			RecipientID:    "bob",
			Content:        fmt.Sprintf("tied %d", i),
			CreatedAt:      at,
		}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	messages, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	for i, msg := range messages {
		want := fmt.Sprintf("tied %d", i)
		if msg.Content != want {
			t.Errorf("position %d: got %q, want %q", i, msg.Content, want)
		}
	}
}

func TestSaveMessage_AttachmentsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &Message{
		ConversationID: conv.ID,
		SenderID:       "alice",
		RecipientID:    "bob",
		Content:        "see attached",
		Attachments:    []string{"/uploads/a.png", "/uploads/b.pdf"},
	}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if len(got.Attachments) != 2 || got.Attachments[0] != "/uploads/a.png" {
		t.Errorf("attachments mismatch: %v", got.Attachments)
	}
	if got.Read {
		t.Error("new message should not be read")
	}
}

func TestMarkMessageRead(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &Message{ConversationID: conv.ID, SenderID: "alice", RecipientID: "bob", Content: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	if err := s.MarkMessageRead(ctx, msg.ID); err != nil {
		t.Fatalf("MarkMessageRead failed: %v", err)
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !got.Read {
		t.Error("message should be read")
	}

	if err := s.MarkMessageRead(ctx, "nonexistent"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUnreadMessages(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	convAB := newTestConversation("alice", "bob")
	convCB := newTestConversation("carol", "bob")
	for _, conv := range []*Conversation{convAB, convCB} {
		if err := s.CreateConversation(ctx, conv); err != nil {
			t.Fatalf("CreateConversation failed: %v", err)
		}
	}

	// Two unread for bob across conversations, one already read, one outbound
	toSave := []*Message{
		{ConversationID: convAB.ID, SenderID: "alice", RecipientID: "bob", Content: "one"},
		{ConversationID: convCB.ID, SenderID: "carol", RecipientID: "bob", Content: "two"},
		{ConversationID: convAB.ID, SenderID: "alice", RecipientID: "bob", Content: "seen", Read: true},
		{ConversationID: convAB.ID, SenderID: "bob", RecipientID: "alice", Content: "out"},
	}
	for _, msg := range toSave {
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	unread, err := s.ListUnreadMessages(ctx, "bob")
	if err != nil {
		t.Fatalf("ListUnreadMessages failed: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread messages, got %d", len(unread))
	}
	for _, msg := range unread {
		if msg.RecipientID != "bob" || msg.Read {
			t.Errorf("unexpected message in unread inbox: %+v", msg)
		}
	}
}

func TestDeleteConversation_CascadesAndIdempotent(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		msg := &Message{ConversationID: conv.ID, SenderID: "alice", RecipientID: "bob", Content: "x"}
		if err := s.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation failed: %v", err)
	}

	if _, err := s.GetConversation(ctx, conv.ID); err != ErrNotFound {
		t.Errorf("conversation should be gone, got %v", err)
	}
	messages, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no orphaned messages, got %d", len(messages))
	}

	// Second delete is a no-op success
	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Errorf("second DeleteConversation should be a no-op, got %v", err)
	}
}

func TestClearConversation(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	msg := &Message{ConversationID: conv.ID, SenderID: "alice", RecipientID: "bob", Content: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}
	if err := s.Touch(ctx, conv.ID, "hi", msg.CreatedAt); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if err := s.IncrementUnread(ctx, conv.ID, "bob"); err != nil {
		t.Fatalf("IncrementUnread failed: %v", err)
	}

	if err := s.ClearConversation(ctx, conv.ID); err != nil {
		t.Fatalf("ClearConversation failed: %v", err)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("conversation record should survive a clear: %v", err)
	}
	if got.LastMessage != "" || got.LastMessageAt != nil {
		t.Errorf("summary not reset: %q %v", got.LastMessage, got.LastMessageAt)
	}
	if got.Unread["bob"] != 0 {
		t.Errorf("unread[bob] = %d, want 0", got.Unread["bob"])
	}

	messages, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no messages after clear, got %d", len(messages))
	}
}

func TestDeleteExpiredConversations(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	now := time.Now()

	// Expired: created 25h ago with the default 24h window
	expired := newTestConversation("alice", "bob")
	expired.CreatedAt = now.Add(-25 * time.Hour)
	expired.ExpiresAt = expired.CreatedAt.Add(DefaultRetentionWindow)
	if err := s.CreateConversation(ctx, expired); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg := &Message{ConversationID: expired.ID, SenderID: "alice", RecipientID: "bob", Content: "old"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	// Live: created just now
	live := newTestConversation("alice", "carol")
	if err := s.CreateConversation(ctx, live); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	deleted, err := s.DeleteExpiredConversations(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredConversations failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := s.GetConversation(ctx, expired.ID); err != ErrNotFound {
		t.Errorf("expired conversation should be gone, got %v", err)
	}
	messages, err := s.ListMessages(ctx, expired.ID)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected no orphaned messages, got %d", len(messages))
	}

	if _, err := s.GetConversation(ctx, live.ID); err != nil {
		t.Errorf("live conversation should survive the sweep: %v", err)
	}
}

func TestDeleteMessage_Idempotent(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx := context.Background()
	conv := newTestConversation("alice", "bob")
	if err := s.CreateConversation(ctx, conv); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	msg := &Message{ConversationID: conv.ID, SenderID: "alice", RecipientID: "bob", Content: "hi"}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	if err := s.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("DeleteMessage failed: %v", err)
	}
	if _, err := s.GetMessage(ctx, msg.ID); err != ErrNotFound {
		t.Errorf("message should be gone, got %v", err)
	}
	if err := s.DeleteMessage(ctx, msg.ID); err != nil {
		t.Errorf("second DeleteMessage should be a no-op, got %v", err)
	}
}
