// ABOUTME: Tests for the retention sweeper
// ABOUTME: Covers expiry reclamation, cascade integrity, and the startup sweep

package sweeper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/ember/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func createConversation(t *testing.T, st store.Store, a, b string, age time.Duration) *store.Conversation {
	t.Helper()
	lo, hi := store.NormalizePair(a, b)
	createdAt := time.Now().Add(-age)
	conv := &store.Conversation{
		ParticipantLo: lo,
		ParticipantHi: hi,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(store.DefaultRetentionWindow),
	}
	require.NoError(t, st.CreateConversation(context.Background(), conv))
	return conv
}

func TestSweep_ReclaimsExpiredConversationAndMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Created 25h ago with the default 24h window: expired
	expired := createConversation(t, st, "alice", "bob", 25*time.Hour)
	require.NoError(t, st.SaveMessage(ctx, &store.Message{
		ConversationID: expired.ID,
		SenderID:       "alice",
		RecipientID:    "bob",
		Content:        "old news",
	}))

	fresh := createConversation(t, st, "alice", "carol", time.Hour)

	s := New(st, 0, nil)
	s.sweep(ctx)

	_, err := st.GetConversation(ctx, expired.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	messages, err := st.ListMessages(ctx, expired.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "no orphaned messages after sweep")

	_, err = st.GetConversation(ctx, fresh.ID)
	assert.NoError(t, err, "fresh conversation must survive")
}

func TestSweep_NothingExpiredIsANoOp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	conv := createConversation(t, st, "alice", "bob", time.Minute)

	s := New(st, 0, nil)
	s.sweep(ctx)

	_, err := st.GetConversation(ctx, conv.ID)
	assert.NoError(t, err)
}

func TestRun_SweepsImmediatelyOnStart(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := createConversation(t, st, "alice", "bob", 48*time.Hour)

	// Long interval: only the startup sweep can reclaim within the test window
	s := New(st, time.Hour, nil)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := st.GetConversation(context.Background(), expired.ID)
		return err == store.ErrNotFound
	}, 2*time.Second, 10*time.Millisecond, "startup sweep should reclaim the expired conversation")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}
