// Package store provides persistent storage for ember using SQLite.
//
// # Architecture
//
// The Store interface covers both halves of persistence:
//
//   - Conversation directory: one record per unordered participant pair,
//     carrying the denormalized last-message summary and per-participant
//     unread counters
//   - Message store: append-only message records owned by their conversation
//
// SQLiteStore implements the interface in a single struct. The participant
// pair is normalized (lo < hi) before every lookup or insert, and a UNIQUE
// index on (participant_lo, participant_hi) enforces the at-most-one-
// conversation-per-pair invariant at the storage layer. Callers that hit
// ErrDuplicateConversation are expected to re-resolve by lookup.
//
// # Data Models
//
//   - Conversation: participant pair, last-message summary, unread counters,
//     creation and expiry timestamps
//   - Message: sender, recipient, content, attachment references, read flag
//
// # Ordering
//
// ListMessages orders by (created_at, rowid) ascending. The rowid tie-break
// preserves insertion order for sends that land on the same timestamp.
// ListConversationsForUser orders by most recent activity descending.
//
// # Expiry
//
// Conversations carry a first-class expires_at column set at creation and
// never extended. DeleteExpiredConversations performs the query-and-delete
// pass regardless of any engine-side expiry support; each conversation is
// cascaded (messages, counters, record) in one transaction.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateConversation: Participant pair already has a conversation
//
// Deletes are idempotent: removing an absent message or conversation is a
// no-op success.
package store
