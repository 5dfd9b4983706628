// Package messaging provides the direct-messaging orchestration layer.
//
// # Overview
//
// The Service sits between the transport handlers and the store, providing
// the conversation-level operations: send, list, mark-read, unread inbox,
// delete, and clear.
//
// # Conversation Resolution
//
// A send without an explicit conversation ID resolves the conversation for
// the (sender, recipient) pair:
//
//	1. Look up the existing conversation by normalized participant pair
//	2. If not found, create one with a fresh expiry (created + retention)
//	3. On a duplicate-pair collision, re-look-up and reuse the winner
//
// The create-then-retry loop is bounded (3 attempts); persistent contention
// surfaces as ErrConflict instead of spinning.
//
// # Send Flow
//
// SendMessage validates content and participants, resolves the
// conversation, persists the message, updates the denormalized last-message
// summary, increments the recipient's unread counter, and publishes a
// message-delivered event to the recipient's live channel. Publishing is
// best-effort: delivery failures never fail the send.
//
// # Soft Operations
//
// MarkMessageRead on an absent message returns (nil, nil) rather than an
// error, since a message may expire between the client's view and the read
// call. Deletes and clears of absent IDs are no-op successes.
package messaging
