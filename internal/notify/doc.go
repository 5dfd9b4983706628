// Package notify provides the per-user live delivery channel.
//
// # Overview
//
// The Notifier is an in-memory fan-out keyed by user ID. Transports (SSE,
// WebSocket) subscribe on behalf of a connected user; the messaging service
// publishes events as messages are sent.
//
// # Delivery Semantics
//
// Delivery is best-effort and at-most-once per subscriber per event:
//
//   - No active subscription: the event is dropped, not queued. Durability
//     for missed messages comes from the message store, which clients query
//     on reconnect.
//   - Full subscriber channel: the event is dropped for that subscriber
//     only, so a slow consumer never stalls the sender.
//
// # Event Kinds
//
//   - message-delivered: carries the persisted message
//   - typing: transient signal carrying only the sender ID
package notify
