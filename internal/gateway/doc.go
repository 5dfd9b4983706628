// ABOUTME: Package documentation for the gateway package
// ABOUTME: Describes the HTTP surface and live delivery endpoints

// Package gateway exposes the messaging service over HTTP.
//
// # Endpoints
//
// The gateway registers a small JSON API plus two live-delivery endpoints:
//
//   - GET  /health                              liveness probe
//   - GET  /health/ready                        readiness probe
//   - GET  /api/conversations?user_id=X         list enriched conversations
//   - GET  /api/conversations/{id}/messages     chronological message history
//   - POST /api/conversations/{id}/clear        erase history, keep the record
//   - DELETE /api/conversations/{id}            remove the conversation
//   - POST /api/messages                        send a message
//   - POST /api/messages/{id}/read              mark read, reset unread counter
//   - DELETE /api/messages/{id}                 remove a single message
//   - GET  /api/unread?user_id=X                global unread inbox
//   - POST /api/typing                          transient typing signal
//   - GET  /api/stream?user_id=X                Server-Sent Events stream
//   - GET  /ws?user_id=X                        WebSocket stream
//
// # Live Delivery
//
// Both /api/stream and /ws subscribe the caller to the notifier and relay
// events verbatim. Delivery is best-effort: a slow or absent consumer never
// blocks a send, and clients are expected to reconcile through the history
// and unread endpoints after reconnecting.
//
// # Shutdown
//
// Run blocks until the context is cancelled, then closes the notifier (which
// terminates all streams) and drains in-flight requests with a five second
// grace period.
package gateway
