// ABOUTME: In-memory fan-out notifier for real-time message delivery
// ABOUTME: Publishes delivery and typing events to all subscribers of a user ID

package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/ember/internal/store"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber.
	subscriberBufferSize = 64
)

// Event kinds pushed to subscribed users.
const (
	KindMessageDelivered = "message-delivered"
	KindTyping           = "typing"
)

// Event is a single real-time notification for a user. Message is set for
// message-delivered events; typing events carry only the sender and are
// never persisted.
type Event struct {
	Kind     string         `json:"kind"`
	Message  *store.Message `json:"message,omitempty"`
	SenderID string         `json:"sender_id,omitempty"`
}

// Notifier provides in-memory pub/sub keyed by user ID. Subscribers register
// for a user and receive events as messages are sent to that user. Delivery
// is best-effort: users with no active subscription simply miss the event,
// and the store remains the durable source of truth for reconnecting
// clients.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *Event // userID -> subID -> ch
	logger      *slog.Logger
}

// NewNotifier creates a notifier. Pass nil logger for default.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscribers: make(map[string]map[string]chan *Event),
		logger:      logger.With("component", "notifier"),
	}
}

// Subscribe registers a subscriber for events addressed to the given user.
// Returns a channel that receives events and a subscription ID for later
// unsubscription. The subscription is automatically cleaned up when ctx is
// cancelled.
func (n *Notifier) Subscribe(ctx context.Context, userID string) (<-chan *Event, string) {
	subID := uuid.New().String()
	ch := make(chan *Event, subscriberBufferSize)

	n.mu.Lock()
	if _, ok := n.subscribers[userID]; !ok {
		n.subscribers[userID] = make(map[string]chan *Event)
	}
	n.subscribers[userID][subID] = ch
	n.mu.Unlock()

	n.logger.Debug("subscriber added", "user_id", userID, "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		n.Unsubscribe(userID, subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers of the given user.
// Non-blocking: events are dropped for subscribers whose channels are full,
// and silently discarded when the user has no active subscription.
func (n *Notifier) Publish(userID string, event *Event) {
	n.mu.RLock()
	subs, ok := n.subscribers[userID]
	if !ok || len(subs) == 0 {
		n.mu.RUnlock()
		return
	}

	// Copy subscriber channels under read lock to avoid holding lock during sends
	targets := make([]chan *Event, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	n.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
			// Sent
		default:
			// Subscriber channel full, drop the event for this subscriber
			n.logger.Debug("dropped event for slow subscriber",
				"user_id", userID,
				"kind", event.Kind)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (n *Notifier) Unsubscribe(userID, subID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	subs, ok := n.subscribers[userID]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty user entries
	if len(subs) == 0 {
		delete(n.subscribers, userID)
	}

	n.logger.Debug("subscriber removed", "user_id", userID, "sub_id", subID)
}

// Connected reports whether the user has at least one active subscription.
func (n *Notifier) Connected(userID string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers[userID]) > 0
}

// Close shuts down the notifier and closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for userID, subs := range n.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(n.subscribers, userID)
	}

	n.logger.Debug("notifier closed")
}
