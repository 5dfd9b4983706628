// ABOUTME: Thread-safe TTL limiter for rate-limiting transient signals.
// ABOUTME: Suppresses repeated typing broadcasts from the same sender within a window.

package throttle

import (
	"container/list"
	"sync"
	"time"
)

// limiterEntry stores the timestamp and list element for a tracked key.
type limiterEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Limiter is a thread-safe, TTL-based, size-limited gate for transient
// signals. A key is allowed through at most once per TTL window. Uses a
// doubly-linked list to maintain insertion order for O(1) eviction, and
// prunes expired entries inline so no background goroutine is needed.
type Limiter struct {
	mu      sync.Mutex
	seen    map[string]*limiterEntry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
}

// New creates a limiter with the specified TTL and maximum tracked keys.
func New(ttl time.Duration, maxSize int) *Limiter {
	return &Limiter{
		seen:    make(map[string]*limiterEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Allow reports whether the key may pass. The first call for a key within a
// TTL window returns true and starts the window; subsequent calls return
// false until the window elapses. Check and mark are atomic.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.pruneLocked(now)

	if entry, ok := l.seen[key]; ok && now.Sub(entry.timestamp) < l.ttl {
		return false
	}

	l.markLocked(key, now)
	return true
}

// markLocked records the key. Must be called with mu held.
func (l *Limiter) markLocked(key string, now time.Time) {
	if entry, exists := l.seen[key]; exists {
		entry.timestamp = now
		l.order.MoveToBack(entry.element)
		return
	}

	if len(l.seen) >= l.maxSize {
		l.evictOldestLocked()
	}

	elem := l.order.PushBack(key)
	l.seen[key] = &limiterEntry{
		timestamp: now,
		element:   elem,
	}
}

// evictOldestLocked removes the oldest entry. Must be called with mu held.
// O(1) operation using the linked list.
func (l *Limiter) evictOldestLocked() {
	front := l.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	l.order.Remove(front)
	delete(l.seen, key)
}

// pruneLocked drops expired entries from the front of the order list.
// Entries expire in insertion-refresh order, so pruning stops at the first
// live one. Must be called with mu held.
func (l *Limiter) pruneLocked(now time.Time) {
	for {
		front := l.order.Front()
		if front == nil {
			return
		}
		key, _ := front.Value.(string)
		entry := l.seen[key]
		if entry == nil {
			l.order.Remove(front)
			continue
		}
		if now.Sub(entry.timestamp) < l.ttl {
			return
		}
		l.order.Remove(front)
		delete(l.seen, key)
	}
}

// Len returns the number of currently tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
