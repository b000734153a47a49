// Package eventbus provides the in-process publish/subscribe channel used
// to observe every routing decision and daemon lifecycle transition.
//
// The bus keeps a bounded FIFO history ring and fans emitted events out to
// live subscribers. Emission never fails the caller: a subscriber that has
// closed its subscription is pruned, and a subscriber whose buffer is full
// simply misses that event. No I/O happens inside the bus lock.
package eventbus

import (
	"log"
	"sync"

	"github.com/arcanelabs/arcaneos/pkg/arcana"
)

// DefaultHistoryCapacity bounds the event history ring.
const DefaultHistoryCapacity = 100

// subscriberBuffer sizes each subscription's delivery channel.
const subscriberBuffer = 16

// Subscription is a live ordered stream of events from the moment of
// subscription forward. Callers must Close() the subscription when done.
type Subscription struct {
	events chan arcana.Event
	bus    *Bus
	once   sync.Once
	closed bool // guarded by bus.mu
}

// Events returns the channel of delivered events.
// The channel is closed after Close().
func (s *Subscription) Events() <-chan arcana.Event {
	return s.events
}

// Close stops the subscription and releases its slot on the bus.
// Safe to call multiple times. Implements io.Closer.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
	})
	return nil
}

// Bus is the arcane event dispatcher.
type Bus struct {
	mu          sync.Mutex
	history     []arcana.Event
	capacity    int
	subscribers map[*Subscription]struct{}
}

// New creates a bus with the given history capacity.
// A capacity of zero or less falls back to DefaultHistoryCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Bus{
		capacity:    capacity,
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Emit records the event in the history ring and fans it out to all live
// subscribers in emission order. Emit never fails and never blocks on a
// slow subscriber.
func (b *Bus) Emit(event arcana.Event) {
	b.mu.Lock()

	b.history = append(b.history, event)
	if len(b.history) > b.capacity {
		b.history = b.history[1:]
	}

	for sub := range b.subscribers {
		if sub.closed {
			delete(b.subscribers, sub)
			continue
		}
		select {
		case sub.events <- event:
		default:
			// Subscriber buffer full: best-effort delivery, drop.
		}
	}
	b.mu.Unlock()

	log.Printf("[EventBus] %s daemon=%s success=%t", event.Kind, event.Daemon, event.Success)
}

// Subscribe registers a new live subscriber.
// Events emitted before Subscribe are not replayed; use Recent for history.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		events: make(chan arcana.Event, subscriberBuffer),
		bus:    b,
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// unsubscribe removes the subscription and closes its channel.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	sub.closed = true
	delete(b.subscribers, sub)
	b.mu.Unlock()
	close(sub.events)
}

// Recent returns up to n events from the history ring, oldest first
// (most-recent-last). n of zero or less returns the full retained history.
func (b *Bus) Recent(n int) []arcana.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	out := make([]arcana.Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
