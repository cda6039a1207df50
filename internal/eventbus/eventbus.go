// Package eventbus fans controller events out to in-process subscribers such
// as the metrics collector. Delivery never blocks the publisher: a subscriber
// whose buffer is full misses the event and the drop is counted.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per subscriber channel capacity.
const DefaultBuffer = 16

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// Filter selects the events a subscriber receives.
type Filter func(Event) bool

// Is accepts events of type T.
func Is[T any](ev Event) bool {
	_, ok := ev.(T)
	return ok
}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	// Subscribe returns a channel receiving the events accepted by any of
	// filters, or every event when none is given.
	Subscribe(filters ...Filter) <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

type subscriber struct {
	ch      chan Event
	filters []Filter
}

func (s subscriber) accepts(ev Event) bool {
	if len(s.filters) == 0 {
		return true
	}
	for _, f := range s.filters {
		if f(ev) {
			return true
		}
	}
	return false
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus struct {
	mu      sync.RWMutex
	subs    []subscriber
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// Option configures a Bus.
type Option func(*Bus)

// WithBuffer sets the channel capacity of each subscriber.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// New creates a new Bus.
func New(opts ...Option) *Bus {
	b := &Bus{buffer: DefaultBuffer}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish sends the event to every interested subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if !s.accepts(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries lost to full subscribers.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Subscribe registers a new subscriber and returns its channel. Subscribing
// to a closed bus returns a closed channel.
func (b *Bus) Subscribe(filters ...Filter) <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, subscriber{ch: ch, filters: filters})
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Close closes all subscriber channels. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}
