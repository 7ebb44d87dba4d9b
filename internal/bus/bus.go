package bus

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bus fans events out to subscribers by kind prefix. Publishing never
// blocks: when a subscriber's buffer is full the event is dropped for it and
// counted, so events are change hints, not a log.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscriber
	dropped atomic.Uint64
}

type subscriber struct {
	prefix string
	ch     chan Event
}

func New() *Bus {
	return &Bus{}
}

// Publish delivers evt to every subscriber whose prefix matches evt.Kind.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !strings.HasPrefix(evt.Kind, s.prefix) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Emit publishes kind with the current time. A nil bus discards it.
func (b *Bus) Emit(kind string, payload any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// Subscribe registers a buffered channel for kinds starting with prefix.
// The returned cancel func may be called more than once.
func (b *Bus) Subscribe(prefix string, size int) (<-chan Event, func()) {
	s := &subscriber{prefix: prefix, ch: make(chan Event, size)}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return s.ch, func() {
		b.mu.Lock()
		b.subs = slices.DeleteFunc(b.subs, func(o *subscriber) bool { return o == s })
		b.mu.Unlock()
	}
}

// Dropped reports how many deliveries were skipped on full buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
