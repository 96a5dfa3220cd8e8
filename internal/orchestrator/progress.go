package orchestrator

import (
	"fmt"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 64

// Broadcaster fans snapshots out to any number of subscribers through
// buffered channels. Publishing never blocks: a subscriber that falls behind
// loses its oldest pending snapshot, so the latest state is always delivered.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Snapshot
	nextID int
	closed bool
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a new subscriber. The returned function unregisters it
// and closes its channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Snapshot, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Snapshot, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers snap to every subscriber.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- snap.Clone():
			continue
		default:
		}
		// Full: drop the oldest pending snapshot to make room.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap.Clone():
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions receive an
// already-closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// FormatProgress formats a snapshot as a one-line status for logs and the
// terminal.
func FormatProgress(s Snapshot) string {
	switch s.State.Phase {
	case PhaseIdle:
		return "  ○ idle"
	case PhaseRunning:
		return fmt.Sprintf("  ● %s...", s.State.Stage.Title())
	case PhaseComplete:
		rows := 0
		if s.Results != nil {
			rows = s.Results.Len()
		}
		return fmt.Sprintf("  ✓ complete (%d rows)", rows)
	case PhaseFailed:
		return fmt.Sprintf("  ✗ failed: %s", s.State.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown phase)", s.State.Phase)
	}
}
