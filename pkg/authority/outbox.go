package authority

import (
	"sync"

	"github.com/pokerauthority/core/pkg/protocol"
)

// Outbox is the typed event sink a Room's owning serializer drains,
// generalized from the teacher's EventProcessor/eventWorker
// queue-plus-worker-pool (spec.md §9 "callback pyramids" redesign
// note: consumers subscribe to typed streams instead of registering
// ad-hoc callbacks). It runs no workers: Publish delivers each event
// to every subscriber's buffered channel. Consumers only ever receive
// copies of already-committed events, so none can mutate authority
// state. Nothing in this module subscribes; the sync engine reads
// committed table state directly, and the integrity adapter converts
// the events ProcessIntent returns.
type Outbox struct {
	mu          sync.Mutex
	subscribers []chan protocol.Event
	capacity    int
}

// NewOutbox builds an outbox with a default per-subscriber queue depth.
func NewOutbox() *Outbox {
	return &Outbox{capacity: 256}
}

// Subscribe registers a new consumer channel. Call Unsubscribe to stop
// receiving.
func (o *Outbox) Subscribe() <-chan protocol.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan protocol.Event, o.capacity)
	o.subscribers = append(o.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a previously-subscribed channel.
func (o *Outbox) Unsubscribe(ch <-chan protocol.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, sub := range o.subscribers {
		if sub == ch {
			close(sub)
			o.subscribers = append(o.subscribers[:i], o.subscribers[i+1:]...)
			return
		}
	}
}

// Publish fans events out to every subscriber. Per spec.md §5's
// back-pressure rule, a full subscriber queue drops the event for that
// subscriber rather than blocking the authority; the subscriber is
// expected to recover via a forced snapshot on its next sync request.
func (o *Outbox) Publish(events ...protocol.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, ev := range events {
		for _, sub := range o.subscribers {
			select {
			case sub <- ev:
			default:
				// dropped: back-pressure, recoverable via forced snapshot
			}
		}
	}
}
