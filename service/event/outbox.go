package event

import (
	"context"
	"sync"

	"aggregator/core"

	"github.com/fox-one/pkg/logger"
)

// Outbox in memory buffer of committed events, drained to the event store by the outbox worker
type Outbox struct {
	mu     sync.Mutex
	events []*core.Event
	limit  int
}

// NewOutbox outbox holding up to limit events, older events are dropped beyond it. Zero is unbounded.
func NewOutbox(limit int) *Outbox {
	return &Outbox{limit: limit}
}

func (o *Outbox) Emit(ctx context.Context, events ...*core.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(o.events, events...)
	if o.limit > 0 && len(o.events) > o.limit {
		dropped := len(o.events) - o.limit
		o.events = append([]*core.Event(nil), o.events[dropped:]...)
		logger.FromContext(ctx).Warnln("outbox full, dropped", dropped)
	}
}

// Drain take up to n events in emission order, n <= 0 takes everything
func (o *Outbox) Drain(n int) []*core.Event {
	o.mu.Lock()
	defer o.mu.Unlock()

	if n <= 0 || n > len(o.events) {
		n = len(o.events)
	}

	out := o.events[:n:n]
	o.events = o.events[n:]
	return out
}

// Requeue put events back in front of the buffer after a failed write
func (o *Outbox) Requeue(events []*core.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.events = append(append([]*core.Event(nil), events...), o.events...)
}

// Len buffered events
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.events)
}

// Tee forwards events to every sink
type Tee []core.EventSink

func (t Tee) Emit(ctx context.Context, events ...*core.Event) {
	for _, sink := range t {
		sink.Emit(ctx, events...)
	}
}
