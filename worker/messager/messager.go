package messenger

import (
	"context"
	"time"

	"aggregator/core"
	"aggregator/worker"

	"github.com/fox-one/pkg/logger"
)

// Outbox buffered events waiting for the event store
type Outbox interface {
	Drain(n int) []*core.Event
	Requeue(events []*core.Event)
}

// Messager moves committed events from the outbox into the event store
type Messager struct {
	worker.BaseJob
	outbox     Outbox
	eventStore core.EventStore
	batch      int
}

// New new message worker
func New(location string, outbox Outbox, events core.EventStore, batch int) (*Messager, error) {
	if batch <= 0 {
		batch = 300
	}

	messager := &Messager{
		outbox:     outbox,
		eventStore: events,
		batch:      batch,
	}

	if err := messager.Schedule(location, time.Second); err != nil {
		return nil, err
	}

	messager.OnWork = func() error {
		return messager.onWork(context.Background())
	}

	return messager, nil
}

func (w *Messager) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "messager")

	for {
		events := w.outbox.Drain(w.batch)
		if len(events) == 0 {
			return nil
		}

		if err := w.eventStore.Create(ctx, events...); err != nil {
			log.WithError(err).Error("events.Create")
			w.outbox.Requeue(events)
			return err
		}

		if len(events) < w.batch {
			return nil
		}
	}
}
