package flusher

import (
	"context"
	"time"

	"aggregator/core"
	"aggregator/worker"

	"github.com/fox-one/pkg/logger"
)

// Flusher executes queued supplies of batching assets on a timer
type Flusher struct {
	worker.BaseJob
	ledger core.LedgerService
	cfg    core.FlusherConfig
}

// New new flusher worker
func New(location string, ledger core.LedgerService, cfg core.FlusherConfig) (*Flusher, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	w := &Flusher{
		ledger: ledger,
		cfg:    cfg,
	}

	if err := w.Schedule(location, cfg.Interval); err != nil {
		return nil, err
	}

	w.OnWork = func() error {
		return w.onWork(context.Background())
	}

	return w, nil
}

func (w *Flusher) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "flusher")
	ctx = logger.WithContext(ctx, log)

	limit := w.cfg.Batch
	if limit <= 0 {
		limit = -1
	}

	for _, asset := range w.ledger.Assets(ctx) {
		if !asset.Batching() {
			continue
		}

		n, err := w.ledger.Flush(ctx, asset.ID, limit)
		if err != nil {
			log.WithError(err).Errorln("ledger.Flush", asset.ID)
			continue
		}

		if n > 0 {
			log.Infoln("flushed", asset.ID, n)
		}
	}

	return nil
}
