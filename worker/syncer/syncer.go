package syncer

import (
	"context"
	"time"

	"aggregator/core"
	"aggregator/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
)

const checkpointKey = "aggregator_deposit_checkpoint"

// Syncer sync custody deposits
type Syncer struct {
	worker.BaseJob
	depositStore core.DepositStore
	source       core.DepositSource
	property     property.Store
	limit        int
}

// New new sync worker
func New(
	location string,
	deposits core.DepositStore,
	source core.DepositSource,
	property property.Store,
	cfg core.SyncerConfig,
) (*Syncer, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	if cfg.Batch <= 0 {
		cfg.Batch = 500
	}

	syncer := &Syncer{
		depositStore: deposits,
		source:       source,
		property:     property,
		limit:        cfg.Batch,
	}

	if err := syncer.Schedule(location, cfg.Interval); err != nil {
		return nil, err
	}

	syncer.OnWork = func() error {
		return syncer.onWork(context.Background())
	}

	return syncer, nil
}

func (w *Syncer) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "syncer")

	v, err := w.property.Get(ctx, checkpointKey)
	if err != nil {
		log.WithError(err).Errorln("property.Get", checkpointKey)
		return err
	}

	offset := v.Int64()
	start := offset

	for {
		batch, err := w.source.Pull(ctx, offset, w.limit)
		if err != nil {
			log.WithError(err).Errorln("source.Pull")
			return err
		}

		for _, d := range batch {
			if d.Seq <= offset {
				continue
			}

			if err := w.depositStore.Save(ctx, d); err != nil {
				log.WithError(err).Errorln("deposits.Save", d.TraceID)
				return err
			}

			offset = d.Seq
		}

		if len(batch) < w.limit {
			break
		}
	}

	if offset == start {
		return nil
	}

	if err := w.property.Save(ctx, checkpointKey, offset); err != nil {
		log.WithError(err).Errorln("property.Save", checkpointKey)
		return err
	}

	log.Debugln("deposits synced to", offset)
	return nil
}
