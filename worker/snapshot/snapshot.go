package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"aggregator/core"
	"aggregator/pkg/id"
	"aggregator/worker"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
)

const (
	checkPointKey = "aggregator_snapshot_checkpoint"
)

// Worker persists ledger exports so that the server can restart from the latest one
type Worker struct {
	worker.BaseJob
	ledger        core.LedgerService
	snapshotStore core.SnapshotStore
	propertyStore property.Store
	cfg           core.SnapshotConfig

	// digest of the last saved state
	last string
}

// New new snapshot worker
func New(
	location string,
	ledger core.LedgerService,
	snapshotStore core.SnapshotStore,
	propertyStore property.Store,
	cfg core.SnapshotConfig,
) (*Worker, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}

	job := &Worker{
		ledger:        ledger,
		snapshotStore: snapshotStore,
		propertyStore: propertyStore,
		cfg:           cfg,
	}

	if err := job.Schedule(location, cfg.Interval); err != nil {
		return nil, err
	}

	job.OnWork = func() error {
		return job.onWork(context.Background())
	}

	return job, nil
}

// digest of state ignoring the export block
func digest(state *core.LedgerState) (string, error) {
	cp := *state
	cp.Block = 0

	data, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}

	return id.UUIDFromString(string(data)), nil
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "snapshot")

	if w.last == "" {
		v, err := w.propertyStore.Get(ctx, checkPointKey)
		if err != nil {
			log.WithError(err).Errorln("property.Get", checkPointKey)
			return err
		}

		w.last = v.String()
	}

	state, err := w.ledger.Export(ctx)
	if err != nil {
		log.WithError(err).Errorln("ledger.Export")
		return err
	}

	sum, err := digest(state)
	if err != nil {
		return err
	}

	if sum != w.last {
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}

		if err := w.snapshotStore.Save(ctx, &core.Snapshot{Block: state.Block, Data: data}); err != nil {
			log.WithError(err).Errorln("snapshots.Save")
			return err
		}

		if err := w.propertyStore.Save(ctx, checkPointKey, sum); err != nil {
			log.WithError(err).Errorln("property.Save", checkPointKey)
			return err
		}

		w.last = sum
		log.Debugln("snapshot saved at block", state.Block)
	}

	if w.cfg.Keep > 0 {
		if err := w.snapshotStore.DeleteByTime(ctx, time.Now().Add(-w.cfg.Keep)); err != nil {
			log.WithError(err).Errorln("snapshots.DeleteByTime")
			return err
		}
	}

	return nil
}

// Restore import the latest snapshot into ledger, false if there is none
func Restore(ctx context.Context, ledger core.LedgerService, snapshots core.SnapshotStore) (bool, error) {
	snapshot, err := snapshots.Latest(ctx)
	if err != nil || snapshot == nil {
		return false, err
	}

	var state core.LedgerState
	if err := json.Unmarshal(snapshot.Data, &state); err != nil {
		return false, err
	}

	if err := ledger.Import(ctx, &state); err != nil {
		return false, err
	}

	logger.FromContext(ctx).Infoln("ledger restored from snapshot", snapshot.ID, "at block", snapshot.Block)
	return true, nil
}
