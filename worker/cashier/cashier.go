package cashier

import (
	"context"
	"time"

	"aggregator/core"
	"aggregator/worker"

	"github.com/fox-one/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Cashier cashier
//
// pays out persisted transfers
type Cashier struct {
	worker.BaseJob
	transferStore core.TransferStore
	payer         core.Payer
	cfg           Config
}

type Config struct {
	Batch    int           `json:"batch" valid:"required"`
	Capacity int64         `json:"capacity"`
	Interval time.Duration `json:"interval"`
}

// New new cashier
func New(
	location string,
	transfers core.TransferStore,
	payer core.Payer,
	cfg Config,
) (*Cashier, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}

	cashier := &Cashier{
		transferStore: transfers,
		payer:         payer,
		cfg:           cfg,
	}

	if err := cashier.Schedule(location, cfg.Interval); err != nil {
		return nil, err
	}

	f := cashier.sync
	if cfg.Capacity > 1 {
		f = cashier.parallel(cfg.Capacity)
	}

	cashier.OnWork = func() error {
		return cashier.onWork(context.Background(), f)
	}

	return cashier, nil
}

func (w *Cashier) onWork(ctx context.Context, f func(context.Context, []*core.Transfer) error) error {
	log := logger.FromContext(ctx).WithField("worker", "cashier")

	transfers, err := w.transferStore.ListPending(ctx, w.cfg.Batch)
	if err != nil {
		log.WithError(err).Errorln("list transfers")
		return err
	}

	if len(transfers) == 0 {
		return nil
	}

	return f(logger.WithContext(ctx, log), transfers)
}

func (w *Cashier) sync(ctx context.Context, transfers []*core.Transfer) error {
	for _, transfer := range transfers {
		if err := w.handleTransfer(ctx, transfer); err != nil {
			return err
		}
	}

	return nil
}

func (w *Cashier) parallel(capacity int64) func(ctx context.Context, transfers []*core.Transfer) error {
	sem := semaphore.NewWeighted(capacity)

	return func(ctx context.Context, transfers []*core.Transfer) error {
		g := errgroup.Group{}

		for idx := range transfers {
			transfer := transfers[idx]

			if err := sem.Acquire(ctx, 1); err != nil {
				return g.Wait()
			}

			g.Go(func() error {
				defer sem.Release(1)
				return w.handleTransfer(ctx, transfer)
			})
		}

		return g.Wait()
	}
}

func (w *Cashier) handleTransfer(ctx context.Context, transfer *core.Transfer) error {
	log := logger.FromContext(ctx).WithField("trace", transfer.TraceID)

	if err := w.payer.Pay(ctx, transfer); err != nil {
		log.WithError(err).Errorln("payer.Pay")
		return err
	}

	if err := w.transferStore.UpdateStatus(ctx, transfer.ID, core.TransferStatusDone); err != nil {
		log.WithError(err).Errorln("transfers.UpdateStatus")
		return err
	}

	return nil
}
