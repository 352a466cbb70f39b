package ledger

import (
	"context"

	"aggregator/core"

	"github.com/fox-one/pkg/logger"
)

// Flush execute up to limit queued supplies of asset in arrival order and forward the
// pending repay funds. A negative limit flushes the whole queue. Returns the number of
// supplies executed.
func (l *Ledger) Flush(ctx context.Context, assetID string, limit int) (int, error) {
	var n int
	err := l.run(ctx, core.ActionFlush, []string{assetID}, func(ctx context.Context) error {
		asset, err := l.asset(assetID)
		if err != nil {
			return err
		}

		if _, err := l.accrue(ctx, asset.ID); err != nil {
			return err
		}

		n, err = l.flush(ctx, asset, limit)
		return err
	})

	if err != nil {
		return 0, err
	}

	return n, nil
}

func (l *Ledger) flush(ctx context.Context, asset *core.Asset, limit int) (int, error) {
	log := logger.FromContext(ctx).WithField("asset", asset.ID)

	n := 0
	for limit < 0 || n < limit {
		// the node is zeroed by Pop before any backend call
		node, err := l.reserve.Pop(l.token, asset.ID)
		if err != nil {
			return n, err
		}

		if node == nil {
			break
		}

		if err := l.executeSupply(ctx, asset, node.User, node.Amount, node.Collateral, true); err != nil {
			log.WithError(err).Errorln("ledger.flush", node.ID, node.User)
			return n, err
		}

		l.emitPending(asset.ID, node.User, node.Amount, node.ID)
		n++
	}

	repay, err := l.reserve.TakeRepay(l.token, asset.ID)
	if err != nil {
		return n, err
	}

	if !repay.IsZero() {
		if _, err := l.agg.SupplyAndRepay(ctx, l.token, asset.ID, repay, nil); err != nil {
			return n, err
		}

		l.emitPending(asset.ID, "", repay, 0)
	}

	if n > 0 {
		log.Debugln("flushed", n)
	}

	return n, nil
}
