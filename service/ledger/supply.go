package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// Supply credit req.Amount to req.Recipient(), paid by the custody deposit req.TraceID.
// UseAsCollateral opts the balance in as collateral, supplying never opts out.
// Without ExecuteImmediately a batching asset queues the supply until the next flush.
func (l *Ledger) Supply(ctx context.Context, req *core.Request, params core.SupplyParams) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionSupply, []string{req.Asset}, func(ctx context.Context) error {
		if err := l.claim(ctx, req); err != nil {
			return err
		}

		asset, err := l.asset(req.Asset)
		if err != nil {
			return err
		}

		if params.UseAsCollateral && !asset.CollateralEligible {
			return core.NewError(core.ErrConfiguration, "%s can't be used as collateral", asset.ID)
		}

		if _, err := l.accrue(ctx, asset.ID); err != nil {
			return err
		}

		owner := req.Recipient()
		if !params.ExecuteImmediately && asset.Batching() {
			return l.enqueue(ctx, asset, owner, req.Amount, params.UseAsCollateral)
		}

		return l.executeSupply(ctx, asset, owner, req.Amount, params.UseAsCollateral, false)
	})
}

func (l *Ledger) enqueue(ctx context.Context, asset *core.Asset, user string, amount *uint256.Int, collateral bool) error {
	node, err := l.reserve.Enqueue(l.token, asset.ID, user, amount, collateral)
	if err != nil {
		return err
	}

	l.emitPending(asset.ID, user, amount, node)
	l.emit(core.EventSupplied, asset.ID, user, amount, balanceData{
		Balance: l.supplyBalance(l.states[asset.ID], user).Dec(),
		Queued:  true,
	})

	if l.reserve.ShouldFlush(asset.ID) {
		logger.FromContext(ctx).Infoln("execute supply threshold reached", asset.ID)
		_, err := l.flush(ctx, asset, -1)
		return err
	}

	return nil
}

func (l *Ledger) emitPending(asset, user string, amount *uint256.Int, node core.NodeID) {
	list := l.reserve.List(asset)
	l.emit(core.EventPendingListUpdated, asset, user, amount, pendingData{
		Node:         int(node),
		Head:         int(list.Head),
		Tail:         int(list.Tail),
		Count:        list.Count,
		Pending:      list.Pending.Dec(),
		PendingRepay: list.PendingRepay.Dec(),
		Idle:         list.Idle.Dec(),
	})
}

// executeSupply mint the receipt and route the funds: pay down the pool's backend
// borrow, keep the reserve ratio of the surplus idle and forward the rest
func (l *Ledger) executeSupply(ctx context.Context, asset *core.Asset, user string, amount *uint256.Int, collateral, flushed bool) error {
	l.mintSupply(asset.ID, user, amount)
	if collateral {
		l.setOptIn(asset.ID, user, true)
	}
	l.updateFlags(asset.ID, user)

	repay := ray.Min(amount, l.agg.TotalBorrowed(asset.ID).Total)
	retained, err := l.reserve.Retain(l.token, asset.ID, ray.Sub(amount, repay))
	if err != nil {
		return err
	}

	if forward := ray.Sub(amount, retained); !forward.IsZero() {
		if _, err := l.agg.SupplyAndRepay(ctx, l.token, asset.ID, forward, nil); err != nil {
			return err
		}
	}

	kind := core.EventSupplied
	if flushed {
		kind = core.EventSupplyExecuted
	}

	l.emit(kind, asset.ID, user, amount, balanceData{
		Balance:    l.supplyBalance(l.states[asset.ID], user).Dec(),
		FromBuffer: retained.Dec(),
	})

	return nil
}
