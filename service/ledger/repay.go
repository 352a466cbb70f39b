package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
)

// Repay clear up to req.Amount of req.Recipient()'s debt with the sender's custody deposit req.TraceID.
// Anything above the debt is refunded to the sender.
func (l *Ledger) Repay(ctx context.Context, req *core.Request, params core.RepayParams) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionRepay, []string{req.Asset}, func(ctx context.Context) error {
		if err := l.claim(ctx, req); err != nil {
			return err
		}

		asset, err := l.asset(req.Asset)
		if err != nil {
			return err
		}

		if _, err := l.accrue(ctx, asset.ID); err != nil {
			return err
		}

		paid, err := l.repay(ctx, asset, req.Recipient(), req.Amount, params.ExecuteImmediately)
		if err != nil {
			return err
		}

		refund := ray.Sub(req.Amount, paid.amount)
		l.pay(req.Sender, asset.ID, refund, memo(core.ActionRepay, asset.ID))

		l.emit(core.EventRepayed, asset.ID, req.Recipient(), paid.amount, balanceData{
			Balance: l.debtBalance(l.states[asset.ID], req.Recipient()).Dec(),
			Queued:  paid.queued,
			Fee:     paid.fee.Dec(),
			Refund:  refund.Dec(),
		})

		return nil
	})
}

type repayment struct {
	amount *uint256.Int
	fee    *uint256.Int
	queued bool
}

// repay burn up to amount of user's debt, collect the fee share and route the rest
func (l *Ledger) repay(ctx context.Context, asset *core.Asset, user string, amount *uint256.Int, immediate bool) (*repayment, error) {
	st := l.states[asset.ID]
	totalDebt := ray.FromScaledUp(st.TotalScaledDebt, st.DebtIndex)
	debt := l.debtBalance(st, user)
	if debt.IsZero() {
		return nil, core.NewError(core.ErrInvalidAmount, "%s has no %s debt", user, asset.ID)
	}

	pay := ray.Min(amount, debt)
	l.burnDebt(asset.ID, user, pay)
	l.updateFlags(asset.ID, user)

	fee := ray.Zero()
	if l.collector != "" {
		fee = ray.Min(ray.Mul(pay, st.Fee.FeeIndex), st.Fee.AccFee)
	}

	if !fee.IsZero() {
		st.Fee.AccFee = ray.Sub(st.Fee.AccFee, fee)
		st.Fee.Collected = ray.Add(st.Fee.Collected, fee)
		l.pay(l.collector, asset.ID, fee, memo("fee", asset.ID))
		l.emit(core.EventFeeCollected, asset.ID, l.collector, fee, feeOf(st))
		l.emit(core.EventAccFeeUpdated, asset.ID, "", st.Fee.AccFee, feeOf(st))
	}

	l.syncFeeIndex(asset.ID)

	out := &repayment{amount: pay, fee: fee}
	net := ray.Sub(pay, fee)
	if net.IsZero() {
		return out, nil
	}

	if !immediate && l.reserve.MaxPendingRatioBps() > 0 {
		if err := l.reserve.QueueRepay(l.token, asset.ID, net, totalDebt); err != nil {
			return nil, err
		}

		out.queued = true
		l.emitPending(asset.ID, user, net, 0)
		return out, nil
	}

	if _, err := l.agg.SupplyAndRepay(ctx, l.token, asset.ID, net, nil); err != nil {
		return nil, err
	}

	return out, nil
}
