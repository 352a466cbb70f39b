package ledger

import (
	"context"

	"aggregator/core"
)

// Borrow charge req.Amount to the sender and pay it to req.Recipient()
func (l *Ledger) Borrow(ctx context.Context, req *core.Request, params core.BorrowParams) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionBorrow, []string{req.Asset}, func(ctx context.Context) error {
		asset, err := l.asset(req.Asset)
		if err != nil {
			return err
		}

		if _, err := l.accrue(ctx, asset.ID); err != nil {
			return err
		}

		owner := req.Sender
		l.mintDebt(asset.ID, owner, req.Amount)
		l.updateFlags(asset.ID, owner)
		l.syncFeeIndex(asset.ID)

		if err := l.checkLTV(ctx, owner); err != nil {
			return err
		}

		fromBuffer, err := l.release(ctx, asset, req.Amount, params.ExecuteImmediately)
		if err != nil {
			return err
		}

		l.pay(req.Recipient(), asset.ID, req.Amount, memo(core.ActionBorrow, asset.ID))
		l.emit(core.EventBorrowed, asset.ID, owner, req.Amount, balanceData{
			Balance:    l.debtBalance(l.states[asset.ID], owner).Dec(),
			Recipient:  req.Recipient(),
			FromBuffer: fromBuffer.Dec(),
		})

		return nil
	})
}
