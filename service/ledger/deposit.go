package ledger

import (
	"context"

	"aggregator/core"
)

// claim consume the custody deposit paying for req. The deposit must come from the
// sender, in the requested asset and for exactly the requested amount. Consumption is
// part of the operation state and rolls back with it.
func (l *Ledger) claim(ctx context.Context, req *core.Request) error {
	if req.TraceID == "" {
		return core.NewError(core.ErrDepositNotFound, "%s %s without a deposit", req.Sender, req.Asset)
	}

	if l.consumed[req.TraceID] {
		return core.NewError(core.ErrDepositConsumed, "deposit %s already used", req.TraceID)
	}

	if l.deposits == nil {
		return core.NewError(core.ErrConfiguration, "no deposit store")
	}

	deposit, err := l.deposits.Find(ctx, req.TraceID)
	if err != nil {
		return err
	}

	if deposit.Status == core.DepositStatusConsumed {
		return core.NewError(core.ErrDepositConsumed, "deposit %s already used", req.TraceID)
	}

	if deposit.UserID != req.Sender || deposit.AssetID != req.Asset {
		return core.NewError(core.ErrOperationForbidden, "deposit %s belongs to %s in %s", deposit.TraceID, deposit.UserID, deposit.AssetID)
	}

	amount, err := deposit.Units()
	if err != nil {
		return err
	}

	if !amount.Eq(req.Amount) {
		return core.NewError(core.ErrInvalidAmount, "deposit %s is %s, requested %s", deposit.TraceID, amount.Dec(), req.Amount.Dec())
	}

	l.consumed[req.TraceID] = true
	return nil
}
