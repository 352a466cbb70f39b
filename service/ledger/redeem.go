package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// Redeem burn req.Amount of the sender's supply and pay it to req.Recipient().
// The remaining balance stays collateral only if UseAsCollateral is set.
func (l *Ledger) Redeem(ctx context.Context, req *core.Request, params core.RedeemParams) error {
	if err := req.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionRedeem, []string{req.Asset}, func(ctx context.Context) error {
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

		owner := req.Sender
		if err := l.burnSupply(asset.ID, owner, req.Amount); err != nil {
			return err
		}

		l.setOptIn(asset.ID, owner, params.UseAsCollateral)
		l.updateFlags(asset.ID, owner)

		if err := l.checkLTV(ctx, owner); err != nil {
			return err
		}

		fromBuffer, err := l.release(ctx, asset, req.Amount, params.ExecuteImmediately)
		if err != nil {
			return err
		}

		l.pay(req.Recipient(), asset.ID, req.Amount, memo(core.ActionRedeem, asset.ID))
		l.emit(core.EventRedeemed, asset.ID, owner, req.Amount, balanceData{
			Balance:    l.supplyBalance(l.states[asset.ID], owner).Dec(),
			Recipient:  req.Recipient(),
			FromBuffer: fromBuffer.Dec(),
		})

		return nil
	})
}

// release bring amount of asset into custody: the free buffer first unless immediate,
// then backend redeems, then pool level backend borrows. Returns the part served by the buffer.
func (l *Ledger) release(ctx context.Context, asset *core.Asset, amount *uint256.Int, immediate bool) (*uint256.Int, error) {
	fromBuffer := ray.Zero()
	if !immediate {
		taken, err := l.reserve.TakeFree(l.token, asset.ID, amount)
		if err != nil {
			return nil, err
		}

		fromBuffer = taken
	}

	rest := ray.Sub(amount, fromBuffer)
	if rest.IsZero() {
		return fromBuffer, nil
	}

	exec, err := l.agg.RedeemAndBorrow(ctx, l.token, asset.ID, rest, l.custody)
	if err != nil {
		return nil, err
	}

	if exec.Borrowed != nil {
		logger.FromContext(ctx).Infoln("pool borrowed", exec.Borrowed.Sum().Dec(), asset.ID)
	}

	return fromBuffer, nil
}
