package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Liquidate repay repay.Amount of repay.To's debt in repay.Asset with the sender's deposit and
// seize redeem.Amount of the target's redeem.Asset collateral for redeem.Recipient()
func (l *Ledger) Liquidate(ctx context.Context, repay, redeem *core.Request) error {
	if err := repay.Validate(); err != nil {
		return err
	}

	if redeem == nil || redeem.Amount == nil || redeem.Amount.IsZero() || redeem.Asset == "" {
		return core.NewError(core.ErrInvalidAmount, "invalid collateral redeem request")
	}

	target := repay.To
	if target == "" || target == repay.Sender {
		return core.NewError(core.ErrLiquidationNotAllowed, "invalid liquidation target")
	}

	seize := *redeem
	if seize.Sender == "" {
		seize.Sender = repay.Sender
	}
	redeem = &seize

	return l.run(ctx, core.ActionLiquidate, []string{repay.Asset}, func(ctx context.Context) error {
		if err := l.claim(ctx, repay); err != nil {
			return err
		}

		debtAsset, err := l.asset(repay.Asset)
		if err != nil {
			return err
		}

		collateral, err := l.asset(redeem.Asset)
		if err != nil {
			return err
		}

		if collateral.ID == debtAsset.ID {
			return core.NewError(core.ErrLiquidationNotAllowed, "debt and collateral must differ")
		}

		if mask := l.pausedMask(collateral.ID); mask.Blocks(core.ActionLiquidate) || mask.Blocks(core.ActionRedeem) {
			return core.NewError(core.ErrLiquidationNotAllowed, "collateral %s paused", collateral.ID)
		}

		if _, err := l.accrue(ctx, debtAsset.ID); err != nil {
			return err
		}

		if _, err := l.accrue(ctx, collateral.ID); err != nil {
			return err
		}

		flags := l.status.Get(target)
		if !flags.Get(debtAsset.Index).Debt || !flags.Get(collateral.Index).Collateral {
			return core.NewError(core.ErrLiquidationNotAllowed, "%s holds no %s debt against %s collateral", target, debtAsset.ID, collateral.ID)
		}

		pos, err := l.position(ctx, target)
		if err != nil {
			return err
		}

		if !pos.debt.GreaterThan(pos.liquidationLimit) {
			return core.NewError(core.ErrLiquidationNotAllowed, "%s is healthy", target)
		}

		debt := l.debtBalance(l.states[debtAsset.ID], target)
		maxRepay, err := number.ToUint256(number.FromUint256(debt, 0).Mul(debtAsset.Config.MaxLiquidateRatio), 0)
		if err != nil {
			return err
		}

		if repay.Amount.Gt(maxRepay) {
			return core.NewError(core.ErrInsufficientCollateral, "insufficient redeem amount: repay %s above %s", repay.Amount.Dec(), maxRepay.Dec())
		}

		maxSeize, err := l.seizable(ctx, debtAsset, collateral, repay.Amount)
		if err != nil {
			return err
		}

		if redeem.Amount.Gt(maxSeize) {
			return core.NewError(core.ErrInsufficientCollateral, "insufficient redeem amount: seize %s above %s", redeem.Amount.Dec(), maxSeize.Dec())
		}

		paid, err := l.repay(ctx, debtAsset, target, repay.Amount, true)
		if err != nil {
			return err
		}

		if err := l.burnSupply(collateral.ID, target, redeem.Amount); err != nil {
			return core.WrapError(core.ErrInsufficientCollateral, err, "insufficient redeem amount")
		}

		l.updateFlags(collateral.ID, target)

		if _, err := l.release(ctx, collateral, redeem.Amount, false); err != nil {
			return err
		}

		l.pay(redeem.Recipient(), collateral.ID, redeem.Amount, memo(core.ActionLiquidate, collateral.ID))

		l.emit(core.EventRepayed, debtAsset.ID, target, paid.amount, balanceData{
			Balance: l.debtBalance(l.states[debtAsset.ID], target).Dec(),
			Fee:     paid.fee.Dec(),
		})
		l.emit(core.EventRedeemed, collateral.ID, target, redeem.Amount, balanceData{
			Balance:   l.supplyBalance(l.states[collateral.ID], target).Dec(),
			Recipient: redeem.Recipient(),
		})
		l.emit(core.EventLiquidated, debtAsset.ID, target, paid.amount, liquidationData{
			Liquidator:      repay.Sender,
			CollateralAsset: collateral.ID,
			Seized:          redeem.Amount.Dec(),
			MaxSeize:        maxSeize.Dec(),
		})

		return nil
	})
}

// seizable collateral units worth the repaid value plus the liquidation reward
func (l *Ledger) seizable(ctx context.Context, debtAsset, collateral *core.Asset, amount *uint256.Int) (*uint256.Int, error) {
	repayValue, err := l.value(ctx, debtAsset, amount)
	if err != nil {
		return nil, err
	}

	price, err := l.oracle.Price(ctx, collateral.ID)
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidPrice, err, collateral.ID)
	}

	if !price.IsPositive() {
		return nil, core.NewError(core.ErrInvalidPrice, "price of %s is %s", collateral.ID, price)
	}

	reward := decimal.NewFromInt(1).Add(collateral.Config.LiquidationRewardRatio)
	tokens := repayValue.Mul(reward).DivRound(price, collateral.Decimals+8)
	return number.ToUint256(tokens, collateral.Decimals)
}
