package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
)

type accrual struct {
	state        *core.AssetState
	lendings     *core.Lendings
	debtInterest *uint256.Int
	fee          *uint256.Int
}

// project the state of asset to block given the backend lendings over the same span.
// Pure, the stored state is left untouched.
func (l *Ledger) project(st *core.AssetState, asset *core.Asset, block int64, lendings *core.Lendings) *accrual {
	next := st.Clone()
	out := &accrual{state: next, lendings: lendings, debtInterest: ray.Zero(), fee: ray.Zero()}
	if block <= st.Block {
		return out
	}

	blocks := block - st.Block
	next.Block = block

	totalDebt := ray.FromScaledUp(st.TotalScaledDebt, st.DebtIndex)
	next.DebtIndex = ray.Mul(st.DebtIndex, ray.LinearFactor(lendings.BorrowRate, blocks, l.blocksPerYear))
	next.DebtIndex = ray.Max2(next.DebtIndex, st.DebtIndex)
	out.debtInterest = ray.Sub(ray.FromScaledUp(st.TotalScaledDebt, next.DebtIndex), totalDebt)
	out.fee = ray.Bps(out.debtInterest, asset.Config.FeeRateBps)

	income := ray.Sub(ray.Add(lendings.SupplyInterest, out.debtInterest), out.fee)
	cost := ray.Copy(lendings.BorrowInterest)

	fee := &next.Fee
	fee.AccFee = ray.Add(fee.AccFee, out.fee)
	if !income.Lt(cost) {
		gain := ray.Sub(income, cost)
		if ray.Copy(st.TotalScaledSupply).IsZero() {
			fee.AccFee = ray.Add(fee.AccFee, gain)
		} else {
			next.SupplyIndex = ray.Add(st.SupplyIndex, ray.MulDiv(gain, ray.Ray, st.TotalScaledSupply))
		}
	} else {
		// pool level backend borrow costs more than it earns, fees absorb it first
		shortfall := ray.Sub(cost, income)
		covered := ray.Min(shortfall, fee.AccFee)
		fee.AccFee = ray.Sub(fee.AccFee, covered)
		fee.AccFeeOffset = ray.Add(fee.AccFeeOffset, covered)
		fee.Deficit = ray.Add(fee.Deficit, ray.Sub(shortfall, covered))
	}

	fee.FeeIndex = feeIndex(fee.AccFee, next)
	return out
}

func feeIndex(accFee *uint256.Int, st *core.AssetState) *uint256.Int {
	totalDebt := ray.FromScaledUp(st.TotalScaledDebt, st.DebtIndex)
	if totalDebt.IsZero() {
		return ray.Zero()
	}

	return ray.Div(accFee, totalDebt)
}

// accrue advance asset to the operation's block, once per operation
func (l *Ledger) accrue(ctx context.Context, assetID string) (*core.AssetState, error) {
	asset, err := l.asset(assetID)
	if err != nil {
		return nil, err
	}

	st := l.states[assetID]
	if l.touched[assetID] {
		return st, nil
	}

	l.touched[assetID] = true
	if l.block <= st.Block {
		return st, nil
	}

	lendings, err := l.agg.Accrue(ctx, l.token, assetID, l.block)
	if err != nil {
		return nil, err
	}

	before := st.Fee.Clone()
	acc := l.project(st, asset, l.block, lendings)
	l.states[assetID] = acc.state
	st = acc.state

	l.emit(core.EventTotalLendingsUpdated, assetID, "", nil, lendingsData{
		TotalSupplied:  lendings.TotalSupplied.Dec(),
		TotalBorrowed:  lendings.TotalBorrowed.Dec(),
		SupplyIndex:    st.SupplyIndex.Dec(),
		DebtIndex:      st.DebtIndex.Dec(),
		SupplyInterest: lendings.SupplyInterest.Dec(),
		BorrowInterest: lendings.BorrowInterest.Dec(),
		DebtInterest:   acc.debtInterest.Dec(),
	})

	if !before.AccFee.Eq(st.Fee.AccFee) {
		l.emit(core.EventAccFeeUpdated, assetID, "", st.Fee.AccFee, feeOf(st))
	}

	if !before.FeeIndex.Eq(st.Fee.FeeIndex) {
		l.emit(core.EventFeeIndexUpdated, assetID, "", st.Fee.FeeIndex, feeOf(st))
	}

	return st, nil
}

// syncFeeIndex recompute the fee index after total debt changed
func (l *Ledger) syncFeeIndex(assetID string) {
	st := l.states[assetID]
	next := feeIndex(st.Fee.AccFee, st)
	if next.Eq(ray.Copy(st.Fee.FeeIndex)) {
		return
	}

	st.Fee.FeeIndex = next
	l.emit(core.EventFeeIndexUpdated, assetID, "", next, feeOf(st))
}

func feeOf(st *core.AssetState) feeData {
	return feeData{
		AccFee:       ray.Copy(st.Fee.AccFee).Dec(),
		FeeIndex:     ray.Copy(st.Fee.FeeIndex).Dec(),
		AccFeeOffset: ray.Copy(st.Fee.AccFeeOffset).Dec(),
		Deficit:      ray.Copy(st.Fee.Deficit).Dec(),
	}
}

// current projected state of asset, for views
func (l *Ledger) current(ctx context.Context, assetID string) (*core.AssetState, error) {
	asset, err := l.asset(assetID)
	if err != nil {
		return nil, err
	}

	block, err := l.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}

	st := l.states[assetID]
	return l.project(st, asset, block, l.agg.SimulateLendings(assetID, block)).state, nil
}
