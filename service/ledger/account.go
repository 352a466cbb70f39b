package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/number"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func scaledOf(balances map[string]map[string]*uint256.Int, asset, user string) *uint256.Int {
	return ray.Copy(balances[asset][user])
}

func setScaled(balances map[string]map[string]*uint256.Int, asset, user string, v *uint256.Int) {
	users, ok := balances[asset]
	if !ok {
		users = map[string]*uint256.Int{}
		balances[asset] = users
	}

	if v == nil || v.IsZero() {
		delete(users, user)
		return
	}

	users[user] = v
}

func (l *Ledger) setOptIn(asset, user string, on bool) {
	users, ok := l.optIn[asset]
	if !ok {
		users = map[string]bool{}
		l.optIn[asset] = users
	}

	if on {
		users[user] = true
	} else {
		delete(users, user)
	}
}

// mintSupply credit amount of asset to user at the current supply index
func (l *Ledger) mintSupply(asset, user string, amount *uint256.Int) *uint256.Int {
	st := l.states[asset]
	scaled := ray.ToScaled(amount, st.SupplyIndex)
	setScaled(l.supplies, asset, user, ray.Add(scaledOf(l.supplies, asset, user), scaled))
	st.TotalScaledSupply = ray.Add(st.TotalScaledSupply, scaled)
	return scaled
}

// burnSupply debit amount of asset from user, rounding against the user
func (l *Ledger) burnSupply(asset, user string, amount *uint256.Int) error {
	st := l.states[asset]
	scaled := scaledOf(l.supplies, asset, user)
	balance := ray.FromScaled(scaled, st.SupplyIndex)
	if amount.Gt(balance) {
		return core.NewError(core.ErrInsufficientBalance, "supply balance %s below %s", balance.Dec(), amount.Dec())
	}

	burn := scaled
	if amount.Lt(balance) {
		burn = ray.Min(ray.ToScaledUp(amount, st.SupplyIndex), scaled)
	}

	setScaled(l.supplies, asset, user, ray.Sub(scaled, burn))
	st.TotalScaledSupply = ray.Sub(st.TotalScaledSupply, burn)
	return nil
}

// mintDebt charge amount of asset to user at the current debt index, rounding up
func (l *Ledger) mintDebt(asset, user string, amount *uint256.Int) {
	st := l.states[asset]
	scaled := ray.ToScaledUp(amount, st.DebtIndex)
	setScaled(l.debts, asset, user, ray.Add(scaledOf(l.debts, asset, user), scaled))
	st.TotalScaledDebt = ray.Add(st.TotalScaledDebt, scaled)
}

// burnDebt clear amount of user's debt, amount must not exceed the debt
func (l *Ledger) burnDebt(asset, user string, amount *uint256.Int) {
	st := l.states[asset]
	scaled := scaledOf(l.debts, asset, user)
	owed := ray.FromScaledUp(scaled, st.DebtIndex)

	burn := scaled
	if amount.Lt(owed) {
		burn = ray.Min(ray.ToScaled(amount, st.DebtIndex), scaled)
	}

	setScaled(l.debts, asset, user, ray.Sub(scaled, burn))
	st.TotalScaledDebt = ray.Sub(st.TotalScaledDebt, burn)
}

func (l *Ledger) supplyBalance(st *core.AssetState, user string) *uint256.Int {
	return ray.FromScaled(scaledOf(l.supplies, st.Asset, user), st.SupplyIndex)
}

func (l *Ledger) debtBalance(st *core.AssetState, user string) *uint256.Int {
	return ray.FromScaledUp(scaledOf(l.debts, st.Asset, user), st.DebtIndex)
}

// updateFlags recompute the collateral and debt flags of user at asset
func (l *Ledger) updateFlags(assetID, user string) {
	asset := l.assets[assetID]
	flags := core.AssetFlags{
		Collateral: l.optIn[assetID][user] && !scaledOf(l.supplies, assetID, user).IsZero(),
		Debt:       !scaledOf(l.debts, assetID, user).IsZero(),
	}

	if !l.status.Set(user, asset.Index, flags) {
		return
	}

	l.emit(core.EventUserDebtAndCollateralSet, assetID, user, nil, flagsData{
		Index:      asset.Index,
		Collateral: flags.Collateral,
		Debt:       flags.Debt,
		Packed:     l.status.Get(user).Packed().Dec(),
	})
}

type position struct {
	// debt value of every borrowed asset
	debt decimal.Decimal
	// collateral value weighted by MaxLTV
	borrowLimit decimal.Decimal
	// collateral value weighted by LiquidationLTV
	liquidationLimit decimal.Decimal
}

func (l *Ledger) value(ctx context.Context, asset *core.Asset, amount *uint256.Int) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, nil
	}

	if l.oracle == nil {
		return decimal.Zero, core.NewError(core.ErrInvalidPrice, "no price oracle")
	}

	price, err := l.oracle.Price(ctx, asset.ID)
	if err != nil {
		return decimal.Zero, core.WrapError(core.ErrInvalidPrice, err, asset.ID)
	}

	if !price.IsPositive() {
		return decimal.Zero, core.NewError(core.ErrInvalidPrice, "price of %s is %s", asset.ID, price)
	}

	return number.FromUint256(amount, asset.Decimals).Mul(price), nil
}

// position of user valued at the stored indices
func (l *Ledger) position(ctx context.Context, user string) (*position, error) {
	p := &position{}
	st := l.status.Get(user)
	for idx, flags := range st.Flags {
		if !flags.Collateral && !flags.Debt {
			continue
		}

		asset := l.assets[l.order[idx]]
		state := l.states[asset.ID]

		if flags.Debt {
			v, err := l.value(ctx, asset, l.debtBalance(state, user))
			if err != nil {
				return nil, err
			}

			p.debt = p.debt.Add(v)
		}

		if flags.Collateral {
			v, err := l.value(ctx, asset, l.supplyBalance(state, user))
			if err != nil {
				return nil, err
			}

			p.borrowLimit = p.borrowLimit.Add(v.Mul(asset.Config.MaxLTV))
			p.liquidationLimit = p.liquidationLimit.Add(v.Mul(asset.Config.LiquidationLTV))
		}
	}

	return p, nil
}

// checkLTV debt value of user must stay within the MaxLTV weighted collateral
func (l *Ledger) checkLTV(ctx context.Context, user string) error {
	if !l.status.Get(user).HasDebt() {
		return nil
	}

	p, err := l.position(ctx, user)
	if err != nil {
		return err
	}

	if p.debt.GreaterThan(p.borrowLimit) {
		return core.NewError(core.ErrInsufficientCollateral, "debt %s exceeds borrow limit %s", p.debt.StringFixed(8), p.borrowLimit.StringFixed(8))
	}

	return nil
}
