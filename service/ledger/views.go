package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
)

// Assets listed assets in index order
func (l *Ledger) Assets(ctx context.Context) []*core.Asset {
	out := make([]*core.Asset, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, cloneAsset(l.assets[id]))
	}

	return out
}

// AssetConfig listed asset by id
func (l *Ledger) AssetConfig(ctx context.Context, asset string) (*core.Asset, error) {
	a, err := l.asset(asset)
	if err != nil {
		return nil, err
	}

	return cloneAsset(a), nil
}

// TotalSupplied pool supply at every backend plus the reserve buffer
func (l *Ledger) TotalSupplied(ctx context.Context, asset string) (*core.Totals, error) {
	if _, err := l.asset(asset); err != nil {
		return nil, err
	}

	totals := l.agg.TotalSupplied(asset)
	totals.Reserve = l.reserve.List(asset).Buffer()
	totals.Total = ray.Add(totals.Total, totals.Reserve)
	return totals, nil
}

// TotalBorrowed pool borrow at every backend
func (l *Ledger) TotalBorrowed(ctx context.Context, asset string) (*core.Totals, error) {
	if _, err := l.asset(asset); err != nil {
		return nil, err
	}

	return l.agg.TotalBorrowed(asset), nil
}

// UserStatus collateral and debt flags of user
func (l *Ledger) UserStatus(ctx context.Context, user string) *core.UserStatus {
	return l.status.Get(user)
}

// AccruedFee fee state of asset projected to the current block
func (l *Ledger) AccruedFee(ctx context.Context, asset string) (*core.FeeState, error) {
	st, err := l.current(ctx, asset)
	if err != nil {
		return nil, err
	}

	fee := st.Fee.Clone()
	return &fee, nil
}

// SupplyBalance underlying supplied by user, with interest up to the current block
func (l *Ledger) SupplyBalance(ctx context.Context, asset, user string) (*uint256.Int, error) {
	st, err := l.current(ctx, asset)
	if err != nil {
		return nil, err
	}

	return l.supplyBalance(st, user), nil
}

// DebtBalance underlying owed by user, with interest up to the current block
func (l *Ledger) DebtBalance(ctx context.Context, asset, user string) (*uint256.Int, error) {
	st, err := l.current(ctx, asset)
	if err != nil {
		return nil, err
	}

	return l.debtBalance(st, user), nil
}

// Indices compounding indices of asset projected to the current block
func (l *Ledger) Indices(ctx context.Context, asset string) (*core.Indices, error) {
	st, err := l.current(ctx, asset)
	if err != nil {
		return nil, err
	}

	return &core.Indices{
		SupplyIndex: st.SupplyIndex,
		DebtIndex:   st.DebtIndex,
		Block:       st.Block,
	}, nil
}

// Pending queued supplies of asset in arrival order
func (l *Ledger) Pending(ctx context.Context, asset string) ([]core.PendingNode, error) {
	if _, err := l.asset(asset); err != nil {
		return nil, err
	}

	return l.reserve.Pending(asset), nil
}

// Backends registered backends
func (l *Ledger) Backends(ctx context.Context) []core.BackendInfo {
	return l.agg.Backends()
}

// Paused effective pause mask of asset, the wildcard included
func (l *Ledger) Paused(ctx context.Context, asset string) core.PauseMask {
	return l.pausedMask(asset)
}
