package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
)

// AddAsset list a new asset, its index is the next free one
func (l *Ledger) AddAsset(ctx context.Context, admin string, asset *core.Asset) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	if asset == nil {
		return core.NewError(core.ErrConfiguration, "nil asset")
	}

	if err := asset.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		if _, ok := l.assets[asset.ID]; ok {
			return core.NewError(core.ErrConfiguration, "asset %s already listed", asset.ID)
		}

		listed := cloneAsset(asset)
		listed.Index = len(l.order)
		l.assets[listed.ID] = listed
		l.order = append(l.order, listed.ID)
		l.states[listed.ID] = &core.AssetState{
			Asset:             listed.ID,
			SupplyIndex:       ray.One(),
			DebtIndex:         ray.One(),
			TotalScaledSupply: ray.Zero(),
			TotalScaledDebt:   ray.Zero(),
			Fee: core.FeeState{
				AccFee:       ray.Zero(),
				FeeIndex:     ray.Zero(),
				AccFeeOffset: ray.Zero(),
				Collected:    ray.Zero(),
				Deficit:      ray.Zero(),
			},
			Block: l.block,
		}

		if err := l.reserve.SetCaps(l.token, listed.ID, listed.Caps); err != nil {
			return err
		}

		l.touched[listed.ID] = true
		logger.FromContext(ctx).Infoln("asset listed", listed.ID, listed.Index)
		return nil
	})
}

// UpdateAsset change the config and caps of a listed asset, identity and index are kept
func (l *Ledger) UpdateAsset(ctx context.Context, admin string, asset *core.Asset) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	if asset == nil {
		return core.NewError(core.ErrConfiguration, "nil asset")
	}

	if err := asset.Validate(); err != nil {
		return err
	}

	return l.run(ctx, core.ActionAdmin, []string{asset.ID}, func(ctx context.Context) error {
		if _, err := l.accrue(ctx, asset.ID); err != nil {
			return err
		}

		current := l.assets[asset.ID]
		updated := cloneAsset(asset)
		updated.Index = current.Index
		if !updated.CollateralEligible && current.CollateralEligible && len(l.optIn[asset.ID]) > 0 {
			return core.NewError(core.ErrConfiguration, "%s is still used as collateral", asset.ID)
		}

		l.assets[asset.ID] = updated
		return l.reserve.SetCaps(l.token, asset.ID, updated.Caps)
	})
}

// AddBackend register a backend adapter, returns its index
func (l *Ledger) AddBackend(ctx context.Context, admin string, backend core.Backend) (int, error) {
	if err := l.isAdmin(admin); err != nil {
		return 0, err
	}

	var idx int
	err := l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		for _, asset := range l.order {
			if _, err := l.accrue(ctx, asset); err != nil {
				return err
			}
		}

		var err error
		idx, err = l.agg.AddBackend(ctx, l.token, backend)
		return err
	})

	return idx, err
}

// RemoveBackend retire a drained backend
func (l *Ledger) RemoveBackend(ctx context.Context, admin string, index int) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		return l.agg.RemoveBackend(ctx, l.token, index)
	})
}

// SetBackendEnabled enable or disable a backend for new allocations
func (l *Ledger) SetBackendEnabled(ctx context.Context, admin string, index int, enabled bool) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		return l.agg.SetBackendEnabled(ctx, l.token, index, enabled)
	})
}

// SetPaused replace the pause mask of asset, or of every asset with the wildcard
func (l *Ledger) SetPaused(ctx context.Context, admin, asset string, mask core.PauseMask) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	if mask&^core.PauseAll != 0 {
		return core.NewError(core.ErrConfiguration, "unknown pause bits %b", mask)
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		if _, ok := l.assets[asset]; !ok && asset != core.WildcardAsset {
			return core.NewError(core.ErrAssetNotFound, "asset %s not listed", asset)
		}

		if mask == 0 {
			delete(l.paused, asset)
		} else {
			l.paused[asset] = mask
		}

		logger.FromContext(ctx).Infof("paused %s: %05b", asset, mask)
		return nil
	})
}

// SetReserveParams set the max share of total debt that may wait as pending repay
func (l *Ledger) SetReserveParams(ctx context.Context, admin string, maxPendingRatioBps uint64) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		return l.reserve.SetReserveParams(l.token, maxPendingRatioBps)
	})
}

// SetFeeCollector set the account collected fees are paid to
func (l *Ledger) SetFeeCollector(ctx context.Context, admin, collector string) error {
	if err := l.isAdmin(admin); err != nil {
		return err
	}

	if collector == "" {
		return core.NewError(core.ErrConfiguration, "empty fee collector")
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		l.collector = collector
		return nil
	})
}
