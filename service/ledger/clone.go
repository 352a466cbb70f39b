package ledger

import (
	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
)

func cloneAsset(a *core.Asset) *core.Asset {
	cp := *a
	cp.Caps = core.ReserveCaps{
		MaxReserve:             ray.Copy(a.Caps.MaxReserve),
		ExecuteSupplyThreshold: ray.Copy(a.Caps.ExecuteSupplyThreshold),
		ReserveRatioBps:        a.Caps.ReserveRatioBps,
	}

	return &cp
}

func cloneAssets(assets map[string]*core.Asset) map[string]*core.Asset {
	out := make(map[string]*core.Asset, len(assets))
	for k, a := range assets {
		out[k] = cloneAsset(a)
	}

	return out
}

func cloneStates(states map[string]*core.AssetState) map[string]*core.AssetState {
	out := make(map[string]*core.AssetState, len(states))
	for k, s := range states {
		out[k] = s.Clone()
	}

	return out
}

func cloneBalances(balances map[string]map[string]*uint256.Int) map[string]map[string]*uint256.Int {
	out := make(map[string]map[string]*uint256.Int, len(balances))
	for asset, users := range balances {
		m := make(map[string]*uint256.Int, len(users))
		for u, v := range users {
			m[u] = ray.Copy(v)
		}

		out[asset] = m
	}

	return out
}

func cloneOptIn(optIn map[string]map[string]bool) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(optIn))
	for asset, users := range optIn {
		m := make(map[string]bool, len(users))
		for u, v := range users {
			m[u] = v
		}

		out[asset] = m
	}

	return out
}

func clonePaused(paused map[string]core.PauseMask) map[string]core.PauseMask {
	out := make(map[string]core.PauseMask, len(paused))
	for k, v := range paused {
		out[k] = v
	}

	return out
}

func cloneConsumed(consumed map[string]bool) map[string]bool {
	out := make(map[string]bool, len(consumed))
	for k, v := range consumed {
		out[k] = v
	}

	return out
}
