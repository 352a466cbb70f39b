package ledger

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"
)

// Export full ledger state, aggregator positions and reserve queue included
func (l *Ledger) Export(ctx context.Context) (*core.LedgerState, error) {
	if l.entered {
		return nil, core.NewError(core.ErrReentrant, "export while an operation is running")
	}

	block, err := l.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}

	assets := make([]*core.Asset, 0, len(l.order))
	for _, id := range l.order {
		assets = append(assets, cloneAsset(l.assets[id]))
	}

	return &core.LedgerState{
		Block:      block,
		Assets:     assets,
		States:     cloneStates(l.states),
		Supplies:   cloneBalances(l.supplies),
		Debts:      cloneBalances(l.debts),
		OptIn:      cloneOptIn(l.optIn),
		Status:     l.status.Snapshot(),
		Paused:     clonePaused(l.paused),
		Collector:  l.collector,
		Aggregator: l.agg.Export(),
		Reserve:    l.reserve.Export(),
		Consumed:   cloneConsumed(l.consumed),
	}, nil
}

// Import replace the ledger state with an export. Backends must be registered in the
// same order as when the state was exported.
func (l *Ledger) Import(ctx context.Context, state *core.LedgerState) error {
	if state == nil {
		return core.NewError(core.ErrConfiguration, "nil state")
	}

	return l.run(ctx, core.ActionAdmin, nil, func(ctx context.Context) error {
		assets := map[string]*core.Asset{}
		order := make([]string, len(state.Assets))
		for i, a := range state.Assets {
			if a.Index != i {
				return core.NewError(core.ErrConfiguration, "asset %s at %d has index %d", a.ID, i, a.Index)
			}

			if _, ok := state.States[a.ID]; !ok {
				return core.NewError(core.ErrConfiguration, "asset %s has no state", a.ID)
			}

			assets[a.ID] = cloneAsset(a)
			order[i] = a.ID
		}

		if err := l.agg.Import(l.token, state.Aggregator); err != nil {
			return err
		}

		if err := l.reserve.Import(l.token, state.Reserve); err != nil {
			return err
		}

		l.assets = assets
		l.order = order
		l.states = cloneStates(state.States)
		for _, st := range l.states {
			st.SupplyIndex = ray.Max2(st.SupplyIndex, ray.Ray)
			st.DebtIndex = ray.Max2(st.DebtIndex, ray.Ray)
		}

		l.supplies = cloneBalances(state.Supplies)
		l.debts = cloneBalances(state.Debts)
		l.optIn = cloneOptIn(state.OptIn)
		l.paused = clonePaused(state.Paused)
		if state.Collector != "" {
			l.collector = state.Collector
		}

		l.consumed = cloneConsumed(state.Consumed)
		l.status.Restore(state.Status)
		return nil
	})
}
