package aggregator

import (
	"context"

	"aggregator/core"
)

// Begin open a transaction, backend calls made until Commit are undone by Rollback
func (a *Aggregator) Begin(token string) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	if a.inTx {
		return core.NewError(core.ErrReentrant, "aggregator transaction already open")
	}

	a.inTx = true
	a.journal = a.journal[:0]
	a.saved = a.snapshot()
	return nil
}

// Commit keep every call of the transaction
func (a *Aggregator) Commit(token string) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	a.inTx = false
	a.journal = nil
	a.saved = nil
	return nil
}

// Rollback compensate the calls of the transaction in reverse order and restore the positions
func (a *Aggregator) Rollback(ctx context.Context, token string) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	if !a.inTx {
		return nil
	}

	a.compensate(ctx, 0)
	if a.saved != nil {
		a.positions = a.saved
	}

	a.inTx = false
	a.journal = nil
	a.saved = nil
	return nil
}

func (a *Aggregator) snapshot() map[string][]*core.BackendPosition {
	out := make(map[string][]*core.BackendPosition, len(a.positions))
	for asset, positions := range a.positions {
		out[asset] = clonePositions(positions)
	}

	return out
}

// Export backends and cached positions
func (a *Aggregator) Export() *core.AggregatorState {
	return &core.AggregatorState{
		Backends:  a.Backends(),
		Positions: a.snapshot(),
	}
}

// Import restore exported state, the same backends must already be registered in the same order
func (a *Aggregator) Import(token string, state *core.AggregatorState) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	if state == nil {
		return nil
	}

	if len(state.Backends) > len(a.backends) {
		return core.NewError(core.ErrConfiguration, "state has %d backends, %d registered", len(state.Backends), len(a.backends))
	}

	for i, info := range state.Backends {
		if a.backends[i].info.Name != info.Name {
			return core.NewError(core.ErrConfiguration, "backend %d is %s, state has %s", i, a.backends[i].info.Name, info.Name)
		}
	}

	for i, info := range state.Backends {
		a.backends[i].info.Enabled = info.Enabled
		a.backends[i].info.Removed = info.Removed
	}

	a.positions = map[string][]*core.BackendPosition{}
	for asset, positions := range state.Positions {
		cloned := clonePositions(positions)
		for i, p := range cloned {
			p.Backend = i
		}

		a.positions[asset] = cloned
		a.slots(asset)
	}

	return nil
}
