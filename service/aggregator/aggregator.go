package aggregator

import (
	"context"

	"aggregator/core"
	"aggregator/internal/interest"
	"aggregator/pkg/ray"
	"aggregator/service/optimizer"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

type entry struct {
	backend core.Backend
	info    core.BackendInfo
}

// Aggregator routes capital of the pool across the registered backends and keeps a cached
// position per asset and backend. Backend positions are held by account.
// Mutating calls carry the token bound by the owner.
type Aggregator struct {
	account       string
	blocks        core.BlockService
	blocksPerYear uint64
	optimizer     *optimizer.Optimizer

	token     string
	backends  []*entry
	positions map[string][]*core.BackendPosition

	// executed backend calls of the open transaction
	journal []call
	saved   map[string][]*core.BackendPosition
	inTx    bool
}

// New new aggregator acting as account
func New(account string, blocks core.BlockService, opt *optimizer.Optimizer) *Aggregator {
	if opt == nil {
		opt = optimizer.New()
	}

	return &Aggregator{
		account:       account,
		blocks:        blocks,
		blocksPerYear: interest.BlocksPerYear,
		optimizer:     opt,
		positions:     map[string][]*core.BackendPosition{},
	}
}

// Account the account holding backend positions
func (a *Aggregator) Account() string {
	return a.account
}

// Bind set the owner capability, only once
func (a *Aggregator) Bind(token string) error {
	if token == "" {
		return core.NewError(core.ErrConfiguration, "empty token")
	}

	if a.token != "" {
		return core.NewError(core.ErrOperationForbidden, "aggregator already bound")
	}

	a.token = token
	return nil
}

func (a *Aggregator) authorize(token string) error {
	if a.token == "" || token != a.token {
		return core.NewError(core.ErrOperationForbidden, "caller is not the aggregator owner")
	}

	return nil
}

// AddBackend append a backend, returns its index
func (a *Aggregator) AddBackend(ctx context.Context, token string, b core.Backend) (int, error) {
	if err := a.authorize(token); err != nil {
		return 0, err
	}

	if b == nil || b.Name() == "" {
		return 0, core.NewError(core.ErrConfiguration, "invalid backend")
	}

	for _, e := range a.backends {
		if !e.info.Removed && e.info.Name == b.Name() {
			return 0, core.NewError(core.ErrConfiguration, "backend %s already added", b.Name())
		}
	}

	idx := len(a.backends)
	a.backends = append(a.backends, &entry{
		backend: b,
		info:    core.BackendInfo{Index: idx, Name: b.Name(), Enabled: true},
	})

	for asset := range a.positions {
		a.slots(asset)
		a.refreshRates(ctx, asset, idx)
	}

	logger.FromContext(ctx).WithField("aggregator", "add_backend").Infoln(idx, b.Name())
	return idx, nil
}

// RemoveBackend retire a drained backend, its index is never reused
func (a *Aggregator) RemoveBackend(ctx context.Context, token string, index int) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	e, err := a.entry(index)
	if err != nil {
		return err
	}

	for asset, positions := range a.positions {
		if index < len(positions) && !positions[index].Empty() {
			return core.NewError(core.ErrConfiguration, "backend %d still holds %s", index, asset)
		}
	}

	e.info.Removed = true
	e.info.Enabled = false
	logger.FromContext(ctx).WithField("aggregator", "remove_backend").Infoln(index, e.info.Name)
	return nil
}

// SetBackendEnabled enable or disable a backend without removing it
func (a *Aggregator) SetBackendEnabled(ctx context.Context, token string, index int, enabled bool) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	e, err := a.entry(index)
	if err != nil {
		return err
	}

	if e.info.Removed && enabled {
		return core.NewError(core.ErrConfiguration, "backend %d removed", index)
	}

	e.info.Enabled = enabled
	return nil
}

// Backends registered backends in index order
func (a *Aggregator) Backends() []core.BackendInfo {
	out := make([]core.BackendInfo, len(a.backends))
	for i, e := range a.backends {
		out[i] = e.info
	}

	return out
}

// Backend adapter at index
func (a *Aggregator) Backend(index int) (core.Backend, error) {
	e, err := a.entry(index)
	if err != nil {
		return nil, err
	}

	return e.backend, nil
}

func (a *Aggregator) entry(index int) (*entry, error) {
	if index < 0 || index >= len(a.backends) {
		return nil, core.NewError(core.ErrBackendNotFound, "no backend at %d", index)
	}

	return a.backends[index], nil
}

// slots positions of asset, grown to the number of backends
func (a *Aggregator) slots(asset string) []*core.BackendPosition {
	positions := a.positions[asset]
	for len(positions) < len(a.backends) {
		positions = append(positions, &core.BackendPosition{
			Backend:    len(positions),
			Supplied:   ray.Zero(),
			Borrowed:   ray.Zero(),
			SupplyRate: ray.Zero(),
			BorrowRate: ray.Zero(),
		})
	}

	a.positions[asset] = positions
	return positions
}

// Position cached position of the pool at backend index
func (a *Aggregator) Position(asset string, index int) (*core.BackendPosition, error) {
	positions := a.slots(asset)
	if index < 0 || index >= len(positions) {
		return nil, core.NewError(core.ErrBackendNotFound, "no backend at %d", index)
	}

	return positions[index].Clone(), nil
}

func (a *Aggregator) candidates(asset string) []optimizer.Candidate {
	positions := a.slots(asset)
	var out []optimizer.Candidate
	for i, e := range a.backends {
		if !e.info.Enabled || e.info.Removed {
			continue
		}

		out = append(out, optimizer.Candidate{
			Index:    i,
			Backend:  e.backend,
			Supplied: ray.Copy(positions[i].Supplied),
			Borrowed: ray.Copy(positions[i].Borrowed),
		})
	}

	return out
}

func sum(values []*uint256.Int) *uint256.Int {
	total := ray.Zero()
	for _, v := range values {
		total = ray.Add(total, v)
	}

	return total
}
