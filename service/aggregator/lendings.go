package aggregator

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// project position p to block with the simple per block compounding every backend replicates
func (a *Aggregator) project(p *core.BackendPosition, block int64) (supplied, borrowed *uint256.Int) {
	blocks := block - p.Block
	if blocks <= 0 || p.Block == 0 {
		return ray.Copy(p.Supplied), ray.Copy(p.Borrowed)
	}

	supplied = ray.Mul(p.Supplied, ray.LinearFactor(p.SupplyRate, blocks, a.blocksPerYear))
	borrowed = ray.Mul(p.Borrowed, ray.LinearFactor(p.BorrowRate, blocks, a.blocksPerYear))
	return ray.Max2(supplied, p.Supplied), ray.Max2(borrowed, p.Borrowed)
}

// SimulateLendings projected positions of asset at block and the interest since the snapshots
func (a *Aggregator) SimulateLendings(asset string, block int64) *core.Lendings {
	positions := a.slots(asset)
	l := &core.Lendings{
		Supplied:       make([]*uint256.Int, len(positions)),
		Borrowed:       make([]*uint256.Int, len(positions)),
		TotalSupplied:  ray.Zero(),
		TotalBorrowed:  ray.Zero(),
		SupplyInterest: ray.Zero(),
		BorrowInterest: ray.Zero(),
	}

	for i, p := range positions {
		supplied, borrowed := a.project(p, block)
		l.Supplied[i], l.Borrowed[i] = supplied, borrowed
		l.TotalSupplied = ray.Add(l.TotalSupplied, supplied)
		l.TotalBorrowed = ray.Add(l.TotalBorrowed, borrowed)
		l.SupplyInterest = ray.Add(l.SupplyInterest, ray.Sub(supplied, p.Supplied))
		l.BorrowInterest = ray.Add(l.BorrowInterest, ray.Sub(borrowed, p.Borrowed))
	}

	l.BorrowRate = a.borrowRate(positions)
	return l
}

// borrowRate position weighted average of the backend borrow rates,
// the plain average of enabled backends while the pool borrows nothing
func (a *Aggregator) borrowRate(positions []*core.BackendPosition) *uint256.Int {
	weighted, weight := ray.Zero(), ray.Zero()
	for _, p := range positions {
		if p.Borrowed == nil || p.Borrowed.IsZero() {
			continue
		}

		weighted = ray.Add(weighted, ray.Mul(p.Borrowed, p.BorrowRate))
		weight = ray.Add(weight, p.Borrowed)
	}

	if !weight.IsZero() {
		return ray.Div(weighted, weight)
	}

	total, n := ray.Zero(), uint64(0)
	for i, p := range positions {
		if i >= len(a.backends) || !a.backends[i].info.Enabled {
			continue
		}

		total = ray.Add(total, p.BorrowRate)
		n++
	}

	if n == 0 {
		return ray.Zero()
	}

	return new(uint256.Int).Div(total, uint256.NewInt(n))
}

// Accrue fold the projected interest of asset into the cached positions
func (a *Aggregator) Accrue(ctx context.Context, token, asset string, block int64) (*core.Lendings, error) {
	if err := a.authorize(token); err != nil {
		return nil, err
	}

	return a.fold(asset, block), nil
}

func (a *Aggregator) fold(asset string, block int64) *core.Lendings {
	l := a.SimulateLendings(asset, block)
	for i, p := range a.slots(asset) {
		p.Supplied, p.Borrowed = l.Supplied[i], l.Borrowed[i]
		if block > p.Block {
			p.Block = block
		}
	}

	return l
}

// TotalSupplied cached supply of the pool at every backend
func (a *Aggregator) TotalSupplied(asset string) *core.Totals {
	positions := a.slots(asset)
	t := &core.Totals{Breakdown: make([]*uint256.Int, len(positions)), Reserve: ray.Zero()}
	for i, p := range positions {
		t.Breakdown[i] = ray.Copy(p.Supplied)
	}

	t.Total = sum(t.Breakdown)
	return t
}

// TotalBorrowed cached borrow of the pool at every backend
func (a *Aggregator) TotalBorrowed(asset string) *core.Totals {
	positions := a.slots(asset)
	t := &core.Totals{Breakdown: make([]*uint256.Int, len(positions)), Reserve: ray.Zero()}
	for i, p := range positions {
		t.Breakdown[i] = ray.Copy(p.Borrowed)
	}

	t.Total = sum(t.Breakdown)
	return t
}

// Refresh re-read the current rates of asset from every enabled backend
func (a *Aggregator) Refresh(ctx context.Context, token, asset string) error {
	if err := a.authorize(token); err != nil {
		return err
	}

	a.slots(asset)
	for i := range a.backends {
		a.refreshRates(ctx, asset, i)
	}

	return nil
}

func (a *Aggregator) refreshRates(ctx context.Context, asset string, index int) {
	e := a.backends[index]
	if !e.info.Enabled {
		return
	}

	log := logger.FromContext(ctx).WithField("aggregator", "refresh")
	p := a.slots(asset)[index]
	if rate, err := e.backend.CurrentSupplyRate(ctx, asset); err == nil {
		p.SupplyRate = ray.Copy(rate)
	} else {
		log.WithError(err).Warnln("supply rate", e.info.Name, asset)
	}

	if rate, err := e.backend.CurrentBorrowRate(ctx, asset); err == nil {
		p.BorrowRate = ray.Copy(rate)
	} else {
		log.WithError(err).Warnln("borrow rate", e.info.Name, asset)
	}
}

// reconcile replace the cached amounts of a touched backend with what the backend reports
func (a *Aggregator) reconcile(ctx context.Context, asset string, index int) {
	e := a.backends[index]
	log := logger.FromContext(ctx).WithField("aggregator", "reconcile")
	p := a.slots(asset)[index]

	if supplied, err := e.backend.SupplyOf(ctx, asset, a.account); err == nil {
		p.Supplied = ray.Copy(supplied)
	} else {
		log.WithError(err).Warnln("supply of", e.info.Name, asset)
	}

	if borrowed, err := e.backend.DebtOf(ctx, asset, a.account); err == nil {
		p.Borrowed = ray.Copy(borrowed)
	} else {
		log.WithError(err).Warnln("debt of", e.info.Name, asset)
	}

	a.refreshRates(ctx, asset, index)
}
