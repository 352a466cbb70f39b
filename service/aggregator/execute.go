package aggregator

import (
	"context"
	"fmt"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

type call struct {
	backend int
	asset   string
	dir     core.Direction
	amount  *uint256.Int
}

// SupplyAndRepay pay down the pool's backend borrow with amount first, supply the remainder.
// hints, when they cover every backend and sum to the supplied remainder, replace the optimizer split.
func (a *Aggregator) SupplyAndRepay(ctx context.Context, token, asset string, amount *uint256.Int, hints []*uint256.Int) (*core.Execution, error) {
	if err := a.authorize(token); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithField("aggregator", "supply_and_repay")
	ctx = logger.WithContext(ctx, log)

	amount = ray.Copy(amount)
	exec := &core.Execution{}
	if amount.IsZero() {
		return exec, nil
	}

	mark, err := a.prepare(ctx, asset)
	if err != nil {
		return nil, err
	}

	repay := ray.Min(amount, a.TotalBorrowed(asset).Total)
	if !repay.IsZero() {
		alloc, err := a.optimizer.Split(ctx, core.DirectionRepay, asset, repay, a.candidates(asset), len(a.backends))
		if err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		if err := a.execute(ctx, asset, alloc); err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		exec.Repaid = alloc
	}

	rest := ray.Sub(amount, repay)
	if !rest.IsZero() {
		alloc := a.hinted(ctx, asset, rest, hints)
		if alloc == nil {
			alloc, err = a.optimizer.Split(ctx, core.DirectionSupply, asset, rest, a.candidates(asset), len(a.backends))
			if err != nil {
				return nil, a.abort(ctx, mark, err)
			}
		}

		if err := a.execute(ctx, asset, alloc); err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		exec.Supplied = alloc
	}

	a.settle(ctx, asset, mark)
	return exec, nil
}

// RedeemAndBorrow release amount to to by redeeming the pool's backend supply first,
// whatever can't be redeemed is borrowed by the pool
func (a *Aggregator) RedeemAndBorrow(ctx context.Context, token, asset string, amount *uint256.Int, to string) (*core.Execution, error) {
	if err := a.authorize(token); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).WithField("aggregator", "redeem_and_borrow")
	ctx = logger.WithContext(ctx, log)

	amount = ray.Copy(amount)
	exec := &core.Execution{}
	if amount.IsZero() {
		return exec, nil
	}

	if to == "" {
		to = a.account
	}

	mark, err := a.prepare(ctx, asset)
	if err != nil {
		return nil, err
	}

	redeem := ray.Min(amount, a.redeemable(ctx, asset))
	if !redeem.IsZero() {
		alloc, err := a.optimizer.Split(ctx, core.DirectionRedeem, asset, redeem, a.candidates(asset), len(a.backends))
		if err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		if err := a.executeTo(ctx, asset, alloc, to); err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		exec.Redeemed = alloc
	}

	shortfall := ray.Sub(amount, redeem)
	if !shortfall.IsZero() {
		alloc, err := a.optimizer.Split(ctx, core.DirectionBorrow, asset, shortfall, a.candidates(asset), len(a.backends))
		if err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		if err := a.executeTo(ctx, asset, alloc, to); err != nil {
			return nil, a.abort(ctx, mark, err)
		}

		exec.Borrowed = alloc
		log.Infoln("pool borrows", shortfall.Dec(), asset)
	}

	a.settle(ctx, asset, mark)
	return exec, nil
}

// redeemable pool supply that enabled backends can pay out right now
func (a *Aggregator) redeemable(ctx context.Context, asset string) *uint256.Int {
	total := ray.Zero()
	for _, c := range a.candidates(asset) {
		usage, err := c.Backend.Usage(ctx, asset)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warnln("usage", c.Backend.Name(), asset)
			continue
		}

		cash := ray.Sub(usage.TotalSupplied, usage.TotalBorrowed)
		total = ray.Add(total, ray.Min(c.Supplied, cash))
	}

	return total
}

func (a *Aggregator) hinted(ctx context.Context, asset string, amount *uint256.Int, hints []*uint256.Int) *core.Allocation {
	if len(hints) == 0 {
		return nil
	}

	log := logger.FromContext(ctx)
	if len(hints) != len(a.backends) || !sum(hints).Eq(amount) {
		log.Infoln("ignore hints, they don't split", amount.Dec())
		return nil
	}

	alloc := &core.Allocation{Direction: core.DirectionSupply, Total: ray.Copy(amount), Deltas: make([]*uint256.Int, len(hints))}
	for i, h := range hints {
		h = ray.Copy(h)
		if !h.IsZero() && !a.backends[i].info.Enabled {
			log.Infoln("ignore hints, backend disabled", i)
			return nil
		}

		alloc.Deltas[i] = h
	}

	return alloc
}

// prepare fold interest up to the current block and mark the journal
func (a *Aggregator) prepare(ctx context.Context, asset string) (*mark, error) {
	block, err := a.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, err
	}

	a.fold(asset, block)
	return &mark{
		asset:     asset,
		journal:   len(a.journal),
		positions: clonePositions(a.slots(asset)),
	}, nil
}

type mark struct {
	asset     string
	journal   int
	positions []*core.BackendPosition
}

func (a *Aggregator) execute(ctx context.Context, asset string, alloc *core.Allocation) error {
	return a.executeTo(ctx, asset, alloc, a.account)
}

// executeTo perform alloc in index order, journaling every successful call
func (a *Aggregator) executeTo(ctx context.Context, asset string, alloc *core.Allocation, to string) error {
	positions := a.slots(asset)
	for i, delta := range alloc.Deltas {
		if delta == nil || delta.IsZero() {
			continue
		}

		c := call{backend: i, asset: asset, dir: alloc.Direction, amount: ray.Copy(delta)}
		if err := a.invoke(ctx, c, to); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("aggregator.execute", alloc.Direction, a.backends[i].info.Name)
			return core.WrapError(core.ErrBackendCallFailure, err, fmt.Sprintf("%s %s at %s", alloc.Direction, asset, a.backends[i].info.Name))
		}

		a.journal = append(a.journal, c)

		p := positions[i]
		switch c.dir {
		case core.DirectionSupply:
			p.Supplied = ray.Add(p.Supplied, delta)
		case core.DirectionRedeem:
			p.Supplied = ray.Sub(p.Supplied, delta)
		case core.DirectionBorrow:
			p.Borrowed = ray.Add(p.Borrowed, delta)
		case core.DirectionRepay:
			p.Borrowed = ray.Sub(p.Borrowed, delta)
		}
	}

	return nil
}

func (a *Aggregator) invoke(ctx context.Context, c call, to string) error {
	b := a.backends[c.backend].backend
	switch c.dir {
	case core.DirectionSupply:
		return b.Supply(ctx, c.asset, c.amount)
	case core.DirectionRedeem:
		return b.Redeem(ctx, c.asset, c.amount, to)
	case core.DirectionBorrow:
		return b.Borrow(ctx, c.asset, c.amount, to)
	case core.DirectionRepay:
		return b.Repay(ctx, c.asset, c.amount)
	}

	return fmt.Errorf("unknown direction %d", c.dir)
}

// inverse call undoing c, funds return to the account
func inverse(c call) call {
	out := c
	switch c.dir {
	case core.DirectionSupply:
		out.dir = core.DirectionRedeem
	case core.DirectionRedeem:
		out.dir = core.DirectionSupply
	case core.DirectionBorrow:
		out.dir = core.DirectionRepay
	case core.DirectionRepay:
		out.dir = core.DirectionBorrow
	}

	return out
}

// abort compensate the calls made since m in reverse order and restore the cached positions
func (a *Aggregator) abort(ctx context.Context, m *mark, cause error) error {
	a.compensate(ctx, m.journal)
	a.positions[m.asset] = m.positions
	return cause
}

func (a *Aggregator) compensate(ctx context.Context, from int) {
	log := logger.FromContext(ctx).WithField("aggregator", "compensate")
	for i := len(a.journal) - 1; i >= from; i-- {
		undo := inverse(a.journal[i])
		if err := a.invoke(ctx, undo, a.account); err != nil {
			log.WithError(err).Errorln("aggregator.compensate", undo.dir, a.backends[undo.backend].info.Name, undo.amount.Dec())
		}
	}

	a.journal = a.journal[:from]
}

// settle sync the touched backends after a successful execution
func (a *Aggregator) settle(ctx context.Context, asset string, m *mark) {
	touched := map[int]bool{}
	for _, c := range a.journal[m.journal:] {
		touched[c.backend] = true
	}

	for idx := range touched {
		a.reconcile(ctx, asset, idx)
	}

	if !a.inTx {
		a.journal = a.journal[:m.journal]
	}
}

func clonePositions(positions []*core.BackendPosition) []*core.BackendPosition {
	out := make([]*core.BackendPosition, len(positions))
	for i, p := range positions {
		out[i] = p.Clone()
	}

	return out
}
