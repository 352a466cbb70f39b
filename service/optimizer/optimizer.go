package optimizer

import (
	"context"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// Candidate enabled backend eligible for a split, Supplied and Borrowed are
// the pool's own position at that backend
type Candidate struct {
	Index    int
	Backend  core.Backend
	Supplied *uint256.Int
	Borrowed *uint256.Int
}

// Optimizer splits capital movements across backends so post-trade marginal rates converge
type Optimizer struct {
	// Ceiling rate treated as unbounded by the search
	Ceiling *uint256.Int
}

// New new optimizer
func New() *Optimizer {
	return &Optimizer{
		Ceiling: new(uint256.Int).Mul(ray.Ray, uint256.NewInt(1000)),
	}
}

type slot struct {
	Candidate
	usage    core.Usage
	rate     *uint256.Int
	capacity *uint256.Int
	failed   bool
}

type split struct {
	ctx    context.Context
	dir    core.Direction
	asset  string
	slots  []*slot
	failed bool
}

// increasing report if a slot's delta grows with the target rate
func increasing(dir core.Direction) bool {
	return dir == core.DirectionRedeem || dir == core.DirectionBorrow
}

// Split compute the per backend deltas for amount; size is the number of registered backends.
// Backends that error or have no capacity are left out.
func (o *Optimizer) Split(ctx context.Context, dir core.Direction, asset string, amount *uint256.Int, candidates []Candidate, size int) (*core.Allocation, error) {
	log := logger.FromContext(ctx).WithField("optimizer", dir.String())

	alloc := &core.Allocation{
		Direction: dir,
		Total:     ray.Copy(amount),
		Deltas:    make([]*uint256.Int, size),
	}
	for i := range alloc.Deltas {
		alloc.Deltas[i] = ray.Zero()
	}

	if alloc.Total.IsZero() {
		return alloc, nil
	}

	s := &split{ctx: ctx, dir: dir, asset: asset}
	for _, c := range candidates {
		if c.Index < 0 || c.Index >= size {
			continue
		}

		sl, err := prepare(ctx, dir, asset, c)
		if err != nil {
			log.WithError(err).Warnln("exclude backend", c.Index, c.Backend.Name())
			continue
		}

		if sl.capacity.IsZero() {
			continue
		}

		s.slots = append(s.slots, sl)
	}

	if len(s.slots) == 0 {
		return nil, core.NewError(core.ErrInsufficientLiquidity, "no backend can %s %s", dir, asset)
	}

	if len(s.slots) == 1 || alloc.Total.Lt(uint256.NewInt(uint64(len(s.slots)))) {
		if best := s.best(alloc.Total); best != nil {
			alloc.Deltas[best.Index] = ray.Copy(alloc.Total)
			return alloc, nil
		}
	}

	deltas, err := o.waterfill(s, alloc.Total)
	if err != nil {
		return nil, err
	}

	for idx, d := range deltas {
		alloc.Deltas[idx] = d
	}

	if !alloc.Sum().Eq(alloc.Total) {
		return nil, core.NewError(core.ErrUnknown, "split of %s leaks %s", alloc.Total.Dec(), alloc.Sum().Dec())
	}

	return alloc, nil
}

func prepare(ctx context.Context, dir core.Direction, asset string, c Candidate) (*slot, error) {
	usage, err := c.Backend.Usage(ctx, asset)
	if err != nil {
		return nil, err
	}

	usage.TotalSupplied = ray.Copy(usage.TotalSupplied)
	usage.TotalBorrowed = ray.Copy(usage.TotalBorrowed)
	cash := ray.Sub(usage.TotalSupplied, usage.TotalBorrowed)

	sl := &slot{Candidate: c, usage: usage}
	switch dir {
	case core.DirectionSupply:
		sl.rate, err = c.Backend.CurrentSupplyRate(ctx, asset)
		sl.capacity = ray.Copy(ray.Max)
	case core.DirectionRedeem:
		sl.rate, err = c.Backend.CurrentSupplyRate(ctx, asset)
		sl.capacity = ray.Min(c.Supplied, cash)
	case core.DirectionBorrow:
		sl.rate, err = c.Backend.CurrentBorrowRate(ctx, asset)
		sl.capacity = cash
	case core.DirectionRepay:
		sl.rate, err = c.Backend.CurrentBorrowRate(ctx, asset)
		sl.capacity = ray.Copy(c.Borrowed)
	default:
		return nil, core.NewError(core.ErrUnknown, "unknown direction %d", dir)
	}

	if err != nil {
		return nil, err
	}

	sl.rate = ray.Copy(sl.rate)
	return sl, nil
}

// best backend for the whole amount: highest supply rate to supply, lowest to redeem,
// lowest borrow rate to borrow, highest to repay. Ties keep the lower index.
func (s *split) best(amount *uint256.Int) *slot {
	var best *slot
	for _, sl := range s.slots {
		if sl.capacity.Lt(amount) {
			continue
		}

		if best == nil {
			best = sl
			continue
		}

		switch s.dir {
		case core.DirectionSupply, core.DirectionRepay:
			if sl.rate.Gt(best.rate) {
				best = sl
			}
		default:
			if sl.rate.Lt(best.rate) {
				best = sl
			}
		}
	}

	return best
}

// level backend-wide total supply or borrow at which the rate equals r
func (s *split) level(sl *slot, r *uint256.Int) (*uint256.Int, error) {
	switch s.dir {
	case core.DirectionSupply, core.DirectionRedeem:
		return sl.Backend.AmountForTargetSupplyRate(s.ctx, s.asset, r, sl.usage)
	default:
		return sl.Backend.AmountForTargetBorrowRate(s.ctx, s.asset, r, sl.usage)
	}
}

// delta amount slot must move to reach rate r, unclamped
func (s *split) delta(sl *slot, r *uint256.Int) *uint256.Int {
	l, err := s.level(sl, r)
	if err != nil {
		logger.FromContext(s.ctx).WithError(err).Warnln("exclude backend", sl.Index, sl.Backend.Name())
		sl.failed = true
		s.failed = true
		return ray.Zero()
	}

	l = ray.Copy(l)
	switch s.dir {
	case core.DirectionSupply:
		return ray.Sub(l, sl.usage.TotalSupplied)
	case core.DirectionRedeem:
		return ray.Sub(sl.usage.TotalSupplied, l)
	case core.DirectionBorrow:
		return ray.Sub(l, sl.usage.TotalBorrowed)
	default:
		return ray.Sub(sl.usage.TotalBorrowed, l)
	}
}

func (s *split) deltas(active []*slot, r *uint256.Int) ([]*uint256.Int, *uint256.Int) {
	out := make([]*uint256.Int, len(active))
	sum := ray.Zero()
	for i, sl := range active {
		out[i] = s.delta(sl, r)
		sum = ray.Add(sum, out[i])
	}

	return out, sum
}

// search bracket the common target rate. over sums to at least amount, under to at most
// amount; short reports that even the extreme rate can't absorb amount.
func (o *Optimizer) search(s *split, active []*slot, amount *uint256.Int) (over, under []*uint256.Int, short bool) {
	lo, hi := ray.Copy(ray.Max), ray.Zero()
	for _, sl := range active {
		lo = ray.Min(lo, sl.rate)
		hi = ray.Max2(hi, sl.rate)
	}

	zeros := make([]*uint256.Int, len(active))
	for i := range zeros {
		zeros[i] = ray.Zero()
	}

	// covered(r) is monotone: true on the lo side for decreasing deltas,
	// on the hi side for increasing ones
	if increasing(s.dir) {
		hi = ray.Max2(o.Ceiling, hi)
		dHi, sumHi := s.deltas(active, hi)
		if sumHi.Lt(amount) {
			return dHi, zeros, true
		}

		dLo, sumLo := s.deltas(active, lo)
		if !sumLo.Lt(amount) {
			return dLo, zeros, false
		}

		for new(uint256.Int).Sub(hi, lo).Gt(uint256.NewInt(1)) {
			mid := midpoint(lo, hi)
			d, sum := s.deltas(active, mid)
			if sum.Lt(amount) {
				lo, dLo = mid, d
			} else {
				hi, dHi = mid, d
			}
		}

		return dHi, dLo, false
	}

	lo = ray.Zero()
	hi = ray.Add(hi, uint256.NewInt(1))
	dLo, sumLo := s.deltas(active, lo)
	if sumLo.Lt(amount) {
		return dLo, zeros, true
	}

	dHi, sumHi := s.deltas(active, hi)
	if !sumHi.Lt(amount) {
		return dHi, zeros, false
	}

	for new(uint256.Int).Sub(hi, lo).Gt(uint256.NewInt(1)) {
		mid := midpoint(lo, hi)
		d, sum := s.deltas(active, mid)
		if sum.Lt(amount) {
			hi, dHi = mid, d
		} else {
			lo, dLo = mid, d
		}
	}

	return dLo, dHi, false
}

func midpoint(lo, hi *uint256.Int) *uint256.Int {
	diff := new(uint256.Int).Sub(hi, lo)
	return new(uint256.Int).Add(lo, diff.Rsh(diff, 1))
}

// waterfill repeat the search, clamping backends whose delta exceeds capacity
// and excluding them from the following rounds
func (o *Optimizer) waterfill(s *split, amount *uint256.Int) (map[int]*uint256.Int, error) {
	result := map[int]*uint256.Int{}
	remaining := ray.Copy(amount)
	active := append([]*slot(nil), s.slots...)

	for len(active) > 0 && !remaining.IsZero() {
		s.failed = false
		over, under, short := o.search(s, active, remaining)
		if s.failed {
			active = dropFailed(active)
			continue
		}

		var (
			next    []*slot
			clamped bool
		)
		for i, sl := range active {
			if over[i].Gt(sl.capacity) {
				result[sl.Index] = ray.Copy(sl.capacity)
				remaining = ray.Sub(remaining, sl.capacity)
				clamped = true
				continue
			}

			next = append(next, sl)
		}

		if clamped {
			active = next
			continue
		}

		if short {
			return nil, core.NewError(core.ErrInsufficientLiquidity, "backends can't %s %s of %s", s.dir, amount.Dec(), s.asset)
		}

		remaining = distribute(active, over, under, remaining, result)
		break
	}

	if !remaining.IsZero() {
		return nil, core.NewError(core.ErrInsufficientLiquidity, "backends can't %s %s of %s", s.dir, amount.Dec(), s.asset)
	}

	return result, nil
}

// distribute take the under deltas and spread the remainder over the bracket gap in
// registration order, any residual lands on the last backend with capacity.
// Returns what could not be placed.
func distribute(active []*slot, over, under []*uint256.Int, amount *uint256.Int, result map[int]*uint256.Int) *uint256.Int {
	rem := ray.Copy(amount)
	deltas := make([]*uint256.Int, len(active))
	for i := range active {
		deltas[i] = ray.Copy(under[i])
		rem = ray.Sub(rem, under[i])
	}

	for i, sl := range active {
		if rem.IsZero() {
			break
		}

		room := ray.Min(ray.Sub(over[i], deltas[i]), ray.Sub(sl.capacity, deltas[i]))
		extra := ray.Min(rem, room)
		deltas[i] = ray.Add(deltas[i], extra)
		rem = ray.Sub(rem, extra)
	}

	for i := len(active) - 1; i >= 0 && !rem.IsZero(); i-- {
		room := ray.Sub(active[i].capacity, deltas[i])
		extra := ray.Min(rem, room)
		deltas[i] = ray.Add(deltas[i], extra)
		rem = ray.Sub(rem, extra)
	}

	for i, sl := range active {
		if !deltas[i].IsZero() {
			result[sl.Index] = deltas[i]
		}
	}

	return rem
}

func dropFailed(active []*slot) []*slot {
	var out []*slot
	for _, sl := range active {
		if !sl.failed {
			out = append(out, sl)
		}
	}

	return out
}
