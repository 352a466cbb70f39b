package optimizer

import (
	"context"
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/internal/interest"
	"aggregator/pkg/number"
	"aggregator/pkg/ray"
	"aggregator/service/backend/simulated"
	"aggregator/service/block"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const asset = "usdc"

var unit = uint256.MustFromDecimal("1000000000000000000")

func tokens(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

func model() interest.RateModel {
	return interest.NewRateModel(
		number.Decimal("0.02"),
		number.Decimal("0.2"),
		number.Decimal("2"),
		number.Decimal("0.8"),
		number.Decimal("0.1"),
	)
}

func newBackend(t *testing.T, name string, clock core.BlockService, supplied, borrowed uint64) *simulated.Backend {
	b := simulated.New(name, "pool", clock)
	require.Nil(t, b.AddMarket(context.Background(), asset, model(), tokens(supplied), tokens(borrowed)))
	return b
}

func candidates(backends ...*simulated.Backend) []Candidate {
	out := make([]Candidate, len(backends))
	for i, b := range backends {
		out[i] = Candidate{Index: i, Backend: b, Supplied: ray.Zero(), Borrowed: ray.Zero()}
	}

	return out
}

func closeTo(t *testing.T, a, b, tolerance *uint256.Int) {
	t.Helper()
	diff := ray.Sub(a, b)
	if b.Gt(a) {
		diff = ray.Sub(b, a)
	}

	assert.False(t, diff.Gt(tolerance), "%s vs %s", a.Dec(), b.Dec())
}

func TestSingleBackend(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1000, 400)

	alloc, err := New().Split(ctx, core.DirectionSupply, asset, tokens(10), candidates(a), 1)
	require.Nil(t, err)
	assert.Equal(t, tokens(10).Dec(), alloc.Deltas[0].Dec())
}

func TestSupplyEqualizesRates(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	b := newBackend(t, "b", clock, 1_000_000, 700_000)

	amount := tokens(1_000_000)
	alloc, err := New().Split(ctx, core.DirectionSupply, asset, amount, candidates(a, b), 2)
	require.Nil(t, err)
	assert.Equal(t, amount.Dec(), alloc.Sum().Dec())
	assert.True(t, alloc.Deltas[1].Gt(alloc.Deltas[0]), "higher rate backend gets more")

	require.Nil(t, a.Supply(ctx, asset, alloc.Deltas[0]))
	require.Nil(t, b.Supply(ctx, asset, alloc.Deltas[1]))

	ra, _ := a.CurrentSupplyRate(ctx, asset)
	rb, _ := b.CurrentSupplyRate(ctx, asset)
	closeTo(t, ra, rb, uint256.NewInt(1e15))
}

func TestSmallSupplyGoesToBestRate(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	b := newBackend(t, "b", clock, 1_000_000, 700_000)

	alloc, err := New().Split(ctx, core.DirectionSupply, asset, tokens(1), candidates(a, b), 2)
	require.Nil(t, err)
	assert.True(t, alloc.Deltas[0].IsZero())
	assert.Equal(t, tokens(1).Dec(), alloc.Deltas[1].Dec())
}

func TestDust(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 700_000)
	b := newBackend(t, "b", clock, 1_000_000, 400_000)

	alloc, err := New().Split(ctx, core.DirectionSupply, asset, uint256.NewInt(1), candidates(a, b), 2)
	require.Nil(t, err)
	assert.Equal(t, "1", alloc.Deltas[0].Dec())
	assert.True(t, alloc.Deltas[1].IsZero())
}

func TestTieKeepsLowerIndex(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 500_000)
	b := newBackend(t, "b", clock, 1_000_000, 500_000)

	alloc, err := New().Split(ctx, core.DirectionSupply, asset, uint256.NewInt(1), candidates(a, b), 2)
	require.Nil(t, err)
	assert.Equal(t, "1", alloc.Deltas[0].Dec())
}

func TestFailingBackendExcluded(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	b := newBackend(t, "b", clock, 1_000_000, 700_000)
	b.Fail(simulated.OpRate, errors.New("rpc down"))

	alloc, err := New().Split(ctx, core.DirectionSupply, asset, tokens(1000), candidates(a, b), 2)
	require.Nil(t, err)
	assert.Equal(t, tokens(1000).Dec(), alloc.Deltas[0].Dec())
	assert.True(t, alloc.Deltas[1].IsZero())
}

func TestRedeemClampsToPosition(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	b := newBackend(t, "b", clock, 1_000_000, 700_000)
	require.Nil(t, a.Supply(ctx, asset, tokens(10)))
	require.Nil(t, b.Supply(ctx, asset, tokens(1000)))

	cs := candidates(a, b)
	cs[0].Supplied = tokens(10)
	cs[1].Supplied = tokens(1000)

	// a has the lower rate and is drained first, then clamped at the pool's position
	alloc, err := New().Split(ctx, core.DirectionRedeem, asset, tokens(500), cs, 2)
	require.Nil(t, err)
	assert.Equal(t, tokens(500).Dec(), alloc.Sum().Dec())
	assert.Equal(t, tokens(10).Dec(), alloc.Deltas[0].Dec())
	assert.Equal(t, tokens(490).Dec(), alloc.Deltas[1].Dec())
}

func TestRedeemInsufficient(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	require.Nil(t, a.Supply(ctx, asset, tokens(10)))

	cs := candidates(a)
	cs[0].Supplied = tokens(10)
	_, err := New().Split(ctx, core.DirectionRedeem, asset, tokens(11), cs, 1)
	assert.True(t, errors.Is(err, core.ErrInsufficientLiquidity))
}

func TestBorrowAndRepay(t *testing.T) {
	ctx := context.Background()
	clock := block.NewManual(1)
	a := newBackend(t, "a", clock, 1_000_000, 400_000)
	b := newBackend(t, "b", clock, 1_000_000, 700_000)

	amount := tokens(100_000)
	alloc, err := New().Split(ctx, core.DirectionBorrow, asset, amount, candidates(a, b), 2)
	require.Nil(t, err)
	assert.Equal(t, amount.Dec(), alloc.Sum().Dec())
	assert.True(t, alloc.Deltas[0].Gt(alloc.Deltas[1]), "cheaper backend lends more")

	require.Nil(t, a.Borrow(ctx, asset, alloc.Deltas[0], "pool"))
	if !alloc.Deltas[1].IsZero() {
		require.Nil(t, b.Borrow(ctx, asset, alloc.Deltas[1], "pool"))
	}

	cs := candidates(a, b)
	cs[0].Borrowed = alloc.Deltas[0]
	cs[1].Borrowed = alloc.Deltas[1]
	repay, err := New().Split(ctx, core.DirectionRepay, asset, tokens(50_000), cs, 2)
	require.Nil(t, err)
	assert.Equal(t, tokens(50_000).Dec(), repay.Sum().Dec())
	assert.False(t, repay.Deltas[0].Gt(alloc.Deltas[0]))
	assert.False(t, repay.Deltas[1].Gt(alloc.Deltas[1]))
}

func TestZeroAmount(t *testing.T) {
	alloc, err := New().Split(context.Background(), core.DirectionSupply, asset, ray.Zero(), nil, 2)
	require.Nil(t, err)
	assert.Len(t, alloc.Deltas, 2)
	assert.True(t, alloc.Sum().IsZero())
}
