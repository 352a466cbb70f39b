package ledger

import (
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/pkg/number"
	"aggregator/pkg/ray"
	"aggregator/service/backend/simulated"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyNeedsDeposit(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "alice", usdcAsset, tokens(1_000_000), false)

	// unfunded collateral never backs a borrow
	err := f.ledger.Supply(f.ctx, &core.Request{Sender: "mallory", Asset: ethAsset, Amount: tokens(1000)}, core.SupplyParams{
		UseAsCollateral:    true,
		ExecuteImmediately: true,
	})
	assert.True(t, errors.Is(err, core.ErrDepositNotFound))
	assert.True(t, f.supplyBalance(t, ethAsset, "mallory").IsZero())

	err = f.ledger.Borrow(f.ctx, &core.Request{Sender: "mallory", Asset: usdcAsset, Amount: tokens(500_000)}, core.BorrowParams{})
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral))
	assert.Len(t, f.paid.to("mallory", usdcAsset), 0)

	err = f.ledger.Supply(f.ctx, &core.Request{Sender: "mallory", Asset: ethAsset, Amount: tokens(1), TraceID: "unknown"}, core.SupplyParams{})
	assert.True(t, errors.Is(err, core.ErrDepositNotFound))
}

func TestDepositMustMatchRequest(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})

	req := f.funded(t, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(100)})

	cases := []struct {
		name string
		req  *core.Request
		code core.ErrorCode
	}{
		{
			name: "other sender",
			req:  &core.Request{Sender: "mallory", Asset: usdcAsset, Amount: tokens(100), TraceID: req.TraceID},
			code: core.ErrOperationForbidden,
		},
		{
			name: "other asset",
			req:  &core.Request{Sender: "alice", Asset: ethAsset, Amount: tokens(100), TraceID: req.TraceID},
			code: core.ErrOperationForbidden,
		},
		{
			name: "larger amount",
			req:  &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(1000), TraceID: req.TraceID},
			code: core.ErrInvalidAmount,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := f.ledger.Supply(f.ctx, c.req, core.SupplyParams{ExecuteImmediately: true})
			assert.True(t, errors.Is(err, c.code), "%v", err)
		})
	}

	// fractional deposits are not base units
	fraction := &core.Deposit{TraceID: "fraction", UserID: "alice", AssetID: usdcAsset, Amount: decimal.RequireFromString("1.5")}
	require.Nil(t, f.deposits.Save(f.ctx, fraction))
	err := f.ledger.Supply(f.ctx, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: uint256.NewInt(1), TraceID: "fraction"}, core.SupplyParams{})
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))

	assert.True(t, f.supplyBalance(t, usdcAsset, "alice").IsZero())
	require.Nil(t, f.ledger.Supply(f.ctx, req, core.SupplyParams{ExecuteImmediately: true}))
	assert.Equal(t, tokens(100).Dec(), f.supplyBalance(t, usdcAsset, "alice").Dec())
}

func TestDepositCreditedOnce(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "alice", usdcAsset, tokens(1000), false)
	f.supply(t, "bob", ethAsset, tokens(10), true)
	f.borrow(t, "bob", usdcAsset, tokens(500))

	req := f.funded(t, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(100)})
	require.Nil(t, f.ledger.Supply(f.ctx, req, core.SupplyParams{ExecuteImmediately: true}))

	err := f.ledger.Supply(f.ctx, req, core.SupplyParams{ExecuteImmediately: true})
	assert.True(t, errors.Is(err, core.ErrDepositConsumed))
	assert.Equal(t, tokens(1100).Dec(), f.supplyBalance(t, usdcAsset, "alice").Dec())

	// the same deposit can't also repay a debt
	err = f.ledger.Repay(f.ctx, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(100), To: "bob", TraceID: req.TraceID}, core.RepayParams{})
	assert.True(t, errors.Is(err, core.ErrDepositConsumed))

	// nor can a repay go unfunded
	err = f.ledger.Repay(f.ctx, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(500)}, core.RepayParams{ExecuteImmediately: true})
	assert.True(t, errors.Is(err, core.ErrDepositNotFound))
	assert.Equal(t, tokens(500).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	// a deposit the custody store marked consumed is refused as well
	used := f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(500)})
	require.Nil(t, f.deposits.UpdateStatus(f.ctx, used.TraceID, core.DepositStatusConsumed))
	err = f.ledger.Repay(f.ctx, used, core.RepayParams{ExecuteImmediately: true})
	assert.True(t, errors.Is(err, core.ErrDepositConsumed))
	assert.Equal(t, tokens(500).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	state, err := f.ledger.Export(f.ctx)
	require.Nil(t, err)
	assert.True(t, state.Consumed[req.TraceID])
	assert.False(t, state.Consumed[used.TraceID])
}

func TestFailedOperationReleasesDeposit(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.b.Fail(simulated.OpSupply, errors.New("reverted"))

	req := f.funded(t, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(1_000_000)})
	err := f.ledger.Supply(f.ctx, req, core.SupplyParams{ExecuteImmediately: true})
	assert.True(t, errors.Is(err, core.ErrBackendCallFailure))

	f.b.Fail(simulated.OpSupply, nil)
	require.Nil(t, f.ledger.Supply(f.ctx, req, core.SupplyParams{ExecuteImmediately: true}))
	assert.Equal(t, tokens(1_000_000).Dec(), f.supplyBalance(t, usdcAsset, "alice").Dec())
}

func TestLiquidateNeedsDeposit(t *testing.T) {
	f := newLiquidationFixture(t)
	f.prices[ethAsset] = number.Decimal("1700")

	err := f.ledger.Liquidate(f.ctx,
		&core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(7000), To: "bob"},
		&core.Request{Asset: ethAsset, Amount: tokens(4)},
	)
	assert.True(t, errors.Is(err, core.ErrDepositNotFound))
	assert.Equal(t, tokens(14_000).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())
	assert.Len(t, f.paid.to("carol", ethAsset), 0)
}

// near cached and backend reported amounts differ only by per block compounding
func near(t *testing.T, want, got *uint256.Int, msg string) {
	t.Helper()
	diff := ray.Sub(want, got)
	if got.Gt(want) {
		diff = ray.Sub(got, want)
	}

	bound := ray.Add(new(uint256.Int).Div(want, uint256.NewInt(1_000_000)), uint256.NewInt(1000))
	assert.False(t, diff.Gt(bound), "%s: cached %s, backend %s", msg, got.Dec(), want.Dec())
}

func TestPositionsMatchBackends(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	backends := []*simulated.Backend{f.a, f.b}

	f.supply(t, "alice", usdcAsset, tokens(100_000), false)
	f.supply(t, "bob", ethAsset, tokens(100), true)
	f.borrow(t, "bob", usdcAsset, tokens(100_000))

	// fully deployed supply, the redeem is financed by a pool borrow
	err := f.ledger.Redeem(f.ctx, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(40_000)}, core.RedeemParams{})
	require.Nil(t, err)

	check := func(step int) {
		supplied, err := f.ledger.TotalSupplied(f.ctx, usdcAsset)
		require.Nil(t, err)
		borrowed, err := f.ledger.TotalBorrowed(f.ctx, usdcAsset)
		require.Nil(t, err)
		require.Len(t, supplied.Breakdown, len(backends))
		require.Len(t, borrowed.Breakdown, len(backends))

		for i, b := range backends {
			onBackend, err := b.SupplyOf(f.ctx, usdcAsset, custody)
			require.Nil(t, err)
			near(t, onBackend, supplied.Breakdown[i], "supply")

			owed, err := b.DebtOf(f.ctx, usdcAsset, custody)
			require.Nil(t, err)
			near(t, owed, borrowed.Breakdown[i], "debt")
		}

		t.Logf("step %d supplied %s borrowed %s", step, supplied.Total.Dec(), borrowed.Total.Dec())
	}

	check(0)
	pool, err := f.ledger.TotalBorrowed(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.False(t, pool.Total.IsZero())

	for step := 1; step <= 5; step++ {
		f.clock.Advance(10_000)
		f.supply(t, "carol", usdcAsset, tokens(100), false)
		check(step)
	}

	f.clock.Advance(10_000)
	repay := f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(1000)})
	require.Nil(t, f.ledger.Repay(f.ctx, repay, core.RepayParams{ExecuteImmediately: true}))
	check(6)
}
