package ledger

import (
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/pkg/number"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bob borrows 14000 usdc against 10 eth
func newLiquidationFixture(t *testing.T) *fixture {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "alice", usdcAsset, tokens(20_000), false)
	f.supply(t, "bob", ethAsset, tokens(10), true)
	f.borrow(t, "bob", usdcAsset, tokens(14_000))
	return f
}

func TestLiquidateHealthyPosition(t *testing.T) {
	f := newLiquidationFixture(t)

	err := f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(1000), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(1)},
	)
	assert.True(t, errors.Is(err, core.ErrLiquidationNotAllowed))
}

func TestLiquidateBounds(t *testing.T) {
	f := newLiquidationFixture(t)
	// 17000 * 0.8 = 13600 < 14000
	f.prices[ethAsset] = number.Decimal("1700")

	// at most half of the debt
	err := f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(7001), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(1)},
	)
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral))

	// 7000 * 1.05 / 1700 = 4.32 eth
	err = f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(7000), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(5)},
	)
	assert.True(t, errors.Is(err, core.ErrInsufficientCollateral))
	assert.Equal(t, tokens(14_000).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	err = f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(7000), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(4)},
	)
	require.Nil(t, err)

	assert.Equal(t, tokens(7000).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())
	assert.Equal(t, tokens(6).Dec(), f.supplyBalance(t, ethAsset, "bob").Dec())

	seized := f.paid.to("carol", ethAsset)
	require.Len(t, seized, 1)
	assert.Equal(t, tokens(4).Dec(), seized[0].Amount.String())

	liquidated := f.events.kind(core.EventLiquidated)
	require.Len(t, liquidated, 1)
	assert.Equal(t, "bob", liquidated[0].User)
	assert.Equal(t, tokens(7000).Dec(), liquidated[0].Amount)

	status := f.ledger.UserStatus(f.ctx, "bob")
	assert.True(t, status.Get(0).Debt)
	assert.True(t, status.Get(1).Collateral)
	f.checkFlags(t, "alice", "bob", "carol")
}

func TestLiquidateNotAllowed(t *testing.T) {
	f := newLiquidationFixture(t)
	f.prices[ethAsset] = number.Decimal("1700")

	cases := []struct {
		name   string
		repay  *core.Request
		redeem *core.Request
	}{
		{
			name:   "self",
			repay:  f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(100), To: "bob"}),
			redeem: &core.Request{Asset: ethAsset, Amount: tokens(1)},
		},
		{
			name:   "no target",
			repay:  f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(100)}),
			redeem: &core.Request{Asset: ethAsset, Amount: tokens(1)},
		},
		{
			name:   "same asset",
			repay:  f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(100), To: "bob"}),
			redeem: &core.Request{Asset: usdcAsset, Amount: tokens(1)},
		},
		{
			name:   "no collateral",
			repay:  f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(100), To: "alice"}),
			redeem: &core.Request{Asset: ethAsset, Amount: tokens(1)},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := f.ledger.Liquidate(f.ctx, c.repay, c.redeem)
			assert.True(t, errors.Is(err, core.ErrLiquidationNotAllowed), "%v", err)
		})
	}

	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, ethAsset, core.PauseRedeem))
	err := f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(100), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(1)},
	)
	assert.True(t, errors.Is(err, core.ErrLiquidationNotAllowed))

	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, ethAsset, 0))
	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, usdcAsset, core.PauseLiquidate))
	err = f.ledger.Liquidate(f.ctx,
		f.funded(t, &core.Request{Sender: "carol", Asset: usdcAsset, Amount: tokens(100), To: "bob"}),
		&core.Request{Asset: ethAsset, Amount: tokens(1)},
	)
	assert.True(t, errors.Is(err, core.ErrActionPaused))

	assert.Equal(t, tokens(14_000).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())
}
