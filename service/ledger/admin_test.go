package ledger

import (
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/pkg/number"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminOnly(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})

	forbidden := []error{
		f.ledger.AddAsset(f.ctx, "alice", &core.Asset{ID: "dai", Config: risk()}),
		f.ledger.UpdateAsset(f.ctx, "alice", eth()),
		f.ledger.RemoveBackend(f.ctx, "alice", 0),
		f.ledger.SetBackendEnabled(f.ctx, "alice", 0, false),
		f.ledger.SetPaused(f.ctx, "alice", usdcAsset, core.PauseAll),
		f.ledger.SetReserveParams(f.ctx, "alice", 100),
		f.ledger.SetFeeCollector(f.ctx, "alice", "alice"),
	}

	_, err := f.ledger.AddBackend(f.ctx, "alice", newSimulated(t, "c", f.clock, 0, 0))
	forbidden = append(forbidden, err)

	for i, err := range forbidden {
		assert.True(t, errors.Is(err, core.ErrOperationForbidden), "call %d: %v", i, err)
	}

	assert.Len(t, f.ledger.Assets(f.ctx), 2)
	assert.Len(t, f.ledger.Backends(f.ctx), 2)
	assert.Equal(t, core.PauseMask(0), f.ledger.Paused(f.ctx, usdcAsset))
}

func TestAddAsset(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})

	assets := f.ledger.Assets(f.ctx)
	require.Len(t, assets, 2)
	assert.Equal(t, usdcAsset, assets[0].ID)
	assert.Equal(t, 0, assets[0].Index)
	assert.Equal(t, ethAsset, assets[1].ID)
	assert.Equal(t, 1, assets[1].Index)

	err := f.ledger.AddAsset(f.ctx, admin, eth())
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	bad := &core.Asset{ID: "dai", Decimals: 18, CollateralEligible: true, Config: risk()}
	bad.Config.MaxLTV = number.Decimal("0.9")
	err = f.ledger.AddAsset(f.ctx, admin, bad)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	dai := &core.Asset{ID: "dai", Decimals: 18, Config: risk(), Index: 7}
	require.Nil(t, f.ledger.AddAsset(f.ctx, admin, dai))
	listed, err := f.ledger.AssetConfig(f.ctx, "dai")
	require.Nil(t, err)
	assert.Equal(t, 2, listed.Index)

	indices, err := f.ledger.Indices(f.ctx, "dai")
	require.Nil(t, err)
	assert.Equal(t, "1000000000000000000000000000", indices.SupplyIndex.Dec())

	// not collateral eligible
	err = f.ledger.Supply(f.ctx, f.funded(t, &core.Request{Sender: "alice", Asset: "dai", Amount: tokens(1)}), core.SupplyParams{UseAsCollateral: true})
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestUpdateAsset(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "bob", ethAsset, tokens(1), true)

	update := eth()
	update.Index = 5
	update.Config.FeeRateBps = 2000
	require.Nil(t, f.ledger.UpdateAsset(f.ctx, admin, update))

	listed, err := f.ledger.AssetConfig(f.ctx, ethAsset)
	require.Nil(t, err)
	assert.Equal(t, 1, listed.Index)
	assert.Equal(t, uint64(2000), listed.Config.FeeRateBps)

	update.CollateralEligible = false
	err = f.ledger.UpdateAsset(f.ctx, admin, update)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	err = f.ledger.UpdateAsset(f.ctx, admin, &core.Asset{ID: "dai", Config: risk()})
	assert.True(t, errors.Is(err, core.ErrAssetNotFound))
}

func TestPause(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "alice", usdcAsset, tokens(1000), false)
	f.supply(t, "bob", ethAsset, tokens(10), true)

	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, usdcAsset, core.PauseSupply))
	assert.Equal(t, core.PauseSupply, f.ledger.Paused(f.ctx, usdcAsset))

	err := f.ledger.Supply(f.ctx, f.funded(t, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(1)}), core.SupplyParams{})
	assert.True(t, errors.Is(err, core.ErrActionPaused))

	// other actions and assets keep working
	require.Nil(t, f.ledger.Redeem(f.ctx, &core.Request{Sender: "alice", Asset: usdcAsset, Amount: tokens(1)}, core.RedeemParams{}))
	f.supply(t, "bob", ethAsset, tokens(1), true)

	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, core.WildcardAsset, core.PauseBorrow))
	assert.Equal(t, core.PauseSupply|core.PauseBorrow, f.ledger.Paused(f.ctx, usdcAsset))
	assert.Equal(t, core.PauseBorrow, f.ledger.Paused(f.ctx, ethAsset))

	err = f.ledger.Borrow(f.ctx, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(1)}, core.BorrowParams{})
	assert.True(t, errors.Is(err, core.ErrActionPaused))

	err = f.ledger.SetPaused(f.ctx, admin, usdcAsset, core.PauseMask(1<<6))
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	err = f.ledger.SetPaused(f.ctx, admin, "doge", core.PauseAll)
	assert.True(t, errors.Is(err, core.ErrAssetNotFound))

	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, usdcAsset, 0))
	require.Nil(t, f.ledger.SetPaused(f.ctx, admin, core.WildcardAsset, 0))
	assert.Equal(t, core.PauseMask(0), f.ledger.Paused(f.ctx, usdcAsset))

	f.supply(t, "alice", usdcAsset, tokens(1), false)
	f.borrow(t, "bob", usdcAsset, tokens(1))
}

func TestBackendLifecycle(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	f.supply(t, "alice", usdcAsset, tokens(1_000_000), false)

	// a backend holding pool funds can't be removed
	err := f.ledger.RemoveBackend(f.ctx, admin, 0)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	require.Nil(t, f.ledger.SetBackendEnabled(f.ctx, admin, 0, false))
	backends := f.ledger.Backends(f.ctx)
	require.Len(t, backends, 2)
	assert.False(t, backends[0].Enabled)

	before, err := f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)

	f.supply(t, "bob", usdcAsset, tokens(1000), false)
	after, err := f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.Equal(t, before.Breakdown[0].Dec(), after.Breakdown[0].Dec(), "disabled backend gets no new funds")

	err = f.ledger.RemoveBackend(f.ctx, admin, 9)
	assert.True(t, errors.Is(err, core.ErrBackendNotFound))

	require.Nil(t, f.ledger.SetFeeCollector(f.ctx, admin, "vault"))
	err = f.ledger.SetFeeCollector(f.ctx, admin, "")
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	err = f.ledger.SetReserveParams(f.ctx, admin, 10001)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
