package ledger

import (
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) enqueue(t *testing.T, user string, amount *uint256.Int) error {
	t.Helper()
	return f.ledger.Supply(f.ctx, f.funded(t, &core.Request{Sender: user, Asset: usdcAsset, Amount: amount}), core.SupplyParams{UseAsCollateral: true})
}

func TestFlushInArrivalOrder(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{MaxReserve: tokens(1_000_000)})

	require.Nil(t, f.enqueue(t, "alice", tokens(100)))
	require.Nil(t, f.enqueue(t, "bob", tokens(200)))

	pending, err := f.ledger.Pending(f.ctx, usdcAsset)
	require.Nil(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "alice", pending[0].User)
	assert.Equal(t, "bob", pending[1].User)

	// queued supplies are not credited yet but count as reserve
	assert.True(t, f.supplyBalance(t, usdcAsset, "alice").IsZero())
	totals, err := f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.Equal(t, tokens(300).Dec(), totals.Reserve.Dec())
	assert.Len(t, f.events.kind(core.EventPendingListUpdated), 2)

	n, err := f.ledger.Flush(f.ctx, usdcAsset, 1)
	require.Nil(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, tokens(100).Dec(), f.supplyBalance(t, usdcAsset, "alice").Dec())
	assert.True(t, f.supplyBalance(t, usdcAsset, "bob").IsZero())
	assert.True(t, f.ledger.UserStatus(f.ctx, "alice").Get(0).Collateral)

	pending, err = f.ledger.Pending(f.ctx, usdcAsset)
	require.Nil(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "bob", pending[0].User)

	n, err = f.ledger.Flush(f.ctx, usdcAsset, 1)
	require.Nil(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, tokens(200).Dec(), f.supplyBalance(t, usdcAsset, "bob").Dec())

	executed := f.events.kind(core.EventSupplyExecuted)
	require.Len(t, executed, 2)
	assert.Equal(t, "alice", executed[0].User)
	assert.Equal(t, "bob", executed[1].User)

	// nothing left
	n, err = f.ledger.Flush(f.ctx, usdcAsset, 10)
	require.Nil(t, err)
	assert.Equal(t, 0, n)

	totals, err = f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.True(t, totals.Reserve.IsZero())
	assert.Equal(t, tokens(300).Dec(), totals.Total.Dec())
	f.checkFlags(t, "alice", "bob")
}

func TestFlushThreshold(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{
		MaxReserve:             tokens(1_000_000),
		ExecuteSupplyThreshold: tokens(250),
	})

	require.Nil(t, f.enqueue(t, "alice", tokens(100)))
	assert.True(t, f.supplyBalance(t, usdcAsset, "alice").IsZero())

	require.Nil(t, f.enqueue(t, "bob", tokens(200)))
	assert.Equal(t, tokens(100).Dec(), f.supplyBalance(t, usdcAsset, "alice").Dec())
	assert.Equal(t, tokens(200).Dec(), f.supplyBalance(t, usdcAsset, "bob").Dec())

	pending, err := f.ledger.Pending(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.Len(t, pending, 0)
}

func TestQueueReserveExceeded(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{MaxReserve: tokens(150)})

	require.Nil(t, f.enqueue(t, "alice", tokens(100)))
	err := f.enqueue(t, "bob", tokens(100))
	assert.True(t, errors.Is(err, core.ErrReserveExceeded))

	pending, err := f.ledger.Pending(f.ctx, usdcAsset)
	require.Nil(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, tokens(100).Dec(), pending[0].Amount.Dec())

	// executing immediately skips the queue
	f.supply(t, "bob", usdcAsset, tokens(100), false)
	assert.Equal(t, tokens(100).Dec(), f.supplyBalance(t, usdcAsset, "bob").Dec())
}

func TestQueuedRepay(t *testing.T) {
	f := newFixture(t, core.ReserveCaps{})
	require.Nil(t, f.ledger.SetReserveParams(f.ctx, admin, 1000))

	f.supply(t, "alice", usdcAsset, tokens(2000), false)
	f.supply(t, "bob", ethAsset, tokens(10), true)
	f.borrow(t, "bob", usdcAsset, tokens(1000))

	err := f.ledger.Repay(f.ctx, f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(50)}), core.RepayParams{})
	require.Nil(t, err)
	assert.Equal(t, tokens(950).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	totals, err := f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.Equal(t, tokens(50).Dec(), totals.Reserve.Dec())

	// 10% of the 950 left
	err = f.ledger.Repay(f.ctx, f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(60)}), core.RepayParams{})
	assert.True(t, errors.Is(err, core.ErrReserveExceeded))
	assert.Equal(t, tokens(950).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	err = f.ledger.Repay(f.ctx, f.funded(t, &core.Request{Sender: "bob", Asset: usdcAsset, Amount: tokens(60)}), core.RepayParams{ExecuteImmediately: true})
	require.Nil(t, err)
	assert.Equal(t, tokens(890).Dec(), f.debtBalance(t, usdcAsset, "bob").Dec())

	n, err := f.ledger.Flush(f.ctx, usdcAsset, -1)
	require.Nil(t, err)
	assert.Equal(t, 0, n)

	totals, err = f.ledger.TotalSupplied(f.ctx, usdcAsset)
	require.Nil(t, err)
	assert.True(t, totals.Reserve.IsZero())
	assert.Equal(t, ray.Sub(tokens(2000), tokens(890)).Dec(), totals.Total.Dec())
}
