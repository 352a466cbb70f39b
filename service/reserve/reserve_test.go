package reserve

import (
	"errors"
	"testing"

	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "owner"

func newQueue(t *testing.T) *Queue {
	q := New()
	require.Nil(t, q.Bind(token))
	require.Nil(t, q.SetCaps(token, "usdc", core.ReserveCaps{
		MaxReserve:             ray.New(1000),
		ExecuteSupplyThreshold: ray.New(500),
		ReserveRatioBps:        500,
	}))
	return q
}

func TestFIFO(t *testing.T) {
	q := newQueue(t)

	first, err := q.Enqueue(token, "usdc", "alice", ray.New(100), true)
	require.Nil(t, err)
	_, err = q.Enqueue(token, "usdc", "bob", ray.New(200), false)
	require.Nil(t, err)

	l := q.List("usdc")
	assert.Equal(t, 2, l.Count)
	assert.Equal(t, "300", l.Pending.Dec())

	pending := q.Pending("usdc")
	require.Len(t, pending, 2)
	assert.Equal(t, "alice", pending[0].User)
	assert.Equal(t, "bob", pending[1].User)

	node, err := q.Pop(token, "usdc")
	require.Nil(t, err)
	assert.Equal(t, "alice", node.User)
	assert.Equal(t, "100", node.Amount.Dec())
	assert.True(t, node.Collateral)

	// flushed node is zeroed
	assert.Equal(t, core.PendingNode{}, q.Node(first))

	node, _ = q.Pop(token, "usdc")
	assert.Equal(t, "bob", node.User)

	l = q.List("usdc")
	assert.Equal(t, 0, l.Count)
	assert.True(t, l.Pending.IsZero())
	assert.Equal(t, core.NodeID(0), l.Head)
	assert.Equal(t, core.NodeID(0), l.Tail)
}

func TestPopEmptyIsNoop(t *testing.T) {
	q := newQueue(t)

	node, err := q.Pop(token, "usdc")
	require.Nil(t, err)
	assert.Nil(t, node)

	node, err = q.Pop(token, "usdc")
	require.Nil(t, err)
	assert.Nil(t, node)
	assert.True(t, q.List("usdc").Pending.IsZero())
}

func TestHandlesRecycled(t *testing.T) {
	q := newQueue(t)

	a, _ := q.Enqueue(token, "usdc", "alice", ray.New(1), false)
	_, _ = q.Pop(token, "usdc")
	b, _ := q.Enqueue(token, "usdc", "bob", ray.New(1), false)
	assert.Equal(t, a, b)
	assert.Equal(t, "bob", q.Node(b).User)
}

func TestMaxReserve(t *testing.T) {
	q := newQueue(t)

	_, err := q.Enqueue(token, "usdc", "alice", ray.New(900), false)
	require.Nil(t, err)
	assert.True(t, q.ShouldFlush("usdc"))

	_, err = q.Enqueue(token, "usdc", "bob", ray.New(101), false)
	assert.True(t, errors.Is(err, core.ErrReserveExceeded))

	_, err = q.Enqueue(token, "usdc", "bob", ray.New(100), false)
	assert.Nil(t, err)
}

func TestRetainAndTakeFree(t *testing.T) {
	q := newQueue(t)

	kept, err := q.Retain(token, "usdc", ray.New(10_000))
	require.Nil(t, err)
	assert.Equal(t, "500", kept.Dec())

	// bounded by the room under MaxReserve
	kept, _ = q.Retain(token, "usdc", ray.New(20_000))
	assert.Equal(t, "500", kept.Dec())
	assert.Equal(t, "1000", q.List("usdc").Idle.Dec())

	require.Nil(t, q.SetReserveParams(token, 1000))
	require.Nil(t, q.QueueRepay(token, "usdc", ray.New(50), ray.New(1000)))

	taken, _ := q.TakeFree(token, "usdc", ray.New(1020))
	assert.Equal(t, "1020", taken.Dec())
	l := q.List("usdc")
	assert.True(t, l.Idle.IsZero())
	assert.Equal(t, "30", l.PendingRepay.Dec())
}

func TestQueueRepayRatio(t *testing.T) {
	q := newQueue(t)
	require.Nil(t, q.SetReserveParams(token, 1000))

	require.Nil(t, q.QueueRepay(token, "usdc", ray.New(100), ray.New(1000)))
	err := q.QueueRepay(token, "usdc", ray.New(1), ray.New(1000))
	assert.True(t, errors.Is(err, core.ErrReserveExceeded))

	repay, _ := q.TakeRepay(token, "usdc")
	assert.Equal(t, "100", repay.Dec())
	assert.True(t, q.List("usdc").PendingRepay.IsZero())

	assert.True(t, errors.Is(q.SetReserveParams(token, 10_001), core.ErrConfiguration))
}

func TestAuthorization(t *testing.T) {
	q := newQueue(t)

	_, err := q.Enqueue("intruder", "usdc", "alice", ray.New(1), false)
	assert.True(t, errors.Is(err, core.ErrOperationForbidden))
	assert.True(t, errors.Is(q.Bind("again"), core.ErrOperationForbidden))
}

func TestExportRestore(t *testing.T) {
	q := newQueue(t)
	_, _ = q.Enqueue(token, "usdc", "alice", ray.New(100), false)
	state := q.Export()

	_, _ = q.Enqueue(token, "usdc", "bob", ray.New(100), false)
	_, _ = q.Pop(token, "usdc")

	q.Restore(state)
	pending := q.Pending("usdc")
	require.Len(t, pending, 1)
	assert.Equal(t, "alice", pending[0].User)
	assert.Equal(t, "100", q.List("usdc").Pending.Dec())

	// the exported state is not aliased
	_, _ = q.Pop(token, "usdc")
	assert.Equal(t, "100", state.Lists["usdc"].Pending.Dec())
}
