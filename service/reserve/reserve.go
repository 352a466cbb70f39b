package reserve

import (
	"aggregator/core"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
)

// Queue per asset FIFO of pending supplies plus the idle buffer. Nodes live in an
// arena addressed by NodeID, freed handles are recycled.
type Queue struct {
	token string

	// nodes[0] is the nil handle
	nodes              []core.PendingNode
	free               []core.NodeID
	lists              map[string]*core.PendingList
	caps               map[string]core.ReserveCaps
	maxPendingRatioBps uint64
}

// New new empty queue
func New() *Queue {
	return &Queue{
		nodes: []core.PendingNode{{}},
		lists: map[string]*core.PendingList{},
		caps:  map[string]core.ReserveCaps{},
	}
}

// Bind set the owner capability, only once
func (q *Queue) Bind(token string) error {
	if token == "" {
		return core.NewError(core.ErrConfiguration, "empty token")
	}

	if q.token != "" {
		return core.NewError(core.ErrOperationForbidden, "reserve already bound")
	}

	q.token = token
	return nil
}

func (q *Queue) authorize(token string) error {
	if q.token == "" || token != q.token {
		return core.NewError(core.ErrOperationForbidden, "caller is not the reserve owner")
	}

	return nil
}

func (q *Queue) list(asset string) *core.PendingList {
	l, ok := q.lists[asset]
	if !ok {
		l = &core.PendingList{Pending: ray.Zero(), PendingRepay: ray.Zero(), Idle: ray.Zero()}
		q.lists[asset] = l
	}

	return l
}

// SetCaps set the reserve caps of asset
func (q *Queue) SetCaps(token, asset string, caps core.ReserveCaps) error {
	if err := q.authorize(token); err != nil {
		return err
	}

	if caps.ReserveRatioBps > core.MaxBps {
		return core.NewError(core.ErrConfiguration, "reserve ratio %d bps", caps.ReserveRatioBps)
	}

	q.caps[asset] = core.ReserveCaps{
		MaxReserve:             ray.Copy(caps.MaxReserve),
		ExecuteSupplyThreshold: ray.Copy(caps.ExecuteSupplyThreshold),
		ReserveRatioBps:        caps.ReserveRatioBps,
	}
	q.list(asset)
	return nil
}

// SetReserveParams bound the repay funds awaiting forwarding to a ratio of total borrowed
func (q *Queue) SetReserveParams(token string, maxPendingRatioBps uint64) error {
	if err := q.authorize(token); err != nil {
		return err
	}

	if maxPendingRatioBps > core.MaxBps {
		return core.NewError(core.ErrConfiguration, "max pending ratio %d bps", maxPendingRatioBps)
	}

	q.maxPendingRatioBps = maxPendingRatioBps
	return nil
}

// MaxPendingRatioBps current max pending repay ratio
func (q *Queue) MaxPendingRatioBps() uint64 {
	return q.maxPendingRatioBps
}

// Caps reserve caps of asset
func (q *Queue) Caps(asset string) core.ReserveCaps {
	return q.caps[asset]
}

// Enqueue append a pending supply at the tail of asset's queue
func (q *Queue) Enqueue(token, asset, user string, amount *uint256.Int, collateral bool) (core.NodeID, error) {
	if err := q.authorize(token); err != nil {
		return 0, err
	}

	amount = ray.Copy(amount)
	if amount.IsZero() {
		return 0, core.NewError(core.ErrInvalidAmount, "empty pending supply")
	}

	l := q.list(asset)
	if max := ray.Copy(q.caps[asset].MaxReserve); ray.Add(l.Buffer(), amount).Gt(max) {
		return 0, core.NewError(core.ErrReserveExceeded, "reserve of %s would exceed %s", asset, max.Dec())
	}

	id := q.alloc()
	q.nodes[id] = core.PendingNode{
		ID:         id,
		Asset:      asset,
		User:       user,
		Amount:     amount,
		Collateral: collateral,
	}

	if l.Tail == 0 {
		l.Head = id
	} else {
		q.nodes[l.Tail].Next = id
	}

	l.Tail = id
	l.Count++
	l.Pending = ray.Add(l.Pending, amount)
	return id, nil
}

func (q *Queue) alloc() core.NodeID {
	if n := len(q.free); n > 0 {
		id := q.free[n-1]
		q.free = q.free[:n-1]
		return id
	}

	q.nodes = append(q.nodes, core.PendingNode{})
	return core.NodeID(len(q.nodes) - 1)
}

// Pop detach the head of asset's queue. The node is zeroed before it is returned,
// popping an empty queue returns nil.
func (q *Queue) Pop(token, asset string) (*core.PendingNode, error) {
	if err := q.authorize(token); err != nil {
		return nil, err
	}

	l := q.list(asset)
	if l.Head == 0 {
		return nil, nil
	}

	id := l.Head
	node := q.nodes[id]
	q.nodes[id] = core.PendingNode{}
	q.free = append(q.free, id)

	l.Head = node.Next
	if l.Head == 0 {
		l.Tail = 0
	}

	l.Count--
	l.Pending = ray.Sub(l.Pending, node.Amount)

	node.Next = 0
	return &node, nil
}

// Node pending node by handle, the zero node once flushed
func (q *Queue) Node(id core.NodeID) core.PendingNode {
	if id <= 0 || int(id) >= len(q.nodes) {
		return core.PendingNode{}
	}

	n := q.nodes[id]
	n.Amount = ray.Copy(n.Amount)
	return n
}

// Pending queued nodes of asset in arrival order
func (q *Queue) Pending(asset string) []core.PendingNode {
	var out []core.PendingNode
	l, ok := q.lists[asset]
	if !ok {
		return out
	}

	for id := l.Head; id != 0; id = q.nodes[id].Next {
		out = append(out, q.Node(id))
	}

	return out
}

// List buffer amounts of asset
func (q *Queue) List(asset string) *core.PendingList {
	return q.list(asset).Clone()
}

// ShouldFlush report if the pending supplies of asset reached the execute threshold
func (q *Queue) ShouldFlush(asset string) bool {
	threshold := ray.Copy(q.caps[asset].ExecuteSupplyThreshold)
	if threshold.IsZero() {
		return false
	}

	return !q.list(asset).Pending.Lt(threshold)
}

// Retain keep the reserve ratio of amount idle, bounded by the room under MaxReserve.
// Returns the retained part.
func (q *Queue) Retain(token, asset string, amount *uint256.Int) (*uint256.Int, error) {
	if err := q.authorize(token); err != nil {
		return nil, err
	}

	caps := q.caps[asset]
	keep := ray.Bps(amount, caps.ReserveRatioBps)
	l := q.list(asset)
	if max := ray.Copy(caps.MaxReserve); !max.IsZero() {
		keep = ray.Min(keep, ray.Sub(max, l.Buffer()))
	}

	l.Idle = ray.Add(l.Idle, keep)
	return keep, nil
}

// AddIdle return funds to the idle buffer
func (q *Queue) AddIdle(token, asset string, amount *uint256.Int) error {
	if err := q.authorize(token); err != nil {
		return err
	}

	l := q.list(asset)
	l.Idle = ray.Add(l.Idle, amount)
	return nil
}

// TakeFree draw up to amount from the idle buffer, then from pending repay funds.
// Returns what was drawn.
func (q *Queue) TakeFree(token, asset string, amount *uint256.Int) (*uint256.Int, error) {
	if err := q.authorize(token); err != nil {
		return nil, err
	}

	l := q.list(asset)
	fromIdle := ray.Min(amount, l.Idle)
	l.Idle = ray.Sub(l.Idle, fromIdle)

	fromRepay := ray.Min(ray.Sub(amount, fromIdle), l.PendingRepay)
	l.PendingRepay = ray.Sub(l.PendingRepay, fromRepay)
	return ray.Add(fromIdle, fromRepay), nil
}

// QueueRepay hold repaid funds until the next flush. totalBorrowed is the asset's
// outstanding user debt the pending ratio is measured against.
func (q *Queue) QueueRepay(token, asset string, amount, totalBorrowed *uint256.Int) error {
	if err := q.authorize(token); err != nil {
		return err
	}

	l := q.list(asset)
	next := ray.Add(l.PendingRepay, amount)
	if limit := ray.Bps(totalBorrowed, q.maxPendingRatioBps); next.Gt(limit) {
		return core.NewError(core.ErrReserveExceeded, "pending repay of %s would exceed %s", asset, limit.Dec())
	}

	l.PendingRepay = next
	return nil
}

// TakeRepay drain the repay funds awaiting forwarding
func (q *Queue) TakeRepay(token, asset string) (*uint256.Int, error) {
	if err := q.authorize(token); err != nil {
		return nil, err
	}

	l := q.list(asset)
	amount := l.PendingRepay
	l.PendingRepay = ray.Zero()
	return amount, nil
}
