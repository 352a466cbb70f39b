package reserve

import (
	"aggregator/core"
	"aggregator/pkg/ray"
)

// Export deep copy of the queue
func (q *Queue) Export() *core.ReserveState {
	state := &core.ReserveState{
		Nodes:              make([]core.PendingNode, len(q.nodes)),
		Free:               append([]core.NodeID(nil), q.free...),
		Lists:              make(map[string]*core.PendingList, len(q.lists)),
		Caps:               make(map[string]core.ReserveCaps, len(q.caps)),
		MaxPendingRatioBps: q.maxPendingRatioBps,
	}

	for i, n := range q.nodes {
		n.Amount = ray.Copy(n.Amount)
		state.Nodes[i] = n
	}

	for asset, l := range q.lists {
		state.Lists[asset] = l.Clone()
	}

	for asset, c := range q.caps {
		state.Caps[asset] = core.ReserveCaps{
			MaxReserve:             ray.Copy(c.MaxReserve),
			ExecuteSupplyThreshold: ray.Copy(c.ExecuteSupplyThreshold),
			ReserveRatioBps:        c.ReserveRatioBps,
		}
	}

	return state
}

// Import replace the queue with state
func (q *Queue) Import(token string, state *core.ReserveState) error {
	if err := q.authorize(token); err != nil {
		return err
	}

	q.Restore(state)
	return nil
}

// Restore replace the queue with a snapshot taken by Export
func (q *Queue) Restore(state *core.ReserveState) {
	if state == nil {
		return
	}

	cp := *state
	copied := (&Queue{
		nodes:              cp.Nodes,
		free:               cp.Free,
		lists:              cp.Lists,
		caps:               cp.Caps,
		maxPendingRatioBps: cp.MaxPendingRatioBps,
	}).Export()

	q.nodes = copied.Nodes
	if len(q.nodes) == 0 {
		q.nodes = []core.PendingNode{{}}
	}

	q.free = copied.Free
	q.lists = copied.Lists
	q.caps = copied.Caps
	q.maxPendingRatioBps = copied.MaxPendingRatioBps
}
