package core

import (
	"github.com/holiman/uint256"
)

// NodeID handle of a pending queue node, zero is nil
type NodeID int

type (
	// PendingNode queued supply of one user for one asset
	PendingNode struct {
		ID         NodeID       `json:"id"`
		Asset      string       `json:"asset"`
		User       string       `json:"user"`
		Amount     *uint256.Int `json:"amount"`
		Collateral bool         `json:"collateral"`
		Next       NodeID       `json:"next"`
	}

	// PendingList per asset queue head, tail and buffer amounts
	PendingList struct {
		Head  NodeID `json:"head"`
		Tail  NodeID `json:"tail"`
		Count int    `json:"count"`
		// Pending queued supplies not yet credited
		Pending *uint256.Int `json:"pending"`
		// PendingRepay repaid funds awaiting forwarding to backends
		PendingRepay *uint256.Int `json:"pending_repay"`
		// Idle retained liquidity free to serve redeems and borrows
		Idle *uint256.Int `json:"idle"`
	}

	// ReserveState exported reserve queue state
	ReserveState struct {
		Nodes              []PendingNode           `json:"nodes"`
		Free               []NodeID                `json:"free"`
		Lists              map[string]*PendingList `json:"lists"`
		Caps               map[string]ReserveCaps  `json:"caps"`
		MaxPendingRatioBps uint64                  `json:"max_pending_ratio_bps"`
	}
)

// Buffer total funds held outside the backends
func (l *PendingList) Buffer() *uint256.Int {
	sum := cloneInt(l.Pending)
	sum.Add(sum, cloneInt(l.PendingRepay))
	sum.Add(sum, cloneInt(l.Idle))
	return sum
}

// Free funds that may serve redeems and borrows
func (l *PendingList) Free() *uint256.Int {
	return new(uint256.Int).Add(cloneInt(l.Idle), cloneInt(l.PendingRepay))
}

// Clone deep copy
func (l *PendingList) Clone() *PendingList {
	return &PendingList{
		Head:         l.Head,
		Tail:         l.Tail,
		Count:        l.Count,
		Pending:      cloneInt(l.Pending),
		PendingRepay: cloneInt(l.PendingRepay),
		Idle:         cloneInt(l.Idle),
	}
}
