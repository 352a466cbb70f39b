package core

import (
	"context"

	"github.com/holiman/uint256"
)

type (
	// Usage backend-wide utilization of one asset
	Usage struct {
		TotalSupplied *uint256.Int `json:"total_supplied"`
		TotalBorrowed *uint256.Int `json:"total_borrowed"`
	}

	// Backend adapter of one external lending protocol. Rates are annual rays.
	Backend interface {
		Name() string
		Supply(ctx context.Context, asset string, amount *uint256.Int) error
		Redeem(ctx context.Context, asset string, amount *uint256.Int, to string) error
		Borrow(ctx context.Context, asset string, amount *uint256.Int, to string) error
		Repay(ctx context.Context, asset string, amount *uint256.Int) error
		SupplyOf(ctx context.Context, asset, account string) (*uint256.Int, error)
		DebtOf(ctx context.Context, asset, account string) (*uint256.Int, error)
		CurrentSupplyRate(ctx context.Context, asset string) (*uint256.Int, error)
		CurrentBorrowRate(ctx context.Context, asset string) (*uint256.Int, error)
		Usage(ctx context.Context, asset string) (Usage, error)
		// AmountForTargetSupplyRate backend-wide total supply at which the supply rate equals target
		AmountForTargetSupplyRate(ctx context.Context, asset string, target *uint256.Int, usage Usage) (*uint256.Int, error)
		// AmountForTargetBorrowRate backend-wide total borrow at which the borrow rate equals target
		AmountForTargetBorrowRate(ctx context.Context, asset string, target *uint256.Int, usage Usage) (*uint256.Int, error)
	}

	// BackendPosition amounts the pool placed at one backend plus the
	// snapshot used to project interest without a backend round trip
	BackendPosition struct {
		Backend    int          `json:"backend"`
		Supplied   *uint256.Int `json:"supplied"`
		Borrowed   *uint256.Int `json:"borrowed"`
		SupplyRate *uint256.Int `json:"supply_rate"`
		BorrowRate *uint256.Int `json:"borrow_rate"`
		Block      int64        `json:"block"`
	}

	// BackendInfo registered backend
	BackendInfo struct {
		Index   int    `json:"index"`
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
		Removed bool   `json:"removed"`
	}

	// Allocation per backend deltas, indexed by backend index, summing to Total
	Allocation struct {
		Direction Direction      `json:"direction"`
		Total     *uint256.Int   `json:"total"`
		Deltas    []*uint256.Int `json:"deltas"`
	}

	// Totals per backend breakdown plus the reserve buffer
	Totals struct {
		Breakdown []*uint256.Int `json:"breakdown"`
		Reserve   *uint256.Int   `json:"reserve"`
		Total     *uint256.Int   `json:"total"`
	}

	// Lendings projected positions and interest since the position snapshots
	Lendings struct {
		Supplied       []*uint256.Int `json:"supplied"`
		Borrowed       []*uint256.Int `json:"borrowed"`
		TotalSupplied  *uint256.Int   `json:"total_supplied"`
		TotalBorrowed  *uint256.Int   `json:"total_borrowed"`
		SupplyInterest *uint256.Int   `json:"supply_interest"`
		BorrowInterest *uint256.Int   `json:"borrow_interest"`
		// BorrowRate position weighted average backend borrow rate
		BorrowRate *uint256.Int `json:"borrow_rate"`
	}

	// Execution backend calls performed by one aggregator operation
	Execution struct {
		Repaid   *Allocation `json:"repaid,omitempty"`
		Supplied *Allocation `json:"supplied,omitempty"`
		Redeemed *Allocation `json:"redeemed,omitempty"`
		Borrowed *Allocation `json:"borrowed,omitempty"`
	}
)

// Direction of a capital movement
type Direction int

const (
	_ Direction = iota
	// DirectionSupply add supply
	DirectionSupply
	// DirectionRedeem remove supply
	DirectionRedeem
	// DirectionBorrow add borrow
	DirectionBorrow
	// DirectionRepay remove borrow
	DirectionRepay
)

func (d Direction) String() string {
	switch d {
	case DirectionSupply:
		return "supply"
	case DirectionRedeem:
		return "redeem"
	case DirectionBorrow:
		return "borrow"
	case DirectionRepay:
		return "repay"
	}

	return "unknown"
}

// Sum of the deltas
func (a *Allocation) Sum() *uint256.Int {
	sum := new(uint256.Int)
	if a == nil {
		return sum
	}

	for _, d := range a.Deltas {
		if d != nil {
			sum.Add(sum, d)
		}
	}

	return sum
}

// Clone deep copy
func (p *BackendPosition) Clone() *BackendPosition {
	return &BackendPosition{
		Backend:    p.Backend,
		Supplied:   cloneInt(p.Supplied),
		Borrowed:   cloneInt(p.Borrowed),
		SupplyRate: cloneInt(p.SupplyRate),
		BorrowRate: cloneInt(p.BorrowRate),
		Block:      p.Block,
	}
}

// Empty report if nothing is placed at the backend
func (p *BackendPosition) Empty() bool {
	return (p.Supplied == nil || p.Supplied.IsZero()) && (p.Borrowed == nil || p.Borrowed.IsZero())
}

func cloneInt(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}

	return new(uint256.Int).Set(x)
}
