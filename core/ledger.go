package core

import (
	"context"

	"github.com/holiman/uint256"
)

type (
	// AssetState compounding state of an asset
	AssetState struct {
		Asset string `json:"asset"`
		// SupplyIndex ray, underlying per scaled supply unit
		SupplyIndex *uint256.Int `json:"supply_index"`
		// DebtIndex ray, underlying per scaled debt unit
		DebtIndex         *uint256.Int `json:"debt_index"`
		TotalScaledSupply *uint256.Int `json:"total_scaled_supply"`
		TotalScaledDebt   *uint256.Int `json:"total_scaled_debt"`
		Fee               FeeState     `json:"fee"`
		Block             int64        `json:"block"`
	}

	// Indices view of the compounding indices
	Indices struct {
		SupplyIndex *uint256.Int `json:"supply_index"`
		DebtIndex   *uint256.Int `json:"debt_index"`
		Block       int64        `json:"block"`
	}

	// AggregatorState exported aggregator state
	AggregatorState struct {
		Backends  []BackendInfo                 `json:"backends"`
		Positions map[string][]*BackendPosition `json:"positions"`
	}

	// LedgerState exported ledger state
	LedgerState struct {
		Block      int64                              `json:"block"`
		Assets     []*Asset                           `json:"assets"`
		States     map[string]*AssetState             `json:"states"`
		Supplies   map[string]map[string]*uint256.Int `json:"supplies"`
		Debts      map[string]map[string]*uint256.Int `json:"debts"`
		OptIn      map[string]map[string]bool         `json:"opt_in"`
		Status     map[string]*UserStatus             `json:"status"`
		Paused     map[string]PauseMask               `json:"paused"`
		Collector  string                             `json:"collector"`
		Aggregator *AggregatorState                   `json:"aggregator"`
		Reserve    *ReserveState                      `json:"reserve"`
		// Consumed trace ids of custody deposits already credited
		Consumed map[string]bool `json:"consumed,omitempty"`
	}

	// LedgerService ledger entry points
	LedgerService interface {
		Supply(ctx context.Context, req *Request, params SupplyParams) error
		Redeem(ctx context.Context, req *Request, params RedeemParams) error
		Borrow(ctx context.Context, req *Request, params BorrowParams) error
		Repay(ctx context.Context, req *Request, params RepayParams) error
		Liquidate(ctx context.Context, repay, redeem *Request) error
		Flush(ctx context.Context, asset string, limit int) (int, error)

		AddAsset(ctx context.Context, admin string, asset *Asset) error
		UpdateAsset(ctx context.Context, admin string, asset *Asset) error
		AddBackend(ctx context.Context, admin string, backend Backend) (int, error)
		RemoveBackend(ctx context.Context, admin string, index int) error
		SetBackendEnabled(ctx context.Context, admin string, index int, enabled bool) error
		SetPaused(ctx context.Context, admin, asset string, mask PauseMask) error
		SetReserveParams(ctx context.Context, admin string, maxPendingRatioBps uint64) error
		SetFeeCollector(ctx context.Context, admin, collector string) error

		Assets(ctx context.Context) []*Asset
		AssetConfig(ctx context.Context, asset string) (*Asset, error)
		TotalSupplied(ctx context.Context, asset string) (*Totals, error)
		TotalBorrowed(ctx context.Context, asset string) (*Totals, error)
		UserStatus(ctx context.Context, user string) *UserStatus
		AccruedFee(ctx context.Context, asset string) (*FeeState, error)
		SupplyBalance(ctx context.Context, asset, user string) (*uint256.Int, error)
		DebtBalance(ctx context.Context, asset, user string) (*uint256.Int, error)
		Indices(ctx context.Context, asset string) (*Indices, error)
		Pending(ctx context.Context, asset string) ([]PendingNode, error)
		Backends(ctx context.Context) []BackendInfo
		Paused(ctx context.Context, asset string) PauseMask

		Export(ctx context.Context) (*LedgerState, error)
		Import(ctx context.Context, state *LedgerState) error
	}
)

// Clone deep copy
func (s *AssetState) Clone() *AssetState {
	return &AssetState{
		Asset:             s.Asset,
		SupplyIndex:       cloneInt(s.SupplyIndex),
		DebtIndex:         cloneInt(s.DebtIndex),
		TotalScaledSupply: cloneInt(s.TotalScaledSupply),
		TotalScaledDebt:   cloneInt(s.TotalScaledDebt),
		Fee:               s.Fee.Clone(),
		Block:             s.Block,
	}
}
