package ledger

import (
	"context"
	"sync"

	"aggregator/core"

	"github.com/holiman/uint256"
)

type serialized struct {
	mu sync.Mutex
	l  core.LedgerService
}

// Serialize wrap l so that calls from many goroutines run one at a time
func Serialize(l core.LedgerService) core.LedgerService {
	return &serialized{l: l}
}

func (s *serialized) Supply(ctx context.Context, req *core.Request, params core.SupplyParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Supply(ctx, req, params)
}

func (s *serialized) Redeem(ctx context.Context, req *core.Request, params core.RedeemParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Redeem(ctx, req, params)
}

func (s *serialized) Borrow(ctx context.Context, req *core.Request, params core.BorrowParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Borrow(ctx, req, params)
}

func (s *serialized) Repay(ctx context.Context, req *core.Request, params core.RepayParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Repay(ctx, req, params)
}

func (s *serialized) Liquidate(ctx context.Context, repay, redeem *core.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Liquidate(ctx, repay, redeem)
}

func (s *serialized) Flush(ctx context.Context, asset string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Flush(ctx, asset, limit)
}

func (s *serialized) AddAsset(ctx context.Context, admin string, asset *core.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.AddAsset(ctx, admin, asset)
}

func (s *serialized) UpdateAsset(ctx context.Context, admin string, asset *core.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.UpdateAsset(ctx, admin, asset)
}

func (s *serialized) AddBackend(ctx context.Context, admin string, backend core.Backend) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.AddBackend(ctx, admin, backend)
}

func (s *serialized) RemoveBackend(ctx context.Context, admin string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.RemoveBackend(ctx, admin, index)
}

func (s *serialized) SetBackendEnabled(ctx context.Context, admin string, index int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.SetBackendEnabled(ctx, admin, index, enabled)
}

func (s *serialized) SetPaused(ctx context.Context, admin, asset string, mask core.PauseMask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.SetPaused(ctx, admin, asset, mask)
}

func (s *serialized) SetReserveParams(ctx context.Context, admin string, maxPendingRatioBps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.SetReserveParams(ctx, admin, maxPendingRatioBps)
}

func (s *serialized) SetFeeCollector(ctx context.Context, admin, collector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.SetFeeCollector(ctx, admin, collector)
}

func (s *serialized) Assets(ctx context.Context) []*core.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Assets(ctx)
}

func (s *serialized) AssetConfig(ctx context.Context, asset string) (*core.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.AssetConfig(ctx, asset)
}

func (s *serialized) TotalSupplied(ctx context.Context, asset string) (*core.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.TotalSupplied(ctx, asset)
}

func (s *serialized) TotalBorrowed(ctx context.Context, asset string) (*core.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.TotalBorrowed(ctx, asset)
}

func (s *serialized) UserStatus(ctx context.Context, user string) *core.UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.UserStatus(ctx, user)
}

func (s *serialized) AccruedFee(ctx context.Context, asset string) (*core.FeeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.AccruedFee(ctx, asset)
}

func (s *serialized) SupplyBalance(ctx context.Context, asset, user string) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.SupplyBalance(ctx, asset, user)
}

func (s *serialized) DebtBalance(ctx context.Context, asset, user string) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.DebtBalance(ctx, asset, user)
}

func (s *serialized) Indices(ctx context.Context, asset string) (*core.Indices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Indices(ctx, asset)
}

func (s *serialized) Pending(ctx context.Context, asset string) ([]core.PendingNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Pending(ctx, asset)
}

func (s *serialized) Backends(ctx context.Context) []core.BackendInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Backends(ctx)
}

func (s *serialized) Paused(ctx context.Context, asset string) core.PauseMask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Paused(ctx, asset)
}

func (s *serialized) Export(ctx context.Context) (*core.LedgerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Export(ctx)
}

func (s *serialized) Import(ctx context.Context, state *core.LedgerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.l.Import(ctx, state)
}
