package simulated

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"aggregator/core"
	"aggregator/internal/interest"
	"aggregator/pkg/ray"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
)

// ExternalAccount owner of the liquidity seeded with AddMarket
const ExternalAccount = "external"

const (
	// OpSupply supply
	OpSupply = "supply"
	// OpRedeem redeem
	OpRedeem = "redeem"
	// OpBorrow borrow
	OpBorrow = "borrow"
	// OpRepay repay
	OpRepay = "repay"
	// OpRate rate and inverse queries
	OpRate = "rate"
)

type market struct {
	model             interest.RateModel
	cash              *uint256.Int
	totalScaledSupply *uint256.Int
	totalScaledDebt   *uint256.Int
	supplyIndex       *uint256.Int
	borrowIndex       *uint256.Int
	block             int64
	supplies          map[string]*uint256.Int
	debts             map[string]*uint256.Int
}

// Backend in-memory lending protocol with a kinked jump rate curve per asset.
// Calls without an account act on behalf of the account given to New.
type Backend struct {
	name          string
	account       string
	blocks        core.BlockService
	blocksPerYear uint64

	mu       sync.Mutex
	markets  map[string]*market
	failures map[string]error
}

// New new simulated backend
func New(name, account string, blocks core.BlockService) *Backend {
	return &Backend{
		name:          name,
		account:       account,
		blocks:        blocks,
		blocksPerYear: interest.BlocksPerYear,
		markets:       map[string]*market{},
		failures:      map[string]error{},
	}
}

// AddMarket list an asset with external supplied and borrowed liquidity
func (b *Backend) AddMarket(ctx context.Context, asset string, model interest.RateModel, supplied, borrowed *uint256.Int) error {
	supplied, borrowed = ray.Copy(supplied), ray.Copy(borrowed)
	if borrowed.Gt(supplied) {
		return errors.New("borrowed exceeds supplied")
	}

	block, err := b.blocks.CurrentBlock(ctx)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.markets[asset]; ok {
		return fmt.Errorf("market %s already listed", asset)
	}

	m := &market{
		model:             model,
		cash:              ray.Sub(supplied, borrowed),
		totalScaledSupply: ray.Copy(supplied),
		totalScaledDebt:   ray.Copy(borrowed),
		supplyIndex:       ray.One(),
		borrowIndex:       ray.One(),
		block:             block,
		supplies:          map[string]*uint256.Int{},
		debts:             map[string]*uint256.Int{},
	}

	if !supplied.IsZero() {
		m.supplies[ExternalAccount] = ray.Copy(supplied)
	}

	if !borrowed.IsZero() {
		m.debts[ExternalAccount] = ray.Copy(borrowed)
	}

	b.markets[asset] = m
	return nil
}

// Fail make every following call of op return err, nil clears it
func (b *Backend) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		delete(b.failures, op)
		return
	}

	b.failures[op] = err
}

// Cash liquidity held by the backend
func (b *Backend) Cash(asset string) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.markets[asset]; ok {
		return ray.Copy(m.cash)
	}

	return ray.Zero()
}

func (b *Backend) Name() string {
	return b.name
}

func (b *Backend) begin(ctx context.Context, op, asset string, touch bool) (*market, int64, error) {
	if err, ok := b.failures[op]; ok {
		return nil, 0, err
	}

	m, ok := b.markets[asset]
	if !ok {
		return nil, 0, fmt.Errorf("%s: market %s not listed", b.name, asset)
	}

	block, err := b.blocks.CurrentBlock(ctx)
	if err != nil {
		return nil, 0, err
	}

	if touch {
		m.supplyIndex, m.borrowIndex = b.project(m, block)
		if block > m.block {
			m.block = block
		}
	}

	return m, block, nil
}

// project indices of m at block without mutating m
func (b *Backend) project(m *market, block int64) (supplyIndex, borrowIndex *uint256.Int) {
	if block <= m.block {
		return m.supplyIndex, m.borrowIndex
	}

	u := interest.UtilizationRate(b.totals(m, m.supplyIndex, m.borrowIndex))
	blocks := block - m.block
	supplyIndex = ray.Mul(m.supplyIndex, ray.LinearFactor(m.model.SupplyRate(u), blocks, b.blocksPerYear))
	borrowIndex = ray.Mul(m.borrowIndex, ray.LinearFactor(m.model.BorrowRate(u), blocks, b.blocksPerYear))
	return supplyIndex, borrowIndex
}

func (b *Backend) totals(m *market, supplyIndex, borrowIndex *uint256.Int) (supplied, borrowed *uint256.Int) {
	return ray.FromScaled(m.totalScaledSupply, supplyIndex), ray.FromScaledUp(m.totalScaledDebt, borrowIndex)
}

func (b *Backend) Supply(ctx context.Context, asset string, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpSupply, asset, true)
	if err != nil {
		return err
	}

	scaled := ray.ToScaled(amount, m.supplyIndex)
	m.supplies[b.account] = ray.Add(m.supplies[b.account], scaled)
	m.totalScaledSupply = ray.Add(m.totalScaledSupply, scaled)
	m.cash = ray.Add(m.cash, amount)

	logger.FromContext(ctx).WithField("backend", b.name).Debugln("supply", asset, amount.Dec())
	return nil
}

func (b *Backend) Redeem(ctx context.Context, asset string, amount *uint256.Int, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpRedeem, asset, true)
	if err != nil {
		return err
	}

	scaled := ray.Copy(m.supplies[b.account])
	if balance := ray.FromScaled(scaled, m.supplyIndex); amount.Gt(balance) {
		return fmt.Errorf("%s: redeem %s exceeds supply %s", b.name, amount.Dec(), balance.Dec())
	}

	if amount.Gt(m.cash) {
		return fmt.Errorf("%s: insufficient cash", b.name)
	}

	burn := ray.Min(ray.ToScaledUp(amount, m.supplyIndex), scaled)
	m.supplies[b.account] = ray.Sub(scaled, burn)
	m.totalScaledSupply = ray.Sub(m.totalScaledSupply, burn)
	m.cash = ray.Sub(m.cash, amount)
	return nil
}

func (b *Backend) Borrow(ctx context.Context, asset string, amount *uint256.Int, to string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpBorrow, asset, true)
	if err != nil {
		return err
	}

	if amount.Gt(m.cash) {
		return fmt.Errorf("%s: insufficient cash", b.name)
	}

	scaled := ray.ToScaledUp(amount, m.borrowIndex)
	m.debts[b.account] = ray.Add(m.debts[b.account], scaled)
	m.totalScaledDebt = ray.Add(m.totalScaledDebt, scaled)
	m.cash = ray.Sub(m.cash, amount)
	return nil
}

func (b *Backend) Repay(ctx context.Context, asset string, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpRepay, asset, true)
	if err != nil {
		return err
	}

	scaled := ray.Copy(m.debts[b.account])
	owed := ray.FromScaledUp(scaled, m.borrowIndex)
	if amount.Gt(owed) {
		return fmt.Errorf("%s: repay %s exceeds debt %s", b.name, amount.Dec(), owed.Dec())
	}

	burn := scaled
	if amount.Lt(owed) {
		burn = ray.Min(ray.ToScaled(amount, m.borrowIndex), scaled)
	}

	m.debts[b.account] = ray.Sub(scaled, burn)
	m.totalScaledDebt = ray.Sub(m.totalScaledDebt, burn)
	m.cash = ray.Add(m.cash, amount)
	return nil
}

func (b *Backend) SupplyOf(ctx context.Context, asset, account string) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, block, err := b.begin(ctx, OpRate, asset, false)
	if err != nil {
		return nil, err
	}

	supplyIndex, _ := b.project(m, block)
	return ray.FromScaled(m.supplies[account], supplyIndex), nil
}

func (b *Backend) DebtOf(ctx context.Context, asset, account string) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, block, err := b.begin(ctx, OpRate, asset, false)
	if err != nil {
		return nil, err
	}

	_, borrowIndex := b.project(m, block)
	return ray.FromScaledUp(m.debts[account], borrowIndex), nil
}

func (b *Backend) usage(ctx context.Context, asset string) (*market, core.Usage, error) {
	m, block, err := b.begin(ctx, OpRate, asset, false)
	if err != nil {
		return nil, core.Usage{}, err
	}

	supplyIndex, borrowIndex := b.project(m, block)
	supplied, borrowed := b.totals(m, supplyIndex, borrowIndex)
	return m, core.Usage{TotalSupplied: supplied, TotalBorrowed: borrowed}, nil
}

func (b *Backend) Usage(ctx context.Context, asset string) (core.Usage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, usage, err := b.usage(ctx, asset)
	return usage, err
}

func (b *Backend) CurrentSupplyRate(ctx context.Context, asset string) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, usage, err := b.usage(ctx, asset)
	if err != nil {
		return nil, err
	}

	return m.model.SupplyRate(interest.UtilizationRate(usage.TotalSupplied, usage.TotalBorrowed)), nil
}

func (b *Backend) CurrentBorrowRate(ctx context.Context, asset string) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, usage, err := b.usage(ctx, asset)
	if err != nil {
		return nil, err
	}

	return m.model.BorrowRate(interest.UtilizationRate(usage.TotalSupplied, usage.TotalBorrowed)), nil
}

func (b *Backend) AmountForTargetSupplyRate(ctx context.Context, asset string, target *uint256.Int, usage core.Usage) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpRate, asset, false)
	if err != nil {
		return nil, err
	}

	return m.model.SupplyForRate(target, usage.TotalBorrowed), nil
}

func (b *Backend) AmountForTargetBorrowRate(ctx context.Context, asset string, target *uint256.Int, usage core.Usage) (*uint256.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m, _, err := b.begin(ctx, OpRate, asset, false)
	if err != nil {
		return nil, err
	}

	return m.model.BorrowForRate(target, usage.TotalSupplied), nil
}
