package core

import (
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Config aggregator config
type Config struct {
	App      App             `json:"app"`
	DB       db.Config       `json:"db"`
	Oracle   OracleConfig    `json:"oracle"`
	Backends []BackendConfig `json:"backends"`
	Assets   []AssetOption   `json:"assets"`
	Flusher  FlusherConfig   `json:"flusher"`
	Snapshot SnapshotConfig  `json:"snapshot"`
	Cashier  CashierConfig   `json:"cashier"`
	Syncer   SyncerConfig    `json:"syncer"`
	Session  SessionConfig   `json:"session"`
	Admins   []string        `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	Genesis         int64  `json:"genesis"`
	SecondsPerBlock int64  `json:"seconds_per_block"`
	Custody         string `json:"custody" valid:"required"`
	FeeCollector    string `json:"fee_collector"`
	// MaxPendingRatioBps cap of queued repays as a share of total debt
	MaxPendingRatioBps uint64 `json:"max_pending_ratio_bps"`
}

// OracleConfig price oracle config
type OracleConfig struct {
	EndPoint string            `json:"end_point"`
	TTL      time.Duration     `json:"ttl"`
	Prices   map[string]string `json:"prices"`
}

// StaticPrices parsed fixed prices
func (c OracleConfig) StaticPrices() (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(c.Prices))
	for asset, v := range c.Prices {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return nil, WrapError(ErrConfiguration, err, "price of "+asset)
		}

		prices[asset] = price
	}

	return prices, nil
}

// BackendConfig backend adapter config
type BackendConfig struct {
	Name string `json:"name" valid:"required"`
	// Kind simulated or remote
	Kind     string         `json:"kind" valid:"in(simulated|remote)"`
	EndPoint string         `json:"end_point"`
	Markets  []MarketOption `json:"markets"`
	Timeout  time.Duration  `json:"timeout"`
	Disabled bool           `json:"disabled"`
}

// MarketOption rate curve of one asset on a simulated backend
type MarketOption struct {
	Asset          string `json:"asset" valid:"required"`
	BaseRate       string `json:"base_rate"`
	Multiplier     string `json:"multiplier"`
	JumpMultiplier string `json:"jump_multiplier"`
	Kink           string `json:"kink"`
	ReserveFactor  string `json:"reserve_factor"`
	// Supplied liquidity provided by other users of the backend
	Supplied string `json:"supplied"`
	// Borrowed borrows of other users of the backend
	Borrowed string `json:"borrowed"`
}

// AssetOption asset listed at boot
type AssetOption struct {
	ID                     string `json:"id" valid:"required"`
	Symbol                 string `json:"symbol" valid:"required"`
	Decimals               int32  `json:"decimals"`
	Collateral             bool   `json:"collateral"`
	MaxLTV                 string `json:"max_ltv"`
	LiquidationLTV         string `json:"liquidation_ltv"`
	MaxLiquidateRatio      string `json:"max_liquidate_ratio"`
	LiquidationRewardRatio string `json:"liquidation_reward_ratio"`
	FeeRateBps             uint64 `json:"fee_rate_bps"`
	MaxReserve             string `json:"max_reserve"`
	ExecuteSupplyThreshold string `json:"execute_supply_threshold"`
	ReserveRatioBps        uint64 `json:"reserve_ratio_bps"`
}

// FlusherConfig reserve flusher worker config
type FlusherConfig struct {
	Interval time.Duration `json:"interval"`
	// Batch queued supplies executed per asset and tick, zero drains the queue
	Batch int `json:"batch"`
}

// SnapshotConfig snapshot worker config
type SnapshotConfig struct {
	Interval time.Duration `json:"interval"`
	Keep     time.Duration `json:"keep"`
}

// SyncerConfig custody deposit feed
type SyncerConfig struct {
	EndPoint string        `json:"end_point"`
	Interval time.Duration `json:"interval"`
	Batch    int           `json:"batch"`
	Timeout  time.Duration `json:"timeout"`
}

// CashierConfig payout worker config
type CashierConfig struct {
	EndPoint string        `json:"end_point"`
	Interval time.Duration `json:"interval"`
	Batch    int           `json:"batch"`
	Capacity int64         `json:"capacity"`
	Timeout  time.Duration `json:"timeout"`
}

// Asset convert the option into a listable asset
func (o AssetOption) Asset() (*Asset, error) {
	ratios, err := ParseDecimals(o.MaxLTV, o.LiquidationLTV, o.MaxLiquidateRatio, o.LiquidationRewardRatio)
	if err != nil {
		return nil, WrapError(ErrConfiguration, err, o.ID)
	}

	maxReserve, err := parseAmount(o.MaxReserve)
	if err != nil {
		return nil, WrapError(ErrConfiguration, err, "max_reserve")
	}

	threshold, err := parseAmount(o.ExecuteSupplyThreshold)
	if err != nil {
		return nil, WrapError(ErrConfiguration, err, "execute_supply_threshold")
	}

	asset := &Asset{
		ID:                 o.ID,
		Symbol:             o.Symbol,
		Decimals:           o.Decimals,
		CollateralEligible: o.Collateral,
		Config: AssetConfig{
			MaxLTV:                 ratios[0],
			LiquidationLTV:         ratios[1],
			MaxLiquidateRatio:      ratios[2],
			LiquidationRewardRatio: ratios[3],
			FeeRateBps:             o.FeeRateBps,
		},
		Caps: ReserveCaps{
			MaxReserve:             maxReserve,
			ExecuteSupplyThreshold: threshold,
			ReserveRatioBps:        o.ReserveRatioBps,
		},
	}

	return asset, asset.Validate()
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}

	return uint256.FromDecimal(s)
}

// ParseDecimals parse every value, empty strings are zero
func ParseDecimals(values ...string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}

		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}

		out[i] = d
	}

	return out, nil
}
