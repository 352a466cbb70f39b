package core

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// WildcardAsset pause key that applies to every asset
const WildcardAsset = "*"

// MaxBps basis points denominator
const MaxBps = 10000

// AssetConfig risk parameters of an asset
type AssetConfig struct {
	// MaxLTV borrow limit as a fraction of collateral value, (0, 1)
	MaxLTV decimal.Decimal `json:"max_ltv"`
	// LiquidationLTV debt/collateral ratio above which positions can be liquidated
	LiquidationLTV decimal.Decimal `json:"liquidation_ltv"`
	// MaxLiquidateRatio share of a debt that one liquidation may repay, (0, 1]
	MaxLiquidateRatio decimal.Decimal `json:"max_liquidate_ratio"`
	// LiquidationRewardRatio bonus paid to the liquidator on top of the repaid value
	LiquidationRewardRatio decimal.Decimal `json:"liquidation_reward_ratio"`
	// FeeRateBps share of debt interest kept as protocol fee
	FeeRateBps uint64 `json:"fee_rate_bps"`
}

// ReserveCaps batching limits of an asset's reserve buffer
type ReserveCaps struct {
	// MaxReserve upper bound of the idle buffer, zero disables batching
	MaxReserve *uint256.Int `json:"max_reserve"`
	// ExecuteSupplyThreshold pending amount that triggers a flush
	ExecuteSupplyThreshold *uint256.Int `json:"execute_supply_threshold"`
	// ReserveRatioBps share of total supplied kept idle in the buffer
	ReserveRatioBps uint64 `json:"reserve_ratio_bps"`
}

// Asset lending asset
type Asset struct {
	ID                 string      `json:"id"`
	Index              int         `json:"index"`
	Symbol             string      `json:"symbol"`
	Decimals           int32       `json:"decimals"`
	CollateralEligible bool        `json:"collateral_eligible"`
	Config             AssetConfig `json:"config"`
	SupplyReceipt      string      `json:"supply_receipt"`
	DebtReceipt        string      `json:"debt_receipt"`
	Caps               ReserveCaps `json:"caps"`
}

// Batching report if queued supplies are enabled for the asset
func (a *Asset) Batching() bool {
	return a.Caps.MaxReserve != nil && !a.Caps.MaxReserve.IsZero()
}

// Validate check asset parameters
func (a *Asset) Validate() error {
	if a.ID == "" {
		return NewError(ErrConfiguration, "empty asset id")
	}

	if a.Decimals < 0 || a.Decimals > 36 {
		return NewError(ErrConfiguration, "invalid decimals %d", a.Decimals)
	}

	if err := a.Config.Validate(a.CollateralEligible); err != nil {
		return err
	}

	if a.Caps.ReserveRatioBps > MaxBps {
		return NewError(ErrConfiguration, "reserve ratio %d bps out of range", a.Caps.ReserveRatioBps)
	}

	return nil
}

// Validate check risk parameters
func (c AssetConfig) Validate(collateral bool) error {
	one := decimal.NewFromInt(1)

	if c.FeeRateBps > MaxBps {
		return NewError(ErrConfiguration, "fee rate %d bps out of range", c.FeeRateBps)
	}

	if !c.MaxLiquidateRatio.IsPositive() || c.MaxLiquidateRatio.GreaterThan(one) {
		return NewError(ErrConfiguration, "max liquidate ratio must be in (0, 1]")
	}

	if c.LiquidationRewardRatio.IsNegative() || c.LiquidationRewardRatio.GreaterThanOrEqual(one) {
		return NewError(ErrConfiguration, "liquidation reward ratio must be in [0, 1)")
	}

	if !collateral {
		return nil
	}

	if !c.MaxLTV.IsPositive() || !c.LiquidationLTV.IsPositive() || c.LiquidationLTV.GreaterThan(one) {
		return NewError(ErrConfiguration, "ltv must be in (0, 1]")
	}

	if c.MaxLTV.GreaterThanOrEqual(c.LiquidationLTV) {
		return NewError(ErrConfiguration, "max ltv %s must be below liquidation ltv %s", c.MaxLTV, c.LiquidationLTV)
	}

	return nil
}
