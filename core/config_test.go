package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetOption(t *testing.T) {
	opt := AssetOption{
		ID:                     "eth",
		Symbol:                 "ETH",
		Decimals:               18,
		Collateral:             true,
		MaxLTV:                 "0.75",
		LiquidationLTV:         "0.8",
		MaxLiquidateRatio:      "0.5",
		LiquidationRewardRatio: "0.05",
		FeeRateBps:             1000,
		MaxReserve:             "1000",
		ExecuteSupplyThreshold: "500",
	}

	asset, err := opt.Asset()
	require.Nil(t, err)
	assert.Equal(t, "0.75", asset.Config.MaxLTV.String())
	assert.Equal(t, "1000", asset.Caps.MaxReserve.Dec())
	assert.True(t, asset.Batching())

	opt.MaxLTV = "0.9"
	_, err = opt.Asset()
	assert.True(t, errors.Is(err, ErrConfiguration))

	opt.MaxLTV = "abc"
	_, err = opt.Asset()
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestStaticPrices(t *testing.T) {
	prices, err := OracleConfig{Prices: map[string]string{"eth": "1850.5"}}.StaticPrices()
	require.Nil(t, err)
	assert.Equal(t, "1850.5", prices["eth"].String())

	_, err = OracleConfig{Prices: map[string]string{"eth": "x"}}.StaticPrices()
	assert.True(t, errors.Is(err, ErrConfiguration))
}
