package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle price feed, prices are quoted per whole token
type PriceOracle interface {
	Price(ctx context.Context, asset string) (decimal.Decimal, error)
}
