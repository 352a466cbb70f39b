package number

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// RayDecimals decimals of a ray
const RayDecimals = 27

func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func Ceil(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Ceil().Shift(-precision)
}

// FromUint256 base units to a decimal amount of whole tokens
func FromUint256(x *uint256.Int, decimals int32) decimal.Decimal {
	if x == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(x.ToBig(), -decimals)
}

// ToUint256 whole tokens to base units, truncating below one unit
func ToUint256(d decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, errors.New("negative amount")
	}

	v, overflow := uint256.FromBig(d.Shift(decimals).Truncate(0).BigInt())
	if overflow {
		return nil, errors.New("amount overflows 256 bits")
	}

	return v, nil
}

// ToRay fraction to ray, 0.05 => 5e25
func ToRay(d decimal.Decimal) *uint256.Int {
	v, err := ToUint256(d, RayDecimals)
	if err != nil {
		return new(uint256.Int)
	}

	return v
}

// FromRay ray to fraction
func FromRay(x *uint256.Int) decimal.Decimal {
	return FromUint256(x, RayDecimals)
}

// ParseUint256 parse a base unit integer string, empty is zero
func ParseUint256(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}

	return uint256.FromDecimal(s)
}
