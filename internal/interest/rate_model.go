package interest

import (
	"aggregator/pkg/number"
	"aggregator/pkg/ray"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// RateModel kinked jump rate curve, every field is an annual ray
type RateModel struct {
	BaseRate       *uint256.Int
	Multiplier     *uint256.Int
	JumpMultiplier *uint256.Int
	Kink           *uint256.Int
	ReserveFactor  *uint256.Int
}

// NewRateModel build a model from yearly fractions
func NewRateModel(baseRate, multiplier, jumpMultiplier, kink, reserveFactor decimal.Decimal) RateModel {
	return RateModel{
		BaseRate:       number.ToRay(baseRate),
		Multiplier:     number.ToRay(multiplier),
		JumpMultiplier: number.ToRay(jumpMultiplier),
		Kink:           number.ToRay(kink),
		ReserveFactor:  number.ToRay(reserveFactor),
	}
}

// UtilizationRate borrows / supplied, capped at one ray
func UtilizationRate(supplied, borrowed *uint256.Int) *uint256.Int {
	if ray.Copy(supplied).IsZero() {
		return ray.Zero()
	}

	return ray.Min(ray.MulDiv(borrowed, ray.Ray, supplied), ray.Ray)
}

func (m RateModel) kinked() bool {
	return !ray.Copy(m.Kink).IsZero()
}

func (m RateModel) normalRate() *uint256.Int {
	return ray.Add(m.BaseRate, ray.Mul(m.Kink, m.Multiplier))
}

// BorrowRate borrow rate at utilization u
func (m RateModel) BorrowRate(u *uint256.Int) *uint256.Int {
	u = ray.Copy(u)
	if !m.kinked() || !u.Gt(m.Kink) {
		return ray.Add(m.BaseRate, ray.Mul(u, m.Multiplier))
	}

	return ray.Add(m.normalRate(), ray.Mul(ray.Sub(u, m.Kink), m.JumpMultiplier))
}

// SupplyRate borrow rate * u * (1 - reserve factor)
func (m RateModel) SupplyRate(u *uint256.Int) *uint256.Int {
	toPool := ray.Sub(ray.Ray, m.ReserveFactor)
	return ray.Mul(ray.Mul(m.BorrowRate(u), u), toPool)
}

// UtilizationForBorrowRate utilization at which the borrow rate reaches target
func (m RateModel) UtilizationForBorrowRate(target *uint256.Int) *uint256.Int {
	target = ray.Copy(target)
	if !target.Gt(ray.Copy(m.BaseRate)) {
		return ray.Zero()
	}

	if !m.kinked() || !target.Gt(m.normalRate()) {
		if ray.Copy(m.Multiplier).IsZero() {
			return ray.One()
		}

		return ray.Min(ray.Div(ray.Sub(target, m.BaseRate), m.Multiplier), ray.Ray)
	}

	if ray.Copy(m.JumpMultiplier).IsZero() {
		return ray.One()
	}

	u := ray.Add(m.Kink, ray.Div(ray.Sub(target, m.normalRate()), m.JumpMultiplier))
	return ray.Min(u, ray.Ray)
}

// UtilizationForSupplyRate largest utilization whose supply rate does not exceed target
func (m RateModel) UtilizationForSupplyRate(target *uint256.Int) *uint256.Int {
	target = ray.Copy(target)
	lo, hi := ray.Zero(), ray.One()
	if !m.SupplyRate(hi).Gt(target) {
		return hi
	}

	one := uint256.NewInt(1)
	for lo.Lt(hi) {
		mid := new(uint256.Int).Add(lo, hi)
		mid.AddUint64(mid, 1).Rsh(mid, 1)
		if m.SupplyRate(mid).Gt(target) {
			hi = new(uint256.Int).Sub(mid, one)
		} else {
			lo = mid
		}
	}

	return lo
}

// BorrowForRate total borrows at which the borrow rate reaches target
func (m RateModel) BorrowForRate(target, supplied *uint256.Int) *uint256.Int {
	u := m.UtilizationForBorrowRate(target)
	return ray.MulDiv(u, supplied, ray.Ray)
}

// SupplyForRate total supply at which the supply rate falls to target,
// ray.Max when any supply keeps the rate at or below target
func (m RateModel) SupplyForRate(target, borrowed *uint256.Int) *uint256.Int {
	if ray.Copy(borrowed).IsZero() {
		if ray.Copy(target).IsZero() {
			return ray.Copy(ray.Max)
		}

		return ray.Zero()
	}

	u := m.UtilizationForSupplyRate(ray.Copy(target))
	if u.IsZero() {
		return ray.Copy(ray.Max)
	}

	return ray.MulDiv(borrowed, ray.Ray, u)
}
