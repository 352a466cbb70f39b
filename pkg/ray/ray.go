package ray

import (
	"github.com/holiman/uint256"
)

var (
	// Ray 1e27 fixed point unit
	Ray = uint256.MustFromDecimal("1000000000000000000000000000")
	// HalfRay half of ray, used for half-up rounding
	HalfRay = new(uint256.Int).Rsh(Ray, 1)
	// BasisPoints denominator of bps values
	BasisPoints = uint256.NewInt(10_000)
	// Max max uint256, used as "unbounded"
	Max = new(uint256.Int).SetAllOne()
)

// Zero returns a new zero value
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New from uint64
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// One returns a fresh copy of Ray
func One() *uint256.Int {
	return new(uint256.Int).Set(Ray)
}

// Copy returns a copy of x, nil is treated as zero
func Copy(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

// Add returns x + y, saturating at Max
func Add(x, y *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(Copy(x), Copy(y))
	if overflow {
		return Copy(Max)
	}
	return z
}

// Sub returns x - y, or zero when y > x
func Sub(x, y *uint256.Int) *uint256.Int {
	x, y = Copy(x), Copy(y)
	if y.Gt(x) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Min returns the smaller of x and y
func Min(x, y *uint256.Int) *uint256.Int {
	if Copy(x).Lt(Copy(y)) {
		return Copy(x)
	}
	return Copy(y)
}

// Max2 returns the larger of x and y
func Max2(x, y *uint256.Int) *uint256.Int {
	if Copy(x).Gt(Copy(y)) {
		return Copy(x)
	}
	return Copy(y)
}

// MulDiv returns floor(x * y / d), saturating at Max on overflow. d == 0 yields zero.
func MulDiv(x, y, d *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulDivOverflow(Copy(x), Copy(y), Copy(d))
	if overflow {
		return Copy(Max)
	}
	return z
}

// MulDivUp returns ceil(x * y / d)
func MulDivUp(x, y, d *uint256.Int) *uint256.Int {
	z := MulDiv(x, y, d)
	if Copy(d).IsZero() || z.Eq(Max) {
		return z
	}
	var rem uint256.Int
	rem.MulMod(Copy(x), Copy(y), d)
	if !rem.IsZero() {
		z.AddUint64(z, 1)
	}
	return z
}

// Mul half-up rounded ray multiplication, a * b / RAY
func Mul(a, b *uint256.Int) *uint256.Int {
	a, b = Copy(a), Copy(b)
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int)
	}
	return mulDivHalfUp(a, b, Ray)
}

// Div half-up rounded ray division, a * RAY / b
func Div(a, b *uint256.Int) *uint256.Int {
	a, b = Copy(a), Copy(b)
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int)
	}
	return mulDivHalfUp(a, Ray, b)
}

func mulDivHalfUp(x, y, d *uint256.Int) *uint256.Int {
	z := MulDiv(x, y, d)
	var rem uint256.Int
	rem.MulMod(x, y, d)
	// rem*2 >= d rounds up
	var twice uint256.Int
	if _, overflow := twice.AddOverflow(&rem, &rem); overflow || !twice.Lt(d) {
		z.AddUint64(z, 1)
	}
	return z
}

// FromBps converts basis points to a ray
func FromBps(bps uint64) *uint256.Int {
	return MulDiv(uint256.NewInt(bps), Ray, BasisPoints)
}

// Bps returns floor(amount * bps / 10000)
func Bps(amount *uint256.Int, bps uint64) *uint256.Int {
	return MulDiv(amount, uint256.NewInt(bps), BasisPoints)
}

// ToScaled converts an underlying amount into a scaled balance at index,
// rounding down so a holder never receives more than deposited.
func ToScaled(amount, index *uint256.Int) *uint256.Int {
	if Copy(index).IsZero() {
		return new(uint256.Int)
	}
	return MulDiv(amount, Ray, index)
}

// ToScaledUp converts an amount into a scaled balance rounding up, used when
// burning supply or minting debt.
func ToScaledUp(amount, index *uint256.Int) *uint256.Int {
	if Copy(index).IsZero() {
		return new(uint256.Int)
	}
	return MulDivUp(amount, Ray, index)
}

// FromScaled converts a scaled balance back to underlying at index, rounding down
func FromScaled(scaled, index *uint256.Int) *uint256.Int {
	return MulDiv(scaled, index, Ray)
}

// FromScaledUp converts a scaled debt back to underlying at index, rounding up
func FromScaledUp(scaled, index *uint256.Int) *uint256.Int {
	return MulDivUp(scaled, index, Ray)
}

// LinearFactor returns RAY + rate * blocks / blocksPerYear, the per-block
// simple compounding factor shared by the ledger and backend replicas.
func LinearFactor(rate *uint256.Int, blocks int64, blocksPerYear uint64) *uint256.Int {
	if blocks <= 0 || Copy(rate).IsZero() || blocksPerYear == 0 {
		return One()
	}
	growth := MulDiv(rate, uint256.NewInt(uint64(blocks)), uint256.NewInt(blocksPerYear))
	return Add(Ray, growth)
}
