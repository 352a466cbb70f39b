package number

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/holiman/uint256"
)

func TestCeil(t *testing.T) {
	data := map[string]string{
		"0.10304":     "0.11",
		"0.100000001": "0.11",
		"0.108":       "0.11",
	}

	for k, v := range data {
		t.Run(k, func(t *testing.T) {
			_k := Decimal(k)
			c := Ceil(Decimal(k), 2)
			t.Log(k, c, _k.Round(2))
			assert.Equal(t, v, c.String(), "should be ceil")
		})
	}
}

func TestUint256Conversion(t *testing.T) {
	v, err := ToUint256(Decimal("1.5"), 6)
	assert.Equal(t, nil, err)
	assert.Equal(t, "1500000", v.Dec())
	assert.Equal(t, "1.5", FromUint256(v, 6).String())

	_, err = ToUint256(Decimal("-1"), 6)
	assert.NotEqual(t, nil, err)

	assert.Equal(t, "50000000000000000000000000", ToRay(Decimal("0.05")).Dec())
	assert.Equal(t, "0.05", FromRay(ToRay(Decimal("0.05"))).String())
	assert.Equal(t, "1", FromRay(uint256.MustFromDecimal("1000000000000000000000000000")).String())
}

func TestParseUint256(t *testing.T) {
	v, err := ParseUint256("")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, v.IsZero())

	v, err = ParseUint256("1000000")
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(1000000), v.Uint64())

	_, err = ParseUint256("abc")
	assert.NotEqual(t, nil, err)
}
