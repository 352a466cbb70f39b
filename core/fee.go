package core

import (
	"github.com/holiman/uint256"
)

// FeeState protocol fee bookkeeping of an asset
type FeeState struct {
	// AccFee fee accrued and not yet collected
	AccFee *uint256.Int `json:"acc_fee"`
	// FeeIndex ray, AccFee per unit of outstanding debt
	FeeIndex *uint256.Int `json:"fee_index"`
	// AccFeeOffset fee consumed to cover pool level backend borrow interest
	AccFeeOffset *uint256.Int `json:"acc_fee_offset"`
	// Collected fee forwarded to the fee collector
	Collected *uint256.Int `json:"collected"`
	// Deficit backend borrow interest not covered by income or fee
	Deficit *uint256.Int `json:"deficit"`
}

// Clone deep copy
func (f FeeState) Clone() FeeState {
	return FeeState{
		AccFee:       cloneInt(f.AccFee),
		FeeIndex:     cloneInt(f.FeeIndex),
		AccFeeOffset: cloneInt(f.AccFeeOffset),
		Collected:    cloneInt(f.Collected),
		Deficit:      cloneInt(f.Deficit),
	}
}
