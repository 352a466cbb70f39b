package core

import (
	"github.com/holiman/uint256"
)

type (
	// Request operation request
	Request struct {
		// Sender the caller, owner of redeemed or borrowed positions
		Sender string       `json:"sender"`
		Asset  string       `json:"asset"`
		Amount *uint256.Int `json:"amount"`
		// To beneficiary of a supply or repay, recipient of redeemed or borrowed funds
		To string `json:"to"`
		// TraceID custody deposit paying for a supply, repay or liquidation
		TraceID string `json:"trace_id,omitempty"`
	}

	// SupplyParams supply flags
	SupplyParams struct {
		UseAsCollateral    bool `json:"use_as_collateral"`
		ExecuteImmediately bool `json:"execute_immediately"`
	}

	// RedeemParams redeem flags
	RedeemParams struct {
		UseAsCollateral    bool `json:"use_as_collateral"`
		ExecuteImmediately bool `json:"execute_immediately"`
	}

	// BorrowParams borrow flags
	BorrowParams struct {
		ExecuteImmediately bool `json:"execute_immediately"`
	}

	// RepayParams repay flags
	RepayParams struct {
		ExecuteImmediately bool `json:"execute_immediately"`
	}
)

// Recipient To or Sender when To is empty
func (r *Request) Recipient() string {
	if r.To != "" {
		return r.To
	}

	return r.Sender
}

// Validate check request fields
func (r *Request) Validate() error {
	if r.Asset == "" {
		return NewError(ErrAssetNotFound, "empty asset")
	}

	if r.Sender == "" {
		return NewError(ErrOperationForbidden, "empty sender")
	}

	if r.Amount == nil || r.Amount.IsZero() {
		return NewError(ErrInvalidAmount, "amount must be positive")
	}

	return nil
}
