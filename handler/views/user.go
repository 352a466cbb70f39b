package views

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

type (
	// Position balances of a user in one asset
	Position struct {
		Asset      string       `json:"asset"`
		Supplied   *uint256.Int `json:"supplied"`
		Debt       *uint256.Int `json:"debt"`
		Collateral bool         `json:"collateral"`
	}

	// User user view, values are in oracle quote units
	User struct {
		User            string          `json:"user"`
		Positions       []Position      `json:"positions"`
		CollateralValue decimal.Decimal `json:"collateral_value"`
		BorrowLimit     decimal.Decimal `json:"borrow_limit"`
		DebtValue       decimal.Decimal `json:"debt_value"`
	}
)
