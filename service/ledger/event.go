package ledger

import (
	"encoding/json"
	"strings"

	"github.com/fatih/structs"
	"github.com/jmoiron/sqlx/types"
)

type (
	lendingsData struct {
		TotalSupplied  string `json:"total_supplied"`
		TotalBorrowed  string `json:"total_borrowed"`
		SupplyIndex    string `json:"supply_index"`
		DebtIndex      string `json:"debt_index"`
		SupplyInterest string `json:"supply_interest"`
		BorrowInterest string `json:"borrow_interest"`
		DebtInterest   string `json:"debt_interest"`
	}

	feeData struct {
		AccFee       string `json:"acc_fee"`
		FeeIndex     string `json:"fee_index"`
		AccFeeOffset string `json:"acc_fee_offset"`
		Deficit      string `json:"deficit"`
	}

	flagsData struct {
		Index      int    `json:"index"`
		Collateral bool   `json:"collateral"`
		Debt       bool   `json:"debt"`
		Packed     string `json:"packed"`
	}

	balanceData struct {
		Balance    string `json:"balance"`
		Recipient  string `json:"recipient,omitempty"`
		Queued     bool   `json:"queued,omitempty"`
		FromBuffer string `json:"from_buffer,omitempty"`
		Fee        string `json:"fee,omitempty"`
		Refund     string `json:"refund,omitempty"`
	}

	pendingData struct {
		Node         int    `json:"node"`
		Head         int    `json:"head"`
		Tail         int    `json:"tail"`
		Count        int    `json:"count"`
		Pending      string `json:"pending"`
		PendingRepay string `json:"pending_repay"`
		Idle         string `json:"idle"`
	}

	liquidationData struct {
		Liquidator      string `json:"liquidator"`
		CollateralAsset string `json:"collateral_asset"`
		Seized          string `json:"seized"`
		MaxSeize        string `json:"max_seize"`
	}
)

// encode payload structs into the event's JSON column
func encode(data interface{}) (types.JSONText, error) {
	if data == nil {
		return nil, nil
	}

	var v interface{} = data
	if structs.IsStruct(data) {
		v = compact(data)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return types.JSONText(b), nil
}

// compact payload keyed by json name, omitempty fields holding an empty or "0" amount are left out
func compact(data interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range structs.New(data).Fields() {
		if !f.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(f.Tag("json"), ",")
		if name == "-" {
			continue
		}

		if name == "" {
			name = f.Name()
		}

		if opts == "omitempty" && (f.IsZero() || f.Value() == "0") {
			continue
		}

		out[name] = f.Value()
	}

	return out
}
