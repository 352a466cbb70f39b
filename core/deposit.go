package core

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// DepositStatusPending received by custody, not used yet
	DepositStatusPending = "pending"
	// DepositStatusConsumed funded a supply, repay or liquidation
	DepositStatusConsumed = "consumed"
)

type (
	// Deposit incoming payment to the custody account, reported by the custody service
	Deposit struct {
		ID        uint64    `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt time.Time `json:"created_at,omitempty"`
		UpdatedAt time.Time `json:"updated_at,omitempty"`
		// Seq position in the custody service's deposit feed
		Seq     int64           `sql:"default:0" json:"seq,omitempty"`
		TraceID string          `sql:"size:36;unique_index:idx_deposits_trace" json:"trace_id,omitempty"`
		UserID  string          `sql:"size:64;index:idx_deposits_user" json:"user_id,omitempty"`
		AssetID string          `sql:"size:64" json:"asset_id,omitempty"`
		Amount  decimal.Decimal `sql:"type:decimal(64,0)" json:"amount,omitempty"`
		Memo    string          `sql:"size:140" json:"memo,omitempty"`
		Status  string          `sql:"size:16" json:"status,omitempty"`
	}

	// DepositFinder looks up reported deposits by trace id
	DepositFinder interface {
		Find(ctx context.Context, traceID string) (*Deposit, error)
	}

	// DepositStore deposit store interface
	DepositStore interface {
		DepositFinder
		// Save ignores deposits whose trace id is already known
		Save(ctx context.Context, deposit *Deposit) error
		UpdateStatus(ctx context.Context, traceID, status string) error
		ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*Deposit, error)
	}

	// DepositSource feed of custody deposits ordered by Seq
	DepositSource interface {
		Pull(ctx context.Context, offset int64, limit int) ([]*Deposit, error)
	}
)

// Units amount in base units, fractions and negative amounts are invalid
func (d *Deposit) Units() (*uint256.Int, error) {
	if d.Amount.IsNegative() || !d.Amount.Equal(d.Amount.Truncate(0)) {
		return nil, NewError(ErrInvalidAmount, "deposit %s amount %s is not in base units", d.TraceID, d.Amount)
	}

	v, overflow := uint256.FromBig(d.Amount.BigInt())
	if overflow {
		return nil, NewError(ErrInvalidAmount, "deposit %s amount overflows", d.TraceID)
	}

	return v, nil
}
