package core

import (
	"context"
	"time"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

const (
	// TransferStatusPending waiting for payout
	TransferStatusPending = "pending"
	// TransferStatusDone paid out
	TransferStatusDone = "done"
)

type (
	// Transfer outgoing payment from the custody account
	Transfer struct {
		ID         uint64          `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt  time.Time       `json:"created_at,omitempty"`
		UpdatedAt  time.Time       `json:"updated_at,omitempty"`
		TraceID    string          `sql:"size:36;unique_index:trace_idx" json:"trace_id,omitempty"`
		OpponentID string          `sql:"size:64" json:"opponent_id,omitempty"`
		AssetID    string          `sql:"size:64" json:"asset_id,omitempty"`
		Amount     decimal.Decimal `sql:"type:decimal(64,0)" json:"amount,omitempty"`
		Memo       string          `sql:"size:140" json:"memo,omitempty"`
		Status     string          `sql:"size:16" json:"status,omitempty"`
	}

	// Transferer pays out funds held in custody, all transfers or none are accepted
	Transferer interface {
		Transfer(ctx context.Context, transfers ...*Transfer) error
	}

	// Payer executes one persisted transfer, must be idempotent by TraceID
	Payer interface {
		Pay(ctx context.Context, transfer *Transfer) error
	}

	// TransferStore transfer store interface
	TransferStore interface {
		Create(ctx context.Context, tx *db.DB, transfer *Transfer) error
		ListPending(ctx context.Context, limit int) ([]*Transfer, error)
		UpdateStatus(ctx context.Context, id uint64, status string) error
		List(ctx context.Context, opponent string, fromID uint64, limit int) ([]*Transfer, error)
	}
)
