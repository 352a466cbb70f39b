package core

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// EventKind ledger event kind
type EventKind string

const (
	// EventSupplied Supplied
	EventSupplied EventKind = "Supplied"
	// EventRedeemed Redeemed
	EventRedeemed EventKind = "Redeemed"
	// EventBorrowed Borrowed
	EventBorrowed EventKind = "Borrowed"
	// EventRepayed Repayed
	EventRepayed EventKind = "Repayed"
	// EventLiquidated Liquidated
	EventLiquidated EventKind = "Liquidated"
	// EventAccFeeUpdated AccFeeUpdated
	EventAccFeeUpdated EventKind = "AccFeeUpdated"
	// EventFeeIndexUpdated FeeIndexUpdated
	EventFeeIndexUpdated EventKind = "FeeIndexUpdated"
	// EventFeeCollected FeeCollected
	EventFeeCollected EventKind = "FeeCollected"
	// EventTotalLendingsUpdated TotalLendingsUpdated
	EventTotalLendingsUpdated EventKind = "TotalLendingsUpdated"
	// EventUserDebtAndCollateralSet UserDebtAndCollateralSet
	EventUserDebtAndCollateralSet EventKind = "UserDebtAndCollateralSet"
	// EventPendingListUpdated PendingListUpdated
	EventPendingListUpdated EventKind = "PendingListUpdated"
	// EventSupplyExecuted SupplyExecuted
	EventSupplyExecuted EventKind = "SupplyExecuted"
)

type (
	// Event ledger state transition record
	Event struct {
		ID        uint64         `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt time.Time      `json:"created_at,omitempty"`
		TraceID   string         `sql:"size:36;unique_index:idx_events_trace" json:"trace_id,omitempty"`
		Seq       int64          `sql:"default:0" json:"seq,omitempty"`
		Block     int64          `sql:"default:0" json:"block,omitempty"`
		Kind      EventKind      `sql:"size:32" json:"kind,omitempty"`
		Asset     string         `sql:"size:64" json:"asset,omitempty"`
		User      string         `sql:"size:64;index:idx_events_user" gorm:"column:user_id" json:"user,omitempty"`
		Amount    string         `sql:"size:80" json:"amount,omitempty"`
		Accounts  pq.StringArray `sql:"type:varchar(1024)" json:"accounts,omitempty"`
		Data      types.JSONText `sql:"type:TEXT" json:"data,omitempty"`
	}

	// EventSink receives events of committed operations
	EventSink interface {
		Emit(ctx context.Context, events ...*Event)
	}

	// EventStore event store interface
	EventStore interface {
		Create(ctx context.Context, events ...*Event) error
		List(ctx context.Context, fromID uint64, limit int) ([]*Event, error)
		ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*Event, error)
	}
)
