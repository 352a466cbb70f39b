package core

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx/types"
)

type (
	// Snapshot persisted ledger state
	Snapshot struct {
		ID        uint64         `sql:"PRIMARY_KEY;AUTO_INCREMENT" json:"id,omitempty"`
		CreatedAt time.Time      `json:"created_at,omitempty"`
		Block     int64          `sql:"default:0;index:idx_snapshots_block" json:"block,omitempty"`
		Data      types.JSONText `sql:"type:TEXT" json:"data,omitempty"`
	}

	// SnapshotStore snapshot store interface
	SnapshotStore interface {
		Save(ctx context.Context, snapshot *Snapshot) error
		Latest(ctx context.Context) (*Snapshot, error)
		DeleteByTime(ctx context.Context, t time.Time) error
	}
)
