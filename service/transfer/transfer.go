package transfer

import (
	"context"
	"sync"

	"aggregator/core"

	"github.com/fox-one/pkg/store/db"
)

type transferer struct {
	db        *db.DB
	transfers core.TransferStore
}

// New transferer recording payouts in the transfer store, the cashier worker pays them later
func New(db *db.DB, transfers core.TransferStore) core.Transferer {
	return &transferer{
		db:        db,
		transfers: transfers,
	}
}

func (t *transferer) Transfer(ctx context.Context, transfers ...*core.Transfer) error {
	return t.db.Tx(func(tx *db.DB) error {
		for _, transfer := range transfers {
			if err := t.transfers.Create(ctx, tx, transfer); err != nil {
				return err
			}
		}

		return nil
	})
}

// Memory transferer keeping payouts in memory
type Memory struct {
	mu        sync.Mutex
	transfers []*core.Transfer
}

func (m *Memory) Transfer(ctx context.Context, transfers ...*core.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transfers = append(m.transfers, transfers...)
	return nil
}

// List payouts so far
func (m *Memory) List() []*core.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*core.Transfer(nil), m.transfers...)
}
