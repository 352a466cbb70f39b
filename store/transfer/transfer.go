package transfer

import (
	"context"

	"aggregator/core"

	"github.com/fox-one/pkg/store/db"
)

type transferStore struct {
	db *db.DB
}

// New new transfer store
func New(db *db.DB) core.TransferStore {
	return &transferStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Transfer{})
		if err := tx.AutoMigrate(core.Transfer{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *transferStore) Create(ctx context.Context, tx *db.DB, transfer *core.Transfer) error {
	transfer.Status = core.TransferStatusPending
	return tx.Update().Where("trace_id = ?", transfer.TraceID).FirstOrCreate(transfer).Error
}

func (s *transferStore) ListPending(ctx context.Context, limit int) ([]*core.Transfer, error) {
	var transfers []*core.Transfer
	if err := s.db.View().Where("status = ?", core.TransferStatusPending).Order("id").Limit(limit).Find(&transfers).Error; err != nil {
		return nil, err
	}

	return transfers, nil
}

func (s *transferStore) UpdateStatus(ctx context.Context, id uint64, status string) error {
	return s.db.Update().Model(core.Transfer{}).Where("id = ?", id).Update("status", status).Error
}

func (s *transferStore) List(ctx context.Context, opponent string, fromID uint64, limit int) ([]*core.Transfer, error) {
	var transfers []*core.Transfer
	if err := s.db.View().Where("opponent_id = ? AND id > ?", opponent, fromID).Order("id").Limit(limit).Find(&transfers).Error; err != nil {
		return nil, err
	}

	return transfers, nil
}
