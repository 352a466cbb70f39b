package deposit

import (
	"context"

	"aggregator/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type depositStore struct {
	db *db.DB
}

// New new deposit store
func New(db *db.DB) core.DepositStore {
	return &depositStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Deposit{})
		if err := tx.AutoMigrate(core.Deposit{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *depositStore) Save(ctx context.Context, deposit *core.Deposit) error {
	if deposit.Status == "" {
		deposit.Status = core.DepositStatusPending
	}

	return s.db.Update().Where("trace_id = ?", deposit.TraceID).FirstOrCreate(deposit).Error
}

func (s *depositStore) Find(ctx context.Context, traceID string) (*core.Deposit, error) {
	var deposit core.Deposit
	if err := s.db.View().Where("trace_id = ?", traceID).First(&deposit).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, core.NewError(core.ErrDepositNotFound, "deposit %s not found", traceID)
		}

		return nil, err
	}

	return &deposit, nil
}

func (s *depositStore) UpdateStatus(ctx context.Context, traceID, status string) error {
	return s.db.Update().Model(core.Deposit{}).Where("trace_id = ?", traceID).Update("status", status).Error
}

func (s *depositStore) ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*core.Deposit, error) {
	var deposits []*core.Deposit
	if err := s.db.View().Where("user_id = ? AND id > ?", user, fromID).Order("id").Limit(limit).Find(&deposits).Error; err != nil {
		return nil, err
	}

	return deposits, nil
}
