package snapshot

import (
	"context"
	"time"

	"aggregator/core"

	"github.com/fox-one/pkg/store/db"
	"github.com/jinzhu/gorm"
)

type snapshotStore struct {
	db *db.DB
}

// New new snapshot store instance
func New(db *db.DB) core.SnapshotStore {
	return &snapshotStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Snapshot{})
		if err := tx.AutoMigrate(core.Snapshot{}).Error; err != nil {
			return err
		}

		return nil
	})
}

func (s *snapshotStore) Save(ctx context.Context, snapshot *core.Snapshot) error {
	return s.db.Update().Create(snapshot).Error
}

// Latest most recent snapshot, nil when none was saved yet
func (s *snapshotStore) Latest(ctx context.Context) (*core.Snapshot, error) {
	var snapshot core.Snapshot
	if err := s.db.View().Order("id DESC").First(&snapshot).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}

		return nil, err
	}

	return &snapshot, nil
}

func (s *snapshotStore) DeleteByTime(ctx context.Context, t time.Time) error {
	return s.db.Update().Where("created_at < ?", t).Delete(core.Snapshot{}).Error
}
