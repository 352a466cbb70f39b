package event

import (
	"context"

	"aggregator/core"

	"github.com/fox-one/pkg/store/db"
)

type eventStore struct {
	db *db.DB
}

// New new event store
func New(db *db.DB) core.EventStore {
	return &eventStore{
		db: db,
	}
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(core.Event{})
		if err := tx.AutoMigrate(core.Event{}).Error; err != nil {
			return err
		}

		return nil
	})
}

// Create persist events in one transaction, events already stored are skipped by trace id
func (s *eventStore) Create(ctx context.Context, events ...*core.Event) error {
	return s.db.Tx(func(tx *db.DB) error {
		for _, event := range events {
			if err := tx.Update().Where("trace_id = ?", event.TraceID).FirstOrCreate(event).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *eventStore) List(ctx context.Context, fromID uint64, limit int) ([]*core.Event, error) {
	var events []*core.Event
	if err := s.db.View().Where("id > ?", fromID).Order("id").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (s *eventStore) ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*core.Event, error) {
	var events []*core.Event
	if err := s.db.View().Where("user_id = ? AND id > ?", user, fromID).Order("id").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}
