package deposit

import (
	"context"
	"sync"

	"aggregator/core"
)

// Memory deposit store keeping deposits in memory
type Memory struct {
	mu       sync.Mutex
	deposits []*core.Deposit
}

var _ core.DepositStore = (*Memory)(nil)

func (m *Memory) Save(ctx context.Context, deposit *core.Deposit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.deposits {
		if d.TraceID == deposit.TraceID {
			return nil
		}
	}

	saved := *deposit
	saved.ID = uint64(len(m.deposits) + 1)
	if saved.Status == "" {
		saved.Status = core.DepositStatusPending
	}

	m.deposits = append(m.deposits, &saved)
	return nil
}

func (m *Memory) Find(ctx context.Context, traceID string) (*core.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.deposits {
		if d.TraceID == traceID {
			found := *d
			return &found, nil
		}
	}

	return nil, core.NewError(core.ErrDepositNotFound, "deposit %s not found", traceID)
}

func (m *Memory) UpdateStatus(ctx context.Context, traceID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.deposits {
		if d.TraceID == traceID {
			d.Status = status
		}
	}

	return nil
}

func (m *Memory) ListByUser(ctx context.Context, user string, fromID uint64, limit int) ([]*core.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*core.Deposit
	for _, d := range m.deposits {
		if d.UserID != user || d.ID <= fromID {
			continue
		}

		found := *d
		out = append(out, &found)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}
