package cashier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"aggregator/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type store struct {
	core.TransferStore
	mu        sync.Mutex
	transfers []*core.Transfer
}

func (s *store) ListPending(ctx context.Context, limit int) ([]*core.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*core.Transfer
	for _, t := range s.transfers {
		if t.Status == core.TransferStatusPending && len(out) < limit {
			cp := *t
			out = append(out, &cp)
		}
	}

	return out, nil
}

func (s *store) UpdateStatus(ctx context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transfers {
		if t.ID == id {
			t.Status = status
		}
	}

	return nil
}

type payer struct {
	mu   sync.Mutex
	paid []string
	fail string
}

func (p *payer) Pay(ctx context.Context, transfer *core.Transfer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if transfer.TraceID == p.fail {
		return errors.New("rejected")
	}

	p.paid = append(p.paid, transfer.TraceID)
	return nil
}

func newStore() *store {
	s := &store{}
	for i, trace := range []string{"t1", "t2", "t3"} {
		s.transfers = append(s.transfers, &core.Transfer{ID: uint64(i + 1), TraceID: trace, Status: core.TransferStatusPending})
	}

	return s
}

func TestCashierSync(t *testing.T) {
	s, p := newStore(), &payer{fail: "t2"}
	w, err := New("UTC", s, p, Config{Batch: 10})
	require.Nil(t, err)

	assert.NotNil(t, w.onWork(context.Background(), w.sync))
	assert.Equal(t, []string{"t1"}, p.paid)
	assert.Equal(t, core.TransferStatusDone, s.transfers[0].Status)
	assert.Equal(t, core.TransferStatusPending, s.transfers[1].Status)

	p.fail = ""
	require.Nil(t, w.onWork(context.Background(), w.sync))
	assert.Equal(t, []string{"t1", "t2", "t3"}, p.paid)
}

func TestCashierParallel(t *testing.T) {
	s, p := newStore(), &payer{}
	w, err := New("UTC", s, p, Config{Batch: 10, Capacity: 2})
	require.Nil(t, err)

	require.Nil(t, w.onWork(context.Background(), w.parallel(2)))
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, p.paid)

	pending, _ := s.ListPending(context.Background(), 10)
	assert.Len(t, pending, 0)
}
