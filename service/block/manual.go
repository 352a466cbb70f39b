package block

import (
	"context"
	"sync/atomic"
	"time"
)

// Manual block clock advanced by hand, used by simulations and tests
type Manual struct {
	current int64
}

// NewManual manual clock starting at block
func NewManual(block int64) *Manual {
	return &Manual{current: block}
}

// Advance move the clock forward by n blocks
func (m *Manual) Advance(n int64) int64 {
	return atomic.AddInt64(&m.current, n)
}

// CurrentBlock current block
func (m *Manual) CurrentBlock(ctx context.Context) (int64, error) {
	return atomic.LoadInt64(&m.current), nil
}

// GetBlock always the current block
func (m *Manual) GetBlock(ctx context.Context, t time.Time) (int64, error) {
	return m.CurrentBlock(ctx)
}
