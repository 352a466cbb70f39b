package block

import (
	"aggregator/core"
	"aggregator/internal/interest"
	"context"
	"time"
)

type service struct {
	genesis         int64
	secondsPerBlock int64
}

// New new block service
func New(app core.App) core.BlockService {
	spb := app.SecondsPerBlock
	if spb <= 0 {
		spb = interest.SecondsPerBlock
	}

	return &service{
		genesis:         app.Genesis,
		secondsPerBlock: spb,
	}
}

//CurrentBlock current block
func (s *service) CurrentBlock(ctx context.Context) (int64, error) {
	current, e := interest.CurrentBlock(ctx, s.secondsPerBlock, s.genesis)
	if e != nil {
		return 0, e
	}
	return current, nil
}

// GetBlock get block by time
func (s *service) GetBlock(ctx context.Context, t time.Time) (int64, error) {
	block, e := interest.GetBlockByTime(ctx, s.secondsPerBlock, s.genesis, t)
	if e != nil {
		return 0, e
	}
	return block, nil
}
