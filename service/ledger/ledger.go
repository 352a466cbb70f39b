package ledger

import (
	"context"
	"fmt"

	"aggregator/core"
	"aggregator/internal/interest"
	"aggregator/pkg/id"
	"aggregator/service/aggregator"
	"aggregator/service/reserve"
	"aggregator/service/status"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config ledger config
type Config struct {
	// Custody account holding pool funds and backend positions
	Custody            string
	FeeCollector       string
	Admins             []string
	MaxPendingRatioBps uint64
	// Deposits custody deposits paying for supplies, repays and liquidations
	Deposits core.DepositFinder
}

// Ledger owns receipts, indices and fees of every asset and drives the aggregator
// and the reserve queue. Not safe for concurrent use, see Serialize.
type Ledger struct {
	custody       string
	admins        map[string]bool
	token         string
	blocksPerYear uint64

	blocks     core.BlockService
	oracle     core.PriceOracle
	transferer core.Transferer
	sink       core.EventSink
	deposits   core.DepositFinder

	agg     *aggregator.Aggregator
	reserve *reserve.Queue
	status  *status.Store

	assets    map[string]*core.Asset
	order     []string
	states    map[string]*core.AssetState
	supplies  map[string]map[string]*uint256.Int
	debts     map[string]map[string]*uint256.Int
	optIn     map[string]map[string]bool
	paused    map[string]core.PauseMask
	collector string
	consumed  map[string]bool

	// operation scope
	entered bool
	block   int64
	touched map[string]bool
	events  []*core.Event
	payouts []*core.Transfer
	seq     int64
	log     *logrus.Entry
}

// New new ledger, binds agg and queue to it
func New(
	cfg Config,
	blocks core.BlockService,
	oracle core.PriceOracle,
	transferer core.Transferer,
	sink core.EventSink,
	agg *aggregator.Aggregator,
	queue *reserve.Queue,
) (*Ledger, error) {
	if cfg.Custody == "" {
		return nil, core.NewError(core.ErrConfiguration, "custody account required")
	}

	if sink == nil {
		sink = discard{}
	}

	l := &Ledger{
		custody:       cfg.Custody,
		admins:        map[string]bool{},
		token:         id.GenTraceID(),
		blocksPerYear: interest.BlocksPerYear,
		blocks:        blocks,
		oracle:        oracle,
		transferer:    transferer,
		sink:          sink,
		deposits:      cfg.Deposits,
		agg:           agg,
		reserve:       queue,
		status:        status.New(),
		assets:        map[string]*core.Asset{},
		states:        map[string]*core.AssetState{},
		supplies:      map[string]map[string]*uint256.Int{},
		debts:         map[string]map[string]*uint256.Int{},
		optIn:         map[string]map[string]bool{},
		paused:        map[string]core.PauseMask{},
		collector:     cfg.FeeCollector,
		consumed:      map[string]bool{},
	}

	for _, a := range cfg.Admins {
		l.admins[a] = true
	}

	if err := agg.Bind(l.token); err != nil {
		return nil, err
	}

	if err := queue.Bind(l.token); err != nil {
		return nil, err
	}

	if err := queue.SetReserveParams(l.token, cfg.MaxPendingRatioBps); err != nil {
		return nil, err
	}

	return l, nil
}

var _ core.LedgerService = (*Ledger)(nil)

type discard struct{}

func (discard) Emit(ctx context.Context, events ...*core.Event) {}

type snapshot struct {
	assets    map[string]*core.Asset
	order     []string
	states    map[string]*core.AssetState
	supplies  map[string]map[string]*uint256.Int
	debts     map[string]map[string]*uint256.Int
	optIn     map[string]map[string]bool
	paused    map[string]core.PauseMask
	collector string
	consumed  map[string]bool
	status    map[string]*core.UserStatus
	reserve   *core.ReserveState
}

func (l *Ledger) snapshot() *snapshot {
	return &snapshot{
		assets:    cloneAssets(l.assets),
		order:     append([]string(nil), l.order...),
		states:    cloneStates(l.states),
		supplies:  cloneBalances(l.supplies),
		debts:     cloneBalances(l.debts),
		optIn:     cloneOptIn(l.optIn),
		paused:    clonePaused(l.paused),
		collector: l.collector,
		consumed:  cloneConsumed(l.consumed),
		status:    l.status.Snapshot(),
		reserve:   l.reserve.Export(),
	}
}

func (l *Ledger) restore(s *snapshot) {
	l.assets = s.assets
	l.order = s.order
	l.states = s.states
	l.supplies = s.supplies
	l.debts = s.debts
	l.optIn = s.optIn
	l.paused = s.paused
	l.collector = s.collector
	l.consumed = s.consumed
	l.status.Restore(s.status)
	l.reserve.Restore(s.reserve)
}

// run one operation: guard against re-entry and pauses, execute fn and either commit
// every effect or roll all of them back, backend calls included
func (l *Ledger) run(ctx context.Context, action core.Action, assets []string, fn func(ctx context.Context) error) error {
	if l.entered {
		return core.NewError(core.ErrReentrant, "%s while another operation is running", action)
	}

	l.entered = true
	defer func() { l.entered = false }()

	for _, asset := range assets {
		if _, ok := l.assets[asset]; !ok {
			return core.NewError(core.ErrAssetNotFound, "asset %s not listed", asset)
		}

		if l.pausedMask(asset).Blocks(action) {
			return core.NewError(core.ErrActionPaused, "%s of %s paused", action, asset)
		}
	}

	block, err := l.blocks.CurrentBlock(ctx)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx).WithField("ledger", string(action))
	ctx = logger.WithContext(ctx, log)

	l.block = block
	l.log = log
	l.touched = map[string]bool{}
	l.events = nil
	l.payouts = nil

	saved := l.snapshot()
	if err := l.agg.Begin(l.token); err != nil {
		return err
	}

	rollback := func(cause error) error {
		if err := l.agg.Rollback(ctx, l.token); err != nil {
			log.WithError(err).Errorln("aggregator.Rollback")
		}

		l.restore(saved)
		l.events = nil
		l.payouts = nil
		return cause
	}

	if err := fn(ctx); err != nil {
		log.WithError(err).Infoln("rollback")
		return rollback(err)
	}

	for asset := range l.touched {
		if err := l.agg.Refresh(ctx, l.token, asset); err != nil {
			return rollback(err)
		}
	}

	if len(l.payouts) > 0 {
		if l.transferer == nil {
			return rollback(core.NewError(core.ErrConfiguration, "no transferer for payouts"))
		}

		if err := l.transferer.Transfer(ctx, l.payouts...); err != nil {
			log.WithError(err).Errorln("transferer.Transfer")
			return rollback(err)
		}
	}

	if err := l.agg.Commit(l.token); err != nil {
		return rollback(err)
	}

	events := l.events
	l.events, l.payouts = nil, nil
	if len(events) > 0 {
		l.sink.Emit(ctx, events...)
	}

	return nil
}

func (l *Ledger) pausedMask(asset string) core.PauseMask {
	return l.paused[asset] | l.paused[core.WildcardAsset]
}

func (l *Ledger) asset(id string) (*core.Asset, error) {
	a, ok := l.assets[id]
	if !ok {
		return nil, core.NewError(core.ErrAssetNotFound, "asset %s not listed", id)
	}

	return a, nil
}

func (l *Ledger) emit(kind core.EventKind, asset, user string, amount *uint256.Int, data interface{}) {
	l.seq++
	event := &core.Event{
		TraceID: id.GenTraceID(),
		Seq:     l.seq,
		Block:   l.block,
		Kind:    kind,
		Asset:   asset,
		User:    user,
	}

	payload, err := encode(data)
	if err != nil && l.log != nil {
		l.log.WithError(err).Errorln("encode event", kind)
	}
	event.Data = payload

	if amount != nil {
		event.Amount = amount.Dec()
	}

	if user != "" {
		event.Accounts = []string{user}
	}

	l.events = append(l.events, event)
}

// pay queue a payout from custody, sent when the operation commits
func (l *Ledger) pay(to, asset string, amount *uint256.Int, memo string) {
	if amount == nil || amount.IsZero() || to == "" || to == l.custody {
		return
	}

	l.payouts = append(l.payouts, &core.Transfer{
		TraceID:    id.GenTraceID(),
		OpponentID: to,
		AssetID:    asset,
		Amount:     decimal.NewFromBigInt(amount.ToBig(), 0),
		Memo:       memo,
		Status:     core.TransferStatusPending,
	})
}

func (l *Ledger) isAdmin(user string) error {
	if !l.admins[user] {
		return core.NewError(core.ErrOperationForbidden, "%s is not an admin", user)
	}

	return nil
}

func memo(action core.Action, asset string) string {
	return fmt.Sprintf("%s:%s", action, asset)
}
