package cmd

import (
	"context"
	"fmt"
	"time"

	"aggregator/core"
	"aggregator/internal/interest"
	"aggregator/service/aggregator"
	"aggregator/service/backend/remote"
	"aggregator/service/backend/simulated"
	"aggregator/service/block"
	"aggregator/service/deposit"
	"aggregator/service/event"
	"aggregator/service/ledger"
	oracleservice "aggregator/service/oracle"
	"aggregator/service/reserve"
	"aggregator/service/session"
	"aggregator/service/transfer"
	depositstore "aggregator/store/deposit"
	eventstore "aggregator/store/event"
	snapshotstore "aggregator/store/snapshot"
	transferstore "aggregator/store/transfer"
	"aggregator/worker/snapshot"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/fox-one/pkg/store/db"
	propertystore "github.com/fox-one/pkg/store/property"
	"github.com/holiman/uint256"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

// ---------------store-----------------------------------------

func providePropertyStore(db *db.DB) property.Store {
	return propertystore.New(db)
}

func provideEventStore(db *db.DB) core.EventStore {
	return eventstore.New(db)
}

func provideTransferStore(db *db.DB) core.TransferStore {
	return transferstore.New(db)
}

func provideSnapshotStore(db *db.DB) core.SnapshotStore {
	return snapshotstore.New(db)
}

func provideDepositStore(db *db.DB) core.DepositStore {
	return depositstore.New(db)
}

// ------------------service------------------------------------

func provideBlockService() core.BlockService {
	return block.New(cfg.App)
}

func providePriceOracle() (core.PriceOracle, error) {
	if cfg.Oracle.EndPoint == "" {
		prices, err := cfg.Oracle.StaticPrices()
		if err != nil {
			return nil, err
		}

		return oracleservice.Static(prices), nil
	}

	ttl := cfg.Oracle.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	return oracleservice.Cache(oracleservice.Remote(cfg.Oracle.EndPoint, 5*time.Second), ttl), nil
}

func provideDepositSource() core.DepositSource {
	timeout := cfg.Syncer.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return deposit.Remote(cfg.Syncer.EndPoint, timeout)
}

func provideSession() *session.Session {
	return session.New(cfg.Session)
}

func provideTransferer(db *db.DB, transfers core.TransferStore) core.Transferer {
	return transfer.New(db, transfers)
}

func provideBackends(ctx context.Context, blocks core.BlockService) ([]core.Backend, error) {
	backends := make([]core.Backend, 0, len(cfg.Backends))
	for _, opt := range cfg.Backends {
		switch opt.Kind {
		case "remote":
			if opt.EndPoint == "" {
				return nil, fmt.Errorf("backend %s: end_point required", opt.Name)
			}

			backends = append(backends, remote.New(opt.Name, opt.EndPoint, opt.Timeout))
		default:
			b, err := provideSimulatedBackend(ctx, opt, blocks)
			if err != nil {
				return nil, fmt.Errorf("backend %s: %w", opt.Name, err)
			}

			backends = append(backends, b)
		}
	}

	return backends, nil
}

func provideSimulatedBackend(ctx context.Context, opt core.BackendConfig, blocks core.BlockService) (*simulated.Backend, error) {
	b := simulated.New(opt.Name, cfg.App.Custody, blocks)
	for _, m := range opt.Markets {
		supplied, err := parseAmount(m.Supplied)
		if err != nil {
			return nil, err
		}

		borrowed, err := parseAmount(m.Borrowed)
		if err != nil {
			return nil, err
		}

		rates, err := core.ParseDecimals(m.BaseRate, m.Multiplier, m.JumpMultiplier, m.Kink, m.ReserveFactor)
		if err != nil {
			return nil, err
		}

		model := interest.NewRateModel(rates[0], rates[1], rates[2], rates[3], rates[4])
		if err := b.AddMarket(ctx, m.Asset, model, supplied, borrowed); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}

	return uint256.FromDecimal(s)
}

// provideLedger boots the ledger: backends in config order, then the latest snapshot,
// then any configured asset the snapshot does not list yet
func provideLedger(
	ctx context.Context,
	blocks core.BlockService,
	oracle core.PriceOracle,
	transferer core.Transferer,
	sink core.EventSink,
	deposits core.DepositFinder,
	backends []core.Backend,
	snapshots core.SnapshotStore,
) (core.LedgerService, error) {
	log := logger.FromContext(ctx)

	l, err := ledger.New(ledger.Config{
		Custody:            cfg.App.Custody,
		FeeCollector:       cfg.App.FeeCollector,
		Admins:             cfg.Admins,
		MaxPendingRatioBps: cfg.App.MaxPendingRatioBps,
		Deposits:           deposits,
	}, blocks, oracle, transferer, sink, aggregator.New(cfg.App.Custody, blocks, nil), reserve.New())
	if err != nil {
		return nil, err
	}

	if len(cfg.Backends) > 0 || len(cfg.Assets) > 0 {
		if len(cfg.Admins) == 0 {
			return nil, core.NewError(core.ErrConfiguration, "admins required to list backends and assets")
		}
	}

	var admin string
	if len(cfg.Admins) > 0 {
		admin = cfg.Admins[0]
	}

	for i, b := range backends {
		index, err := l.AddBackend(ctx, admin, b)
		if err != nil {
			return nil, err
		}

		if cfg.Backends[i].Disabled {
			if err := l.SetBackendEnabled(ctx, admin, index, false); err != nil {
				return nil, err
			}
		}
	}

	if snapshots != nil {
		restored, err := snapshot.Restore(ctx, l, snapshots)
		if err != nil {
			return nil, err
		}

		if !restored {
			log.Infoln("no snapshot found, start from config")
		}
	}

	for _, opt := range cfg.Assets {
		if _, err := l.AssetConfig(ctx, opt.ID); err == nil {
			continue
		}

		asset, err := opt.Asset()
		if err != nil {
			return nil, fmt.Errorf("asset %s: %w", opt.ID, err)
		}

		if err := l.AddAsset(ctx, admin, asset); err != nil {
			return nil, err
		}
	}

	return ledger.Serialize(l), nil
}

func provideOutbox() *event.Outbox {
	return event.NewOutbox(100000)
}
