package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aggregator/core"
	"aggregator/handler"
	"aggregator/handler/hc"
	"aggregator/service/event"
	"aggregator/service/transfer"
	"aggregator/worker"
	"aggregator/worker/cashier"
	"aggregator/worker/flusher"
	messenger "aggregator/worker/messager"
	"aggregator/worker/snapshot"
	"aggregator/worker/syncer"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/property"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const location = "UTC"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "run aggregator api server and workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		database := provideDatabase()
		defer database.Close()

		propertyStore := providePropertyStore(database)
		eventStore := provideEventStore(database)
		transferStore := provideTransferStore(database)
		snapshotStore := provideSnapshotStore(database)
		depositStore := provideDepositStore(database)

		blocks := provideBlockService()
		oracle, err := providePriceOracle()
		if err != nil {
			return err
		}

		outbox := provideOutbox()

		backends, err := provideBackends(ctx, blocks)
		if err != nil {
			return err
		}

		ledger, err := provideLedger(ctx, blocks, oracle, provideTransferer(database, transferStore), outbox, depositStore, backends, snapshotStore)
		if err != nil {
			return err
		}

		jobs, err := provideJobs(ledger, outbox, propertyStore, eventStore, transferStore, snapshotStore, depositStore)
		if err != nil {
			return err
		}

		mux := chi.NewMux()
		mux.Use(middleware.Recoverer)
		mux.Use(middleware.StripSlashes)
		mux.Use(cors.AllowAll().Handler)
		mux.Use(logger.WithRequestID)
		mux.Use(middleware.Logger)

		{
			// hc
			mux.Mount("/hc", hc.Handle(rootCmd.Version))
		}

		{
			// restful api
			svr := handler.New(provideSession(), ledger, oracle, eventStore, transferStore, depositStore)
			mux.Mount("/api", svr.HandleRestAPI())
		}

		{
			// simulated backends for remote adapters of other nodes
			mux.Mount("/backends", handler.HandleBackends(backends))
		}

		port, _ := cmd.Flags().GetInt("port")
		addr := fmt.Sprintf(":%d", port)

		server := &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return worker.Serve(ctx, jobs...)
		})

		g.Go(func() error {
			<-ctx.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				logrus.WithError(err).Error("graceful shutdown server failed")
			}

			return nil
		})

		g.Go(func() error {
			logrus.Infoln("serve at", addr)
			if err := server.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}

			return nil
		})

		return g.Wait()
	},
}

func provideJobs(
	ledger core.LedgerService,
	outbox *event.Outbox,
	propertyStore property.Store,
	eventStore core.EventStore,
	transferStore core.TransferStore,
	snapshotStore core.SnapshotStore,
	depositStore core.DepositStore,
) ([]worker.IJob, error) {
	f, err := flusher.New(location, ledger, cfg.Flusher)
	if err != nil {
		return nil, err
	}

	s, err := snapshot.New(location, ledger, snapshotStore, propertyStore, cfg.Snapshot)
	if err != nil {
		return nil, err
	}

	m, err := messenger.New(location, outbox, eventStore, 0)
	if err != nil {
		return nil, err
	}

	jobs := []worker.IJob{f, s, m}

	if cfg.Cashier.EndPoint != "" {
		timeout := cfg.Cashier.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}

		batch := cfg.Cashier.Batch
		if batch <= 0 {
			batch = 100
		}

		c, err := cashier.New(location, transferStore, transfer.Payer(cfg.Cashier.EndPoint, timeout), cashier.Config{
			Batch:    batch,
			Capacity: cfg.Cashier.Capacity,
			Interval: cfg.Cashier.Interval,
		})
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, c)
	}

	if cfg.Syncer.EndPoint != "" {
		s, err := syncer.New(location, depositStore, provideDepositSource(), propertyStore, cfg.Syncer)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, s)
	}

	return jobs, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntP("port", "p", 9000, "server port")
}
