package cmd

import (
	"encoding/json"

	"aggregator/core"
	"aggregator/pkg/id"
	"aggregator/pkg/number"
	"aggregator/service/block"
	"aggregator/service/deposit"
	"aggregator/service/transfer"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// simulate runs the configured backends and assets in memory: every asset gets
// one supply of --amount, then the clock moves --blocks ahead
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "simulate allocation over the configured backends in memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		blocks, _ := cmd.Flags().GetInt64("blocks")
		amount, _ := cmd.Flags().GetString("amount")
		user, _ := cmd.Flags().GetString("user")

		value, err := number.ParseUint256(amount)
		if err != nil {
			return err
		}

		oracle, err := providePriceOracle()
		if err != nil {
			return err
		}

		clock := block.NewManual(1)
		backends, err := provideBackends(ctx, clock)
		if err != nil {
			return err
		}

		paid := &transfer.Memory{}
		deposits := &deposit.Memory{}
		l, err := provideLedger(ctx, clock, oracle, paid, nil, deposits, backends, nil)
		if err != nil {
			return err
		}

		assets := l.Assets(ctx)
		for _, asset := range assets {
			req := &core.Request{
				Sender:  user,
				Asset:   asset.ID,
				Amount:  value,
				TraceID: id.UUIDFromString("simulate:" + user + ":" + asset.ID),
			}

			if err := deposits.Save(ctx, &core.Deposit{
				TraceID: req.TraceID,
				UserID:  user,
				AssetID: asset.ID,
				Amount:  decimal.NewFromBigInt(value.ToBig(), 0),
			}); err != nil {
				return err
			}

			if err := l.Supply(ctx, req, core.SupplyParams{ExecuteImmediately: true}); err != nil {
				log.WithError(err).Warnln("supply", asset.ID)
			}
		}

		clock.Advance(blocks)

		report := map[string]interface{}{}
		for _, asset := range assets {
			totals, err := l.TotalSupplied(ctx, asset.ID)
			if err != nil {
				return err
			}

			balance, err := l.SupplyBalance(ctx, asset.ID, user)
			if err != nil {
				return err
			}

			report[asset.ID] = map[string]interface{}{
				"supplied": totals,
				"balance":  balance,
			}
		}

		report["transfers"] = paid.List()

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}

		cmd.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Int64("blocks", 2102400, "blocks to advance after supplying")
	simulateCmd.Flags().String("amount", "1000000000000000000000", "amount supplied to every asset")
	simulateCmd.Flags().String("user", "simulator", "supplier")
}
