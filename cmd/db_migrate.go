package cmd

import (
	"github.com/fox-one/pkg/store/db"
	"github.com/spf13/cobra"
)

// migrateCmd creates the event, transfer, snapshot, deposit and property tables
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "create or update the aggregator tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		database := provideDatabase()
		defer database.Close()

		if err := db.Migrate(database); err != nil {
			return err
		}

		cmd.Println("tables migrated")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
