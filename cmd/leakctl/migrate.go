package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/config"
	"github.com/privashield/leakwatch/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the event store schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != config.StorageDriverPostgres {
			return fmt.Errorf("migrate needs storage.driver %q, config has %q", config.StorageDriverPostgres, cfg.Storage.Driver)
		}

		st, err := store.New(store.Config{
			DSN:          cfg.Database.DSN(),
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		})
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
