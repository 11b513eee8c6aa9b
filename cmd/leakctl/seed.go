package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/app"
	"github.com/privashield/leakwatch/internal/config"
	"github.com/privashield/leakwatch/internal/seed"
)

var seedOpts seed.Options

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Record synthetic detection history for local testing",
	Long: `seed generates documents containing fake personal data, runs them through
the configured recognizer and records what it finds, backdated across the
requested number of days.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver == config.StorageDriverMemory {
			fmt.Fprintln(cmd.ErrOrStderr(), "storage.driver is memory; seeded events are discarded on exit")
		}

		return withApp(cmd, func(a *app.App) error {
			opts := seedOpts
			opts.Language = cfg.Recognizer.Language
			opts.Location = a.Aggregator.Location()

			stats, err := seed.Run(cmd.Context(), a.Recognizer, a.Store, opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		})
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVar(&seedOpts.Identities, "identities", 5, "Number of synthetic identities")
	seedCmd.Flags().IntVar(&seedOpts.Days, "days", 60, "Days of history, today included")
	seedCmd.Flags().IntVar(&seedOpts.MaxPerDay, "max-per-day", 3, "Upper bound on documents per identity per day")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 1, "Random seed")
}
