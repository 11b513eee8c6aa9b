package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/app"
	"github.com/privashield/leakwatch/internal/config"
)

var (
	configPath string
	envFile    string
	verbose    bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leakctl",
	Short: "Operate the leakwatch sensitive-data event log",
	Long: `leakctl reads the same configuration as the leakwatch server and runs
maintenance and reporting tasks against its event log.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(app.NewLogger(cmd.ErrOrStderr(), config.EnvDevelopment, level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// withApp builds the service components for one command and releases them
// afterwards.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := app.New(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
