package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/app"
	"github.com/privashield/leakwatch/internal/reports"
	"github.com/privashield/leakwatch/internal/scheduler"
)

var (
	reportFormat string
	reportOut    string
	reportTitle  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the cross-user rollup as PDF or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reports.ParseFormat(reportFormat)
		if err != nil {
			return err
		}

		return withApp(cmd, func(a *app.App) error {
			report, err := a.Reports.Generate(cmd.Context(), &reports.ReportRequest{
				Format:      format,
				Title:       reportTitle,
				GeneratedBy: "leakctl",
			})
			if err != nil {
				return err
			}

			out := reportOut
			if out == "" {
				out = report.Filename
			}
			if out == "-" {
				_, err := cmd.OutOrStdout().Write(report.Data)
				return err
			}
			if err := os.WriteFile(out, report.Data, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(report.Data))
			return nil
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Compute the daily digest and send it now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			if !a.Notifier.Enabled() {
				fmt.Fprintln(cmd.ErrOrStderr(), "slack notifications are disabled; the digest is computed but not sent")
			}
			return a.Scheduler.RunJobNow(cmd.Context(), scheduler.DailyDigestJobID)
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd, digestCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "pdf", "Report format (pdf or csv)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output file, - for stdout (defaults to a timestamped name)")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "Report title")
}
