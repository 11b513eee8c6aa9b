package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/privashield/leakwatch/internal/app"
	"github.com/privashield/leakwatch/internal/models"
)

var (
	summaryIdentity string
	outputJSON      bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the dashboard summary for one identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			summary, err := a.Aggregator.Summary(cmd.Context(), summaryIdentity)
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			return printSummary(cmd.OutOrStdout(), summaryIdentity, summary)
		})
	},
}

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Print the all-time breakdown for every identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			rollup, err := a.Aggregator.AllUsersLeaks(cmd.Context())
			if err != nil {
				return err
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), rollup)
			}
			return printRollup(cmd.OutOrStdout(), rollup)
		})
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd, rollupCmd)
	summaryCmd.Flags().StringVar(&summaryIdentity, "identity", "", "Identity (email) to summarize")
	_ = summaryCmd.MarkFlagRequired("identity")
	for _, c := range []*cobra.Command{summaryCmd, rollupCmd} {
		c.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(w io.Writer, identity string, s *models.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "identity\t%s\n", identity)
	fmt.Fprintf(tw, "detected today\t%d\n", s.Today.DetectedCount)
	if s.Today.LastExecutionDate != nil {
		fmt.Fprintf(tw, "last active day\t%s (%d)\n", *s.Today.LastExecutionDate, s.Today.LastExecutionCount)
		fmt.Fprintf(tw, "change rate\t%.1f%%\n", s.Today.ChangeRate)
	}
	fmt.Fprintf(tw, "this month\t%d\n", s.Monthly.ThisMonth)
	fmt.Fprintf(tw, "last month\t%d (%.1f%%)\n", s.Monthly.LastMonth, s.Monthly.ChangePercent)
	fmt.Fprintf(tw, "safety score\t%d\n", s.SafetyScore)
	for _, t := range s.Today.SensitiveTypes {
		fmt.Fprintf(tw, "  %s\t%s x%d\n", t.Type, t.Level, t.Count)
	}
	return tw.Flush()
}

func printRollup(w io.Writer, rollup []models.UserLeaks) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tTYPE\tLEVEL\tCOUNT")
	for _, u := range rollup {
		for _, g := range u.Leaks {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", u.Email, g.ContentType, g.SensitivityLevel, g.Count)
		}
	}
	return tw.Flush()
}
