package main

import (
	"fmt"
	"strings"
	"time"

	"learnsphere/internal/core"
	"learnsphere/internal/metrics"
	"learnsphere/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted generation statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := storage.InitStorage(storage.OptionsFromEnv(), ctx.log())
			defer func() { _ = store.Close() }()

			stats, err := store.LoadStats()
			if err != nil {
				return fmt.Errorf("load stats: %w", err)
			}

			summary := metrics.BuildSummary(*stats, 0, time.Now())
			if asJSON {
				return writeJSON(cmd, summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStats(*stats, summary, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	return cmd
}

func renderStats(stats core.RequestStats, summary metrics.Summary, colorize bool) string {
	lastRequest := "never"
	if !stats.LastRequestTime.IsZero() {
		lastRequest = humanize.Time(stats.LastRequestTime)
	}

	overview := renderTable("Overview", []string{"Metric", "Value"}, [][]string{
		{"Total requests", humanize.Comma(summary.TotalRequests)},
		{"Successful", humanize.Comma(summary.SuccessfulRequests)},
		{"Failed", humanize.Comma(summary.FailedRequests)},
		{"Avg response", formatMillis(summary.AvgResponseTime)},
		{"Last request", lastRequest},
	}, []columnAlignment{alignLeft, alignRight}, colorize)

	periodRows := make([][]string, 0, 3)
	for _, p := range []struct {
		label string
		stats core.PeriodStats
	}{
		{"24 hours", summary.Last24Hours},
		{"7 days", summary.Last7Days},
		{"30 days", summary.Last30Days},
	} {
		periodRows = append(periodRows, []string{
			p.label,
			humanize.Comma(p.stats.Requests),
			fmt.Sprintf("%.1f%%", p.stats.SuccessRate),
			formatMillis(p.stats.AvgResponseTime),
		})
	}
	periods := renderTable("Periods", []string{"Window", "Requests", "Success", "Avg response"}, periodRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}, colorize)

	sections := []string{overview, periods}
	if len(summary.Models) > 0 {
		modelRows := make([][]string, 0, len(summary.Models))
		for _, m := range summary.Models {
			modelRows = append(modelRows, []string{
				m.Model,
				humanize.Comma(m.Attempts),
				humanize.Comma(m.Successes),
				humanize.Comma(m.Retryable),
				humanize.Comma(m.Unavailable),
				humanize.Comma(m.Fatal),
				humanize.Comma(m.Backoffs),
			})
		}
		sections = append(sections, renderTable("Models",
			[]string{"Model", "Attempts", "Successes", "Retryable", "Unavailable", "Fatal", "Backoffs"}, modelRows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}, colorize))
	}
	return strings.Join(sections, "\n")
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
