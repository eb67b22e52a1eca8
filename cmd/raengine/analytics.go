package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/rhealabs/raengine/internal/api"
	"github.com/rhealabs/raengine/internal/config"
	"github.com/rhealabs/raengine/internal/types"
)

func newAnalyticsCommand(cfg *config.Config) *cobra.Command {
	var since time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print the GetAnalytics aggregation (per-strategy success rate, latency, cache/breaker stats)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, *cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := api.GetAnalyticsRequest{}
			if since > 0 {
				now := rt.Engine.Clock.Now()
				req.Range = &api.TimeRange{Start: now.Add(-since), End: now}
			}

			resp, err := api.GetAnalytics(ctx, rt.Recorder, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp.StrategyMetrics)
			}

			return renderAnalyticsTable(cmd, resp)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "Only aggregate events from this far back (0 covers everything recorded)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the aggregation as JSON instead of a table")

	return cmd
}

func renderAnalyticsTable(cmd *cobra.Command, resp api.GetAnalyticsResponse) error {
	out := cmd.OutOrStdout()
	if len(resp.StrategyMetrics) == 0 {
		fmt.Fprintln(out, "No telemetry recorded yet")
		return nil
	}

	keys := make([]types.StrategyKind, 0, len(resp.StrategyMetrics))
	for k := range resp.StrategyMetrics {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	if f, ok := out.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	tw.AppendHeader(table.Row{"Strategy", "Attempts", "Successes", "Success Rate", "Mean ms", "p95 ms"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, k := range keys {
		s := resp.StrategyMetrics[k]
		tw.AppendRow(table.Row{
			string(k), s.Attempts, s.Successes,
			fmt.Sprintf("%.1f%%", s.SuccessRate()*100),
			fmt.Sprintf("%.1f", s.MeanLatencyMs),
			fmt.Sprintf("%.1f", s.P95LatencyMs),
		})
	}
	tw.Render()
	return nil
}
