package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhealabs/raengine/internal/api"
	"github.com/rhealabs/raengine/internal/config"
	"github.com/rhealabs/raengine/internal/pagedriver"
)

func newWaitAndClickCommand(cfg *config.Config) *cobra.Command {
	var labels []string
	var successLabel string
	var timeoutMs, pollMs, maxClicks int
	var confidenceMin float64
	var postClickDelayMs int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "wait-and-click",
		Short: "Drive the Conditional Click Engine standalone against the fake driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(labels) == 0 {
				return fmt.Errorf("--labels must name at least one label to watch for")
			}

			ctx := cmd.Context()
			rt, err := newRuntime(ctx, *cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := api.NewWaitAndClickRequest(labels)
			if cfg.CondClickTimeoutMs > 0 {
				req.TimeoutMs = int(cfg.CondClickTimeoutMs)
			}
			req.SuccessLabel = successLabel
			if timeoutMs > 0 {
				req.TimeoutMs = timeoutMs
			}
			if pollMs > 0 {
				req.PollMs = pollMs
			}
			req.MaxClicks = maxClicks
			if confidenceMin > 0 {
				req.ConfidenceMin = confidenceMin
			}
			if postClickDelayMs > 0 {
				req.PostClickDelayMs = postClickDelayMs
			}

			resp := api.WaitAndClick(ctx, rt.Engine, "cli-wait-and-click", "standalone", pagedriver.MainFrame, req)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"outcome": resp.Outcome, "clicks": resp.Clicks})
			}
			fmt.Fprintf(out, "outcome: %s, clicks: %d\n", resp.Outcome, resp.Clicks)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&labels, "labels", nil, "Candidate labels to click in priority order (repeatable/comma-separated)")
	cmd.Flags().StringVar(&successLabel, "success-label", "", "Label whose appearance ends the poll loop as Succeeded without clicking")
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "Overall poll timeout in ms (default from config/spec)")
	cmd.Flags().IntVar(&pollMs, "poll-ms", 0, "Poll interval in ms (default from config/spec)")
	cmd.Flags().IntVar(&maxClicks, "max-clicks", 0, "Maximum clicks before giving up (0 uses the engine default)")
	cmd.Flags().Float64Var(&confidenceMin, "confidence-min", 0, "Minimum OCR match confidence to act on (default from config/spec)")
	cmd.Flags().IntVar(&postClickDelayMs, "post-click-delay-ms", 0, "Delay after each click before re-observing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print {outcome, clicks} as JSON")

	return cmd
}
