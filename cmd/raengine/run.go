package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhealabs/raengine/internal/config"
	"github.com/rhealabs/raengine/internal/recording"
)

func newRunCommand(cfg *config.Config) *cobra.Command {
	var projectID string
	var cancelAfter time.Duration
	var pageURL string

	cmd := &cobra.Command{
		Use:   "run <recording.json>",
		Short: "Replay a Recording's Steps through the Decision Engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}
			rec, err := recording.Decode(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if cancelAfter > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cancelAfter)
				defer cancel()
			}

			rt, err := newRuntime(ctx, *cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Namespacing the healing-cache/telemetry key by project keeps
			// two projects replaying the same page from colliding on the
			// same healed selector.
			cacheURL := pageURL
			if projectID != "" {
				cacheURL = projectID + ":" + pageURL
			}

			runner := &recording.Runner{Engine: rt.Engine, Clock: rt.Engine.Clock}
			summary := runner.Play(ctx, cacheURL, rec)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s: %d/%d steps succeeded (%d healed)\n",
				summary.RunID, summary.StepsSucceeded, summary.StepsTotal, summary.StepsHealed)
			for _, o := range summary.Outcomes {
				if o.Err != nil {
					fmt.Fprintf(out, "  step %s (%s): %v\n", o.StepID, o.Action, o.Err)
				}
			}

			if ctx.Err() == context.Canceled || ctx.Err() == context.DeadlineExceeded {
				return errCancelled
			}
			if summary.StepsFailed > 0 {
				return errStepFailures
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectID, "project-id", "", "Project identifier to namespace telemetry/healing-cache rows under")
	cmd.Flags().DurationVar(&cancelAfter, "cancel-after", 0, "Cancel the run after this duration (0 disables)")
	cmd.Flags().StringVar(&pageURL, "page-url", "", "Page URL the recording was captured against")

	return cmd
}
