package main

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/rhealabs/raengine/internal/config"
)

func newHealCacheCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "heal-cache",
		Short: "Inspect or clear the Healing Cache",
	}
	cmd.AddCommand(newHealCacheInspectCommand(cfg))
	cmd.AddCommand(newHealCacheClearCommand(cfg))
	return cmd
}

func newHealCacheInspectCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List every healing-cache entry persisted in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, *cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.HealingStore.LoadAll(ctx)
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].LastSuccessAt.After(entries[j].LastSuccessAt)
			})

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Healing cache is empty")
				return nil
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Page Pattern", "Step", "Label", "Healed As", "Success Rate", "Expires"})
			tw.SetColumnConfigs([]table.ColumnConfig{{Number: 5, Align: text.AlignRight}})
			for _, e := range entries {
				tw.AppendRow(table.Row{
					e.Key.PageURLPattern, e.Key.StepKind, e.Key.Label, e.HealedKind,
					fmt.Sprintf("%.0f%% (%d)", e.SuccessRate()*100, e.Attempts()),
					e.ExpiresAt.Format("2006-01-02 15:04"),
				})
			}
			tw.Render()
			return nil
		},
	}
}

func newHealCacheClearCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every healing-cache entry from the store, regardless of success rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, *cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			entries, err := rt.HealingStore.LoadAll(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := rt.HealingStore.Delete(ctx, e.Key); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d healing-cache entries\n", len(entries))
			return nil
		},
	}
}
