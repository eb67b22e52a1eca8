package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhealabs/raengine/internal/config"
)

// errCancelled and errStepFailures are sentinels wrapped into a run's
// returned error so exitCodeFor can recover the intended CLI exit code
// without cobra's error path losing the distinction.
var (
	errCancelled    = errors.New("run cancelled")
	errStepFailures = errors.New("one or more steps failed")
)

func newRootCommand() *cobra.Command {
	var projectDir string
	var storePathFlag string
	var loadedConfig config.Config

	root := &cobra.Command{
		Use:           "raengine",
		Short:         "Resilient Action Engine — self-healing browser action replay",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if projectDir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				projectDir = wd
			}
			var flags *config.FlagOverrides
			if storePathFlag != "" {
				flags = &config.FlagOverrides{StorePath: &storePathFlag}
			}
			cfg, err := config.Load(projectDir, flags)
			if err != nil {
				return err
			}
			loadedConfig = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&projectDir, "project-dir", "", "Directory to look for .raengine.toml in (default: cwd)")
	root.PersistentFlags().StringVar(&storePathFlag, "store", "", "Path to the healing-cache/telemetry SQLite database")

	root.AddCommand(newRunCommand(&loadedConfig))
	root.AddCommand(newWaitAndClickCommand(&loadedConfig))
	root.AddCommand(newAnalyticsCommand(&loadedConfig))
	root.AddCommand(newHealCacheCommand(&loadedConfig))

	return root
}
