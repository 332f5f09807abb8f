package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signlens/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var outputFormat string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "signlens",
		Short: "Signlens captures signboard photos, extracts their text and keeps a searchable history",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "", "output format (json, yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newScanCmd(cfg, &outputFormat),
		newListCmd(cfg, &outputFormat),
		newShowCmd(cfg, &outputFormat),
		newSearchCmd(cfg, &outputFormat),
		newDeleteCmd(cfg, &outputFormat),
		newClearCmd(cfg, &outputFormat),
		newStatsCmd(cfg, &outputFormat),
		newExportCmd(cfg),
		newSpeakCmd(cfg, &outputFormat),
		newCacheCmd(cfg, &outputFormat),
		newConfigCmd(cfg),
		newInfoCmd(cfg, &outputFormat),
	)

	return cmd
}
