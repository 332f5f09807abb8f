package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newStatsCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show capture history statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CaptureStats(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					if err := writePlain("captures: %d\n", resp.TotalCaptures); err != nil {
						return err
					}
					if err := writePlain("average confidence: %.1f\n", resp.AverageConfidence); err != nil {
						return err
					}
					if resp.OldestCapture != nil {
						if err := writePlain("oldest: %s\n", *resp.OldestCapture); err != nil {
							return err
						}
					}
					if resp.NewestCapture != nil {
						return writePlain("newest: %s\n", *resp.NewestCapture)
					}
					return nil
				})
			})
		},
	}
}
