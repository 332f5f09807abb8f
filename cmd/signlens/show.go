package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newShowCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show capture details",
		Args:  requireCaptureID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCaptureID(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetCapture(cmd.Context(), id)
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					return writeCaptureDetail(resp)
				})
			})
		},
	}
}
