package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newSpeakCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "speak <id>",
		Short: "Read a capture's text aloud",
		Args:  requireCaptureID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCaptureID(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Speak(cmd.Context(), id)
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					return writePlain("spoke capture #%d (%d characters)\n", resp.ID, resp.Chars)
				})
			})
		},
	}
}
