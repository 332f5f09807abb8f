package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newDeleteCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a capture and its cached images",
		Args:  requireCaptureID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCaptureID(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.DeleteCapture(cmd.Context(), id)
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					if resp.BlobWarning != "" {
						return writePlain("deleted capture #%d (warning: %s)\n", resp.ID, resp.BlobWarning)
					}
					return writePlain("deleted capture #%d\n", resp.ID)
				})
			})
		},
	}
}

func newClearCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the entire capture history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ClearCaptures(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					if resp.BlobFailures > 0 {
						return writePlain("removed %d captures (%d cached files left behind)\n", resp.CapturesRemoved, resp.BlobFailures)
					}
					return writePlain("removed %d captures\n", resp.CapturesRemoved)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all captures")
	return cmd
}
