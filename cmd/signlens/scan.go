package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newScanCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	var speakResult bool

	cmd := &cobra.Command{
		Use:   "scan <image>",
		Short: "Photograph analysis: detect signboards, extract text and save a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath := args[0]
			if _, err := os.Stat(imagePath); err != nil {
				return fmt.Errorf("image %s: %w", imagePath, err)
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Scan(cmd.Context(), imagePath)
				if err != nil {
					return err
				}

				if speakResult && resp.Capture.Text != "" {
					if _, err := client.Speak(cmd.Context(), resp.Capture.ID); err != nil {
						fmt.Fprintln(os.Stderr, "warning: speak failed:", err)
					}
				}

				return output(*outputFormat, resp, func() error {
					if err := writePlain("saved capture #%d (%d detections)\n", resp.Capture.ID, resp.DetectionCount); err != nil {
						return err
					}
					return writeCaptureDetail(resp.Capture)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&speakResult, "speak", false, "read the extracted text aloud")
	return cmd
}
