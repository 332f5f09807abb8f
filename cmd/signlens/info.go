package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
	"signlens/internal/imagecache"
)

func newInfoCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					if err := writePlain("version: %s\n", resp.Version); err != nil {
						return err
					}
					if err := writePlain("db: %s\n", resp.DBPath); err != nil {
						return err
					}
					if err := writePlain("cache dir: %s\n", resp.CacheDir); err != nil {
						return err
					}
					if err := writePlain("ocr backend: %s\n", resp.OCRURL); err != nil {
						return err
					}
					return writePlain("cache size: %s\n", imagecache.FormatBytes(resp.CacheSize))
				})
			})
		},
	}
}
