package main

import (
	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
	"signlens/internal/imagecache"
)

func newCacheCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the image cache",
	}

	cmd.AddCommand(
		newCacheStatsCmd(cfg, outputFormat),
		newCacheCleanupCmd(cfg, outputFormat),
		newCacheClearCmd(cfg, outputFormat),
	)
	return cmd
}

func newCacheStatsCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show image cache usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheStats(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					return writeCacheStats(resp)
				})
			})
		},
	}
}

func newCacheCleanupCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Evict oldest images until the cache fits its budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheCleanup(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					return writePlain("evicted %d images, reclaimed %s (%s remaining)\n",
						resp.EvictedCount,
						imagecache.FormatBytes(resp.ReclaimedBytes),
						imagecache.FormatBytes(resp.RemainingBytes))
				})
			})
		},
	}
}

func newCacheClearCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached image and thumbnail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errConfirmRequired
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CacheClear(cmd.Context())
				if err != nil {
					return err
				}
				return output(*outputFormat, resp, func() error {
					return writePlain("removed %d files, reclaimed %s\n",
						resp.EvictedCount, imagecache.FormatBytes(resp.ReclaimedBytes))
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing the cache")
	return cmd
}
