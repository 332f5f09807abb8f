package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"signlens/internal/config"
	"signlens/internal/imagecache"
	"signlens/internal/ocr"
	"signlens/internal/server"
	"signlens/internal/speech"
	"signlens/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the signlens API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			cache := imagecache.New(cfg.CapturesDir(), cfg.ThumbnailsDir(), imagecache.Options{
				MaxSizeBytes:     cfg.Cache.MaxSizeBytes,
				ThumbnailWidth:   cfg.Cache.ThumbnailWidth,
				ThumbnailQuality: cfg.Cache.ThumbnailQuality,
				Logger:           logger.With("component", "imagecache"),
			})
			if err := cache.Init(); err != nil {
				return err
			}

			srv := server.New(addr, server.Deps{
				Store:  st,
				Cache:  cache,
				OCR:    ocr.NewClient(cfg.OCRURL),
				Speech: speech.NewCommandEngine(cfg.TTSCommand, logger.With("component", "speech")),
				Logger: logger,
				Info: server.Info{
					Version:  version,
					DBPath:   cfg.DBPath,
					CacheDir: cfg.DataDir,
					OCRURL:   cfg.OCRURL,
				},
			})
			return srv.ListenAndServe()
		},
	}
}
