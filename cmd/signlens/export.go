package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
	"signlens/internal/format"
)

func newExportCmd(cfg *config.Config) *cobra.Command {
	var outputPath string
	var exportFormat string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full capture history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var buf bytes.Buffer
				if err := client.Export(cmd.Context(), &buf); err != nil {
					return err
				}

				out := os.Stdout
				if outputPath != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return err
					}
					defer f.Close()
					out = f
				}

				switch exportFormat {
				case "", "json":
					_, err := out.Write(buf.Bytes())
					return err
				case "yaml", "yml":
					var payload any
					if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
						return fmt.Errorf("decode export: %w", err)
					}
					return format.YAMLFormatter{}.Write(out, payload)
				default:
					return fmt.Errorf("unknown format: %s", exportFormat)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().StringVar(&exportFormat, "export-format", "", "export format (json, yaml)")
	return cmd
}
