package main

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newSearchCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>...",
		Short: "Search capture text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			query := url.Values{}
			query.Set("search", term)

			return withClient(cfg, func(client *api.Client) error {
				responses, err := client.ListCaptures(cmd.Context(), query)
				if err != nil {
					return err
				}
				return output(*outputFormat, responses, func() error {
					return writeCaptureList(responses)
				})
			})
		},
	}
}
