package main

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"signlens/internal/api"
	"signlens/internal/config"
)

func newListCmd(cfg *config.Config, outputFormat *string) *cobra.Command {
	var limit, offset int
	var orderBy, order string
	var minConfidence float64
	var start, end string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List capture history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}
			if orderBy != "" {
				query.Set("order_by", orderBy)
			}
			if order != "" {
				query.Set("order", order)
			}
			if cmd.Flags().Changed("min-confidence") {
				query.Set("min_confidence", strconv.FormatFloat(minConfidence, 'f', -1, 64))
			}
			if start != "" {
				query.Set("start", start)
			}
			if end != "" {
				query.Set("end", end)
			}

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

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of captures")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of captures to skip")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "sort column (timestamp, confidence, created_at, id)")
	cmd.Flags().StringVar(&order, "order", "", "sort direction (asc, desc)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "only captures with confidence >= this value")
	cmd.Flags().StringVar(&start, "start", "", "range start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "range end (RFC3339 or YYYY-MM-DD)")
	return cmd
}
