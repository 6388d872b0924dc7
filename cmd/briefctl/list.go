package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/deals"
)

func newListCmd(c *cli) *cobra.Command {
	var (
		status string
		filter deals.ListFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored deals, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = deals.Status(strings.TrimSpace(status))
			return c.withApp(cmd, func(app *bootstrap.App) error {
				page, err := app.Deals.List(cmd.Context(), filter)
				if err != nil {
					return eris.Wrap(err, "list")
				}
				return writeJSON(cmd.OutOrStdout(), page)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, processed, failed)")
	cmd.Flags().StringVar(&filter.Company, "company", "", "filter by company name substring")
	cmd.Flags().StringVar(&filter.Sector, "sector", "", "filter by sector substring")
	cmd.Flags().StringVar(&filter.Stage, "stage", "", "filter by tag stage")
	cmd.Flags().StringVar(&filter.Category, "category", "", "filter by tag category")
	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "max number of deals to print (max 100)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of deals to skip")
	return cmd
}
