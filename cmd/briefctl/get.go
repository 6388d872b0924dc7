package main

import (
	"errors"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/deals"
)

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(app *bootstrap.App) error {
				deal, err := app.Deals.Get(cmd.Context(), args[0])
				if errors.Is(err, deals.ErrNotFound) {
					return eris.Errorf("deal %s not found", args[0])
				}
				if err != nil {
					return eris.Wrap(err, "get")
				}
				return writeJSON(cmd.OutOrStdout(), deal)
			})
		},
	}
}
