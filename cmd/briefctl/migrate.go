package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"dealbrief-backend/internal/bootstrap"
	"dealbrief-backend/internal/shared/storage/db"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqlDB, driver, err := bootstrap.OpenDB(cmd.Context(), c.cfg, db.DefaultMigrateOptions())
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if err := db.RunMigrations(cmd.Context(), sqlDB, driver); err != nil {
				return eris.Wrap(err, "migrate")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", driver)
			return nil
		},
	}
}
