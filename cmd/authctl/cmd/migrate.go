package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-photo-sharing/internal/storage/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the user directory schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postgres.Migrate(e.cfg.DB.DatabaseURL, args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied: %s\n", args[0])
			return nil
		},
	}
}
