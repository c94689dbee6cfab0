package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bher20/bjwater/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down|status",
	Short:     "Apply or inspect the SQL schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		drv, dsn := cfg.Storage.Driver, cfg.Storage.DSN
		if drv == "" || drv == "memory" {
			drv = "sqlite"
		}

		var err error
		switch args[0] {
		case "up":
			err = migrate.Up(ctx, drv, dsn)
		case "down":
			err = migrate.Down(ctx, drv, dsn)
		case "status":
			err = migrate.Status(ctx, drv, dsn)
		}
		if err != nil {
			return fmt.Errorf("migrate %s: %w", args[0], err)
		}
		return nil
	},
}
