package cmd

import (
	"database/sql"
	"errors"

	"github.com/nilotpaul/meetsync/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		migrateSubCmd("up", "Apply all pending migrations", config.MigrateUp),
		migrateSubCmd("down", "Roll back the latest migration", config.MigrateDown),
		migrateSubCmd("status", "Print the status of every migration", config.MigrateStatus),
	)

	return cmd
}

func migrateSubCmd(use, short string, run func(*sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.MustLoadEnv()
			if len(env.DBURL) == 0 {
				return errors.New("DB_URL is required to run migrations")
			}

			db := config.MustInitDB(env.DBURL)
			defer db.Close()

			return run(db)
		},
	}
}
