package cmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nilotpaul/meetsync/api"
	"github.com/nilotpaul/meetsync/config"
	"github.com/nilotpaul/meetsync/store"
	"github.com/nilotpaul/meetsync/types"
	"github.com/nilotpaul/meetsync/util"
	"github.com/spf13/cobra"
)

func newLogger(debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}

	if util.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newServeCmd() *cobra.Command {
	var (
		debug   bool
		port    string
		migrate bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the integration API server",
		Long: `Start the HTTP server for the OAuth connect flow, token verification
and automation dispatch.

Credentials and automations are kept in Postgres when DB_URL is set and in
memory otherwise. Migrations run on start in production or with --migrate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(debug)
			slog.SetDefault(logger)

			env := config.MustLoadEnv()
			if len(port) != 0 {
				env.Port = port
			}
			if len(env.StateSecret) == 0 {
				return errors.New("STATE_SECRET is required to sign OAuth state")
			}

			var (
				creds       types.CredentialStore
				automations types.AutomationStore
			)
			if len(env.DBURL) != 0 {
				db := config.MustInitDB(env.DBURL)
				defer func() {
					if err := db.Close(); err != nil {
						logger.Error("error closing the database connection", "err", err)
					}
				}()

				if migrate || util.IsProduction() {
					if err := config.MigrateUp(db); err != nil {
						return err
					}
				}

				creds = store.NewPGCredentialStore(db)
				automations = store.NewPGAutomationStore(db)
			} else {
				logger.Warn("DB_URL not set, credentials are kept in memory")
				creds = store.NewMemoryCredentialStore()
				automations = store.NewMemoryAutomationStore()
			}

			// Every provider is registered, unconfigured ones answer
			// with a configuration error.
			r := store.InitStore(*env, nil)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := api.NewAPIServer(api.APIServerConfig{
				ListenAddr:  env.Port,
				Env:         *env,
				Registry:    r,
				Credentials: creds,
				Automations: automations,
				Logger:      logger,
			})

			return s.Start(ctx)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")

	return cmd
}
