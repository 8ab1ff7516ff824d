// Command eventctl runs one-off maintenance tasks against the EventHub database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/db"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/crosslove/eventhub/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "eventctl",
		Short:         "EventHub maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd(), seedAdminCmd(), promoteCmd(), backfillCmd())
	return cmd
}

// withPool runs fn with a connected pool and a context cancelled on SIGINT/SIGTERM.
func withPool(fn func(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) error) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ config.Config, pool *pgxpool.Pool) error {
				if err := db.Migrate(ctx, pool); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
				return nil
			})
		},
	}
}

func seedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account from ADMIN_EMAIL and ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) error {
				if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
					return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
				}

				created, err := db.EnsureAdminUser(ctx, postgres.NewUsersRepo(pool, nil), cfg)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "admin %s created\n", cfg.AdminEmail)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "admin %s already present\n", cfg.AdminEmail)
				}
				return nil
			})
		},
	}
}

func promoteCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant (or with --revoke remove) the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ config.Config, pool *pgxpool.Pool) error {
				u, err := setAdmin(ctx, postgres.NewUsersRepo(pool, nil), args[0], !revoke)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s roles: %v\n", u.Email, u.Roles.List())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "Remove the admin role instead of granting it")
	return cmd
}

func backfillCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "geocode-backfill",
		Short: "Queue geocode jobs for events without coordinates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) error {
				log := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Env, "eventctl")

				n, err := backfillGeocodes(ctx, postgres.NewEventsRepo(pool, nil), postgres.NewJobsRepo(pool, nil), limit, time.Now(), log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d geocode jobs queued\n", n)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum number of events to queue")
	return cmd
}
