package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/burgerbar/internal/app"
	"github.com/Additional-Code/burgerbar/internal/migration"
	"github.com/Additional-Code/burgerbar/internal/seeder"
)

const shutdownTimeout = 10 * time.Second

// NewRootCommand builds the root burgerbar CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "burgerbar",
		Short:         "Burgerbar ordering service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newWorkerCmd())

	return root
}

// Execute runs the burgerbar CLI until SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run"},
		Short:   "Run the HTTP and gRPC services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app.Module)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	down := withMigrator("down", "Roll back migrations", func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
		steps, _ := cmd.Flags().GetInt("steps")
		all, _ := cmd.Flags().GetBool("all")
		if err := mig.Down(ctx, steps, all); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
		return nil
	})
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	down.Flags().Bool("all", false, "Roll back every applied migration")

	cmd.AddCommand(
		withMigrator("up", "Apply pending migrations", func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			if err := mig.Up(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		}),
		down,
		withMigrator("version", "Print the applied schema version", func(ctx context.Context, cmd *cobra.Command, mig *migration.Migrator) error {
			v, err := mig.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return nil
		}),
	)
	return cmd
}

// withMigrator builds a subcommand that runs fn against a connected migrator.
func withMigrator(use, short string, fn func(context.Context, *cobra.Command, *migration.Migrator) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var mig *migration.Migrator
			opts := fx.Options(app.Base, migration.Module, fx.Populate(&mig))
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				return fn(ctx, cmd, mig)
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the menu and the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Base, seeder.Module, fx.Populate(&seed))
			return runOnce(cmd.Context(), opts, func(ctx context.Context) error {
				if err := seed.Run(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seed data applied")
				return nil
			})
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

// serve runs a long-lived application until ctx is cancelled.
func serve(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

// runOnce starts opts, runs fn once and stops the application.
func runOnce(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
