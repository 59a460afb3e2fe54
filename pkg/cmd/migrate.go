package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/executor"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/pseudomuto/dbvcs/pkg/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const maxPreviewStatements = 3

type migrateParams struct {
	fx.In

	Logger *zap.Logger
}

// migrate creates the migrate command for applying pending migrations.
//
// Without --enable the command only runs when db.vcs.enabled is "true".
//
// Example usage:
//
//	# Apply all pending migrations
//	dbvcs migrate --driver postgres --url postgres://localhost/app --enable
//
//	# Show what would be executed without applying
//	dbvcs migrate --dry-run
func migrate(p migrateParams) *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"apply"},
		Usage:   "Apply pending migrations",
		Description: `Apply every pending migration in ascending version order.

A migration that is already recorded with the same hash is skipped. The run
stops at the first problem: an unapplied migration at or below the last
applied version, a recorded migration whose content changed, or a failing
statement.`,
		Flags: []cli.Flag{
			driverFlag,
			urlFlag,
			locationFlag,
			&cli.BoolFlag{
				Name:  "enable",
				Usage: "run even if db.vcs.enabled is not \"true\"",
			},
			&cli.BoolFlag{
				Name:  "transactional",
				Usage: "apply each migration and its ledger entry in one transaction",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be executed without applying changes",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runMigrate(ctx, cmd, p)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cli.Command, p migrateParams) error {
	cfg := resolveConfig(ctx, cmd)
	if cmd.Bool("transactional") {
		cfg.DB.VCS.Migration.Transactional = true
	}

	logger := logging.FromContext(ctx, p.Logger)
	if cmd.Bool("dry-run") {
		return runDryRun(ctx, cmd, cfg, logger)
	}

	results, err := runner.Run(ctx, runner.Params{
		Config: cfg,
		Logger: logger,
		Marker: cmd.Bool("enable"),
		Roots:  []fs.FS{os.DirFS(".")},
	})
	if err != nil {
		return errors.Wrap(err, "failed to execute migrations")
	}

	// Run returns nil results only when the gate is closed.
	if results == nil {
		fmt.Fprintln(out(cmd), "DbVcs feature is disabled. Pass --enable or set db.vcs.enabled to \"true\".")
		return nil
	}

	reportResults(out(cmd), results)
	return nil
}

func runDryRun(ctx context.Context, cmd *cli.Command, cfg *config.Config, logger *zap.Logger) error {
	logger, _ = logging.WithRunID(logger)

	dir, err := loadMigrations(ctx, cfg, logger)
	if err != nil {
		return err
	}

	db, store, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	results, err := executor.New(executor.Config{Conn: db, Ledger: store, Logger: logger}).Plan(ctx, dir.Files)
	if err != nil {
		return err
	}

	w := out(cmd)
	fmt.Fprintln(w, "Dry run: showing migrations that would be executed")
	fmt.Fprintln(w)

	var pending, skipped, problems int
	for i, result := range results {
		switch result.Status {
		case executor.StatusSkipped:
			fmt.Fprintf(w, "  ⏭  %s (already applied)\n", result.File)
			skipped++
		case executor.StatusDrifted:
			fmt.Fprintf(w, "  ❌ %s (content changed since it was applied)\n", result.File)
			problems++
		case executor.StatusOutOfOrder:
			fmt.Fprintf(w, "  ❌ %s (version %s is not above the last applied version)\n", result.File, result.Version)
			problems++
		default:
			fmt.Fprintf(w, "  ▶  %s (%d statements)\n", result.File, result.TotalStatements)
			previewStatements(w, dir.Files[i].Statements())
			pending++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d migrations would be executed, %d already applied\n", pending, skipped)

	if problems > 0 {
		return errors.Errorf("%d migration(s) would fail", problems)
	}

	if pending == 0 {
		fmt.Fprintln(w, "All migrations are up to date.")
	}

	return nil
}

func previewStatements(w io.Writer, stmts []string) {
	for i, stmt := range stmts {
		if i >= maxPreviewStatements {
			fmt.Fprintf(w, "     ... and %d more statements\n", len(stmts)-maxPreviewStatements)
			return
		}

		// Truncate long statements
		if len(stmt) > 80 {
			stmt = stmt[:77] + "..."
		}
		fmt.Fprintf(w, "     %s\n", stmt)
	}
}

func reportResults(w io.Writer, results []*executor.ExecutionResult) {
	fmt.Fprintln(w, "Migration execution results:")
	fmt.Fprintln(w)

	var applied, skipped int
	for _, result := range results {
		switch result.Status {
		case executor.StatusApplied:
			fmt.Fprintf(w, "  ✅ %s completed in %v (%d statements)\n",
				result.File,
				result.ExecutionTime,
				result.StatementsApplied,
			)
			applied++
		case executor.StatusSkipped:
			fmt.Fprintf(w, "  ⏭  %s (already applied)\n", result.File)
			skipped++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d applied, %d skipped\n", applied, skipped)

	switch {
	case applied > 0:
		fmt.Fprintln(w, "✅ All migrations executed successfully.")
	default:
		fmt.Fprintln(w, "ℹ️  All migrations are up to date.")
	}
}
