package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/executor"
	"github.com/pseudomuto/dbvcs/pkg/ledger"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type statusParams struct {
	fx.In

	Logger *zap.Logger
}

// status creates the status command for showing migration status.
//
// The command compares the migration files in the configured location with
// the ledger and never modifies either.
//
// Example usage:
//
//	# Show migration status for a postgres database
//	dbvcs status --driver postgres --url postgres://localhost/app
//
//	# Use a different migration location
//	dbvcs status -l sql/migrations
func status(p statusParams) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show migration status",
		Description: `Display the state of every migration file against the ledger.

Each file is reported as applied, pending, modified since it was applied, or
out of order. Ledger entries without a matching file are listed as well.`,
		Flags: []cli.Flag{
			driverFlag,
			urlFlag,
			locationFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStatus(ctx, cmd, p)
		},
	}
}

func runStatus(ctx context.Context, cmd *cli.Command, p statusParams) error {
	cfg := resolveConfig(ctx, cmd)
	logger, _ := logging.WithRunID(logging.FromContext(ctx, p.Logger))

	dir, err := loadMigrations(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "failed to load migrations")
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

	exists, err := store.Exists(ctx, db)
	if err != nil {
		return err
	}

	var orphans []*ledger.Entry
	if exists {
		entries, err := store.List(ctx, db)
		if err != nil {
			return err
		}

		orphans = missingFiles(entries, results)
	}

	w := out(cmd)
	fmt.Fprintln(w, "Migration Status")
	fmt.Fprintf(w, "Migration location: %s\n", dir.Location)
	fmt.Fprintf(w, "Ledger table: %s\n", store.Table())
	fmt.Fprintln(w)

	if len(results) == 0 && len(orphans) == 0 {
		fmt.Fprintln(w, "No migration files found.")
		return nil
	}

	if !exists {
		fmt.Fprintln(w, "Ledger table does not exist yet; every migration is pending.")
		fmt.Fprintln(w)
	}

	printStatus(w, results, orphans)
	return nil
}

func missingFiles(entries []*ledger.Entry, results []*executor.ExecutionResult) []*ledger.Entry {
	known := make(map[string]struct{}, len(results))
	for _, r := range results {
		known[r.Version] = struct{}{}
	}

	var orphans []*ledger.Entry
	for _, e := range entries {
		if _, ok := known[e.VersionNo]; !ok {
			orphans = append(orphans, e)
		}
	}

	return orphans
}

func printStatus(w io.Writer, results []*executor.ExecutionResult, orphans []*ledger.Entry) {
	counts := make(map[executor.ExecutionStatus]int)

	for _, r := range results {
		counts[r.Status]++

		switch r.Status {
		case executor.StatusSkipped:
			fmt.Fprintf(w, "  ✅ %s (applied %s)\n", r.File, r.Entry.ExecutedAt)
		case executor.StatusDrifted:
			fmt.Fprintf(w, "  ❌ %s (modified since applied: recorded %s, found %s)\n", r.File, r.Entry.FileHash, r.Hash)
		case executor.StatusOutOfOrder:
			fmt.Fprintf(w, "  ⚠️  %s (out of order: version %s is not above the last applied version)\n", r.File, r.Version)
		default:
			fmt.Fprintf(w, "  ⏳ %s (pending)\n", r.File)
		}
	}

	for _, e := range orphans {
		fmt.Fprintf(w, "  ❓ %s (applied %s, file missing)\n", e.SQLFile, e.ExecutedAt)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Summary: %d applied, %d pending, %d modified, %d out of order, %d missing\n",
		counts[executor.StatusSkipped],
		counts[executor.StatusPending],
		counts[executor.StatusDrifted],
		counts[executor.StatusOutOfOrder],
		len(orphans),
	)
}
