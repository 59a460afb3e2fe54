package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/pseudomuto/dbvcs/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type sumParams struct {
	fx.In

	Logger *zap.Logger
}

// rehash creates a CLI command for regenerating the sum file for all migrations.
//
// The sum file records the checksum of every migration under the location
// plus a total hash over all of them. Commit it alongside the migrations and
// run verify in CI to catch edits to files that were already applied.
//
// Example usage:
//
//	dbvcs rehash -l db-migration
func rehash(p sumParams) *cli.Command {
	return &cli.Command{
		Name:  "rehash",
		Usage: "Regenerate the sum file for all migrations",
		Flags: []cli.Flag{locationFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := resolveConfig(ctx, cmd)
			logger := logging.FromContext(ctx, p.Logger)

			dir, err := loadMigrations(ctx, cfg, logger)
			if err != nil {
				return errors.Wrap(err, "failed to load migration directory")
			}

			sumFilePath := filepath.Join(dir.Location, consts.SumFile)
			sumFile, err := os.OpenFile(sumFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.ModeFile)
			if err != nil {
				return errors.Wrapf(err, "failed to create sum file: %s", sumFilePath)
			}
			defer func() { _ = sumFile.Close() }()

			if _, err := migrator.SumDir(dir).WriteTo(sumFile); err != nil {
				return errors.Wrap(err, "failed to write sum file")
			}

			logger.Debug("Wrote sum file", zap.String("path", sumFilePath), zap.Int("migrations", dir.Len()))
			fmt.Fprintf(out(cmd), "Successfully rehashed %d migration(s) and updated sum file\n", dir.Len())
			return nil
		},
	}
}

// verify creates a CLI command that checks the migrations against the sum
// file written by rehash. It fails listing every added, removed or modified
// migration.
//
// Example usage:
//
//	dbvcs verify -l db-migration
func verify(p sumParams) *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Check migrations against the sum file",
		Flags: []cli.Flag{locationFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := resolveConfig(ctx, cmd)
			logger := logging.FromContext(ctx, p.Logger)

			dir, err := loadMigrations(ctx, cfg, logger)
			if err != nil {
				return errors.Wrap(err, "failed to load migration directory")
			}

			sumFilePath := filepath.Join(dir.Location, consts.SumFile)
			f, err := os.Open(sumFilePath)
			if err != nil {
				return errors.Wrapf(err, "failed to open sum file: %s", sumFilePath)
			}
			defer func() { _ = f.Close() }()

			sum, err := migrator.LoadSumFile(f)
			if err != nil {
				return err
			}

			if err := sum.Verify(dir); err != nil {
				return errors.Wrap(err, "sum file verification failed")
			}

			fmt.Fprintf(out(cmd), "✅ %d migration(s) match %s\n", dir.Len(), sumFilePath)
			return nil
		},
	}
}
