package cmd

import (
	"context"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/database"
	"github.com/pseudomuto/dbvcs/pkg/ledger"
	"github.com/pseudomuto/dbvcs/pkg/migrator"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	driverFlag = &cli.StringFlag{
		Name:    "driver",
		Usage:   "database driver (sqlite, postgres, pgx, mysql, clickhouse)",
		Sources: cli.EnvVars(config.EnvName(consts.PropDriver)),
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	urlFlag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "database connection string",
		Sources: cli.EnvVars(config.EnvName(consts.PropURL)),
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	locationFlag = &cli.StringFlag{
		Name:    "location",
		Aliases: []string{"l"},
		Usage:   "directory holding the migration files",
		Sources: cli.EnvVars(config.EnvName(consts.PropLocation)),
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
)

// resolveConfig returns a copy of the context's configuration with the
// command's flags applied.
func resolveConfig(ctx context.Context, cmd *cli.Command) *config.Config {
	cfg := *config.FromContext(ctx)

	if v := cmd.String("driver"); v != "" {
		cfg.Datasource.Driver = v
	}
	if v := cmd.String("url"); v != "" {
		cfg.Datasource.URL = v
	}
	if v := cmd.String("location"); v != "" {
		cfg.DB.VCS.Migration.Location = v
	}

	return &cfg
}

// loadMigrations reads and prepares the configured location from the working
// directory.
func loadMigrations(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*migrator.MigrationDir, error) {
	reader := migrator.NewReader(cfg.Location(), os.DirFS(".")).WithLogger(logger)
	candidates, err := reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	return migrator.Prepare(reader.Location(), candidates)
}

func openLedger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, *ledger.Store, error) {
	db, err := database.Open(ctx, cfg.Datasource, logger)
	if err != nil {
		return nil, nil, err
	}

	dialect, err := ledger.DialectFor(db.DriverName())
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, ledger.New(dialect, logger), nil
}

func out(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}

	return os.Stderr
}
