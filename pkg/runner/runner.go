// Package runner performs one migration run: gate, discovery, execution.
//
// Hosts embed it through Module, which runs migrations when the fx application
// starts and fails the start on any error:
//
//	//go:embed db-migration/*.sql
//	var migrations embed.FS
//
//	fx.New(
//		config.Module,
//		logging.Module,
//		database.Module,
//		runner.Module,
//		runner.Enable(),
//		runner.Roots(migrations, os.DirFS(".")),
//	)
package runner

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/database"
	"github.com/pseudomuto/dbvcs/pkg/executor"
	"github.com/pseudomuto/dbvcs/pkg/gate"
	"github.com/pseudomuto/dbvcs/pkg/ledger"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/pseudomuto/dbvcs/pkg/migrator"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Params are the inputs of a single run.
type Params struct {
	// Config supplies db.vcs.enabled, the location and the transaction mode.
	Config *config.Config

	// DB is the pool a connection is taken from for the run. When nil, a pool
	// is opened from Config.Datasource once the gate is open and closed when
	// the run ends.
	DB *sqlx.DB

	// Logger receives the run's log lines, tagged with a run id.
	Logger *zap.Logger

	// Marker is the host's declarative opt-in.
	Marker bool

	// Roots are searched for the migration location. Defaults to the working
	// directory.
	Roots []fs.FS

	// Clock supplies ledger timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// Run evaluates the gate and, when enabled, applies pending migrations on one
// connection held for the whole run. A disabled gate returns nil results and
// no error; an enabled run that succeeds always returns a non-nil slice.
func Run(ctx context.Context, p Params) (results []*executor.ExecutionResult, err error) {
	logger, _ := logging.WithRunID(p.Logger)

	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}

	decision := gate.Evaluate(p.Marker, cfg)
	decision.Log(logger)
	if !decision.Enabled {
		return nil, nil
	}

	roots := p.Roots
	if len(roots) == 0 {
		roots = []fs.FS{os.DirFS(".")}
	}

	reader := migrator.NewReader(cfg.Location(), roots...).WithLogger(logger)
	candidates, err := reader.Read(ctx)
	if err != nil {
		return nil, err
	}

	dir, err := migrator.Prepare(reader.Location(), candidates)
	if err != nil {
		return nil, err
	}

	logger.Info("Discovered migrations",
		zap.String("location", dir.Location),
		zap.Int("count", dir.Len()),
	)

	db := p.DB
	if db == nil {
		opened, openErr := database.Open(ctx, cfg.Datasource, logger)
		if openErr != nil {
			return nil, openErr
		}

		defer func() {
			err = multierr.Append(err, errors.Wrap(opened.Close(), "failed to close datasource"))
			if err != nil {
				results = nil
			}
		}()

		db = opened
	}

	dialect, err := ledger.DialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}

	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire connection")
	}

	defer func() {
		err = multierr.Append(err, errors.Wrap(conn.Close(), "failed to release connection"))
		if err != nil {
			results = nil
		}
	}()

	exec := executor.New(executor.Config{
		Conn:          conn,
		Ledger:        ledger.New(dialect, logger),
		Logger:        logger,
		Clock:         p.Clock,
		Transactional: cfg.DB.VCS.Migration.Transactional,
	})

	return exec.Execute(ctx, dir.Files)
}
