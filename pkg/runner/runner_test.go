package runner_test

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"github.com/pseudomuto/dbvcs/pkg/executor"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/pseudomuto/dbvcs/pkg/runner"
	"github.com/pseudomuto/dbvcs/pkg/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func params(t *testing.T, cfg *config.Config, marker bool, roots ...fs.FS) (runner.Params, *sqlx.DB, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	db := testutil.OpenSQLite(t)

	return runner.Params{
		Config: cfg,
		DB:     db,
		Logger: zap.New(core),
		Marker: marker,
		Roots:  roots,
	}, db, logs
}

func TestRunDisabled(t *testing.T) {
	root := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)
	p, db, logs := params(t, config.Default(), false, root)

	results, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Nil(t, results)
	require.Equal(t, 1, logs.FilterMessage("DbVcs feature is disabled").Len())
	require.False(t, testutil.TableExists(t, db, "db_vcs_schema"))
}

func TestRunDisabledWithoutDatasource(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	results, err := runner.Run(context.Background(), runner.Params{
		Config: config.Default(),
		Logger: zap.New(core),
		Roots:  []fs.FS{testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)},
	})
	require.NoError(t, err)
	require.Nil(t, results)
	require.Equal(t, 1, logs.FilterMessage("DbVcs feature is disabled").Len())
}

func TestRunOpensDatasource(t *testing.T) {
	dsn := testutil.SQLiteDSN(t)

	cfg := config.Default()
	cfg.Datasource = config.Datasource{Driver: "sqlite", URL: dsn, MaxPoolSize: 1}

	results, err := runner.Run(context.Background(), runner.Params{
		Config: cfg,
		Marker: true,
		Roots:  []fs.FS{testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	testutil.RequireScenarioApplied(t, db)
}

func TestRunInvalidDatasource(t *testing.T) {
	_, err := runner.Run(context.Background(), runner.Params{
		Config: config.Default(),
		Marker: true,
		Roots:  []fs.FS{testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)},
	})
	require.ErrorIs(t, err, errdefs.ErrInvalidConfig)
}

func TestRunScenario(t *testing.T) {
	cfg := config.Default()
	cfg.DB.VCS.Enabled = "true"

	root := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)
	root["db-migration/init.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE t;")}
	root["db-migration/README.md"] = &fstest.MapFile{Data: []byte("# migrations")}

	p, db, logs := params(t, cfg, false, root)

	results, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, results, 3)
	testutil.RequireScenarioApplied(t, db)

	enabled := logs.FilterMessage("DbVcs feature is enabled").All()
	require.Len(t, enabled, 1)
	require.Equal(t, "property", enabled[0].ContextMap()["reason"])

	runID := enabled[0].ContextMap()[logging.RunIDKey]
	require.NotEmpty(t, runID)
	for _, entry := range logs.All() {
		require.Equal(t, runID, entry.ContextMap()[logging.RunIDKey], entry.Message)
	}

	results, err = runner.Run(context.Background(), p)
	require.NoError(t, err)
	for _, result := range results {
		require.Equal(t, executor.StatusSkipped, result.Status)
	}

	testutil.RequireScenarioApplied(t, db)
}

func TestRunMarkerAndLocation(t *testing.T) {
	cfg := config.Default()
	cfg.DB.VCS.Migration.Location = "/sql/"

	empty := fstest.MapFS{}
	root := testutil.MigrationFS("sql", testutil.ScenarioMigrations()...)
	p, db, _ := params(t, cfg, true, empty, root)

	results, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, results, 3)
	testutil.RequireScenarioApplied(t, db)
}

func TestRunSameMigrationsInSeveralRoots(t *testing.T) {
	embedded := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)
	workdir := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)
	p, db, _ := params(t, nil, true, embedded, workdir)

	results, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, results, 3)
	testutil.RequireScenarioApplied(t, db)

	workdir["db-migration/V2__seed.sql"] = &fstest.MapFile{Data: []byte("INSERT INTO t VALUES (2);")}

	results, err = runner.Run(context.Background(), p)
	require.Nil(t, results)
	require.ErrorIs(t, err, errdefs.ErrDuplicateVersion)
}

func TestRunEmptyLocation(t *testing.T) {
	root := fstest.MapFS{"db-migration": &fstest.MapFile{Mode: fs.ModeDir}}
	p, db, _ := params(t, nil, true, root)

	results, err := runner.Run(context.Background(), p)
	require.NoError(t, err)
	require.Empty(t, results)
	require.False(t, testutil.TableExists(t, db, "db_vcs_schema"), "ledger is created lazily")
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		root fs.FS
		kind error
	}{
		{
			name: "missing location",
			root: fstest.MapFS{},
			kind: errdefs.ErrDiscovery,
		},
		{
			name: "duplicate versions",
			root: testutil.MigrationFS("db-migration",
				testutil.Migration{Name: "V1__a.sql", Content: "SELECT 1;"},
				testutil.Migration{Name: "V01__b.sql", Content: "SELECT 2;"},
			),
			kind: errdefs.ErrDuplicateVersion,
		},
		{
			name: "bad statement",
			root: testutil.MigrationFS("db-migration",
				testutil.Migration{Name: "V1__a.sql", Content: "CREATE TABLE;"},
			),
			kind: errdefs.ErrExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := params(t, nil, true, tt.root)

			results, err := runner.Run(context.Background(), p)
			require.Nil(t, results)
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestRunUnsupportedDriver(t *testing.T) {
	p, db, _ := params(t, nil, true, testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...))
	p.DB = sqlx.NewDb(db.DB, "oracle")

	_, err := runner.Run(context.Background(), p)
	require.EqualError(t, err, "unsupported driver: oracle")
}

func TestModule(t *testing.T) {
	db := testutil.OpenSQLite(t)
	root := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)

	app := fxtest.New(t,
		fx.Supply(config.Default(), db, zap.NewNop()),
		runner.Module,
		runner.Enable(),
		runner.Roots(root),
	)

	app.RequireStart()
	app.RequireStop()
	testutil.RequireScenarioApplied(t, db)
}

func TestModuleDisabled(t *testing.T) {
	db := testutil.OpenSQLite(t)
	root := testutil.MigrationFS("db-migration", testutil.ScenarioMigrations()...)

	app := fxtest.New(t,
		fx.Supply(config.Default(), db, zap.NewNop()),
		runner.Module,
		runner.Roots(root),
	)

	app.RequireStart()
	app.RequireStop()
	require.False(t, testutil.TableExists(t, db, "t"))
}

func TestModuleFailsStart(t *testing.T) {
	db := testutil.OpenSQLite(t)
	root := testutil.MigrationFS("db-migration", testutil.Migration{Name: "V1__a.sql", Content: "NOT SQL;"})

	app := fx.New(
		fx.NopLogger,
		fx.Supply(config.Default(), db, zap.NewNop()),
		runner.Module,
		runner.Enable(),
		runner.Roots(root),
	)

	err := app.Start(context.Background())
	require.ErrorIs(t, err, errdefs.ErrExecution)
}
