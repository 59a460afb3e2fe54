// Package testutil holds helpers shared by the package tests: temporary
// databases, migration fixtures, CLI command runners and container helpers.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// Migration is a fixture migration file.
type Migration struct {
	Name    string
	Content string
}

// ScenarioMigrations returns the three migration end-to-end fixture: a table,
// a seed row and an index.
func ScenarioMigrations() []Migration {
	return []Migration{
		{Name: "V1__init.sql", Content: "CREATE TABLE t(id int);"},
		{Name: "V2__seed.sql", Content: "INSERT INTO t VALUES (1);"},
		{Name: "V3__idx.sql", Content: "CREATE INDEX ix ON t(id);"},
	}
}

// OpenSQLite opens a file-backed SQLite database in a temp directory. It is
// closed when the test ends.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", SQLiteDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// SQLiteDSN returns a DSN for a fresh SQLite database file.
func SQLiteDSN(t *testing.T) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "dbvcs.db")
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", file)
}

// MigrationFS builds an in-memory root holding migrations under location.
func MigrationFS(location string, migrations ...Migration) fstest.MapFS {
	root := fstest.MapFS{}
	for _, m := range migrations {
		root[path.Join(location, m.Name)] = &fstest.MapFile{Data: []byte(m.Content), Mode: consts.ModeFile}
	}

	return root
}

// WriteMigrations writes migrations into dir/location on disk.
func WriteMigrations(t *testing.T, dir, location string, migrations ...Migration) string {
	t.Helper()

	target := filepath.Join(dir, filepath.FromSlash(location))
	require.NoError(t, os.MkdirAll(target, consts.ModeDir))

	for _, m := range migrations {
		require.NoError(t, os.WriteFile(filepath.Join(target, m.Name), []byte(m.Content), consts.ModeFile))
	}

	return target
}

// TableExists reports whether a SQLite table exists.
func TableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	return sqliteObjectExists(t, db, "table", name)
}

// IndexExists reports whether a SQLite index exists.
func IndexExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	return sqliteObjectExists(t, db, "index", name)
}

func sqliteObjectExists(t *testing.T, db *sqlx.DB, kind, name string) bool {
	t.Helper()

	var n int
	require.NoError(t, db.GetContext(context.Background(), &n,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name))

	return n > 0
}

// Count returns SELECT COUNT(*) FROM table.
func Count(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.GetContext(context.Background(), &n, "SELECT COUNT(*) FROM "+table))
	return n
}

// LedgerVersions returns the recorded ledger versions in insertion order.
func LedgerVersions(t *testing.T, db *sqlx.DB) []string {
	t.Helper()

	var versions []string
	require.NoError(t, db.SelectContext(context.Background(), &versions,
		"SELECT version_no FROM "+consts.LedgerTable+" ORDER BY rowid"))

	return versions
}
