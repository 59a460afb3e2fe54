package testutil

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// RequireFileExists asserts that a file exists and optionally checks its content
func RequireFileExists(t *testing.T, path string, checks ...func(content string)) {
	t.Helper()

	require.FileExists(t, path, "File should exist: %s", path)

	if len(checks) > 0 {
		content, err := os.ReadFile(path)
		require.NoError(t, err, "Failed to read file: %s", path)

		for _, check := range checks {
			check(string(content))
		}
	}
}

// RequireFileContains returns a check function that verifies file contains text
func RequireFileContains(t *testing.T, expected string) func(string) {
	return func(content string) {
		require.Contains(t, content, expected, "File should contain: %s", expected)
	}
}

// RequireLedger asserts the ledger holds exactly versions, in insertion order.
func RequireLedger(t *testing.T, db *sqlx.DB, versions ...string) {
	t.Helper()

	if len(versions) == 0 {
		require.Empty(t, LedgerVersions(t, db), "Ledger should be empty")
		return
	}

	require.Equal(t, versions, LedgerVersions(t, db), "Unexpected ledger versions")
}

// RequireScenarioApplied asserts the effects of ScenarioMigrations.
func RequireScenarioApplied(t *testing.T, db *sqlx.DB) {
	t.Helper()

	require.True(t, TableExists(t, db, "t"), "table t should exist")
	require.True(t, IndexExists(t, db, "ix"), "index ix should exist")
	require.Equal(t, 1, Count(t, db, "t"), "table t should hold the seed row")
	RequireLedger(t, db, "1", "2", "3")
}
