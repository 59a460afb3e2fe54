package version_test

import (
	"fmt"
	"testing"

	. "github.com/pseudomuto/dbvcs/pkg/version"
	"github.com/stretchr/testify/require"
)

func TestIsValidMigrationFile(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		valid bool
	}{
		{name: "simple", file: "V1__init.sql", valid: true},
		{name: "multi digit", file: "V42__add_users_table.sql", valid: true},
		{name: "leading zero", file: "V007__seed.sql", valid: true},
		{name: "underscores in description", file: "V3__create__index_on_t.sql", valid: true},
		{name: "empty description", file: "V5__.sql", valid: true},
		{name: "zero version", file: "V0__init.sql", valid: false},
		{name: "negative version", file: "V-1__init.sql", valid: false},
		{name: "signed version", file: "V+1__init.sql", valid: false},
		{name: "lowercase marker", file: "v1__init.sql", valid: false},
		{name: "missing marker", file: "1__init.sql", valid: false},
		{name: "no marker at all", file: "init.sql", valid: false},
		{name: "missing separator", file: "V1_init.sql", valid: false},
		{name: "no description or separator", file: "V1.sql", valid: false},
		{name: "non numeric version", file: "Vone__init.sql", valid: false},
		{name: "mixed version", file: "V1a__init.sql", valid: false},
		{name: "underscore in version", file: "V1_2__init.sql", valid: false},
		{name: "overflow", file: "V99999999999999999999__init.sql", valid: false},
		{name: "empty", file: "", valid: false},
		{name: "marker only", file: "V", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.valid, IsValidMigrationFile(tt.file))
		})
	}
}

func TestIsValidMigrationFileForAllPositiveVersions(t *testing.T) {
	for _, n := range []int64{1, 2, 9, 10, 11, 99, 100, 1024, 20240101120000} {
		name := fmt.Sprintf("V%d__x.sql", n)
		require.True(t, IsValidMigrationFile(name), name)

		got, err := ParseVersion(name)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestParse(t *testing.T) {
	f, err := Parse("V12__create_orders.sql")
	require.NoError(t, err)
	require.Equal(t, "12", f.Version)
	require.Equal(t, "create_orders.sql", f.Description)

	n, err := f.Number()
	require.NoError(t, err)
	require.Equal(t, int64(12), n)

	_, err = Parse("V0__nope.sql")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid migration filename: V0__nope.sql")
}

func TestParseVersionErrors(t *testing.T) {
	_, err := ParseVersion("init.sql")
	require.Error(t, err)

	require.Panics(t, func() { MustParseVersion("init.sql") })
	require.Equal(t, int64(3), MustParseVersion("V3__idx.sql"))
}

func TestFormat(t *testing.T) {
	require.Equal(t, "1", Format(1))
	require.Equal(t, "20240101120000", Format(20240101120000))
}
