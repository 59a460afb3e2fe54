// Package version parses migration filenames of the form
// V<version>__<description>.sql.
//
// The leading V is case-sensitive and the separator is exactly two
// underscores. The version must be a positive base-10 integer with no sign.
// Names that do not follow the convention are not errors: callers filter them
// out with IsValidMigrationFile and never see them again.
package version

import (
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	// filenameLexer switches state after the marker and again after the
	// separator so digits and underscores inside the description are not
	// tokenised as part of the version.
	filenameLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Marker", Pattern: `V`, Action: lexer.Push("Version")},
		},
		"Version": {
			{Name: "Separator", Pattern: `__`, Action: lexer.Push("Description")},
			{Name: "Digits", Pattern: `[0-9]+`},
		},
		"Description": {
			{Name: "Text", Pattern: `.+`},
		},
	})

	parser = participle.MustBuild[Filename](
		participle.Lexer(filenameLexer),
	)
)

// Filename is the parsed form of a migration filename.
type Filename struct {
	Version     string `parser:"Marker @Digits Separator"`
	Description string `parser:"@Text?"`
}

// Parse parses name into its components. The version is validated to be a
// positive integer that fits in an int64.
func Parse(name string) (*Filename, error) {
	f, err := parser.ParseString("", name)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid migration filename: %s", name)
	}

	if _, err := f.Number(); err != nil {
		return nil, errors.Wrapf(err, "invalid migration filename: %s", name)
	}

	return f, nil
}

// Number returns the numeric version.
func (f *Filename) Number() (int64, error) {
	n, err := strconv.ParseInt(f.Version, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid version %q", f.Version)
	}

	if n <= 0 {
		return 0, errors.Errorf("version must be greater than zero, got %d", n)
	}

	return n, nil
}

// IsValidMigrationFile reports whether name follows the migration naming
// convention.
func IsValidMigrationFile(name string) bool {
	_, err := Parse(name)
	return err == nil
}

// ParseVersion extracts the numeric version from name.
func ParseVersion(name string) (int64, error) {
	f, err := Parse(name)
	if err != nil {
		return 0, err
	}

	return f.Number()
}

// MustParseVersion is ParseVersion for names already known to be valid.
func MustParseVersion(name string) int64 {
	n, err := ParseVersion(name)
	if err != nil {
		panic(err)
	}

	return n
}

// Format renders n the way it is stored in the ledger.
func Format(n int64) string {
	return strconv.FormatInt(n, 10)
}
