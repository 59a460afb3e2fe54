package migrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pseudomuto/dbvcs/pkg/checksum"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"github.com/pseudomuto/dbvcs/pkg/version"
)

type (
	// File is one discovered migration script. It is built fresh on every run
	// and never persisted; only its version, name and hash reach the ledger.
	File struct {
		// Name is the base filename, e.g. V1__init.sql.
		Name string

		// Path is the location-relative path the file was read from, for
		// reporting only.
		Path string

		// Content is the raw script text.
		Content string

		// Version is the numeric version parsed from Name. It is zero until the
		// file has passed Filter.
		Version int64
	}

	// MigrationDir is a filtered, version-ordered set of migration files.
	MigrationDir struct {
		Location string
		Files    []*File
	}
)

// VersionNo is the ledger key for the file.
func (f *File) VersionNo() string {
	return version.Format(f.Version)
}

// Trimmed returns Content without leading and trailing whitespace.
func (f *File) Trimmed() string {
	return strings.TrimSpace(f.Content)
}

// Hash returns the content hash recorded in the ledger for this file.
func (f *File) Hash() string {
	return checksum.Hash(f.Content)
}

// Statements splits the file into executable statements.
func (f *File) Statements() []string {
	return Statements(f.Trimmed())
}

func (f *File) String() string {
	return f.Name
}

// Filter keeps the files whose names follow the migration convention and sets
// their Version. Other files are dropped without error.
func Filter(files []*File) []*File {
	valid := make([]*File, 0, len(files))
	for _, f := range files {
		n, err := version.ParseVersion(f.Name)
		if err != nil {
			continue
		}

		f.Version = n
		valid = append(valid, f)
	}

	return valid
}

// Sort orders files by ascending version.
func Sort(files []*File) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
}

// Dedupe drops files that repeat an earlier file's name and content, as
// happens when the same location is present in more than one root. Files
// that share a version but differ in name or content are kept so
// CheckDuplicates can reject them.
func Dedupe(files []*File) []*File {
	type key struct{ name, hash string }

	seen := make(map[key]struct{}, len(files))
	unique := make([]*File, 0, len(files))
	for _, f := range files {
		k := key{name: f.Name, hash: f.Hash()}
		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		unique = append(unique, f)
	}

	return unique
}

// CheckDuplicates fails if two files in a sorted slice share a version.
func CheckDuplicates(files []*File) error {
	for i := 1; i < len(files); i++ {
		prev, cur := files[i-1], files[i]
		if prev.Version == cur.Version {
			return errdefs.DuplicateVersion(
				cur.VersionNo(),
				fmt.Sprintf("%s and %s", prev.Name, cur.Name),
				nil,
			)
		}
	}

	return nil
}

// Prepare filters, dedupes, sorts and checks candidates, producing the run
// order.
func Prepare(location string, candidates []*File) (*MigrationDir, error) {
	files := Dedupe(Filter(candidates))
	Sort(files)

	if err := CheckDuplicates(files); err != nil {
		return nil, err
	}

	return &MigrationDir{Location: location, Files: files}, nil
}

// Len returns the number of migrations in the directory.
func (d *MigrationDir) Len() int {
	return len(d.Files)
}

// Statements splits content on ";" and returns the non-empty statements with
// line breaks replaced by spaces. Semicolons inside string literals or
// comments are not special.
func Statements(content string) []string {
	var stmts []string
	for _, raw := range strings.Split(content, ";") {
		stmt := strings.TrimSpace(newlines.Replace(raw))
		if stmt == "" {
			continue
		}

		stmts = append(stmts, stmt)
	}

	return stmts
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
