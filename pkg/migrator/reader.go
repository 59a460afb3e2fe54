package migrator

import (
	"context"
	"io/fs"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"go.uber.org/zap"
)

// Reader lists raw migration candidates from a location that may exist in
// several roots, e.g. an embed.FS compiled into the binary and the working
// directory.
type Reader struct {
	location string
	roots    []fs.FS
	logger   *zap.Logger
}

// NewReader creates a Reader for location across roots. Leading slashes in
// location are ignored; it is always resolved relative to each root.
func NewReader(location string, roots ...fs.FS) *Reader {
	return &Reader{
		location: CleanLocation(location),
		roots:    roots,
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger used to report skipped roots.
func (r *Reader) WithLogger(l *zap.Logger) *Reader {
	if l != nil {
		r.logger = l
	}

	return r
}

// Location returns the cleaned location.
func (r *Reader) Location() string {
	return r.location
}

// Read returns every *.sql file directly inside the location of each root, in
// root order and then name order. Names are not validated here.
//
// A root that lacks the location is skipped. If no root has it, or any read
// fails, an errdefs.ErrDiscovery error is returned.
func (r *Reader) Read(ctx context.Context) ([]*File, error) {
	var (
		files []*File
		found int
	)

	for i, root := range r.roots {
		if err := ctx.Err(); err != nil {
			return nil, errdefs.Discovery(r.location, err)
		}

		entries, err := fs.ReadDir(root, r.location)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug("Migration location not present in root",
					zap.String("location", r.location),
					zap.Int("root", i),
				)
				continue
			}

			return nil, errdefs.Discovery(r.location, err)
		}
		found++

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), consts.MigrationExt) {
				continue
			}

			p := path.Join(r.location, entry.Name())
			content, err := fs.ReadFile(root, p)
			if err != nil {
				return nil, errdefs.Discovery(r.location, errors.Wrapf(err, "failed to read migration: %s", p))
			}

			files = append(files, &File{
				Name:    entry.Name(),
				Path:    p,
				Content: string(content),
			})
		}
	}

	if found == 0 {
		return nil, errdefs.Discovery(r.location, fs.ErrNotExist)
	}

	return files, nil
}

// Load reads and prepares the migrations under location in one step.
func Load(ctx context.Context, location string, roots ...fs.FS) (*MigrationDir, error) {
	candidates, err := NewReader(location, roots...).Read(ctx)
	if err != nil {
		return nil, err
	}

	return Prepare(CleanLocation(location), candidates)
}

// CleanLocation normalises a configured location into an fs.FS path.
func CleanLocation(location string) string {
	loc := path.Clean("/" + strings.ReplaceAll(location, "\\", "/"))
	loc = strings.TrimPrefix(loc, "/")
	if loc == "" {
		return "."
	}

	return loc
}
