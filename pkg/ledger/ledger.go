// Package ledger records which migrations have been applied.
//
// The ledger is a four column table (version_no, executed_at, file_hash,
// sql_file) keyed by version. Rows are only ever appended. The Store keeps no
// connection of its own: every operation runs on the Session it is handed, so
// the caller decides whether that is a pooled connection, a dedicated
// connection or a transaction.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"go.uber.org/zap"
)

type (
	// Session is the database handle ledger operations run on. *sqlx.DB,
	// *sqlx.Conn and *sqlx.Tx all satisfy it.
	Session interface {
		sqlx.QueryerContext
		sqlx.ExecerContext
	}

	// Entry is one row of the ledger.
	Entry struct {
		VersionNo  string `db:"version_no"`
		ExecutedAt string `db:"executed_at"`
		FileHash   string `db:"file_hash"`
		SQLFile    string `db:"sql_file"`
	}

	// Store reads and appends ledger entries.
	Store struct {
		dialect *Dialect
		table   string
		logger  *zap.Logger
	}
)

// New creates a Store for dialect using the default ledger table.
func New(dialect *Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		dialect: dialect,
		table:   consts.LedgerTable,
		logger:  logger,
	}
}

// Table returns the ledger table name.
func (s *Store) Table() string {
	return s.table
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() *Dialect {
	return s.dialect
}

// Exists reports whether the ledger table is present, using the catalog.
func (s *Store) Exists(ctx context.Context, sess Session) (bool, error) {
	var n int64
	if err := sqlx.GetContext(ctx, sess, &n, s.dialect.Rebind(s.dialect.tableExists), s.table); err != nil {
		return false, errdefs.Ledger("catalog lookup", err)
	}

	return n > 0, nil
}

// EnsureSchema creates the ledger table when the catalog says it is missing.
func (s *Store) EnsureSchema(ctx context.Context, sess Session) error {
	exists, err := s.Exists(ctx, sess)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	if _, err := sess.ExecContext(ctx, s.dialect.CreateTableSQL(s.table)); err != nil {
		return errdefs.Ledger("create table", err)
	}

	s.logger.Info("Created ledger table", zap.String("table", s.table))
	return nil
}

// LastAppliedVersion returns the highest recorded version, compared
// numerically, and false when the ledger is empty.
func (s *Store) LastAppliedVersion(ctx context.Context, sess Session) (int64, bool, error) {
	var versions []string
	query := fmt.Sprintf("SELECT version_no FROM %s", s.table)
	if err := sqlx.SelectContext(ctx, sess, &versions, query); err != nil {
		return 0, false, errdefs.Ledger("version lookup", err)
	}

	var (
		last  int64
		found bool
	)

	for _, v := range versions {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, errdefs.Ledger("version lookup", errors.Wrapf(err, "unparseable version_no %q", v))
		}

		if !found || n > last {
			last, found = n, true
		}
	}

	return last, found, nil
}

// Find returns the entry for versionNo, or nil if it has not been applied.
func (s *Store) Find(ctx context.Context, sess Session, versionNo string) (*Entry, error) {
	var e Entry
	query := s.dialect.Rebind(fmt.Sprintf(
		"SELECT version_no, executed_at, file_hash, sql_file FROM %s WHERE version_no = ?",
		s.table,
	))

	if err := sqlx.GetContext(ctx, sess, &e, query, versionNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, errdefs.Ledger("lookup", err)
	}

	return &e, nil
}

// Append inserts e. A version that is already recorded is an
// errdefs.ErrDuplicateVersion error.
func (s *Store) Append(ctx context.Context, sess Session, e *Entry) error {
	existing, err := s.Find(ctx, sess, e.VersionNo)
	if err != nil {
		return err
	}

	if existing != nil {
		return errdefs.DuplicateVersion(e.VersionNo, "already recorded for "+existing.SQLFile, nil)
	}

	query := s.dialect.Rebind(fmt.Sprintf(
		"INSERT INTO %s (version_no, executed_at, file_hash, sql_file) VALUES (?, ?, ?, ?)",
		s.table,
	))

	if _, err := sess.ExecContext(ctx, query, e.VersionNo, e.ExecutedAt, e.FileHash, e.SQLFile); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return errdefs.DuplicateVersion(e.VersionNo, "concurrent insert", err)
		}

		return errdefs.Ledger("insert", err)
	}

	return nil
}

// List returns every entry in version order.
func (s *Store) List(ctx context.Context, sess Session) ([]*Entry, error) {
	var entries []*Entry
	query := fmt.Sprintf("SELECT version_no, executed_at, file_hash, sql_file FROM %s", s.table)
	if err := sqlx.SelectContext(ctx, sess, &entries, query); err != nil {
		return nil, errdefs.Ledger("list", err)
	}

	sortEntries(entries)
	return entries, nil
}
