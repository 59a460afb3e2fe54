package executor

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/errdefs"
	"github.com/pseudomuto/dbvcs/pkg/ledger"
	"github.com/pseudomuto/dbvcs/pkg/migrator"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Conn is the single connection a run uses. *sqlx.Conn and *sqlx.DB both
	// satisfy it.
	Conn interface {
		ledger.Session
		BeginTxx(context.Context, *sql.TxOptions) (*sqlx.Tx, error)
	}

	// Executor applies migrations in version order.
	Executor struct {
		conn          Conn
		ledger        *ledger.Store
		logger        *zap.Logger
		clock         func() time.Time
		transactional bool
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Conn is the connection every statement and ledger operation runs on.
		Conn Conn

		// Ledger records applied migrations.
		Ledger *ledger.Store

		// Logger receives progress lines. Defaults to a no-op logger.
		Logger *zap.Logger

		// Clock supplies executed_at timestamps. Defaults to time.Now.
		Clock func() time.Time

		// Transactional runs each migration and its ledger entry in one
		// transaction.
		Transactional bool
	}

	// ExecutionResult describes what happened, or would happen, to one file.
	ExecutionResult struct {
		// Version is the ledger key, e.g. "1".
		Version string

		// File is the migration filename.
		File string

		Status ExecutionStatus

		// Hash is the file's current content hash.
		Hash string

		// Entry is the ledger row for the version, if one exists.
		Entry *ledger.Entry

		// ExecutionTime records how long the migration took to execute
		ExecutionTime time.Duration

		// StatementsApplied indicates how many statements were executed
		StatementsApplied int

		// TotalStatements is the number of statements in the file
		TotalStatements int
	}

	// ExecutionStatus represents the outcome of a migration.
	ExecutionStatus string
)

const (
	// StatusApplied indicates the migration was executed and recorded.
	StatusApplied ExecutionStatus = "applied"

	// StatusSkipped indicates the migration was already applied with the same
	// content.
	StatusSkipped ExecutionStatus = "skipped"

	// StatusPending indicates Plan would execute the migration.
	StatusPending ExecutionStatus = "pending"

	// StatusDrifted indicates the migration's content no longer matches the
	// ledger.
	StatusDrifted ExecutionStatus = "drifted"

	// StatusOutOfOrder indicates an unapplied migration at or below the last
	// applied version.
	StatusOutOfOrder ExecutionStatus = "out-of-order"
)

// New creates a new migration executor with the provided configuration.
func New(config Config) *Executor {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := config.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Executor{
		conn:          config.Conn,
		ledger:        config.Ledger,
		logger:        logger,
		clock:         clock,
		transactional: config.Transactional,
	}
}

// Execute applies files, which must already be filtered and sorted by
// version (see migrator.Prepare). The ledger table is created only when there
// is at least one file.
//
// Each file is either skipped (already applied, same hash) or executed and
// recorded. Any ordering violation, content drift, statement failure or ledger
// failure aborts the run; Execute then returns nil results and the error.
func (e *Executor) Execute(ctx context.Context, files []*migrator.File) ([]*ExecutionResult, error) {
	results := make([]*ExecutionResult, 0, len(files))
	if len(files) == 0 {
		return results, nil
	}

	if err := e.ledger.EnsureSchema(ctx, e.conn); err != nil {
		return nil, err
	}

	for _, file := range files {
		result, err := e.executeFile(ctx, file)
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, nil
}

func (e *Executor) executeFile(ctx context.Context, file *migrator.File) (*ExecutionResult, error) {
	startTime := time.Now()

	existing, hash, err := e.check(ctx, file)
	if err != nil {
		return nil, err
	}

	stmts := file.Statements()
	result := &ExecutionResult{
		Version:         file.VersionNo(),
		File:            file.Name,
		Hash:            hash,
		Entry:           existing,
		TotalStatements: len(stmts),
	}

	if existing != nil {
		e.logger.Debug("Migration already applied",
			zap.String("version", result.Version),
			zap.String("file", file.Name),
		)

		result.Status = StatusSkipped
		return result, nil
	}

	entry := &ledger.Entry{
		VersionNo:  result.Version,
		ExecutedAt: e.clock().Format(consts.ExecutedAtLayout),
		FileHash:   hash,
		SQLFile:    file.Name,
	}

	if e.transactional {
		err = e.applyInTx(ctx, file, stmts, entry)
	} else {
		err = e.apply(ctx, e.conn, file, stmts, entry)
	}

	if err != nil {
		return nil, err
	}

	result.Status = StatusApplied
	result.Entry = entry
	result.StatementsApplied = len(stmts)
	result.ExecutionTime = time.Since(startTime)

	e.logger.Info("Successfully executed script",
		zap.String("version", result.Version),
		zap.String("file", file.Name),
		zap.Int("statements", len(stmts)),
		zap.Duration("duration", result.ExecutionTime),
	)

	return result, nil
}

// check applies the ordering guard and drift detection to file. It returns the
// existing ledger entry (nil for a new migration) and the file's hash.
func (e *Executor) check(ctx context.Context, file *migrator.File) (*ledger.Entry, string, error) {
	last, found, err := e.ledger.LastAppliedVersion(ctx, e.conn)
	if err != nil {
		return nil, "", err
	}

	existing, err := e.ledger.Find(ctx, e.conn, file.VersionNo())
	if err != nil {
		return nil, "", err
	}

	if found && existing == nil && file.Version <= last {
		return nil, "", errdefs.OrderingViolation(file.Name, file.Version, last)
	}

	hash := file.Hash()
	if existing != nil && existing.FileHash != hash {
		return nil, "", errdefs.ContentDrift(file.Name, file.VersionNo(), existing.FileHash, hash)
	}

	return existing, hash, nil
}

func (e *Executor) apply(ctx context.Context, sess ledger.Session, file *migrator.File, stmts []string, entry *ledger.Entry) error {
	for i, stmt := range stmts {
		e.logger.Debug("Executing statement",
			zap.String("file", file.Name),
			zap.Int("statement", i+1),
		)

		if _, err := sess.ExecContext(ctx, stmt); err != nil {
			return errdefs.Execution(file.Name, entry.VersionNo, i+1, err)
		}
	}

	return e.ledger.Append(ctx, sess, entry)
}

func (e *Executor) applyInTx(ctx context.Context, file *migrator.File, stmts []string, entry *ledger.Entry) (err error) {
	tx, err := e.conn.BeginTxx(ctx, nil)
	if err != nil {
		return errdefs.Execution(file.Name, entry.VersionNo, 0, errors.Wrap(err, "failed to begin transaction"))
	}

	defer func() {
		if err == nil {
			return
		}

		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = multierr.Append(err, errors.Wrap(rbErr, "failed to roll back"))
		}
	}()

	if err = e.apply(ctx, tx, file, stmts, entry); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errdefs.Execution(file.Name, entry.VersionNo, len(stmts), errors.Wrap(err, "failed to commit"))
	}

	return nil
}

// Plan classifies files the way Execute would treat them without executing
// anything. A missing ledger table means every file is pending. Unlike
// Execute, Plan does not stop at the first problem: drifted and out-of-order
// files are reported alongside the rest.
func (e *Executor) Plan(ctx context.Context, files []*migrator.File) ([]*ExecutionResult, error) {
	results := make([]*ExecutionResult, 0, len(files))
	if len(files) == 0 {
		return results, nil
	}

	exists, err := e.ledger.Exists(ctx, e.conn)
	if err != nil {
		return nil, err
	}

	var (
		last  int64
		found bool
	)

	if exists {
		if last, found, err = e.ledger.LastAppliedVersion(ctx, e.conn); err != nil {
			return nil, err
		}
	}

	for _, file := range files {
		result := &ExecutionResult{
			Version:         file.VersionNo(),
			File:            file.Name,
			Hash:            file.Hash(),
			TotalStatements: len(file.Statements()),
		}

		if exists {
			if result.Entry, err = e.ledger.Find(ctx, e.conn, result.Version); err != nil {
				return nil, err
			}
		}

		switch {
		case result.Entry != nil && result.Entry.FileHash != result.Hash:
			result.Status = StatusDrifted
		case result.Entry != nil:
			result.Status = StatusSkipped
		case found && file.Version <= last:
			result.Status = StatusOutOfOrder
		default:
			result.Status = StatusPending
			last, found = file.Version, true
		}

		results = append(results, result)
	}

	return results, nil
}
