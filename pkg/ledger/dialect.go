package ledger

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	defaultColumnsLayout = `CREATE TABLE %s (
    version_no varchar(255) NOT NULL PRIMARY KEY,
    executed_at varchar(100) NOT NULL,
    file_hash varchar(100) NOT NULL,
    sql_file varchar(255) NOT NULL
)`
)

// Dialect holds the per-database SQL the ledger needs beyond plain
// INSERT/SELECT: catalog lookup, table DDL and unique-violation detection.
type Dialect struct {
	Name string

	bindType        int
	createTable     string
	tableExists     string
	uniqueViolation func(error) bool
}

var (
	// SQLite covers modernc.org/sqlite.
	SQLite = &Dialect{
		Name:            "sqlite",
		bindType:        sqlx.QUESTION,
		createTable:     defaultColumnsLayout,
		tableExists:     `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		uniqueViolation: isSQLiteConstraint,
	}

	// Postgres covers both lib/pq and pgx.
	Postgres = &Dialect{
		Name:            "postgres",
		bindType:        sqlx.DOLLAR,
		createTable:     defaultColumnsLayout,
		tableExists:     `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`,
		uniqueViolation: isPostgresUniqueViolation,
	}

	// MySQL covers go-sql-driver/mysql.
	MySQL = &Dialect{
		Name:            "mysql",
		bindType:        sqlx.QUESTION,
		createTable:     defaultColumnsLayout,
		tableExists:     `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`,
		uniqueViolation: isMySQLDuplicateEntry,
	}

	// ClickHouse has no unique constraints; Append's lookup is the only guard.
	ClickHouse = &Dialect{
		Name:     "clickhouse",
		bindType: sqlx.QUESTION,
		createTable: `CREATE TABLE %s (
    version_no String,
    executed_at String,
    file_hash String,
    sql_file String
)
ENGINE = MergeTree()
ORDER BY version_no`,
		tableExists:     `SELECT toInt64(count()) FROM system.tables WHERE database = currentDatabase() AND name = ?`,
		uniqueViolation: func(error) bool { return false },
	}

	dialects = map[string]*Dialect{
		"sqlite":     SQLite,
		"sqlite3":    SQLite,
		"postgres":   Postgres,
		"postgresql": Postgres,
		"pgx":        Postgres,
		"mysql":      MySQL,
		"clickhouse": ClickHouse,
	}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (*Dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return nil, errors.Errorf("unsupported driver: %s", driver)
	}

	return d, nil
}

// Drivers lists the driver names DialectFor understands.
func Drivers() []string {
	return []string{"sqlite", "sqlite3", "postgres", "postgresql", "pgx", "mysql", "clickhouse"}
}

// CreateTableSQL returns the DDL for the ledger table.
func (d *Dialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(d.createTable, table)
}

// Rebind rewrites ? placeholders for the dialect.
func (d *Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bindType, query)
}

// IsUniqueViolation reports whether err is the dialect's duplicate key error.
func (d *Dialect) IsUniqueViolation(err error) bool {
	return err != nil && d.uniqueViolation(err)
}

func isSQLiteConstraint(err error) bool {
	var e *sqlite.Error
	if !errors.As(err, &e) {
		return false
	}

	// Extended codes keep the primary code in the low byte.
	return e.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}

	return false
}

func isMySQLDuplicateEntry(err error) bool {
	var e *mysql.MySQLError
	return errors.As(err, &e) && e.Number == mysqlDuplicateEntry
}
