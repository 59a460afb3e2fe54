// Package database opens the connection pool migrations run against.
//
// Every supported driver is registered here: modernc.org/sqlite ("sqlite"),
// lib/pq ("postgres"), pgx ("pgx"), go-sql-driver/mysql ("mysql") and
// clickhouse-go ("clickhouse").
package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
	sqldblogger "github.com/simukti/sqldb-logger"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open validates ds, opens a pool capped at ds.MaxPoolSize and pings it. With
// ds.Debug set every statement is logged at debug level.
func Open(ctx context.Context, ds config.Datasource, logger *zap.Logger) (*sqlx.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	driver, err := DriverName(ds.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := DSN(ds)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %s connection", driver)
	}

	if ds.Debug {
		traced := sqldblogger.OpenDriver(dsn, db.Driver(), &queryLogger{logger: logger})
		_ = db.Close()
		db = traced
	}

	db.SetMaxOpenConns(ds.MaxPoolSize)
	db.SetMaxIdleConns(ds.MaxPoolSize)

	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Append(
			errors.Wrapf(err, "cannot connect to %s database", driver),
			db.Close(),
		)
	}

	logger.Debug("Opened datasource",
		zap.String("driver", driver),
		zap.Int("max_pool_size", ds.MaxPoolSize),
	)

	return sqlx.NewDb(db, driver), nil
}

// queryLogger forwards sqldb-logger events to zap.
type queryLogger struct {
	logger *zap.Logger
}

func (q *queryLogger) Log(_ context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data)+1)
	fields = append(fields, zap.Any("sql_level", level))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	if level == sqldblogger.LevelError {
		q.logger.Error(msg, fields...)
		return
	}

	q.logger.Debug(msg, fields...)
}
