package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a *sqlx.DB opened from the configured datasource and closes
// it when the application stops.
var Module = fx.Module("database", fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
		db, err := Open(context.Background(), cfg.Datasource, logger)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.StopHook(db.Close))
		return db, nil
	},
))
