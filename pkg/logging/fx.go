package logging

import (
	"context"

	"github.com/pseudomuto/dbvcs/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Module provides the process *zap.Logger built from the log configuration.
var Module = fx.Module("logging", fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
		logger, err := New(cfg.Log)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.StopHook(func(context.Context) error {
			_ = logger.Sync()
			return nil
		}))

		return logger, nil
	},
))

// EventLogger routes fx's own events through logger. Use with fx.WithLogger.
func EventLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger}
}
