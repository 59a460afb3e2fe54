// Package logging builds the zap logger shared by every dbvcs component.
package logging

import (
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RunIDKey is the field attached to every line of a migration run.
const RunIDKey = "run_id"

// New builds a logger writing to stderr.
func New(cfg config.Log) (*zap.Logger, error) {
	return NewTo(cfg, os.Stderr)
}

// NewTo builds a logger for cfg writing to w. Format is json or console;
// level is debug, info, warn or error.
func NewTo(cfg config.Log, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level: %s", cfg.Level)
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "ts",
			MessageKey:     "msg",
			LevelKey:       "level",
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			LineEnding:     zapcore.DefaultLineEnding,
		})
	case "console", "":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, errors.Errorf("invalid log format: %s", cfg.Format)
	}

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level)), nil
}

// WithRunID returns a child logger tagged with a fresh run id, and the id.
func WithRunID(logger *zap.Logger) (*zap.Logger, string) {
	if logger == nil {
		logger = zap.NewNop()
	}

	id := uuid.NewString()
	return logger.With(zap.String(RunIDKey, id)), id
}
