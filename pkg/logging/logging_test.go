package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewTo(config.Log{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Successfully executed script", zap.String("version", "1"))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "info", line["level"])
	require.Equal(t, "Successfully executed script", line["msg"])
	require.Equal(t, "1", line["version"])
	require.Contains(t, line, "ts")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewTo(config.Log{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Debug("Migration already applied")
	require.Contains(t, buf.String(), "DEBUG")
	require.Contains(t, buf.String(), "Migration already applied")
}

func TestNewErrors(t *testing.T) {
	_, err := logging.NewTo(config.Log{Level: "loud", Format: "json"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "invalid log level: loud")

	_, err = logging.NewTo(config.Log{Level: "info", Format: "xml"}, &bytes.Buffer{})
	require.EqualError(t, err, "invalid log format: xml")
}

func TestWithRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	logger, id := logging.WithRunID(zap.New(core))
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	logger.Info("DbVcs feature is enabled")
	require.Equal(t, id, logs.All()[0].ContextMap()[logging.RunIDKey])

	nop, other := logging.WithRunID(nil)
	require.NotNil(t, nop)
	require.NotEqual(t, id, other)
}

func TestEventLogger(t *testing.T) {
	l := logging.EventLogger(zap.NewNop())
	require.IsType(t, &fxevent.ZapLogger{}, l)
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	fallback := zap.NewExample()

	require.Same(t, fallback, logging.FromContext(ctx, fallback))
	require.NotNil(t, logging.FromContext(ctx, nil))

	logger := zap.NewNop()
	require.Same(t, logger, logging.FromContext(logging.NewContext(ctx, logger), fallback))
}
