package docker_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/docker"
	"github.com/stretchr/testify/require"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/lib/pq"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	if err := exec.Command("docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

func TestContainerNotRunning(t *testing.T) {
	c := docker.New(docker.Options{Kind: docker.Postgres})
	require.False(t, c.IsRunning())
	require.Equal(t, "postgres", c.Driver())
	require.NoError(t, c.Stop(context.Background()))

	_, err := c.DSN(context.Background())
	require.EqualError(t, err, "container is not running")
}

func TestContainerUnsupportedKind(t *testing.T) {
	err := docker.New(docker.Options{Kind: "oracle"}).Start(context.Background())
	require.EqualError(t, err, "unsupported container kind: oracle")
}

func TestContainerLifecycle(t *testing.T) {
	skipIfNoDocker(t)

	for _, kind := range []docker.Kind{docker.Postgres, docker.ClickHouse} {
		t.Run(string(kind), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			c := docker.New(docker.Options{Kind: kind})
			require.NoError(t, c.Start(ctx))
			defer func() { require.NoError(t, c.Stop(ctx)) }()

			require.True(t, c.IsRunning())
			require.Error(t, c.Start(ctx))

			dsn, err := c.DSN(ctx)
			require.NoError(t, err)

			db, err := sqlx.Open(c.Driver(), dsn)
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			require.NoError(t, db.PingContext(ctx))
		})
	}
}
