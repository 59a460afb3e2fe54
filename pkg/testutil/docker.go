package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/pseudomuto/dbvcs/pkg/docker"
	"github.com/stretchr/testify/require"
)

// SkipIfNoDocker skips the test in short mode or when Docker is unavailable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	if err := exec.CommandContext(t.Context(), "docker", "ps").Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// StartDatabase starts a container of kind and returns its driver and DSN.
// The container is stopped when the test ends.
func StartDatabase(t *testing.T, kind docker.Kind) (string, string) {
	t.Helper()

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c := docker.New(docker.Options{Kind: kind})
	require.NoError(t, c.Start(ctx), "Failed to start %s container", kind)

	t.Cleanup(func() {
		_ = c.Stop(context.Background())
	})

	dsn, err := c.DSN(ctx)
	require.NoError(t, err, "Failed to get container DSN")

	return c.Driver(), dsn
}
