package docker

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// Postgres runs postgres:<version>-alpine.
	Postgres Kind = "postgres"

	// ClickHouse runs clickhouse/clickhouse-server:<version>-alpine.
	ClickHouse Kind = "clickhouse"

	// DefaultPostgresVersion is used when Options.Version is empty for Postgres.
	DefaultPostgresVersion = "16"

	// DefaultClickHouseVersion is used when Options.Version is empty for ClickHouse.
	DefaultClickHouseVersion = "25.7"

	credentials = "dbvcs"
)

type (
	// Kind selects the database server a Container runs.
	Kind string

	// Options configures a Container.
	Options struct {
		// Kind is the server to run.
		Kind Kind

		// Version is the image tag prefix; empty selects the kind's default.
		Version string
	}

	// Container runs a throwaway database server for integration tests.
	Container struct {
		options    Options
		postgres   *postgres.PostgresContainer
		clickhouse *clickhouse.ClickHouseContainer
	}
)

// New creates a Container; nothing runs until Start.
//
// Example:
//
//	c := docker.New(docker.Options{Kind: docker.Postgres})
//	if err := c.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Stop(ctx)
//
//	dsn, _ := c.DSN(ctx)
//	db, _ := sqlx.Open(c.Driver(), dsn)
func New(opts Options) *Container {
	return &Container{options: opts}
}

// Driver returns the database/sql driver name for the container's DSN.
func (c *Container) Driver() string {
	return string(c.options.Kind)
}

// Start starts the container and waits for the server to accept connections.
func (c *Container) Start(ctx context.Context) error {
	if c.IsRunning() {
		return errors.New("container is already running")
	}

	switch c.options.Kind {
	case Postgres:
		return c.startPostgres(ctx)
	case ClickHouse:
		return c.startClickHouse(ctx)
	default:
		return errors.Errorf("unsupported container kind: %s", c.options.Kind)
	}
}

func (c *Container) startPostgres(ctx context.Context) error {
	ctr, err := postgres.Run(ctx,
		fmt.Sprintf("postgres:%s-alpine", c.version(DefaultPostgresVersion)),
		postgres.WithDatabase(credentials),
		postgres.WithUsername(credentials),
		postgres.WithPassword(credentials),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start Postgres container")
	}

	c.postgres = ctr
	return nil
}

func (c *Container) startClickHouse(ctx context.Context) error {
	ctr, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", c.version(DefaultClickHouseVersion)),
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			5*time.Minute,
			wait.
				NewHTTPStrategy("/").
				WithPort(nat.Port("8123/tcp")).
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	c.clickhouse = ctr
	return nil
}

// Stop terminates the container. Stopping a stopped container is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	var err error
	switch {
	case c.postgres != nil:
		err = c.postgres.Terminate(ctx)
	case c.clickhouse != nil:
		err = c.clickhouse.Terminate(ctx)
	default:
		return nil
	}

	c.postgres, c.clickhouse = nil, nil
	if err != nil {
		return errors.Wrapf(err, "failed to stop %s container", c.options.Kind)
	}

	return nil
}

// DSN returns a connection string for the running server.
func (c *Container) DSN(ctx context.Context) (string, error) {
	var (
		dsn string
		err error
	)

	switch {
	case c.postgres != nil:
		dsn, err = c.postgres.ConnectionString(ctx, "sslmode=disable")
	case c.clickhouse != nil:
		dsn, err = c.clickhouse.ConnectionString(ctx)
	default:
		return "", errors.New("container is not running")
	}

	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// IsRunning returns true if the container has been started and not stopped.
func (c *Container) IsRunning() bool {
	return c.postgres != nil || c.clickhouse != nil
}

func (c *Container) version(def string) string {
	if c.options.Version == "" {
		return def
	}

	return c.options.Version
}
