// Package docker runs throwaway Postgres and ClickHouse servers through
// testcontainers so migrations can be exercised against real databases.
//
// Example:
//
//	c := docker.New(docker.Options{Kind: docker.ClickHouse, Version: "25.7"})
//	if err := c.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer c.Stop(ctx)
//
//	dsn, _ := c.DSN(ctx)
//	db, _ := database.Open(ctx, config.Datasource{Driver: c.Driver(), URL: dsn}, logger)
package docker
