package main

import (
	"context"
	"os"

	"github.com/pseudomuto/dbvcs/pkg/cmd"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	app := fx.New(
		fx.Supply(os.Args),
		fx.Provide(context.Background),
		fx.Supply(&cmd.Version{
			Version:   version,
			Commit:    commit,
			Timestamp: date,
		}),
		// Project config is loaded by the root command after --dir is applied.
		fx.Provide(config.Default),
		logging.Module,
		cmd.Module,
		fx.WithLogger(logging.EventLogger),
	)

	app.Run()
}
