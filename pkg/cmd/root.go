package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"github.com/pseudomuto/dbvcs/pkg/logging"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Logger     *zap.Logger
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates the dbvcs CLI application and executes it once the fx
// application starts, shutting down with exit code 1 on failure.
//
// The root command's Before hook changes to --dir, loads --config (falling
// back to defaults when the file is missing), applies environment overrides
// and hands the result, plus a logger built from its log settings, to
// subcommands through the context. p.Logger only reports failures of the app
// itself.
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p.Version.Version, p.Commands)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			p.Logger.Error("Error running command", zap.Error(err))
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func newApp(version string, commands []*cli.Command) *cli.Command {
	return &cli.Command{
		Name:  "dbvcs",
		Usage: "Apply versioned SQL migrations exactly once, in order",
		Description: `dbvcs discovers V<version>__<description>.sql files, applies the ones
that have not run yet in ascending version order and records each one in the
db_vcs_schema ledger together with a hash of its content.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the dbvcs config file",
				Sources: cli.EnvVars(consts.ConfigFileEnv),
				Value:   consts.ConfigFile,
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, errors.Wrap(err, "failed to change directory")
			}

			cfg, err := config.Load(cmd.String("config"), os.LookupEnv)
			if err != nil {
				return ctx, err
			}

			if err := cfg.Validate(); err != nil {
				return ctx, err
			}

			logger, err := logging.NewTo(cfg.Log, errWriter(cmd))
			if err != nil {
				return ctx, err
			}

			return logging.NewContext(config.NewContext(ctx, cfg), logger), nil
		},
		Commands: commands,
	}
}
