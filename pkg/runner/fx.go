package runner

import (
	"context"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pseudomuto/dbvcs/pkg/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Marker is the declarative opt-in supplied by Enable.
type Marker bool

const rootsGroup = `group:"migration_roots"`

type moduleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	DB        *sqlx.DB
	Logger    *zap.Logger
	Marker    Marker  `optional:"true"`
	Roots     []fs.FS `group:"migration_roots"`
}

// Module runs migrations once when the application starts. An error fails the
// start.
var Module = fx.Module("runner", fx.Invoke(register))

// Enable declares the feature enabled regardless of db.vcs.enabled.
func Enable() fx.Option {
	return fx.Supply(Marker(true))
}

// Roots adds discovery roots, e.g. an embed.FS holding the migrations.
func Roots(roots ...fs.FS) fx.Option {
	opts := make([]fx.Option, 0, len(roots))
	for _, root := range roots {
		opts = append(opts, fx.Provide(fx.Annotate(
			func() fs.FS { return root },
			fx.ResultTags(rootsGroup),
		)))
	}

	return fx.Options(opts...)
}

func register(p moduleParams) {
	p.Lifecycle.Append(fx.StartHook(func(ctx context.Context) error {
		_, err := Run(ctx, Params{
			Config: p.Config,
			DB:     p.DB,
			Logger: p.Logger,
			Marker: bool(p.Marker),
			Roots:  p.Roots,
		})

		return err
	}))
}
