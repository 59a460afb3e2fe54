package config

import (
	"os"

	"go.uber.org/fx"
)

// Module provides the *Config loaded from DBVCS_CONFIG (or dbvcs.yaml) with
// environment overrides applied. A missing file yields the defaults so hosts
// can configure everything through the environment.
var Module = fx.Module("config", fx.Provide(
	func() (*Config, error) {
		cfg, err := Load(Path(os.LookupEnv), os.LookupEnv)
		if err != nil {
			return nil, err
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return cfg, nil
	},
))
