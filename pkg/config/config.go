package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
	"gopkg.in/yaml.v3"
)

type (
	// Datasource describes the database migrations run against.
	Datasource struct {
		// Driver is the database/sql driver name (sqlite, postgres, pgx, mysql,
		// clickhouse).
		Driver string `yaml:"driver" validate:"required,oneof=sqlite sqlite3 postgres postgresql pgx mysql clickhouse"`

		// URL is the driver specific connection string.
		URL string `yaml:"url" validate:"required"`

		// Username and Password are injected into URL when set.
		Username string `yaml:"username,omitempty"`
		Password string `yaml:"password,omitempty"`

		// MaxPoolSize caps open connections in the pool.
		MaxPoolSize int `yaml:"max_pool_size" validate:"gte=1"`

		// Debug traces every statement through the logger.
		Debug bool `yaml:"debug,omitempty"`
	}

	// Migration configures discovery and execution.
	Migration struct {
		// Location is the directory, relative to each discovery root, holding
		// the migration files.
		Location string `yaml:"location"`

		// Transactional wraps each migration and its ledger entry in a
		// transaction.
		Transactional bool `yaml:"transactional,omitempty"`
	}

	// VCS holds the db.vcs settings.
	VCS struct {
		// Enabled turns migrations on when it is exactly "true".
		Enabled string `yaml:"enabled,omitempty"`

		Migration Migration `yaml:"migration"`
	}

	// DB is the db section of the configuration.
	DB struct {
		VCS VCS `yaml:"vcs"`
	}

	// Log configures the process logger.
	Log struct {
		Level  string `yaml:"level" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" validate:"oneof=json console"`
	}

	// Config is the dbvcs configuration.
	Config struct {
		Datasource Datasource `yaml:"datasource"`
		DB         DB         `yaml:"db"`
		Log        Log        `yaml:"log"`
	}
)

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadConfig parses a configuration from the provided io.Reader and applies
// defaults for anything left unset.
//
// Example:
//
//	yamlData := `
//	datasource:
//	  driver: postgres
//	  url: postgres://localhost:5432/app?sslmode=disable
//	db:
//	  vcs:
//	    enabled: "true"
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//		panic(err)
//	}
//
//	fmt.Printf("Migrations: %s\n", cfg.Location())
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dbvcs config")
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFile loads a configuration from the specified file path.
// This is a convenience function that opens the file and calls LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Load reads path if it exists, falling back to Default when it does not, and
// then applies environment overrides read through lookup.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if cfg, err = LoadConfigFile(path); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to stat config file: %s", path)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Path returns the configuration file to load: DBVCS_CONFIG when set,
// dbvcs.yaml otherwise.
func Path(lookup func(string) (string, bool)) string {
	if p, ok := lookup(consts.ConfigFileEnv); ok && p != "" {
		return p
	}

	return consts.ConfigFile
}

// Location returns the migration location, falling back to the default.
func (c *Config) Location() string {
	if c.DB.VCS.Migration.Location == "" {
		return consts.DefaultLocation
	}

	return c.DB.VCS.Migration.Location
}

func (c *Config) applyDefaults() {
	if c.Datasource.MaxPoolSize == 0 {
		c.Datasource.MaxPoolSize = consts.DefaultMaxPoolSize
	}
	if c.DB.VCS.Migration.Location == "" {
		c.DB.VCS.Migration.Location = consts.DefaultLocation
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}
