package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/consts"
)

type property struct {
	get func(*Config) string
	set func(*Config, string) error
}

var properties = map[string]property{
	consts.PropEnabled: {
		get: func(c *Config) string { return c.DB.VCS.Enabled },
		set: func(c *Config, v string) error { c.DB.VCS.Enabled = v; return nil },
	},
	consts.PropLocation: {
		get: func(c *Config) string { return c.DB.VCS.Migration.Location },
		set: func(c *Config, v string) error { c.DB.VCS.Migration.Location = v; return nil },
	},
	consts.PropTransactional: {
		get: func(c *Config) string { return strconv.FormatBool(c.DB.VCS.Migration.Transactional) },
		set: boolSetter(func(c *Config) *bool { return &c.DB.VCS.Migration.Transactional }),
	},
	consts.PropDriver: {
		get: func(c *Config) string { return c.Datasource.Driver },
		set: func(c *Config, v string) error { c.Datasource.Driver = v; return nil },
	},
	consts.PropURL: {
		get: func(c *Config) string { return c.Datasource.URL },
		set: func(c *Config, v string) error { c.Datasource.URL = v; return nil },
	},
	consts.PropUsername: {
		get: func(c *Config) string { return c.Datasource.Username },
		set: func(c *Config, v string) error { c.Datasource.Username = v; return nil },
	},
	consts.PropPassword: {
		get: func(c *Config) string { return c.Datasource.Password },
		set: func(c *Config, v string) error { c.Datasource.Password = v; return nil },
	},
	consts.PropMaxPoolSize: {
		get: func(c *Config) string { return strconv.Itoa(c.Datasource.MaxPoolSize) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}

			c.Datasource.MaxPoolSize = n
			return nil
		},
	},
	consts.PropDebug: {
		get: func(c *Config) string { return strconv.FormatBool(c.Datasource.Debug) },
		set: boolSetter(func(c *Config) *bool { return &c.Datasource.Debug }),
	},
	consts.PropLogLevel: {
		get: func(c *Config) string { return c.Log.Level },
		set: func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	},
	consts.PropLogFormat: {
		get: func(c *Config) string { return c.Log.Format },
		set: func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil },
	},
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}

		*field(c) = b
		return nil
	}
}

// Keys returns the dotted property keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}

	sort.Strings(keys)
	return keys
}

// EnvName returns the environment variable bound to a property key, e.g.
// DB_VCS_MIGRATION_LOCATION for db.vcs.migration.location.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Property returns the value of a dotted key such as db.vcs.enabled.
func (c *Config) Property(key string) (string, bool) {
	p, ok := properties[key]
	if !ok {
		return "", false
	}

	return p.get(c), true
}

// Set assigns a dotted key from its string form.
func (c *Config) Set(key, value string) error {
	p, ok := properties[key]
	if !ok {
		return errors.Errorf("unknown property: %s", key)
	}

	if err := p.set(c, value); err != nil {
		return errors.Wrapf(err, "invalid value for %s", key)
	}

	return nil
}

// ApplyEnv overrides properties from environment variables named by EnvName.
// Pass os.LookupEnv in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, key := range Keys() {
		v, ok := lookup(EnvName(key))
		if !ok {
			continue
		}

		if err := c.Set(key, v); err != nil {
			return errors.Wrapf(err, "failed to apply %s", EnvName(key))
		}
	}

	return nil
}
