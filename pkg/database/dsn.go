package database

import (
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbvcs/pkg/config"
)

// driverNames maps accepted driver spellings to registered database/sql
// drivers.
var driverNames = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pgx":        "pgx",
	"mysql":      "mysql",
	"clickhouse": "clickhouse",
}

// DriverName returns the registered database/sql driver for a configured
// driver.
func DriverName(driver string) (string, error) {
	name, ok := driverNames[strings.ToLower(driver)]
	if !ok {
		return "", errors.Errorf("unsupported driver: %s", driver)
	}

	return name, nil
}

// DSN returns the connection string for ds with Username and Password
// injected. Credentials already present in the URL are replaced. SQLite has
// no credentials and its URL is returned as is.
func DSN(ds config.Datasource) (string, error) {
	driver, err := DriverName(ds.Driver)
	if err != nil {
		return "", err
	}

	if ds.Username == "" && ds.Password == "" {
		return ds.URL, nil
	}

	switch driver {
	case "mysql":
		return mysqlDSN(ds)
	case "postgres", "pgx":
		if !strings.Contains(ds.URL, "://") {
			return keywordDSN(ds), nil
		}

		return urlDSN(ds)
	case "clickhouse":
		return urlDSN(ds)
	default:
		return ds.URL, nil
	}
}

func urlDSN(ds config.Datasource) (string, error) {
	u, err := url.Parse(ds.URL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse datasource url")
	}

	u.User = url.UserPassword(ds.Username, ds.Password)
	return u.String(), nil
}

func mysqlDSN(ds config.Datasource) (string, error) {
	cfg, err := mysql.ParseDSN(ds.URL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse mysql datasource url")
	}

	cfg.User = ds.Username
	cfg.Passwd = ds.Password
	return cfg.FormatDSN(), nil
}

// keywordDSN appends credentials to a libpq "key=value" connection string.
// Later keys win, so any user or password in the URL is overridden.
func keywordDSN(ds config.Datasource) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(ds.URL))

	for _, kv := range [][2]string{{"user", ds.Username}, {"password", ds.Password}} {
		if kv[1] == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(kv[0])
		b.WriteString("='")
		b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(kv[1]))
		b.WriteByte('\'')
	}

	return b.String()
}
