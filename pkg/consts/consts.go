package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ConfigFile is the configuration file looked up in the working directory
	ConfigFile = "dbvcs.yaml"

	// ConfigFileEnv names the environment variable that overrides ConfigFile
	ConfigFileEnv = "DBVCS_CONFIG"

	// DefaultLocation is the directory migrations are discovered in when
	// db.vcs.migration.location is not set
	DefaultLocation = "db-migration"

	// DefaultMaxPoolSize is the connection pool size used when none is configured
	DefaultMaxPoolSize = 10

	// LedgerTable is the table recording applied migrations
	LedgerTable = "db_vcs_schema"

	// ExecutedAtLayout formats the executed_at ledger column (yyyy-MM-dd HH:mm:ss)
	ExecutedAtLayout = "2006-01-02 15:04:05"

	// MigrationExt is the extension of migration files
	MigrationExt = ".sql"

	// SumFile is the integrity manifest written by rehash
	SumFile = "dbvcs.sum"
)

// Property keys understood by config.Config.Property.
const (
	PropEnabled       = "db.vcs.enabled"
	PropLocation      = "db.vcs.migration.location"
	PropTransactional = "db.vcs.migration.transactional"
	PropDriver        = "datasource.driver"
	PropURL           = "datasource.url"
	PropUsername      = "datasource.username"
	PropPassword      = "datasource.password"
	PropMaxPoolSize   = "datasource.max_pool_size"
	PropDebug         = "datasource.debug"
	PropLogLevel      = "log.level"
	PropLogFormat     = "log.format"
)
