// Package cmd provides the dbvcs command line interface.
//
// # Available Commands
//
//   - migrate: apply pending migrations (or preview them with --dry-run)
//   - status: show every discovered migration next to the ledger
//   - rehash: write dbvcs.sum for the migration location
//   - verify: check the migration files against dbvcs.sum
//
// # Command Structure
//
// Each command is a function returning a *cli.Command. Commands are
// registered with fx in Module and executed by Run once the application
// starts.
//
// # Global Options
//
//   - --config, -c: configuration file (DBVCS_CONFIG, default dbvcs.yaml)
//   - --dir, -d: working directory migrations are resolved against
//
// # Example Usage
//
//	dbvcs migrate --driver postgres --url postgres://localhost/app --enable
//	dbvcs migrate --dry-run
//	dbvcs status
//	dbvcs rehash --location db-migration
//	dbvcs verify
package cmd
