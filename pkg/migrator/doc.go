// Package migrator discovers migration scripts and prepares them for a run.
//
// Migrations are files named V<version>__<description>.sql directly inside a
// location directory. The location may be present in several roots (for
// example an embed.FS compiled into the host binary and the working
// directory); every root that has it contributes its files.
//
// A run is prepared in three steps:
//
//	reader := migrator.NewReader("db-migration", embedded, os.DirFS("."))
//	candidates, err := reader.Read(ctx)    // every *.sql file
//	dir, err := migrator.Prepare(reader.Location(), candidates)
//
// Prepare drops files whose names are not valid migration names, orders the
// rest by numeric version (V2 before V10) and rejects two files sharing a
// version.
//
// The package also maintains dbvcs.sum, a manifest of every migration's
// checksum that lets edits to existing files be caught before a deploy:
//
//	sum := migrator.SumDir(dir)
//	_, err := sum.WriteTo(f)
//	...
//	err = loaded.Verify(dir)
package migrator
