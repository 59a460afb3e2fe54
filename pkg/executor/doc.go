// Package executor applies pending migrations and records them in the ledger.
//
// An Executor walks a version-ordered list of migration files. For each file
// it checks the ordering guard against the last applied version, compares the
// file's hash with the recorded one, and either skips it, fails the run, or
// executes its statements and appends a ledger entry. The first failure stops
// the run; there is no partial-success reporting.
//
// # Usage Example
//
//	dir, err := migrator.Load(ctx, "db-migration", os.DirFS("."))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	conn, err := db.Connx(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
//	exec := executor.New(executor.Config{
//		Conn:   conn,
//		Ledger: ledger.New(ledger.Postgres, logger),
//		Logger: logger,
//	})
//
//	results, err := exec.Execute(ctx, dir.Files)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, result := range results {
//		fmt.Printf("%s %s\n", result.File, result.Status)
//	}
//
// # Transactions
//
// By default every statement auto-commits, so a failing statement leaves the
// earlier statements of the same file applied with no ledger entry. With
// Config.Transactional set, a file's statements and its ledger entry commit
// together, which only helps on databases with transactional DDL.
//
// # Planning
//
// Plan classifies the same files without executing anything and without
// creating the ledger table.
package executor
