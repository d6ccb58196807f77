// Package storage provides evidence.Storage backends.
//
//   - MemoryStorage keeps records in process, for tests and the CLI.
//   - SQLiteStorage is the embedded default. It works with either the CGO
//     driver (github.com/mattn/go-sqlite3, driver name "sqlite3") or the pure
//     Go driver (modernc.org/sqlite, driver name "sqlite").
//   - PostgresStorage uses a pgx connection pool. Its schema is managed by
//     goose migrations embedded from the migrations directory and applied on
//     startup.
//
// All backends are append-only from the caller's perspective: Store rejects
// a record whose ID exists with evidence.ErrDuplicateRecord, and only the
// retention pruner calls Delete.
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.Config{
//	    Backend: storage.BackendSQLite,
//	    SQLite:  &storage.SQLiteConfig{Path: "data/evidence.db", WALMode: true},
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &evidence.Query{Decision: "reject", Limit: 50})
package storage
