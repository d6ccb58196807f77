package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/ddsguard/pkg/evidence"
)

// SQLite driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPureGo is modernc.org/sqlite, usable with CGO_ENABLED=0.
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver selects the database/sql driver: DriverCGO or DriverPureGo.
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool

	// BusyTimeout is how long a locked database is retried.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

var sqliteDialect = dialect{
	backend:     "sqlite",
	placeholder: func(int) string { return "?" },
	timeValue:   func(t time.Time) any { return t.UTC().UnixNano() },
	issueType:   "EXISTS (SELECT 1 FROM json_each(issue_types) WHERE json_each.value = %s)",
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and creates the schema.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, evidence.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", config.Driver))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "evidence.storage.sqlite")

	if dir := filepath.Dir(config.Path); config.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, evidence.NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return evidence.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts record, failing with ErrDuplicateRecord if its ID exists.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	args, err := sqliteDialect.insertArgs(record)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	result, err := s.db.ExecContext(ctx, sqliteDialect.insertSQL(), args...)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	if n == 0 {
		return evidence.NewStorageError("sqlite", "store", fmt.Errorf("%w: %s", evidence.ErrDuplicateRecord, record.ID))
	}
	return nil
}

// Query returns the records matching q.
func (s *SQLiteStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, err
	}
	stmt, args := sqliteDialect.selectSQL(q)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanSQLite(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams the records matching q.
func (s *SQLiteStorage) QueryStream(ctx context.Context, q *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	q, err := prepare(q)
	if err != nil {
		return nil, nil, err
	}
	stmt, args := sqliteDialect.selectSQL(q)

	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanSQLite(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}
	stmt, args := sqliteDialect.countSQL(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes the records matching q.
func (s *SQLiteStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	q, err := prepare(q)
	if err != nil {
		return 0, err
	}
	stmt, args := sqliteDialect.deleteSQL(q)

	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return evidence.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func scanSQLite(row rowScanner) (*evidence.Record, error) {
	var r scannedRow
	var evaluatedAt, recordedAt int64
	if err := row.Scan(r.dest(&evaluatedAt, &recordedAt)...); err != nil {
		return nil, err
	}
	r.record.EvaluatedAt = time.Unix(0, evaluatedAt).UTC()
	r.record.RecordedAt = time.Unix(0, recordedAt).UTC()
	return r.finish()
}
