package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

const (
	// TableName is the single forecast table.
	TableName = "forecast"

	// DefaultSchemaVersion is bumped whenever the table definition changes.
	// Any mismatch with the stored version drops the cached forecast.
	DefaultSchemaVersion = 3
)

// createTableSQL defines the forecast table. A new row for an existing day
// replaces the old one, and AUTOINCREMENT keeps ids from ever being reused.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS forecast (
	_id            INTEGER PRIMARY KEY AUTOINCREMENT,
	day            INTEGER NOT NULL,
	condition_code INTEGER NOT NULL,
	min_temp       REAL NOT NULL,
	max_temp       REAL NOT NULL,
	humidity       REAL NOT NULL,
	pressure       REAL NOT NULL,
	wind_speed     REAL NOT NULL,
	wind_direction REAL NOT NULL,
	UNIQUE (day) ON CONFLICT REPLACE
);`

// Options configures how a store is opened.
type Options struct {
	// Version is the schema version the caller expects (default DefaultSchemaVersion).
	Version int
	// Schema overrides the table definition. Empty uses the built-in one.
	Schema string
}

// Open opens or creates an SQLite database at path and brings its schema to opts.Version.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	s, err := New(ctx, db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database and prepares its schema.
func New(ctx context.Context, db *sql.DB, opts Options) (*SQLiteStore, error) {
	if opts.Version <= 0 {
		opts.Version = DefaultSchemaVersion
	}
	if opts.Schema == "" {
		opts.Schema = createTableSQL
	}

	s := &SQLiteStore{db: db, version: opts.Version, schema: opts.Schema}

	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return nil, &SchemaError{Op: "read version", Err: err}
	}

	if current != 0 && current != s.version {
		log.Printf("INFO: store: schema version %d differs from %d; dropping cached forecast", current, s.version)
		if err := s.OnUpgrade(ctx, current, s.version); err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := s.create(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Version returns the schema version the store was opened with.
func (s *SQLiteStore) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *SQLiteStore) create(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &SchemaError{Op: "create", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.schema); err != nil {
		return &SchemaError{Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", s.version)); err != nil {
		return &SchemaError{Op: "stamp version", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &SchemaError{Op: "create", Err: err}
	}
	return nil
}

// OnUpgrade drops the forecast table and recreates it empty at newVersion.
// Nothing is migrated: callers treat an upgrade as cache invalidation.
// The id high-water mark survives so ids stay monotonic for the life of the file.
func (s *SQLiteStore) OnUpgrade(ctx context.Context, oldVersion, newVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &SchemaError{Op: "upgrade", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	seq, err := readSequence(ctx, tx)
	if err != nil {
		return &SchemaError{Op: "upgrade", Err: err}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
		return &SchemaError{Op: "drop", Err: err}
	}
	if _, err := tx.ExecContext(ctx, s.schema); err != nil {
		return &SchemaError{Op: "create", Err: err}
	}
	if seq > 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, TableName, seq); err != nil {
			return &SchemaError{Op: "restore sequence", Err: err}
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", newVersion)); err != nil {
		return &SchemaError{Op: "stamp version", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &SchemaError{Op: "upgrade", Err: err}
	}

	s.version = newVersion
	log.Printf("INFO: store: upgraded schema %d -> %d", oldVersion, newVersion)
	return nil
}

func readSequence(ctx context.Context, tx *sql.Tx) (int64, error) {
	var tables int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'`).Scan(&tables)
	if err != nil || tables == 0 {
		return 0, err
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = ?`, TableName).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return seq, err
}
