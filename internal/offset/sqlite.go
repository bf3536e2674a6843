package offset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mirrorgram/mirrorgram/pkg/message"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const busyTimeoutMillis = 5000

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS offsets (
		pair       TEXT    PRIMARY KEY,
		message_id INTEGER NOT NULL,
		updated_at TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
}

// sqliteStore implements Store on a local SQLite database.
type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the offset database at path. The
// database uses WAL mode, a 5 s busy timeout, and a single connection
// (SQLite serialises writes). The schema is migrated automatically.
func Open(path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("offset: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("offset: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("offset: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMillis)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("offset: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// migrate creates or updates the database schema to the latest version.
func migrate(db *sql.DB) error {
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("offset: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("offset: read schema version: %w", err)
	}

	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("offset: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("offset: record schema version: %w", err)
	}

	return nil
}

// Load implements Store.
func (s *sqliteStore) Load(ctx context.Context, pair message.Pair) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT message_id FROM offsets WHERE pair = ?", pair.String(),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("offset: load %s: %w", pair, err)
	}
	return id, true, nil
}

// Commit implements Store. The upsert only moves the position forward, so
// committing a stale or repeated id is a no-op.
func (s *sqliteStore) Commit(ctx context.Context, pair message.Pair, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offsets (pair, message_id, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(pair) DO UPDATE SET
			message_id = excluded.message_id,
			updated_at = excluded.updated_at
		WHERE excluded.message_id > offsets.message_id`,
		pair.String(), id,
	)
	if err != nil {
		return fmt.Errorf("offset: commit %s at %d: %w", pair, id, err)
	}
	return nil
}

// All implements Store.
func (s *sqliteStore) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pair, message_id, updated_at FROM offsets ORDER BY pair")
	if err != nil {
		return nil, fmt.Errorf("offset: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e            Entry
			updatedAtStr string
		)
		if err := rows.Scan(&e.Pair, &e.MessageID, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("offset: scan entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updatedAtStr); err == nil {
			e.UpdatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offset: list rows: %w", err)
	}
	return entries, nil
}

// Checkpoint truncates the WAL file. Called periodically by the maintenance
// scheduler so the sidecar files do not grow unbounded on long runs.
func (s *sqliteStore) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("offset: wal checkpoint: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
