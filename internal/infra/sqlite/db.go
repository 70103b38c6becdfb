// Package sqlite provides SQLite-based persistent storage for tokensage.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations. It implements
// domain.EngineStore and domain.ExecutionReader.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Engine definitions. Nodes, edges, and metadata are stored as
		// JSON documents — the predictor treats them as opaque graphs.
		`CREATE TABLE IF NOT EXISTS ai_engines (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			name       TEXT NOT NULL,
			nodes      TEXT NOT NULL DEFAULT '[]',
			edges      TEXT NOT NULL DEFAULT '[]',
			metadata   TEXT NOT NULL DEFAULT '{}',
			tier       TEXT NOT NULL DEFAULT 'pro',
			created_at INTEGER NOT NULL,
			updated_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_engines_user ON ai_engines(user_id)`,

		// Execution history. tokens_used is nullable: runs that failed
		// before the meter reported leave NULL, and every aggregate
		// excludes NULL/zero rows.
		`CREATE TABLE IF NOT EXISTS engine_executions (
			id          TEXT PRIMARY KEY,
			engine_id   TEXT NOT NULL,
			user_id     TEXT NOT NULL DEFAULT '',
			tokens_used INTEGER,
			status      TEXT NOT NULL DEFAULT 'completed',
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exec_engine ON engine_executions(engine_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_exec_user ON engine_executions(user_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
