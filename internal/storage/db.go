package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"bskb/internal/logging"
)

// DB holds the local index store: code units, call edges, embedding
// vectors, and the best-effort query cache. The units and edges are
// populated by an upstream indexer; this layer only reads and serves them.
type DB struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Open opens or creates the sqlite store at the given path.
func Open(path string, logger *logging.Logger) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, logger: logger, path: path}
	if err := db.initializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// OpenMemory opens an in-memory store. Used by tests and the demo fixture
// loader.
func OpenMemory(logger *logging.Logger) (*DB, error) {
	return Open(":memory:", logger)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initializeSchema() error {
	_, err := db.conn.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS units (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	module          TEXT NOT NULL,
	file_path       TEXT NOT NULL,
	params_json     TEXT NOT NULL DEFAULT '[]',
	is_export       INTEGER NOT NULL DEFAULT 0,
	start_line      INTEGER NOT NULL DEFAULT 0,
	end_line        INTEGER NOT NULL DEFAULT 0,
	variables_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_units_module ON units(module);
CREATE INDEX IF NOT EXISTS idx_units_name ON units(name);

CREATE TABLE IF NOT EXISTS call_edges (
	source_id   TEXT NOT NULL,
	target_id   TEXT NOT NULL,
	call_count  INTEGER NOT NULL DEFAULT 1,
	lines_json  TEXT NOT NULL DEFAULT '[]',
	conditional INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON call_edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON call_edges(target_id);

CREATE TABLE IF NOT EXISTS embeddings (
	unit_id TEXT PRIMARY KEY,
	vector  BLOB NOT NULL,
	dims    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS query_cache (
	key        TEXT PRIMARY KEY,
	value_json TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`
