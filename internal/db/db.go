package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
}

// New opens or creates the SQLite database at the given path
func New(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	db := &DB{conn: conn, path: path}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Path returns the database file path
func (d *DB) Path() string {
	return d.path
}

// migrate runs the database schema migrations
func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	var version int
	err = d.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return err
	}

	migrations := []string{
		migrationV1,
	}

	for i, migration := range migrations {
		v := i + 1
		if v <= version {
			continue
		}

		tx, err := d.conn.Begin()
		if err != nil {
			return err
		}

		if _, err := tx.Exec(migration); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d failed: %w", v, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
			tx.Rollback()
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

// migrationV1 creates the initial schema
const migrationV1 = `
-- One row per successful generation run
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    source_sha256 TEXT,
    vendor_count INTEGER NOT NULL,
    device_count INTEGER NOT NULL,
    row_count INTEGER NOT NULL,
    marker_seen INTEGER NOT NULL DEFAULT 1,
    data_path TEXT,
    header_path TEXT,
    generated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_generations_time ON generations(generated_at);

-- The table of the latest generation, in table order
CREATE TABLE IF NOT EXISTS usb_ids (
    seq INTEGER PRIMARY KEY,
    vendor_id INTEGER NOT NULL,
    device_id INTEGER NOT NULL,
    vendor_name TEXT NOT NULL,
    -- NULL for a vendor listed without devices
    device_name TEXT
);

CREATE INDEX IF NOT EXISTS idx_usb_ids_key ON usb_ids(vendor_id, device_id);
`

// Generation records one run of the generator
type Generation struct {
	ID           string
	Source       string
	SourceSHA256 string
	Vendors      int
	Devices      int
	Rows         int
	MarkerSeen   bool
	DataPath     string
	HeaderPath   string
	GeneratedAt  time.Time
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
