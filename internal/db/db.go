// Package db is the SQLite data access layer for users, projects, project
// files, entity mappings, pseudonym counters, forced-redaction names, and
// the replacement audit history.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/errors"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.VeilError{
	Code:    errors.ErrIntegrityViolation,
	Status:  409,
	Message: "unique constraint violation",
}

// Init initializes the SQLite database at baseDir/veil.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.veil.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "veil.db")
	// _txlock=immediate makes every transaction take the write lock up
	// front, so concurrent pseudonym allocations queue on busy_timeout
	// instead of failing mid-transaction on lock upgrade.
	dsn := dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS user_account (
		  id              INTEGER PRIMARY KEY AUTOINCREMENT,
		  username        TEXT NOT NULL UNIQUE,
		  password_hash   TEXT NOT NULL,
		  created_at      INTEGER NOT NULL,
		  last_project_id INTEGER,
		  FOREIGN KEY(last_project_id) REFERENCES project(id)
		);

		CREATE TABLE IF NOT EXISTS project (
		  id            INTEGER PRIMARY KEY AUTOINCREMENT,
		  owner_user_id INTEGER NOT NULL,
		  name          TEXT NOT NULL,
		  notes         TEXT,
		  created_at    INTEGER NOT NULL,
		  UNIQUE(owner_user_id, name),
		  FOREIGN KEY(owner_user_id) REFERENCES user_account(id)
		);

		CREATE TABLE IF NOT EXISTS project_file (
		  id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		  project_id         INTEGER NOT NULL,
		  file_path_hash     TEXT NOT NULL,
		  display_name       TEXT NOT NULL,
		  last_used_at       INTEGER NOT NULL,
		  last_obscured_path TEXT,
		  UNIQUE(project_id, file_path_hash),
		  FOREIGN KEY(project_id) REFERENCES project(id)
		);

		CREATE TABLE IF NOT EXISTS entity_mapping (
		  id             TEXT PRIMARY KEY,
		  project_id     INTEGER NOT NULL,
		  category       TEXT NOT NULL,
		  original_value TEXT NOT NULL,
		  pseudonym      TEXT NOT NULL,
		  created_at     INTEGER NOT NULL,
		  UNIQUE(project_id, original_value),
		  FOREIGN KEY(project_id) REFERENCES project(id)
		);

		CREATE INDEX IF NOT EXISTS idx_entity_mapping_project
		ON entity_mapping(project_id);

		CREATE TABLE IF NOT EXISTS category_counter (
		  project_id INTEGER NOT NULL,
		  category   TEXT NOT NULL,
		  last_index INTEGER NOT NULL,
		  PRIMARY KEY (project_id, category),
		  FOREIGN KEY(project_id) REFERENCES project(id)
		);

		CREATE TABLE IF NOT EXISTS replacement_history (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  project_id  INTEGER NOT NULL,
		  run_id      TEXT NOT NULL,
		  input_hash  TEXT NOT NULL,
		  output_hash TEXT NOT NULL,
		  created_at  INTEGER NOT NULL,
		  FOREIGN KEY(project_id) REFERENCES project(id)
		);

		CREATE TABLE IF NOT EXISTS user_known_name (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  user_id    INTEGER NOT NULL,
		  name_text  TEXT NOT NULL,
		  created_at INTEGER NOT NULL,
		  UNIQUE(user_id, name_text),
		  FOREIGN KEY(user_id) REFERENCES user_account(id)
		);

		CREATE TABLE IF NOT EXISTS project_known_name (
		  id         INTEGER PRIMARY KEY AUTOINCREMENT,
		  project_id INTEGER NOT NULL,
		  name_text  TEXT NOT NULL,
		  created_at INTEGER NOT NULL,
		  UNIQUE(project_id, name_text),
		  FOREIGN KEY(project_id) REFERENCES project(id)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise. Multi-step mutations (counter bump + mapping insert) must
// go through this so a crash cannot leave them half-applied.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint
// violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
