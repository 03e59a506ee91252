package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/glean/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// FileName is the database file created under the base directory.
const FileName = "glean.db"

// Init initializes the SQLite database at baseDir/glean.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.glean.
//
// The returned handle is meant to live for the whole process: the capture
// path writes through it while display readers poll it concurrently.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, FileName)
	db, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	// Verify WAL mode is active
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

// open opens dbPath with pragmas in the connection string (applies to all connections).
func open(dbPath string) (*sql.DB, error) {
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
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

// schemaV1 is the original table, without a uniqueness constraint on dedup_key.
const schemaV1 = `
	CREATE TABLE IF NOT EXISTS captured_text (
	  id          INTEGER PRIMARY KEY AUTOINCREMENT,
	  content     TEXT,
	  source_id   TEXT,
	  element_id  TEXT,
	  captured_at INTEGER,
	  dedup_key   TEXT
	);
`

// schemaV2 recreates captured_text with dedup_key UNIQUE. Existing rows are
// dropped rather than deduplicated in place.
const schemaV2 = `
	DROP TABLE IF EXISTS captured_text;

	CREATE TABLE captured_text (
	  id          INTEGER PRIMARY KEY AUTOINCREMENT,
	  content     TEXT NOT NULL,
	  source_id   TEXT NOT NULL DEFAULT '',
	  element_id  TEXT NOT NULL DEFAULT 'no_id',
	  captured_at INTEGER NOT NULL,
	  dedup_key   TEXT NOT NULL UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_captured_text_recent
	ON captured_text(captured_at DESC, id DESC);

	CREATE TABLE IF NOT EXISTS settings (
	  name       TEXT PRIMARY KEY,
	  value      TEXT NOT NULL,
	  updated_at INTEGER NOT NULL
	);
`

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		if err := applyMigration(db, 1, schemaV1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: unique dedup_key (drop and recreate) + settings
	if version < 2 {
		if err := applyMigration(db, 2, schemaV2); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 3 { ... }

	return nil
}

// applyMigration runs schema and bumps user_version in a single transaction.
func applyMigration(db *sql.DB, version int, schema string) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d failed: %w", version, err)
	}
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
