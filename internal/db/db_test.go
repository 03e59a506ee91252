package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	// Use temp directory for test isolation
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Verify database file was created
	dbPath := filepath.Join(tmpDir, FileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}

	// Verify WAL mode is active
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	for _, table := range []string{"captured_text", "settings"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("%s table not found: %v", table, err)
		}
	}
}

func TestInit_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	baseDir := filepath.Join(tmpDir, "nested", "path", ".glean")

	db, err := Init(baseDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("base directory not created at %s", baseDir)
	}
}

func TestUserVersion(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// After Init, version should be CurrentSchemaVersion (migration ran)
	version, err := GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after Init = %d, want %d", version, CurrentSchemaVersion)
	}

	if err := SetUserVersion(db, 99); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}
	version, err = GetUserVersion(db)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != 99 {
		t.Errorf("user_version = %d, want 99", version)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	if _, err := Insert(context.Background(), db1, &CapturedItem{Content: "keep", DedupKey: "k1"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	db1.Close()

	// Second Init on same DB should succeed and keep data (migrations already applied)
	db2, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	version, err := GetUserVersion(db2)
	if err != nil {
		t.Fatalf("GetUserVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("user_version after second Init = %d, want %d", version, CurrentSchemaVersion)
	}
	n, err := Count(context.Background(), db2)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestInit_MigratesPreUniqueSchema(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, FileName)

	// Build a v1 store by hand, with a duplicate pair the old schema allowed.
	legacy, err := open(dbPath)
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if _, err := legacy.Exec(schemaV1); err != nil {
		t.Fatalf("schemaV1 error = %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := legacy.Exec(`INSERT INTO captured_text (content, source_id, element_id, captured_at, dedup_key)
			VALUES ('Hello', 'com.foo', 'x1', 1, 'com.foo_x1_Hello')`)
		if err != nil {
			t.Fatalf("legacy insert error = %v", err)
		}
	}
	if err := SetUserVersion(legacy, 1); err != nil {
		t.Fatalf("SetUserVersion() error = %v", err)
	}
	legacy.Close()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	// Drop-and-recreate: legacy rows are gone
	n, err := Count(context.Background(), db)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() after migration = %d, want 0", n)
	}

	// And the uniqueness constraint is now in force
	ctx := context.Background()
	item := &CapturedItem{Content: "Hello", SourceID: "com.foo", ElementID: "x1", DedupKey: "com.foo_x1_Hello"}
	if _, err := Insert(ctx, db, item); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	res, err := Insert(ctx, db, item)
	if err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}
	if res != Ignored {
		t.Errorf("second Insert() = %v, want ignored", res)
	}
}

func TestInit_SchemaIndexes(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", "idx_captured_text_recent").Scan(&name)
	if err != nil {
		t.Errorf("index idx_captured_text_recent not found: %v", err)
	}

	// The UNIQUE column constraint creates an autoindex
	var autoIndexes int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND tbl_name='captured_text' AND name LIKE 'sqlite_autoindex_%'`).Scan(&autoIndexes)
	if err != nil {
		t.Fatalf("autoindex query error = %v", err)
	}
	if autoIndexes == 0 {
		t.Error("expected an autoindex backing UNIQUE(dedup_key)")
	}
}
