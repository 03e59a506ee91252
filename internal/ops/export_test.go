package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/hpungsan/glean/internal/config"
	"github.com/hpungsan/glean/internal/db"
	"github.com/hpungsan/glean/internal/errors"
)

// allowDir returns a config whose allowed_paths holds dir.
func allowDir(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan export: %v", err)
	}
	return lines
}

func TestExport_HappyPath(t *testing.T) {
	database := setupDB(t)
	seed(t, database, 3)

	dir := t.TempDir()
	exportPath := filepath.Join(dir, "captures.jsonl")
	out, err := Export(context.Background(), database, allowDir(dir), ExportInput{Path: exportPath})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Path != exportPath {
		t.Errorf("Path = %q, want %q", out.Path, exportPath)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}

	lines := readLines(t, exportPath)
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + 3", len(lines))
	}

	var header ExportHeader
	if err := json.Unmarshal([]byte(lines[0]), &header); err != nil {
		t.Fatalf("header: %v", err)
	}
	if !header.GleanExport || header.SchemaVersion != db.CurrentSchemaVersion {
		t.Errorf("header = %+v", header)
	}

	var first db.CapturedItem
	if err := json.Unmarshal([]byte(lines[1]), &first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if first.Content != "item-0" {
		t.Errorf("first record = %q, want oldest item-0", first.Content)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	database := setupDB(t)
	seed(t, database, 1)
	baseDir := t.TempDir()

	out, err := Export(context.Background(), database, config.DefaultConfig(), ExportInput{BaseDir: baseDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Dir(out.Path) != filepath.Join(baseDir, "exports") {
		t.Errorf("Path = %q, want under %s/exports", out.Path, baseDir)
	}
	if !strings.HasPrefix(filepath.Base(out.Path), "captures-") {
		t.Errorf("unexpected file name %q", filepath.Base(out.Path))
	}
}

func TestExport_InvalidPaths(t *testing.T) {
	database := setupDB(t)
	dir := t.TempDir()

	tests := []struct {
		name  string
		input ExportInput
	}{
		{"no path or base dir", ExportInput{}},
		{"wrong extension", ExportInput{Path: filepath.Join(dir, "out.json")}},
		{"traversal", ExportInput{Path: dir + "/../out.jsonl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Export(context.Background(), database, allowDir(dir), tt.input)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestExport_FailurePreservesExisting(t *testing.T) {
	database := setupDB(t)
	seed(t, database, 1)

	dir := t.TempDir()
	exportPath := filepath.Join(dir, "captures.jsonl")
	if err := os.WriteFile(exportPath, []byte("previous\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	database.Close()

	if _, err := Export(context.Background(), database, allowDir(dir), ExportInput{Path: exportPath}); err == nil {
		t.Fatal("expected error on closed database")
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "previous\n" {
		t.Errorf("existing export was modified: %q", data)
	}

	entries, _ := os.ReadDir(filepath.Dir(exportPath))
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestExport_RefusesSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	database := setupDB(t)
	dir := t.TempDir()

	target := filepath.Join(dir, "target.jsonl")
	if err := os.WriteFile(target, []byte("keep\n"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	_, err := Export(context.Background(), database, allowDir(dir), ExportInput{Path: link})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "keep\n" {
		t.Errorf("symlink target modified: %q", data)
	}
}

func TestExport_RejectsPathOutsideAllowedDirs(t *testing.T) {
	database := setupDB(t)
	seed(t, database, 1)
	base := t.TempDir()
	other := t.TempDir()
	outside := filepath.Join(other, "deep", "nested", "dir", "out.jsonl")

	_, err := Export(context.Background(), database, config.DefaultConfig(), ExportInput{Path: outside, BaseDir: base})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Fatalf("error = %v, want INVALID_REQUEST", err)
	}
	if _, err := os.Stat(filepath.Join(other, "deep")); !os.IsNotExist(err) {
		t.Errorf("directories were created outside the allowed dirs: %v", err)
	}
}

func TestExport_AllowUnsafePaths(t *testing.T) {
	database := setupDB(t)
	seed(t, database, 2)
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	path := filepath.Join(t.TempDir(), "sub", "out.jsonl")

	out, err := Export(context.Background(), database, cfg, ExportInput{Path: path})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Count != 2 {
		t.Errorf("Count = %d, want 2", out.Count)
	}
}
