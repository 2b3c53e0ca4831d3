package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func TestLoadMigrationFiles_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"0002_index.sql": "CREATE INDEX i ON invocation_log (actor_id);",
		"0001_table.sql": "CREATE TABLE invocation_log (invocation_id TEXT);",
		"README.md":      "# migrations",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "9999_dir.sql"), 0o755); err != nil {
		t.Fatalf("%s - failed to create dir: %v", migrationsTestPrefix, err)
	}

	got, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 2 {
		t.Fatalf("%s - expected 2 migrations, got %d", migrationsTestPrefix, len(got))
	}
	if !strings.HasPrefix(got[0], "CREATE TABLE") || !strings.HasPrefix(got[1], "CREATE INDEX") {
		t.Errorf("%s - migrations not sorted by name: %q", migrationsTestPrefix, got)
	}
}

func TestLoadMigrationFiles_MissingDir(t *testing.T) {
	_, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "absent"))
	if err == nil || !strings.Contains(err.Error(), "audit schema directory") {
		t.Errorf("%s - expected audit schema directory error, got %v", migrationsTestPrefix, err)
	}
}

func TestLoadMigrationFiles_NumericOrder(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"10_later.sql":  "SELECT 10;",
		"9_earlier.sql": "SELECT 9;",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	got, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 2 || got[0] != "SELECT 9;" {
		t.Errorf("%s - expected version 9 before 10, got %q", migrationsTestPrefix, got)
	}
}

func TestLoadMigrationFiles_RejectsBadScripts(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{"no version prefix", map[string]string{"invocation_log.sql": "SELECT 1;"}, "no NNNN_ version prefix"},
		{"duplicate version", map[string]string{"0001_a.sql": "SELECT 1;", "01_b.sql": "SELECT 2;"}, "share version 1"},
		{"empty script", map[string]string{"0001_a.sql": " \n"}, "is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
					t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
				}
			}
			_, err := LoadMigrationFiles(dir)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("%s - error %v, want %q", migrationsTestPrefix, err, tt.wantErr)
			}
		})
	}
}

func TestLoadMigrationFiles_RepositoryMigrations(t *testing.T) {
	got, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - failed to load repository migrations: %v", migrationsTestPrefix, err)
	}
	if len(got) == 0 || !strings.Contains(got[0], "invocation_log") {
		t.Errorf("%s - first migration should create invocation_log", migrationsTestPrefix)
	}
}
