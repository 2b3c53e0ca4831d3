package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const migrationsLogPrefix = "db:migrations"

// LoadMigrationFiles returns the invocation audit log schema scripts found in dir, ordered by their
// numeric version prefix (0001_invocation_log.sql before 0002_...). Non-.sql entries are ignored.
// A script without a version prefix, two scripts sharing a version, or an empty script is an error,
// since RunMigrations would otherwise apply the schema in an order nobody chose.
func LoadMigrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - audit schema directory %s unreadable: %w", migrationsLogPrefix, dir, err)
	}

	type script struct {
		version int
		name    string
	}
	var scripts []script
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		version, convErr := strconv.Atoi(prefix)
		if !ok || convErr != nil || version < 0 {
			return nil, fmt.Errorf("%s - audit schema script %s has no NNNN_ version prefix", migrationsLogPrefix, e.Name())
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s - audit schema scripts %s and %s share version %d", migrationsLogPrefix, other, e.Name(), version)
		}
		seen[version] = e.Name()
		scripts = append(scripts, script{version: version, name: e.Name()})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].version < scripts[j].version })

	out := make([]string, 0, len(scripts))
	for _, s := range scripts {
		data, err := os.ReadFile(filepath.Join(dir, s.name))
		if err != nil {
			return nil, fmt.Errorf("%s - audit schema script %s unreadable: %w", migrationsLogPrefix, s.name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("%s - audit schema script %s is empty", migrationsLogPrefix, s.name)
		}
		out = append(out, string(data))
	}
	slog.Debug(fmt.Sprintf("%s - %d audit schema scripts ready from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}
