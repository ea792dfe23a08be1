package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var (
	migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe   = regexp.MustCompile(`(?i)CREATE TABLE(?: IF NOT EXISTS)?\s+([a-z_]+)`)
)

// ValidateDir checks the Postgres migrations and reports every problem at once:
// file naming, unique versions, goose Up/Down markers, and that each table they create
// also exists in the embedded sqlite schema used by local mode and tests.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var problems error
	versions := map[string]string{}
	tables := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			problems = multierr.Append(problems, fmt.Errorf("%q: expected YYYYMMDDHHMMSS_name.sql", name))
			continue
		}
		if prev, dup := versions[match[1]]; dup {
			problems = multierr.Append(problems, fmt.Errorf("version %s used by %q and %q", match[1], prev, name))
		}
		versions[match[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = multierr.Append(problems, err)
			continue
		}
		up, down, ok := strings.Cut(string(body), "-- +goose Down")
		if !strings.Contains(up, "-- +goose Up") {
			problems = multierr.Append(problems, fmt.Errorf("%q: missing \"-- +goose Up\"", name))
		}
		if !ok || strings.TrimSpace(down) == "" {
			problems = multierr.Append(problems, fmt.Errorf("%q: missing \"-- +goose Down\" section", name))
		}
		for _, m := range createTableRe.FindAllStringSubmatch(up, -1) {
			tables[strings.ToLower(m[1])] = name
		}
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	sqliteTables := map[string]bool{}
	for _, m := range createTableRe.FindAllStringSubmatch(sqliteSchema, -1) {
		sqliteTables[strings.ToLower(m[1])] = true
	}
	missing := make([]string, 0)
	for table := range tables {
		if !sqliteTables[table] {
			missing = append(missing, table)
		}
	}
	sort.Strings(missing)
	for _, table := range missing {
		problems = multierr.Append(problems, fmt.Errorf("table %s (%s) is missing from sqlite_schema.sql", table, tables[table]))
	}
	return problems
}
