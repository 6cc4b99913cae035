package migrate

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// The schema runs on both postgres and sqlite, so migrations stay within the subset
// both understand.
var nonPortable = []string{"SERIAL", "JSONB", "TIMESTAMPTZ", "GEN_RANDOM_UUID", "::", "NOW()", "ILIKE"}

// Validate checks file names, version uniqueness, goose annotations and portability of
// every .sql file at the root of fsys. It returns the versions in order.
func Validate(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := map[string]string{}
	var versions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("migrations %q and %q share version %s", prev, name, m[1])
		}
		seen[m[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkBody(name, string(body)); err != nil {
			return nil, err
		}
		versions = append(versions, m[1])
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("no migrations found")
	}
	sort.Strings(versions)
	return versions, nil
}

func checkBody(name, body string) error {
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case down < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case down < up:
		return fmt.Errorf("migration %q has its Down section before Up", name)
	}

	upper := strings.ToUpper(stripComments(body))
	for _, token := range nonPortable {
		if strings.Contains(upper, token) {
			return fmt.Errorf("migration %q uses %s, which sqlite cannot run", name, token)
		}
	}
	return nil
}

func stripComments(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "--"); idx >= 0 {
			lines[i] = line[:idx]
		}
	}
	return strings.Join(lines, "\n")
}
