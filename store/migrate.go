package store

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// MigrationLockKey is the Postgres advisory lock key held while a SQL
// backend migrates, so engines sharing a database migrate one at a time.
const MigrationLockKey int64 = 0x646f63666c6f77 // "docflow"

// Migration is one versioned schema change of a SQL backend.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// LoadMigrations reads the "NNN_name.sql" files in dir of fsys. Versions
// must start at 1 and have no gaps or duplicates.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("docflow/store: read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, name, ok := strings.Cut(strings.TrimSuffix(e.Name(), ".sql"), "_")
		version, convErr := strconv.Atoi(prefix)
		if !ok || convErr != nil || version < 1 {
			return nil, fmt.Errorf("docflow/store: migration %q has no version prefix", e.Name())
		}
		data, readErr := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if readErr != nil {
			return nil, fmt.Errorf("docflow/store: read migration %s: %w", e.Name(), readErr)
		}
		out = append(out, Migration{Version: version, Name: name, SQL: string(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i, m := range out {
		if m.Version != i+1 {
			return nil, fmt.Errorf("docflow/store: migration %d (%s) out of sequence, want %d", m.Version, m.Name, i+1)
		}
	}
	return out, nil
}
