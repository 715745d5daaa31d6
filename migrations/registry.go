// Package migrations exposes the embedded ingestion schema, one filesystem per
// SQL dialect.
package migrations

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	ingest "github.com/goliatone/go-webhook-ingest"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const migrationsDir = "data/sql/migrations"

// Filesystem returns the migrations for dialect, ready for
// RegisterSQLMigrations. Every up migration must have a matching down.
func Filesystem(dialect string) (fs.FS, error) {
	dir := migrationsDir
	switch strings.TrimSpace(strings.ToLower(dialect)) {
	case DialectPostgres:
	case DialectSQLite:
		dir = migrationsDir + "/sqlite"
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	fsys, err := fs.Sub(ingest.GetMigrationsFS(), dir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", dialect, err)
	}
	if err := validatePairs(fsys); err != nil {
		return nil, fmt.Errorf("migrations: %s: %w", dialect, err)
	}
	return fsys, nil
}

func validatePairs(fsys fs.FS) error {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return err
	}
	downs, err := fs.Glob(fsys, "*.down.sql")
	if err != nil {
		return err
	}
	if len(ups) == 0 {
		return fmt.Errorf("no *.up.sql files")
	}

	pending := make(map[string]bool, len(ups))
	for _, name := range ups {
		pending[strings.TrimSuffix(name, ".up.sql")] = true
	}
	var unpaired []string
	for _, name := range downs {
		version := strings.TrimSuffix(name, ".down.sql")
		if !pending[version] {
			unpaired = append(unpaired, name)
			continue
		}
		delete(pending, version)
	}
	for version := range pending {
		unpaired = append(unpaired, version+".up.sql")
	}
	if len(unpaired) > 0 {
		sort.Strings(unpaired)
		return fmt.Errorf("unpaired migrations: %s", strings.Join(unpaired, ", "))
	}
	return nil
}
