package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/cliossg/formkit/pkg/cl/logger"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is one versioned schema change read from a
// "<version>-<name>.sql" file.
type Migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

// ID identifies the migration in logs and errors.
func (m Migration) ID() string {
	return m.Version + "-" + m.Name
}

// Migrator applies the schema files of one engine to a database and records
// each applied version in schema_migrations.
type Migrator struct {
	db   *sql.DB
	fsys fs.FS
	dir  string
	log  logger.Logger
}

// New creates a Migrator reading from assets/migrations/<engine> in fsys.
func New(fsys fs.FS, engine string, log logger.Logger) *Migrator {
	return &Migrator{
		fsys: fsys,
		dir:  path.Join("assets/migrations", engine),
		log:  log,
	}
}

func (m *Migrator) SetDB(db *sql.DB) {
	m.db = db
}

// SetPath overrides the directory holding the migration files.
func (m *Migrator) SetPath(dir string) {
	m.dir = dir
}

// Run applies every migration not yet recorded, oldest version first.
// Each migration runs in its own transaction together with its record.
func (m *Migrator) Run(ctx context.Context) error {
	if m.db == nil {
		return fmt.Errorf("cannot run migrations: no database set")
	}

	if _, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("cannot create schema_migrations table: %w", err)
	}

	all, err := m.Load()
	if err != nil {
		return err
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var count int
	for _, mig := range all {
		if done[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("cannot apply migration %s: %w", mig.ID(), err)
		}
		m.log.Infof("Applied migration %s", mig.ID())
		count++
	}

	if count == 0 {
		m.log.Debug("Schema is up to date")
	}
	return nil
}

// Load reads and parses the migration files sorted by version.
func (m *Migrator) Load() ([]Migration, error) {
	files, err := fs.Glob(m.fsys, path.Join(m.dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("cannot list migrations in %s: %w", m.dir, err)
	}

	migrations := make([]Migration, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, file := range files {
		content, err := fs.ReadFile(m.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("cannot read migration %s: %w", file, err)
		}
		mig, err := Parse(path.Base(file), string(content))
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[mig.Version]; ok {
			return nil, fmt.Errorf("migration version %s used by %s and %s", mig.Version, prev, file)
		}
		seen[mig.Version] = file
		migrations = append(migrations, mig)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Applied returns the recorded versions in ascending order.
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("cannot read applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("cannot read applied migrations: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Parse splits a migration file into its Up and Down statements.
// The Up section is required.
func Parse(filename, content string) (Migration, error) {
	version, rest, ok := strings.Cut(strings.TrimSuffix(filename, ".sql"), "-")
	if !ok || version == "" || rest == "" {
		return Migration{}, fmt.Errorf("invalid migration filename %q: want <version>-<name>.sql", filename)
	}

	var up, down []string
	var section *[]string
	for _, line := range strings.Split(content, "\n") {
		switch strings.TrimSpace(line) {
		case upMarker:
			section = &up
			continue
		case downMarker:
			section = &down
			continue
		}
		if section != nil {
			*section = append(*section, line)
		}
	}

	mig := Migration{
		Version: version,
		Name:    rest,
		Up:      strings.TrimSpace(strings.Join(up, "\n")),
		Down:    strings.TrimSpace(strings.Join(down, "\n")),
	}
	if mig.Up == "" {
		return Migration{}, fmt.Errorf("migration %s has no Up section", filename)
	}
	return mig, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}
