package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Migrator applies SQL migrations from a directory. Files follow the
// {version}_{name}.up.sql / {version}_{name}.down.sql naming convention and
// applied versions are tracked in public.schema_migrations.
type Migrator struct {
	db  *sql.DB
	dir string
}

func NewMigrator(db *sql.DB, dir string) *Migrator {
	return &Migrator{db: db, dir: dir}
}

// Up applies all pending migrations in version order.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := m.listMigrationFiles(".up.sql")
	if err != nil {
		return err
	}

	for _, f := range files {
		version, err := extractVersion(f)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		if err := m.apply(ctx, f, version, true); err != nil {
			return err
		}
		log.Printf("INFO: applied migration %s", filepath.Base(f))
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.ensureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}

	var latest int64
	for v := range applied {
		if v > latest {
			latest = v
		}
	}

	files, err := m.listMigrationFiles(".down.sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		version, err := extractVersion(f)
		if err != nil {
			return err
		}
		if version != latest {
			continue
		}
		if err := m.apply(ctx, f, version, false); err != nil {
			return err
		}
		log.Printf("INFO: rolled back migration %s", filepath.Base(f))
		return nil
	}
	return fmt.Errorf("no down migration for version %d", latest)
}

func (m *Migrator) apply(ctx context.Context, file string, version int64, up bool) error {
	contents, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(contents)); err != nil {
		return fmt.Errorf("apply migration %s: %w", filepath.Base(file), err)
	}

	if up {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO public.schema_migrations (version) VALUES ($1)`, version)
	} else {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM public.schema_migrations WHERE version = $1`, version)
	}
	if err != nil {
		return fmt.Errorf("record migration version %d: %w", version, err)
	}

	return tx.Commit()
}

func (m *Migrator) ensureMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS public.schema_migrations (
			version BIGINT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM public.schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) listMigrationFiles(suffix string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", m.dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		files = append(files, filepath.Join(m.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func extractVersion(file string) (int64, error) {
	base := filepath.Base(file)
	idx := strings.Index(base, "_")
	if idx < 0 {
		return 0, fmt.Errorf("malformed migration name %q", base)
	}
	v, err := strconv.ParseInt(base[:idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed migration version in %q: %w", base, err)
	}
	return v, nil
}
