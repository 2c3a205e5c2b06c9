package db

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	embeddedmigrations "github.com/solatis/condfield/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// appliedRow is one row of the migrations tracking table. applied_at is
// RFC 3339 text on SQLite and a timestamp on PostgreSQL.
type appliedRow struct {
	ID          string      `db:"migration_id"`
	Checksum    string      `db:"checksum"`
	AppliedAt   interface{} `db:"applied_at"`
	ExecutionMs int64       `db:"execution_ms"`
}

// MigrateUp applies every pending schema migration for the database's
// driver, each in its own transaction. Applied migrations whose embedded
// file changed since are an error.
func MigrateUp(db *sqlx.DB) error {
	migrations, applied, err := prepare(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		row, ok := applied[m.ID]
		if ok {
			if row.Checksum != m.Checksum {
				return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", m.ID, m.Checksum, row.Checksum)
			}
			continue
		}
		if err := runMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, applied, err := prepare(db)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		status := MigrationStatus{ID: m.ID, Checksum: m.Checksum}
		if row, ok := applied[m.ID]; ok {
			at, err := scanAppliedAt(row.AppliedAt)
			if err != nil {
				return nil, fmt.Errorf("migration %s: %w", m.ID, err)
			}
			status.Checksum = row.Checksum
			status.Applied = true
			status.AppliedAt = at
			status.ExecutionMs = row.ExecutionMs
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// prepare ensures the tracking table exists and returns the embedded
// migrations in order together with the applied rows. A recorded migration
// with no embedded file is an error.
func prepare(db *sqlx.DB) ([]migration, map[string]appliedRow, error) {
	fsys, dir, err := migrationSource(db.DriverName())
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.Exec(trackingTableDDL(db.DriverName())); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	migrations, err := readMigrations(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	var rows []appliedRow
	if err := db.Select(&rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	known := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		known[m.ID] = true
	}
	applied := make(map[string]appliedRow, len(rows))
	for _, r := range rows {
		if !known[r.ID] {
			return nil, nil, fmt.Errorf("migration %s exists in database but not in embedded files", r.ID)
		}
		applied[r.ID] = r
	}
	return migrations, applied, nil
}

func migrationSource(driver string) (fs.FS, string, error) {
	switch driver {
	case "sqlite3":
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case "postgres":
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// trackingTableDDL must stay in step with recordMigration's applied_at
// encoding.
func trackingTableDDL(driver string) string {
	if driver == "sqlite3" {
		return `CREATE TABLE IF NOT EXISTS migrations (
			migration_id TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			execution_ms INTEGER NOT NULL,
			CHECK (applied_at LIKE '____-__-__T__:__:__Z')
		)`
	}
	return `CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
		execution_ms INTEGER NOT NULL
	)`
}

// readMigrations loads dir/*.sql sorted by file name.
func readMigrations(fsys fs.FS, dir string) ([]migration, error) {
	paths, err := fs.Glob(fsys, dir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]migration, 0, len(paths))
	for _, p := range paths {
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		sum := sha256.Sum256(content)
		out = append(out, migration{
			ID:       path.Base(p),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(content),
		})
	}
	return out, nil
}

// runMigration applies m and records it in one transaction.
func runMigration(db *sqlx.DB, m migration) error {
	start := time.Now()
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}
	if err := applyMigration(tx, m); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
	}
	if err := recordMigration(tx, m, time.Since(start)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// applyMigration executes the statements of m one at a time; lib/pq rejects
// several statements in a single Exec.
func applyMigration(tx *sqlx.Tx, m migration) error {
	for _, stmt := range strings.Split(stripComments(m.SQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}

// stripComments drops full-line "--" comments so a statement preceded by a
// comment block is still executed.
func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func recordMigration(tx *sqlx.Tx, m migration, took time.Duration) error {
	var appliedAt interface{} = time.Now().UTC()
	if tx.DriverName() == "sqlite3" {
		appliedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := tx.Exec(
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, appliedAt, took.Milliseconds(),
	)
	return err
}

// scanAppliedAt converts an applied_at column value to a time.
func scanAppliedAt(v interface{}) (*time.Time, error) {
	var raw string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return nil, fmt.Errorf("unexpected applied_at type %T", v)
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid applied_at %q: %w", raw, err)
	}
	return &parsed, nil
}
