// Package state persists the provisioning ledger in SQLite: one row
// per completed provisioning step with the physical resource id the
// managed service returned. Re-runs consult the ledger to skip steps
// that already completed, which is what makes re-applying the chain
// idempotent.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/fieldline/iotops/internal/domain"
	"github.com/fieldline/iotops/internal/logging"
)

// Ledger wraps a SQLite database holding provisioning results.
type Ledger struct {
	sql *sql.DB
	log *logging.Logger
}

// Open opens (or creates) the ledger database at the given path and
// runs migrations. Use ":memory:" for tests.
func Open(path string, log *logging.Logger) (*Ledger, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	l := &Ledger{sql: sqlDB, log: log.Sub("state")}

	if err := l.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	l.log.Debug().Str("path", path).Msg("ledger opened")
	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.sql.Close()
}

// Get returns the recorded resource id for a step, and whether one exists.
func (l *Ledger) Get(step string) (string, bool, error) {
	var id string
	err := l.sql.QueryRow("SELECT resource_id FROM resources WHERE step = ?", step).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading step %s: %w", step, err)
	}
	return id, true, nil
}

// Put records the resource id produced by a completed step. Replaces
// any previous record for the same step.
func (l *Ledger) Put(step, id, detail string) error {
	_, err := l.sql.Exec(
		`INSERT INTO resources (step, resource_id, detail, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(step) DO UPDATE SET resource_id = excluded.resource_id, detail = excluded.detail`,
		step, id, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording step %s: %w", step, err)
	}
	return nil
}

// All returns every ledger entry in step-completion order.
func (l *Ledger) All() ([]domain.ProvisionedResource, error) {
	rows, err := l.sql.Query("SELECT step, resource_id, detail, created_at FROM resources ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	defer rows.Close()

	var out []domain.ProvisionedResource
	for rows.Next() {
		var r domain.ProvisionedResource
		var ts string
		if err := rows.Scan(&r.Step, &r.ID, &r.Detail, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Clear removes every ledger entry. Used when the operator wants to
// force a full re-provision against a cleaned account.
func (l *Ledger) Clear() error {
	_, err := l.sql.Exec("DELETE FROM resources")
	return err
}

func (l *Ledger) migrate() error {
	if _, err := l.sql.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := l.sql.QueryRow(
			"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version,
		).Scan(&count); err != nil {
			return fmt.Errorf("checking migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		l.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := l.sql.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create resources ledger",
		SQL: `
			CREATE TABLE resources (
				step        TEXT PRIMARY KEY,
				resource_id TEXT NOT NULL,
				detail      TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);
		`,
	},
}
