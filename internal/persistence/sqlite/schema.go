package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// dateLayout is the storage format for calendar dates. Lexicographic
// comparison of the rendered form matches chronological order, which the
// range queries depend on.
const dateLayout = "2006-01-02"

const timestampLayout = time.RFC3339

// migrations are applied in order; the schema_migrations table records the
// last applied version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS roles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		type TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		visible_in_prints INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (type, sort_order)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		surname TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		abbreviation TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		participants_limit INTEGER NOT NULL CHECK (participants_limit > 0),
		permanent INTEGER NOT NULL DEFAULT 0,
		whole_period INTEGER NOT NULL DEFAULT 0,
		supervisor_role_id TEXT REFERENCES roles(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS task_days (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		weekday INTEGER NOT NULL CHECK (weekday BETWEEN 0 AND 6),
		PRIMARY KEY (task_id, weekday)
	)`,
	`CREATE TABLE IF NOT EXISTS task_allowed_roles (
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		PRIMARY KEY (task_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_user_date ON assignments(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_assignments_task_date ON assignments(task_id, date)`,
	`CREATE TABLE IF NOT EXISTS obstacles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		from_date TEXT NOT NULL,
		to_date TEXT NOT NULL,
		status TEXT NOT NULL,
		applicant_description TEXT NOT NULL DEFAULT '',
		recipient_user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		recipient_answer TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (from_date <= to_date)
	)`,
	`CREATE TABLE IF NOT EXISTS obstacle_tasks (
		obstacle_id TEXT NOT NULL REFERENCES obstacles(id) ON DELETE CASCADE,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		PRIMARY KEY (obstacle_id, task_id)
	)`,
	`CREATE TABLE IF NOT EXISTS conflicts (
		id TEXT PRIMARY KEY,
		task_a_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		task_b_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		UNIQUE (task_a_id, task_b_id),
		CHECK (task_a_id < task_b_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate brings the schema up to the current version.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	if _, err := cp.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to prepare migration table: %w", err)
	}

	var current int
	err := cp.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		statement := migrations[version-1]
		if err := cp.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return err
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
				version, time.Now().UTC().Format(timestampLayout))
			return err
		}); err != nil {
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
	}

	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
