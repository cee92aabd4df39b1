package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/duty-roster/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Pool        *sqlite.ConnectionPool
	Users       *sqlite.UserRepository
	Roles       *sqlite.RoleRepository
	Tasks       *sqlite.TaskRepository
	Assignments *sqlite.AssignmentRepository
	Obstacles   *sqlite.ObstacleRepository
	Conflicts   *sqlite.ConflictRepository
	Sessions    *sqlite.SessionRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a temporary file database that
// is migrated automatically. Cleanup is registered with the provided
// testing.TB, but callers may also Close explicitly.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "roster.db")

	pool, err := sqlite.Open("file:" + path + "?_foreign_keys=on")
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:        pool,
		Users:       sqlite.NewUserRepository(pool),
		Roles:       sqlite.NewRoleRepository(pool),
		Tasks:       sqlite.NewTaskRepository(pool),
		Assignments: sqlite.NewAssignmentRepository(pool),
		Obstacles:   sqlite.NewObstacleRepository(pool),
		Conflicts:   sqlite.NewConflictRepository(pool),
		Sessions:    sqlite.NewSessionRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
