package sqlite

import (
	"context"

	"github.com/example/duty-roster/internal/persistence"
)

// ConflictRepository implements persistence.ConflictRepository using SQLite.
type ConflictRepository struct {
	pool *ConnectionPool
}

// NewConflictRepository creates a SQLite-backed conflict repository.
func NewConflictRepository(pool *ConnectionPool) *ConflictRepository {
	return &ConflictRepository{pool: pool}
}

// CreateConflict inserts a normalized conflict pair. The unique index on
// (task_a_id, task_b_id) rejects duplicates.
func (r *ConflictRepository) CreateConflict(ctx context.Context, pair persistence.ConflictPair) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO conflicts (id, task_a_id, task_b_id, created_at)
		VALUES (?, ?, ?, ?)`,
		pair.ID, pair.TaskAID, pair.TaskBID, formatTimestamp(pair.CreatedAt))
	return mapError(err)
}

// UpdateConflict rewrites the pair held under an existing id.
func (r *ConflictRepository) UpdateConflict(ctx context.Context, pair persistence.ConflictPair) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE conflicts SET task_a_id = ?, task_b_id = ? WHERE id = ?`,
		pair.TaskAID, pair.TaskBID, pair.ID)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// GetConflict retrieves a conflict pair by id.
func (r *ConflictRepository) GetConflict(ctx context.Context, id string) (persistence.ConflictPair, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, task_a_id, task_b_id, created_at FROM conflicts WHERE id = ?`, id)
	return scanConflict(row)
}

// ListConflicts returns every conflict pair ordered by the pair keys.
func (r *ConflictRepository) ListConflicts(ctx context.Context) ([]persistence.ConflictPair, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, task_a_id, task_b_id, created_at
		FROM conflicts ORDER BY task_a_id ASC, task_b_id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var pairs []persistence.ConflictPair
	for rows.Next() {
		pair, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return pairs, nil
}

// ConflictExists expects a pair already normalized to (min, max).
func (r *ConflictRepository) ConflictExists(ctx context.Context, taskAID, taskBID string) (bool, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM conflicts WHERE task_a_id = ? AND task_b_id = ?`,
		taskAID, taskBID).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// DeleteConflict removes a conflict pair by id.
func (r *ConflictRepository) DeleteConflict(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM conflicts WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

func scanConflict(row rowScanner) (persistence.ConflictPair, error) {
	var pair persistence.ConflictPair
	var createdAt string

	err := row.Scan(&pair.ID, &pair.TaskAID, &pair.TaskBID, &createdAt)
	if err != nil {
		return persistence.ConflictPair{}, mapError(err)
	}
	if pair.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.ConflictPair{}, err
	}
	return pair, nil
}
