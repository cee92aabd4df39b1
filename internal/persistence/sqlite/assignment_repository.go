package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/duty-roster/internal/persistence"
)

// AssignmentRepository implements persistence.AssignmentRepository using SQLite.
type AssignmentRepository struct {
	pool *ConnectionPool
}

// NewAssignmentRepository creates a SQLite-backed assignment repository.
func NewAssignmentRepository(pool *ConnectionPool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// CreateAssignment inserts a single assignment row.
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, assignment persistence.Assignment) error {
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO assignments (id, user_id, task_id, date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.UserID,
		assignment.TaskID,
		formatDate(assignment.Date),
		formatTimestamp(assignment.CreatedAt),
	)
	return mapError(err)
}

// CreateAssignments inserts the whole batch in one transaction.
func (r *AssignmentRepository) CreateAssignments(ctx context.Context, assignments []persistence.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO assignments (id, user_id, task_id, date, created_at)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, assignment := range assignments {
			_, err := stmt.Exec(
				assignment.ID,
				assignment.UserID,
				assignment.TaskID,
				formatDate(assignment.Date),
				formatTimestamp(assignment.CreatedAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// UpdateAssignment rewrites the user, task, and date of an existing row.
func (r *AssignmentRepository) UpdateAssignment(ctx context.Context, assignment persistence.Assignment) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE assignments SET user_id = ?, task_id = ?, date = ? WHERE id = ?`,
		assignment.UserID,
		assignment.TaskID,
		formatDate(assignment.Date),
		assignment.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// GetAssignment retrieves an assignment by id.
func (r *AssignmentRepository) GetAssignment(ctx context.Context, id string) (persistence.Assignment, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, user_id, task_id, date, created_at
		FROM assignments WHERE id = ?`, id)
	return scanAssignment(row)
}

// ListAssignments returns assignments matching the filter ordered by date
// then task.
func (r *AssignmentRepository) ListAssignments(ctx context.Context, filter persistence.AssignmentFilter) ([]persistence.Assignment, error) {
	query := `SELECT id, user_id, task_id, date, created_at FROM assignments`
	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.TaskID != "" {
		conditions = append(conditions, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.Date != nil {
		conditions = append(conditions, "date = ?")
		args = append(args, formatDate(*filter.Date))
	}
	if filter.From != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, formatDate(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, formatDate(*filter.To))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, task_id ASC, user_id ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var assignments []persistence.Assignment
	for rows.Next() {
		assignment, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return assignments, nil
}

// CountAssignments counts the user's assignments to the task within the
// inclusive date range.
func (r *AssignmentRepository) CountAssignments(ctx context.Context, userID, taskID string, from, to time.Time) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM assignments
		WHERE user_id = ? AND task_id = ? AND date >= ? AND date <= ?`,
		userID, taskID, formatDate(from), formatDate(to),
	).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// LatestAssignmentDate returns the most recent date on or before upTo on
// which the user held the task, or nil when there is none.
func (r *AssignmentRepository) LatestAssignmentDate(ctx context.Context, userID, taskID string, upTo time.Time) (*time.Time, error) {
	var raw sql.NullString
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM assignments
		WHERE user_id = ? AND task_id = ? AND date <= ?`,
		userID, taskID, formatDate(upTo),
	).Scan(&raw)
	if err != nil {
		return nil, mapError(err)
	}
	if !raw.Valid {
		return nil, nil
	}
	date, err := parseDate(raw.String)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// DeleteAssignment removes one assignment by id.
func (r *AssignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// DeleteAssignmentsByTask removes every assignment of the task.
func (r *AssignmentRepository) DeleteAssignmentsByTask(ctx context.Context, taskID string) error {
	_, err := r.pool.db.ExecContext(ctx, `DELETE FROM assignments WHERE task_id = ?`, taskID)
	return mapError(err)
}

func scanAssignment(row rowScanner) (persistence.Assignment, error) {
	var assignment persistence.Assignment
	var date, createdAt string

	err := row.Scan(&assignment.ID, &assignment.UserID, &assignment.TaskID, &date, &createdAt)
	if err != nil {
		return persistence.Assignment{}, mapError(err)
	}

	if assignment.Date, err = parseDate(date); err != nil {
		return persistence.Assignment{}, err
	}
	if assignment.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Assignment{}, err
	}
	return assignment, nil
}
