package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/example/duty-roster/internal/persistence"
)

// ObstacleRepository implements persistence.ObstacleRepository using SQLite.
type ObstacleRepository struct {
	pool *ConnectionPool
}

// NewObstacleRepository creates a SQLite-backed obstacle repository.
func NewObstacleRepository(pool *ConnectionPool) *ObstacleRepository {
	return &ObstacleRepository{pool: pool}
}

// CreateObstacle inserts the obstacle and its task bindings in one
// transaction.
func (r *ObstacleRepository) CreateObstacle(ctx context.Context, obstacle persistence.Obstacle) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insertObstacle(tx, obstacle); err != nil {
			return err
		}
		return insertObstacleTasks(tx, obstacle.ID, obstacle.TaskIDs)
	})
}

// GetObstacle retrieves an obstacle with its task ids.
func (r *ObstacleRepository) GetObstacle(ctx context.Context, id string) (persistence.Obstacle, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, user_id, from_date, to_date, status, applicant_description, recipient_user_id, recipient_answer, created_at, updated_at
		FROM obstacles WHERE id = ?`, id)
	obstacle, err := scanObstacle(row)
	if err != nil {
		return persistence.Obstacle{}, err
	}
	if obstacle.TaskIDs, err = r.loadTaskIDs(ctx, obstacle.ID); err != nil {
		return persistence.Obstacle{}, err
	}
	return obstacle, nil
}

// UpdateObstacle rewrites the obstacle row and replaces its task bindings.
func (r *ObstacleRepository) UpdateObstacle(ctx context.Context, obstacle persistence.Obstacle) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return updateObstacle(tx, obstacle)
	})
}

// ApproveObstacle writes the approved obstacle and deletes every assignment
// of its user to one of its tasks within the obstacle range, as one
// transaction.
func (r *ObstacleRepository) ApproveObstacle(ctx context.Context, obstacle persistence.Obstacle) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := updateObstacle(tx, obstacle); err != nil {
			return err
		}
		for _, taskID := range obstacle.TaskIDs {
			_, err := tx.Exec(`
				DELETE FROM assignments
				WHERE user_id = ? AND task_id = ? AND date >= ? AND date <= ?`,
				obstacle.UserID, taskID, formatDate(obstacle.FromDate), formatDate(obstacle.ToDate))
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListObstacles returns obstacles matching the filter ordered by start date
// descending.
func (r *ObstacleRepository) ListObstacles(ctx context.Context, filter persistence.ObstacleFilter) ([]persistence.Obstacle, error) {
	query := `
		SELECT DISTINCT o.id, o.user_id, o.from_date, o.to_date, o.status, o.applicant_description, o.recipient_user_id, o.recipient_answer, o.created_at, o.updated_at
		FROM obstacles o`
	var conditions []string
	var args []any

	if filter.TaskID != "" {
		query += " JOIN obstacle_tasks ot ON ot.obstacle_id = o.id"
		conditions = append(conditions, "ot.task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, "o.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "o.status = ?")
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY o.from_date DESC, o.to_date DESC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var obstacles []persistence.Obstacle
	for rows.Next() {
		obstacle, err := scanObstacle(rows)
		if err != nil {
			return nil, err
		}
		obstacles = append(obstacles, obstacle)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range obstacles {
		if obstacles[i].TaskIDs, err = r.loadTaskIDs(ctx, obstacles[i].ID); err != nil {
			return nil, err
		}
	}
	return obstacles, nil
}

// CountObstaclesByStatus counts obstacles carrying the given status.
func (r *ObstacleRepository) CountObstaclesByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM obstacles WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteObstacle removes the obstacle and its task bindings.
func (r *ObstacleRepository) DeleteObstacle(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM obstacle_tasks WHERE obstacle_id = ?`, id); err != nil {
			return mapError(err)
		}
		result, err := tx.Exec(`DELETE FROM obstacles WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRowsAffected(result)
	})
}

func (r *ObstacleRepository) loadTaskIDs(ctx context.Context, obstacleID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT task_id FROM obstacle_tasks WHERE obstacle_id = ?`, obstacleID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var taskIDs []string
	for rows.Next() {
		var taskID string
		if err := rows.Scan(&taskID); err != nil {
			return nil, mapError(err)
		}
		taskIDs = append(taskIDs, taskID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	sort.Strings(taskIDs)
	return taskIDs, nil
}

func insertObstacle(tx *sql.Tx, obstacle persistence.Obstacle) error {
	_, err := tx.Exec(`
		INSERT INTO obstacles (id, user_id, from_date, to_date, status, applicant_description, recipient_user_id, recipient_answer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obstacle.ID,
		obstacle.UserID,
		formatDate(obstacle.FromDate),
		formatDate(obstacle.ToDate),
		obstacle.Status,
		obstacle.ApplicantDescription,
		obstacle.RecipientUserID,
		obstacle.RecipientAnswer,
		formatTimestamp(obstacle.CreatedAt),
		formatTimestamp(obstacle.UpdatedAt),
	)
	return mapError(err)
}

func updateObstacle(tx *sql.Tx, obstacle persistence.Obstacle) error {
	result, err := tx.Exec(`
		UPDATE obstacles
		SET user_id = ?, from_date = ?, to_date = ?, status = ?, applicant_description = ?, recipient_user_id = ?, recipient_answer = ?, updated_at = ?
		WHERE id = ?`,
		obstacle.UserID,
		formatDate(obstacle.FromDate),
		formatDate(obstacle.ToDate),
		obstacle.Status,
		obstacle.ApplicantDescription,
		obstacle.RecipientUserID,
		obstacle.RecipientAnswer,
		formatTimestamp(obstacle.UpdatedAt),
		obstacle.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if err := requireRowsAffected(result); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM obstacle_tasks WHERE obstacle_id = ?`, obstacle.ID); err != nil {
		return mapError(err)
	}
	return insertObstacleTasks(tx, obstacle.ID, obstacle.TaskIDs)
}

func insertObstacleTasks(tx *sql.Tx, obstacleID string, taskIDs []string) error {
	for _, taskID := range taskIDs {
		if _, err := tx.Exec(`INSERT INTO obstacle_tasks (obstacle_id, task_id) VALUES (?, ?)`, obstacleID, taskID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanObstacle(row rowScanner) (persistence.Obstacle, error) {
	var obstacle persistence.Obstacle
	var fromDate, toDate, createdAt, updatedAt string
	var recipientUserID, recipientAnswer sql.NullString

	err := row.Scan(
		&obstacle.ID,
		&obstacle.UserID,
		&fromDate,
		&toDate,
		&obstacle.Status,
		&obstacle.ApplicantDescription,
		&recipientUserID,
		&recipientAnswer,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Obstacle{}, mapError(err)
	}

	if recipientUserID.Valid {
		obstacle.RecipientUserID = &recipientUserID.String
	}
	if recipientAnswer.Valid {
		obstacle.RecipientAnswer = &recipientAnswer.String
	}
	if obstacle.FromDate, err = parseDate(fromDate); err != nil {
		return persistence.Obstacle{}, err
	}
	if obstacle.ToDate, err = parseDate(toDate); err != nil {
		return persistence.Obstacle{}, err
	}
	if obstacle.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Obstacle{}, err
	}
	if obstacle.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Obstacle{}, err
	}
	return obstacle, nil
}
