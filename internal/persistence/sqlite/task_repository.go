package sqlite

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/example/duty-roster/internal/persistence"
)

// TaskRepository implements persistence.TaskRepository using SQLite.
type TaskRepository struct {
	pool *ConnectionPool
}

// NewTaskRepository creates a SQLite-backed task repository.
func NewTaskRepository(pool *ConnectionPool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// CreateTask inserts the task with its weekday pattern and allowed roles in
// one transaction.
func (r *TaskRepository) CreateTask(ctx context.Context, task persistence.Task) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO tasks (id, name, abbreviation, category, participants_limit, permanent, whole_period, supervisor_role_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID,
			task.Name,
			task.Abbreviation,
			task.Category,
			task.ParticipantsLimit,
			boolToInt(task.Permanent),
			boolToInt(task.WholePeriod),
			task.SupervisorRoleID,
			formatTimestamp(task.CreatedAt),
			formatTimestamp(task.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertTaskRelations(tx, task)
	})
}

// UpdateTask rewrites the task row and replaces its weekday pattern and
// allowed roles.
func (r *TaskRepository) UpdateTask(ctx context.Context, task persistence.Task) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE tasks
			SET name = ?, abbreviation = ?, category = ?, participants_limit = ?, permanent = ?, whole_period = ?, supervisor_role_id = ?, updated_at = ?
			WHERE id = ?`,
			task.Name,
			task.Abbreviation,
			task.Category,
			task.ParticipantsLimit,
			boolToInt(task.Permanent),
			boolToInt(task.WholePeriod),
			task.SupervisorRoleID,
			formatTimestamp(task.UpdatedAt),
			task.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM task_days WHERE task_id = ?`, task.ID); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM task_allowed_roles WHERE task_id = ?`, task.ID); err != nil {
			return mapError(err)
		}
		return insertTaskRelations(tx, task)
	})
}

// GetTask retrieves a task with its weekday pattern and allowed roles.
func (r *TaskRepository) GetTask(ctx context.Context, id string) (persistence.Task, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, abbreviation, category, participants_limit, permanent, whole_period, supervisor_role_id, created_at, updated_at
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		return persistence.Task{}, err
	}
	if err := r.loadTaskRelations(ctx, &task); err != nil {
		return persistence.Task{}, err
	}
	return task, nil
}

// ListTasks returns every task ordered by name.
func (r *TaskRepository) ListTasks(ctx context.Context) ([]persistence.Task, error) {
	return r.queryTasks(ctx, `
		SELECT id, name, abbreviation, category, participants_limit, permanent, whole_period, supervisor_role_id, created_at, updated_at
		FROM tasks ORDER BY name ASC`)
}

// ListTasksBySupervisorRole returns tasks supervised by the given role.
func (r *TaskRepository) ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]persistence.Task, error) {
	return r.queryTasks(ctx, `
		SELECT id, name, abbreviation, category, participants_limit, permanent, whole_period, supervisor_role_id, created_at, updated_at
		FROM tasks WHERE supervisor_role_id = ? ORDER BY name ASC`, roleID)
}

// DeleteTask removes the task and its weekday and role relations.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_days WHERE task_id = ?`, id); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM task_allowed_roles WHERE task_id = ?`, id); err != nil {
			return mapError(err)
		}
		result, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRowsAffected(result)
	})
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]persistence.Task, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tasks []persistence.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range tasks {
		if err := r.loadTaskRelations(ctx, &tasks[i]); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *TaskRepository) loadTaskRelations(ctx context.Context, task *persistence.Task) error {
	dayRows, err := r.pool.db.QueryContext(ctx, `SELECT weekday FROM task_days WHERE task_id = ?`, task.ID)
	if err != nil {
		return mapError(err)
	}
	defer dayRows.Close()

	task.DaysOfWeek = nil
	for dayRows.Next() {
		var weekday int
		if err := dayRows.Scan(&weekday); err != nil {
			return mapError(err)
		}
		task.DaysOfWeek = append(task.DaysOfWeek, time.Weekday(weekday))
	}
	if err := dayRows.Err(); err != nil {
		return mapError(err)
	}
	// Monday-first ordering, matching how the service layer presents patterns.
	sort.Slice(task.DaysOfWeek, func(i, j int) bool {
		return (int(task.DaysOfWeek[i])+6)%7 < (int(task.DaysOfWeek[j])+6)%7
	})

	roleRows, err := r.pool.db.QueryContext(ctx, `SELECT role_id FROM task_allowed_roles WHERE task_id = ?`, task.ID)
	if err != nil {
		return mapError(err)
	}
	defer roleRows.Close()

	task.AllowedRoleIDs = nil
	for roleRows.Next() {
		var roleID string
		if err := roleRows.Scan(&roleID); err != nil {
			return mapError(err)
		}
		task.AllowedRoleIDs = append(task.AllowedRoleIDs, roleID)
	}
	if err := roleRows.Err(); err != nil {
		return mapError(err)
	}
	sort.Strings(task.AllowedRoleIDs)
	return nil
}

func insertTaskRelations(tx *sql.Tx, task persistence.Task) error {
	for _, day := range task.DaysOfWeek {
		if _, err := tx.Exec(`INSERT INTO task_days (task_id, weekday) VALUES (?, ?)`, task.ID, int(day)); err != nil {
			return mapError(err)
		}
	}
	for _, roleID := range task.AllowedRoleIDs {
		if _, err := tx.Exec(`INSERT INTO task_allowed_roles (task_id, role_id) VALUES (?, ?)`, task.ID, roleID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanTask(row rowScanner) (persistence.Task, error) {
	var task persistence.Task
	var permanent, wholePeriod int
	var supervisorRoleID sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Abbreviation,
		&task.Category,
		&task.ParticipantsLimit,
		&permanent,
		&wholePeriod,
		&supervisorRoleID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Task{}, mapError(err)
	}

	task.Permanent = permanent != 0
	task.WholePeriod = wholePeriod != 0
	if supervisorRoleID.Valid {
		task.SupervisorRoleID = &supervisorRoleID.String
	}
	if task.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Task{}, err
	}
	if task.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Task{}, err
	}
	return task, nil
}
