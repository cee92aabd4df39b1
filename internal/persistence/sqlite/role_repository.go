package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/duty-roster/internal/persistence"
)

// RoleRepository implements persistence.RoleRepository using SQLite.
type RoleRepository struct {
	pool *ConnectionPool
}

// NewRoleRepository creates a SQLite-backed role repository.
func NewRoleRepository(pool *ConnectionPool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// CreateRole inserts the role and applies the accompanying sort-order shifts
// in one transaction. Shifts must be ordered so each intermediate state keeps
// the (type, sort_order) uniqueness constraint satisfied.
func (r *RoleRepository) CreateRole(ctx context.Context, role persistence.Role, shifts []persistence.SortOrderUpdate) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := applySortOrderShifts(tx, shifts); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO roles (id, name, type, sort_order, visible_in_prints, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			role.ID,
			role.Name,
			role.Type,
			role.SortOrder,
			boolToInt(role.VisibleInPrints),
			formatTimestamp(role.CreatedAt),
			formatTimestamp(role.UpdatedAt),
		)
		return mapError(err)
	})
}

// UpdateRole rewrites the mutable attributes of an existing role.
func (r *RoleRepository) UpdateRole(ctx context.Context, role persistence.Role) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE roles
		SET name = ?, type = ?, sort_order = ?, visible_in_prints = ?, updated_at = ?
		WHERE id = ?`,
		role.Name,
		role.Type,
		role.SortOrder,
		boolToInt(role.VisibleInPrints),
		formatTimestamp(role.UpdatedAt),
		role.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return requireRowsAffected(result)
}

// GetRole retrieves a role by id.
func (r *RoleRepository) GetRole(ctx context.Context, id string) (persistence.Role, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, type, sort_order, visible_in_prints, created_at, updated_at
		FROM roles WHERE id = ?`, id)
	return scanRole(row)
}

// GetRoleByName retrieves a role by its unique name.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (persistence.Role, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, name, type, sort_order, visible_in_prints, created_at, updated_at
		FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

// ListRoles returns roles matching the filter ordered by sort order ascending.
func (r *RoleRepository) ListRoles(ctx context.Context, filter persistence.RoleFilter) ([]persistence.Role, error) {
	query := `SELECT id, name, type, sort_order, visible_in_prints, created_at, updated_at FROM roles`
	var conditions []string
	var args []any

	if filter.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filter.Type)
	}
	if filter.VisibleInPrints != nil {
		conditions = append(conditions, "visible_in_prints = ?")
		args = append(args, boolToInt(*filter.VisibleInPrints))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sort_order ASC, name ASC"

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var roles []persistence.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return roles, nil
}

// RoleNameExists reports whether any role carries the given name.
func (r *RoleRepository) RoleNameExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM roles WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, mapError(err)
	}
	return count > 0, nil
}

// UpdateSortOrders applies a batch of position moves in one transaction.
func (r *RoleRepository) UpdateSortOrders(ctx context.Context, updates []persistence.SortOrderUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		// Park the affected rows outside the live range first so the batch
		// can encode swaps without tripping (type, sort_order) uniqueness.
		for _, update := range updates {
			result, err := tx.Exec(`UPDATE roles SET sort_order = -sort_order WHERE id = ?`, update.ID)
			if err != nil {
				return mapError(err)
			}
			if err := requireRowsAffected(result); err != nil {
				return err
			}
		}
		for _, update := range updates {
			if _, err := tx.Exec(`UPDATE roles SET sort_order = ? WHERE id = ?`, update.SortOrder, update.ID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// DeleteRole removes the role, strips its task and user references, and
// closes the sort-order gap, all in one transaction.
func (r *RoleRepository) DeleteRole(ctx context.Context, id string, shifts []persistence.SortOrderUpdate) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_allowed_roles WHERE role_id = ?`, id); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`UPDATE tasks SET supervisor_role_id = NULL WHERE supervisor_role_id = ?`, id); err != nil {
			return mapError(err)
		}
		if _, err := tx.Exec(`DELETE FROM user_roles WHERE role_id = ?`, id); err != nil {
			return mapError(err)
		}

		result, err := tx.Exec(`DELETE FROM roles WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}

		return applySortOrderShifts(tx, shifts)
	})
}

func applySortOrderShifts(tx *sql.Tx, shifts []persistence.SortOrderUpdate) error {
	for _, shift := range shifts {
		result, err := tx.Exec(`UPDATE roles SET sort_order = ? WHERE id = ?`, shift.SortOrder, shift.ID)
		if err != nil {
			return mapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (persistence.Role, error) {
	var role persistence.Role
	var visible int
	var createdAt, updatedAt string

	err := row.Scan(&role.ID, &role.Name, &role.Type, &role.SortOrder, &visible, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Role{}, mapError(err)
	}

	role.VisibleInPrints = visible != 0
	if role.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.Role{}, err
	}
	if role.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.Role{}, err
	}
	return role, nil
}

func requireRowsAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
