package sqlite

import (
	"context"
	"database/sql"
	"sort"

	"github.com/example/duty-roster/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a SQLite-backed user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateUser inserts the user and its role bindings in one transaction.
func (r *UserRepository) CreateUser(ctx context.Context, user persistence.User) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO users (id, email, name, surname, password_hash, enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			user.Email,
			user.Name,
			user.Surname,
			user.PasswordHash,
			boolToInt(user.Enabled),
			formatTimestamp(user.CreatedAt),
			formatTimestamp(user.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}
		return insertUserRoles(tx, user.ID, user.RoleIDs)
	})
}

// UpdateUser rewrites the user row and replaces its role bindings.
func (r *UserRepository) UpdateUser(ctx context.Context, user persistence.User) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			UPDATE users
			SET email = ?, name = ?, surname = ?, password_hash = ?, enabled = ?, updated_at = ?
			WHERE id = ?`,
			user.Email,
			user.Name,
			user.Surname,
			user.PasswordHash,
			boolToInt(user.Enabled),
			formatTimestamp(user.UpdatedAt),
			user.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if err := requireRowsAffected(result); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, user.ID); err != nil {
			return mapError(err)
		}
		return insertUserRoles(tx, user.ID, user.RoleIDs)
	})
}

// GetUser retrieves a user and its role ids.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, email, name, surname, password_hash, enabled, created_at, updated_at
		FROM users WHERE id = ?`, id)
	return r.scanUserWithRoles(ctx, row)
}

// GetUserByEmail retrieves a user by its unique email address.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, email, name, surname, password_hash, enabled, created_at, updated_at
		FROM users WHERE email = ?`, email)
	return r.scanUserWithRoles(ctx, row)
}

// ListUsers returns every user ordered by surname then name.
func (r *UserRepository) ListUsers(ctx context.Context) ([]persistence.User, error) {
	return r.queryUsers(ctx, `
		SELECT id, email, name, surname, password_hash, enabled, created_at, updated_at
		FROM users ORDER BY surname ASC, name ASC`)
}

// ListUsersWithRole returns users holding the given role.
func (r *UserRepository) ListUsersWithRole(ctx context.Context, roleID string) ([]persistence.User, error) {
	return r.queryUsers(ctx, `
		SELECT u.id, u.email, u.name, u.surname, u.password_hash, u.enabled, u.created_at, u.updated_at
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role_id = ?
		ORDER BY u.surname ASC, u.name ASC`, roleID)
}

// DeleteUser removes the user and its role bindings.
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM user_roles WHERE user_id = ?`, id); err != nil {
			return mapError(err)
		}
		result, err := tx.Exec(`DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireRowsAffected(result)
	})
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]persistence.User, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	for i := range users {
		roleIDs, err := r.loadRoleIDs(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].RoleIDs = roleIDs
	}
	return users, nil
}

func (r *UserRepository) scanUserWithRoles(ctx context.Context, row rowScanner) (persistence.User, error) {
	user, err := scanUser(row)
	if err != nil {
		return persistence.User{}, err
	}
	if user.RoleIDs, err = r.loadRoleIDs(ctx, user.ID); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func (r *UserRepository) loadRoleIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT role_id FROM user_roles WHERE user_id = ?`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var roleIDs []string
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, mapError(err)
		}
		roleIDs = append(roleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	sort.Strings(roleIDs)
	return roleIDs, nil
}

func insertUserRoles(tx *sql.Tx, userID string, roleIDs []string) error {
	for _, roleID := range roleIDs {
		if _, err := tx.Exec(`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanUser(row rowScanner) (persistence.User, error) {
	var user persistence.User
	var enabled int
	var createdAt, updatedAt string

	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Surname, &user.PasswordHash, &enabled, &createdAt, &updatedAt)
	if err != nil {
		return persistence.User{}, mapError(err)
	}

	user.Enabled = enabled != 0
	if user.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return persistence.User{}, err
	}
	if user.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}
