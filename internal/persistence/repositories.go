package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for users.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListUsersWithRole(ctx context.Context, roleID string) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoleFilter narrows role catalog queries. Results are always ordered by
// sort order ascending.
type RoleFilter struct {
	Type            *string
	VisibleInPrints *bool
}

// RoleRepository stores the ordered role catalog. Operations that reposition
// other roles take the full shift batch and commit it with the triggering
// insert or delete as one transaction.
type RoleRepository interface {
	CreateRole(ctx context.Context, role Role, shifts []SortOrderUpdate) error
	UpdateRole(ctx context.Context, role Role) error
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error)
	RoleNameExists(ctx context.Context, name string) (bool, error)
	UpdateSortOrders(ctx context.Context, updates []SortOrderUpdate) error
	// DeleteRole removes the role, strips it from all task and user
	// references, and applies the shift batch, all in one transaction.
	DeleteRole(ctx context.Context, id string, shifts []SortOrderUpdate) error
}

// TaskRepository exposes CRUD operations for the task catalog.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// AssignmentFilter narrows assignment queries. All date bounds are inclusive.
type AssignmentFilter struct {
	UserID string
	TaskID string
	Date   *time.Time
	From   *time.Time
	To     *time.Time
}

// AssignmentRepository stores user-task-date bindings.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment Assignment) error
	// CreateAssignments inserts the whole batch in one transaction; a failed
	// insert rolls back every row.
	CreateAssignments(ctx context.Context, assignments []Assignment) error
	UpdateAssignment(ctx context.Context, assignment Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	CountAssignments(ctx context.Context, userID, taskID string, from, to time.Time) (int, error)
	LatestAssignmentDate(ctx context.Context, userID, taskID string, upTo time.Time) (*time.Time, error)
	DeleteAssignment(ctx context.Context, id string) error
	DeleteAssignmentsByTask(ctx context.Context, taskID string) error
}

// ObstacleFilter narrows obstacle queries.
type ObstacleFilter struct {
	UserID string
	TaskID string
	Status string
}

// ObstacleRepository stores leave requests.
type ObstacleRepository interface {
	CreateObstacle(ctx context.Context, obstacle Obstacle) error
	GetObstacle(ctx context.Context, id string) (Obstacle, error)
	UpdateObstacle(ctx context.Context, obstacle Obstacle) error
	// ApproveObstacle writes the approved obstacle and deletes every
	// assignment of its user to one of its tasks within the obstacle range,
	// as one transaction.
	ApproveObstacle(ctx context.Context, obstacle Obstacle) error
	ListObstacles(ctx context.Context, filter ObstacleFilter) ([]Obstacle, error)
	CountObstaclesByStatus(ctx context.Context, status string) (int, error)
	DeleteObstacle(ctx context.Context, id string) error
}

// ConflictRepository stores normalized task conflict pairs.
type ConflictRepository interface {
	CreateConflict(ctx context.Context, pair ConflictPair) error
	UpdateConflict(ctx context.Context, pair ConflictPair) error
	GetConflict(ctx context.Context, id string) (ConflictPair, error)
	ListConflicts(ctx context.Context) ([]ConflictPair, error)
	// ConflictExists expects a pair already normalized to (min, max).
	ConflictExists(ctx context.Context, taskAID, taskBID string) (bool, error)
	DeleteConflict(ctx context.Context, id string) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	RevokeSessionsForUser(ctx context.Context, userID string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
