package application

import (
	"slices"
	"time"
)

// Protected role names. ROLE_USER and ROLE_FUNKCYJNY can be neither renamed
// nor deleted; ROLE_ADMIN additionally resists deletion.
const (
	RoleNameUser      = "ROLE_USER"
	RoleNameFunkcyjny = "ROLE_FUNKCYJNY"
	RoleNameAdmin     = "ROLE_ADMIN"
)

// Role types recognized by the registry.
const (
	RoleTypeSystem     = "SYSTEM"
	RoleTypeSupervisor = "SUPERVISOR"
)

// Obstacle lifecycle statuses.
const (
	ObstacleStatusPending  = "PENDING"
	ObstacleStatusApproved = "APPROVED"
	ObstacleStatusRejected = "REJECTED"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID    string
	RoleNames []string
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(name string) bool {
	return slices.Contains(p.RoleNames, name)
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleNameAdmin)
}

// IsFunctionary reports whether the principal holds the elevated functionary role.
func (p Principal) IsFunctionary() bool {
	return p.HasRole(RoleNameFunkcyjny)
}

// Role represents one entry of the ordered role catalog.
type Role struct {
	ID              string
	Name            string
	Type            string
	SortOrder       int
	VisibleInPrints bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RoleInput captures caller provided role fields. SortOrder zero means
// append at the end of the type's catalog.
type RoleInput struct {
	Name            string
	Type            string
	SortOrder       int
	VisibleInPrints bool
}

// CreateRoleParams wraps the data required to create a role.
type CreateRoleParams struct {
	Principal Principal
	Input     RoleInput
}

// UpdateRoleParams wraps the data required to update a role.
type UpdateRoleParams struct {
	Principal Principal
	RoleID    string
	Input     RoleInput
}

// RoleOrderUpdate moves one role to a new catalog position.
type RoleOrderUpdate struct {
	RoleID    string
	SortOrder int
}

// ReorderRolesParams wraps a batch of catalog position moves.
type ReorderRolesParams struct {
	Principal Principal
	Updates   []RoleOrderUpdate
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	Type            *string
	VisibleInPrints *bool
}

// User represents a member account exposed by the application services.
type User struct {
	ID        string
	Email     string
	Name      string
	Surname   string
	Enabled   bool
	RoleIDs   []string
	RoleNames []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserInput captures caller provided user attributes. Roles are referenced
// by name and resolved against the registry.
type UserInput struct {
	Email     string
	Name      string
	Surname   string
	Password  string
	Enabled   bool
	RoleNames []string
}

// CreateUserParams wraps the data required to create a user.
type CreateUserParams struct {
	Principal Principal
	Input     UserInput
}

// UpdateUserParams wraps the data required to update a user. An empty
// password leaves the stored hash untouched.
type UpdateUserParams struct {
	Principal Principal
	UserID    string
	Input     UserInput
}

// Task represents a recurring duty with a weekly weekday pattern.
type Task struct {
	ID                 string
	Name               string
	Abbreviation       string
	Category           string
	ParticipantsLimit  int
	Permanent          bool
	WholePeriod        bool
	DaysOfWeek         []time.Weekday
	AllowedRoleIDs     []string
	SupervisorRoleID   *string
	SupervisorRoleName *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TaskInput captures caller provided task fields. Allowed and supervisor
// roles are referenced by name.
type TaskInput struct {
	Name               string
	Abbreviation       string
	Category           string
	ParticipantsLimit  int
	Permanent          bool
	WholePeriod        bool
	DaysOfWeek         []time.Weekday
	AllowedRoleNames   []string
	SupervisorRoleName *string
}

// CreateTaskParams wraps the data required to create a task.
type CreateTaskParams struct {
	Principal Principal
	Input     TaskInput
}

// UpdateTaskParams wraps the data required to update a task.
type UpdateTaskParams struct {
	Principal Principal
	TaskID    string
	Input     TaskInput
}

// Assignment binds one user to one task on one calendar date.
type Assignment struct {
	ID        string
	UserID    string
	TaskID    string
	Date      time.Time
	CreatedAt time.Time
}

// AssignmentInput captures the candidate binding submitted for validation.
type AssignmentInput struct {
	UserID          string
	TaskID          string
	Date            time.Time
	IgnoreConflicts bool
}

// CreateAssignmentParams wraps the data required to create an assignment.
type CreateAssignmentParams struct {
	Principal Principal
	Input     AssignmentInput
}

// UpdateAssignmentParams wraps the data required to move an assignment.
type UpdateAssignmentParams struct {
	Principal    Principal
	AssignmentID string
	Input        AssignmentInput
}

// WholePeriodInput captures a Monday-to-Sunday block request.
type WholePeriodInput struct {
	UserID          string
	TaskID          string
	From            time.Time
	To              time.Time
	IgnoreConflicts bool
}

// CreateWholePeriodParams wraps the data required to schedule a whole week.
type CreateWholePeriodParams struct {
	Principal Principal
	Input     WholePeriodInput
}

// AssignmentFilter narrows assignment listings. All date bounds are inclusive.
type AssignmentFilter struct {
	UserID string
	TaskID string
	Date   *time.Time
	From   *time.Time
	To     *time.Time
}

// AvailableTasksParams narrows the availability computation. An empty
// supervisor role name disables the filter.
type AvailableTasksParams struct {
	From               time.Time
	To                 time.Time
	SupervisorRoleName string
}

// UserDependenciesParams wraps a dependency summary request for one user.
type UserDependenciesParams struct {
	TaskID string
	UserID string
	From   time.Time
	To     time.Time
}

// UserDependencies aggregates the decision-support facts for assigning one
// user to one task.
type UserDependencies struct {
	UserID           string
	CompletionCount  int
	LastAssignedDate *time.Time
	Summaries        []string
	HasConflict      bool
	HasObstacle      bool
}

// AllUserDependenciesParams wraps a dependency summary request across every
// eligible user.
type AllUserDependenciesParams struct {
	TaskID string
	From   time.Time
	To     time.Time
}

// Obstacle represents a leave request over an inclusive date range.
type Obstacle struct {
	ID                   string
	UserID               string
	TaskIDs              []string
	FromDate             time.Time
	ToDate               time.Time
	Status               string
	ApplicantDescription string
	RecipientUserID      *string
	RecipientAnswer      *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ObstacleInput captures caller provided leave request fields. An empty
// UserID defaults to the requesting principal.
type ObstacleInput struct {
	UserID               string
	TaskIDs              []string
	FromDate             time.Time
	ToDate               time.Time
	ApplicantDescription string
}

// CreateObstacleParams wraps the data required to file an obstacle.
type CreateObstacleParams struct {
	Principal Principal
	Input     ObstacleInput
}

// ObstaclePatch captures the decision applied to a pending obstacle.
type ObstaclePatch struct {
	Status          string
	RecipientAnswer *string
	RecipientUserID *string
}

// PatchObstacleParams wraps the data required to decide an obstacle.
type PatchObstacleParams struct {
	Principal  Principal
	ObstacleID string
	Patch      ObstaclePatch
}

// ObstacleFilter narrows obstacle listings.
type ObstacleFilter struct {
	UserID string
	TaskID string
	Status string
}

// Conflict is a symmetric relation between two distinct tasks. The pair is
// stored normalized with TaskAID sorting before TaskBID.
type Conflict struct {
	ID        string
	TaskAID   string
	TaskBID   string
	CreatedAt time.Time
}

// ConflictInput captures the two task ids of a conflict declaration.
type ConflictInput struct {
	TaskAID string
	TaskBID string
}

// DeclareConflictParams wraps the data required to declare a conflict.
type DeclareConflictParams struct {
	Principal Principal
	Input     ConflictInput
}

// UpdateConflictParams wraps the data required to repoint a conflict.
type UpdateConflictParams struct {
	Principal  Principal
	ConflictID string
	Input      ConflictInput
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
	Disabled     bool
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
