// Package testfixtures provides deterministic builders shared by the
// application and persistence test suites.
package testfixtures

import (
	"time"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/persistence"
)

var referenceTime = time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceMonday returns the Monday of the reference week at midnight UTC.
func ReferenceMonday() time.Time {
	return time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
}

// UserFixture describes a member account used across test suites.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	Surname      string
	PasswordHash string
	Enabled      bool
	RoleIDs      []string
	RoleNames    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserOption mutates a UserFixture under construction.
type UserOption func(*UserFixture)

// NewUserFixture constructs a fixture with sensible defaults.
func NewUserFixture(opts ...UserOption) UserFixture {
	fixture := UserFixture{
		ID:           "user-1",
		Email:        "jan.kowalski@example.com",
		Name:         "Jan",
		Surname:      "Kowalski",
		PasswordHash: "hash(s3cret)",
		Enabled:      true,
		RoleIDs:      []string{"role-user"},
		RoleNames:    []string{application.RoleNameUser},
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the identifier.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserRoles overrides the role references. IDs and names are kept in
// lockstep, one id per name.
func WithUserRoles(ids []string, names []string) UserOption {
	return func(f *UserFixture) {
		f.RoleIDs = ids
		f.RoleNames = names
	}
}

// WithUserDisabled marks the account disabled.
func WithUserDisabled() UserOption {
	return func(f *UserFixture) { f.Enabled = false }
}

// Application converts the fixture to the application model.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Email:     f.Email,
		Name:      f.Name,
		Surname:   f.Surname,
		Enabled:   f.Enabled,
		RoleIDs:   f.RoleIDs,
		RoleNames: f.RoleNames,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// Credentials converts the fixture to the credential model used by the auth
// service.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
		Disabled:     !f.Enabled,
	}
}

// Principal converts the fixture to an acting principal.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, RoleNames: f.RoleNames}
}

// Persistence converts the fixture to the storage model.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		Surname:      f.Surname,
		PasswordHash: f.PasswordHash,
		Enabled:      f.Enabled,
		RoleIDs:      f.RoleIDs,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// RoleFixture describes one entry of the ordered role catalog.
type RoleFixture struct {
	ID              string
	Name            string
	Type            string
	SortOrder       int
	VisibleInPrints bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RoleOption mutates a RoleFixture under construction.
type RoleOption func(*RoleFixture)

// NewRoleFixture constructs a fixture with sensible defaults.
func NewRoleFixture(opts ...RoleOption) RoleFixture {
	fixture := RoleFixture{
		ID:              "role-user",
		Name:            application.RoleNameUser,
		Type:            application.RoleTypeSystem,
		SortOrder:       1,
		VisibleInPrints: true,
		CreatedAt:       referenceTime,
		UpdatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoleID overrides the identifier.
func WithRoleID(id string) RoleOption {
	return func(f *RoleFixture) { f.ID = id }
}

// WithRoleName overrides the name.
func WithRoleName(name string) RoleOption {
	return func(f *RoleFixture) { f.Name = name }
}

// WithRoleType overrides the catalog type.
func WithRoleType(roleType string) RoleOption {
	return func(f *RoleFixture) { f.Type = roleType }
}

// WithRoleSortOrder overrides the 1-based catalog position.
func WithRoleSortOrder(order int) RoleOption {
	return func(f *RoleFixture) { f.SortOrder = order }
}

// Application converts the fixture to the application model.
func (f RoleFixture) Application() application.Role {
	return application.Role{
		ID:              f.ID,
		Name:            f.Name,
		Type:            f.Type,
		SortOrder:       f.SortOrder,
		VisibleInPrints: f.VisibleInPrints,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// Persistence converts the fixture to the storage model.
func (f RoleFixture) Persistence() persistence.Role {
	return persistence.Role{
		ID:              f.ID,
		Name:            f.Name,
		Type:            f.Type,
		SortOrder:       f.SortOrder,
		VisibleInPrints: f.VisibleInPrints,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// TaskFixture describes a recurring duty.
type TaskFixture struct {
	ID                string
	Name              string
	Abbreviation      string
	Category          string
	ParticipantsLimit int
	Permanent         bool
	WholePeriod       bool
	DaysOfWeek        []time.Weekday
	AllowedRoleIDs    []string
	SupervisorRoleID  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TaskOption mutates a TaskFixture under construction.
type TaskOption func(*TaskFixture)

// NewTaskFixture constructs a fixture with sensible defaults: a two-person
// duty covering Monday, Wednesday, and Friday, open to the baseline role.
func NewTaskFixture(opts ...TaskOption) TaskFixture {
	fixture := TaskFixture{
		ID:                "task-1",
		Name:              "Zmywanie",
		Abbreviation:      "Zmy",
		ParticipantsLimit: 2,
		DaysOfWeek:        []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		AllowedRoleIDs:    []string{"role-user"},
		CreatedAt:         referenceTime,
		UpdatedAt:         referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTaskID overrides the identifier.
func WithTaskID(id string) TaskOption {
	return func(f *TaskFixture) { f.ID = id }
}

// WithTaskName overrides the name.
func WithTaskName(name string) TaskOption {
	return func(f *TaskFixture) { f.Name = name }
}

// WithTaskDays overrides the weekday pattern.
func WithTaskDays(days ...time.Weekday) TaskOption {
	return func(f *TaskFixture) { f.DaysOfWeek = days }
}

// WithTaskLimit overrides the participants limit.
func WithTaskLimit(limit int) TaskOption {
	return func(f *TaskFixture) { f.ParticipantsLimit = limit }
}

// WithTaskAllowedRoles overrides the allowed role references.
func WithTaskAllowedRoles(roleIDs ...string) TaskOption {
	return func(f *TaskFixture) { f.AllowedRoleIDs = roleIDs }
}

// WithTaskSupervisor sets the supervisor role reference.
func WithTaskSupervisor(roleID string) TaskOption {
	return func(f *TaskFixture) { f.SupervisorRoleID = &roleID }
}

// WithTaskWholePeriod marks the task as bookable only for full weeks.
func WithTaskWholePeriod() TaskOption {
	return func(f *TaskFixture) {
		f.Permanent = true
		f.WholePeriod = true
	}
}

// Application converts the fixture to the application model.
func (f TaskFixture) Application() application.Task {
	return application.Task{
		ID:                f.ID,
		Name:              f.Name,
		Abbreviation:      f.Abbreviation,
		Category:          f.Category,
		ParticipantsLimit: f.ParticipantsLimit,
		Permanent:         f.Permanent,
		WholePeriod:       f.WholePeriod,
		DaysOfWeek:        f.DaysOfWeek,
		AllowedRoleIDs:    f.AllowedRoleIDs,
		SupervisorRoleID:  f.SupervisorRoleID,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// Persistence converts the fixture to the storage model.
func (f TaskFixture) Persistence() persistence.Task {
	return persistence.Task{
		ID:                f.ID,
		Name:              f.Name,
		Abbreviation:      f.Abbreviation,
		Category:          f.Category,
		ParticipantsLimit: f.ParticipantsLimit,
		Permanent:         f.Permanent,
		WholePeriod:       f.WholePeriod,
		DaysOfWeek:        f.DaysOfWeek,
		AllowedRoleIDs:    f.AllowedRoleIDs,
		SupervisorRoleID:  f.SupervisorRoleID,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// AssignmentFixture binds a user to a task on one date.
type AssignmentFixture struct {
	ID        string
	UserID    string
	TaskID    string
	Date      time.Time
	CreatedAt time.Time
}

// AssignmentOption mutates an AssignmentFixture under construction.
type AssignmentOption func(*AssignmentFixture)

// NewAssignmentFixture constructs a fixture placed on the reference Monday.
func NewAssignmentFixture(opts ...AssignmentOption) AssignmentFixture {
	fixture := AssignmentFixture{
		ID:        "assignment-1",
		UserID:    "user-1",
		TaskID:    "task-1",
		Date:      ReferenceMonday(),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAssignmentID overrides the identifier.
func WithAssignmentID(id string) AssignmentOption {
	return func(f *AssignmentFixture) { f.ID = id }
}

// WithAssignmentUser overrides the user reference.
func WithAssignmentUser(userID string) AssignmentOption {
	return func(f *AssignmentFixture) { f.UserID = userID }
}

// WithAssignmentTask overrides the task reference.
func WithAssignmentTask(taskID string) AssignmentOption {
	return func(f *AssignmentFixture) { f.TaskID = taskID }
}

// WithAssignmentDate overrides the calendar date.
func WithAssignmentDate(date time.Time) AssignmentOption {
	return func(f *AssignmentFixture) { f.Date = date }
}

// Application converts the fixture to the application model.
func (f AssignmentFixture) Application() application.Assignment {
	return application.Assignment{
		ID:        f.ID,
		UserID:    f.UserID,
		TaskID:    f.TaskID,
		Date:      f.Date,
		CreatedAt: f.CreatedAt,
	}
}

// Persistence converts the fixture to the storage model.
func (f AssignmentFixture) Persistence() persistence.Assignment {
	return persistence.Assignment{
		ID:        f.ID,
		UserID:    f.UserID,
		TaskID:    f.TaskID,
		Date:      f.Date,
		CreatedAt: f.CreatedAt,
	}
}

// ObstacleFixture describes a leave request.
type ObstacleFixture struct {
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

// ObstacleOption mutates an ObstacleFixture under construction.
type ObstacleOption func(*ObstacleFixture)

// NewObstacleFixture constructs a pending fixture covering the reference week.
func NewObstacleFixture(opts ...ObstacleOption) ObstacleFixture {
	fixture := ObstacleFixture{
		ID:        "obstacle-1",
		UserID:    "user-1",
		TaskIDs:   []string{"task-1"},
		FromDate:  ReferenceMonday(),
		ToDate:    ReferenceMonday().AddDate(0, 0, 6),
		Status:    application.ObstacleStatusPending,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithObstacleID overrides the identifier.
func WithObstacleID(id string) ObstacleOption {
	return func(f *ObstacleFixture) { f.ID = id }
}

// WithObstacleUser overrides the user reference.
func WithObstacleUser(userID string) ObstacleOption {
	return func(f *ObstacleFixture) { f.UserID = userID }
}

// WithObstacleTasks overrides the task references.
func WithObstacleTasks(taskIDs ...string) ObstacleOption {
	return func(f *ObstacleFixture) { f.TaskIDs = taskIDs }
}

// WithObstacleRange overrides the covered date range.
func WithObstacleRange(from, to time.Time) ObstacleOption {
	return func(f *ObstacleFixture) {
		f.FromDate = from
		f.ToDate = to
	}
}

// WithObstacleStatus overrides the lifecycle status.
func WithObstacleStatus(status string) ObstacleOption {
	return func(f *ObstacleFixture) { f.Status = status }
}

// Application converts the fixture to the application model.
func (f ObstacleFixture) Application() application.Obstacle {
	return application.Obstacle{
		ID:                   f.ID,
		UserID:               f.UserID,
		TaskIDs:              f.TaskIDs,
		FromDate:             f.FromDate,
		ToDate:               f.ToDate,
		Status:               f.Status,
		ApplicantDescription: f.ApplicantDescription,
		RecipientUserID:      f.RecipientUserID,
		RecipientAnswer:      f.RecipientAnswer,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// Persistence converts the fixture to the storage model.
func (f ObstacleFixture) Persistence() persistence.Obstacle {
	return persistence.Obstacle{
		ID:                   f.ID,
		UserID:               f.UserID,
		TaskIDs:              f.TaskIDs,
		FromDate:             f.FromDate,
		ToDate:               f.ToDate,
		Status:               f.Status,
		ApplicantDescription: f.ApplicantDescription,
		RecipientUserID:      f.RecipientUserID,
		RecipientAnswer:      f.RecipientAnswer,
		CreatedAt:            f.CreatedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

// ConflictFixture is a normalized pair of mutually exclusive tasks.
type ConflictFixture struct {
	ID        string
	TaskAID   string
	TaskBID   string
	CreatedAt time.Time
}

// NewConflictFixture constructs a fixture for the given pair, normalizing the
// order so TaskAID sorts first.
func NewConflictFixture(id, taskA, taskB string) ConflictFixture {
	if taskB < taskA {
		taskA, taskB = taskB, taskA
	}
	return ConflictFixture{
		ID:        id,
		TaskAID:   taskA,
		TaskBID:   taskB,
		CreatedAt: referenceTime,
	}
}

// Application converts the fixture to the application model.
func (f ConflictFixture) Application() application.Conflict {
	return application.Conflict{
		ID:        f.ID,
		TaskAID:   f.TaskAID,
		TaskBID:   f.TaskBID,
		CreatedAt: f.CreatedAt,
	}
}

// Persistence converts the fixture to the storage model.
func (f ConflictFixture) Persistence() persistence.ConflictPair {
	return persistence.ConflictPair{
		ID:        f.ID,
		TaskAID:   f.TaskAID,
		TaskBID:   f.TaskBID,
		CreatedAt: f.CreatedAt,
	}
}
