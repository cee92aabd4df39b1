package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/duty-roster/internal/application"
	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/scheduler"
)

// userStoreAdapter bridges the application account interfaces to the SQLite
// user repository, resolving role names on every load.
type userStoreAdapter struct {
	users persistence.UserRepository
	roles persistence.RoleRepository
}

func newUserStoreAdapter(users persistence.UserRepository, roles persistence.RoleRepository) *userStoreAdapter {
	return &userStoreAdapter{users: users, roles: roles}
}

func (a *userStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) error {
	return a.users.CreateUser(ctx, toPersistenceUser(user, passwordHash))
}

func (a *userStoreAdapter) UpdateUser(ctx context.Context, user application.User, passwordHash string) error {
	if passwordHash == "" {
		current, err := a.users.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		passwordHash = current.PasswordHash
	}
	return a.users.UpdateUser(ctx, toPersistenceUser(user, passwordHash))
}

func (a *userStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.users.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return a.toApplicationUser(ctx, stored)
}

func (a *userStoreAdapter) GetUserByEmail(ctx context.Context, email string) (application.User, error) {
	stored, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return application.User{}, err
	}
	return a.toApplicationUser(ctx, stored)
}

func (a *userStoreAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return a.toApplicationUsers(ctx, models)
}

func (a *userStoreAdapter) ListUsersWithRole(ctx context.Context, roleID string) ([]application.User, error) {
	models, err := a.users.ListUsersWithRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return a.toApplicationUsers(ctx, models)
}

func (a *userStoreAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.users.DeleteUser(ctx, id)
}

func (a *userStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	user, err := a.toApplicationUser(ctx, stored)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         user,
		PasswordHash: stored.PasswordHash,
		Disabled:     !stored.Enabled,
	}, nil
}

func (a *userStoreAdapter) toApplicationUsers(ctx context.Context, models []persistence.User) ([]application.User, error) {
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		user, err := a.toApplicationUser(ctx, model)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (a *userStoreAdapter) toApplicationUser(ctx context.Context, model persistence.User) (application.User, error) {
	names := make([]string, 0, len(model.RoleIDs))
	for _, roleID := range model.RoleIDs {
		role, err := a.roles.GetRole(ctx, roleID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return application.User{}, err
		}
		names = append(names, role.Name)
	}

	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		Name:      model.Name,
		Surname:   model.Surname,
		Enabled:   model.Enabled,
		RoleIDs:   model.RoleIDs,
		RoleNames: names,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Surname:      user.Surname,
		PasswordHash: passwordHash,
		Enabled:      user.Enabled,
		RoleIDs:      user.RoleIDs,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// roleStoreAdapter bridges the ordered role catalog to its SQLite repository.
type roleStoreAdapter struct {
	roles persistence.RoleRepository
}

func newRoleStoreAdapter(roles persistence.RoleRepository) *roleStoreAdapter {
	return &roleStoreAdapter{roles: roles}
}

func (a *roleStoreAdapter) CreateRole(ctx context.Context, role application.Role, shifts []scheduler.SortOrderUpdate) error {
	return a.roles.CreateRole(ctx, toPersistenceRole(role), toPersistenceShifts(shifts))
}

func (a *roleStoreAdapter) UpdateRole(ctx context.Context, role application.Role) error {
	return a.roles.UpdateRole(ctx, toPersistenceRole(role))
}

func (a *roleStoreAdapter) GetRole(ctx context.Context, id string) (application.Role, error) {
	stored, err := a.roles.GetRole(ctx, id)
	if err != nil {
		return application.Role{}, err
	}
	return toApplicationRole(stored), nil
}

func (a *roleStoreAdapter) GetRoleByName(ctx context.Context, name string) (application.Role, error) {
	stored, err := a.roles.GetRoleByName(ctx, name)
	if err != nil {
		return application.Role{}, err
	}
	return toApplicationRole(stored), nil
}

func (a *roleStoreAdapter) ListRoles(ctx context.Context, filter application.RoleFilter) ([]application.Role, error) {
	models, err := a.roles.ListRoles(ctx, persistence.RoleFilter{
		Type:            filter.Type,
		VisibleInPrints: filter.VisibleInPrints,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	roles := make([]application.Role, 0, len(models))
	for _, model := range models {
		roles = append(roles, toApplicationRole(model))
	}
	return roles, nil
}

func (a *roleStoreAdapter) RoleNameExists(ctx context.Context, name string) (bool, error) {
	return a.roles.RoleNameExists(ctx, name)
}

func (a *roleStoreAdapter) UpdateSortOrders(ctx context.Context, updates []scheduler.SortOrderUpdate) error {
	return a.roles.UpdateSortOrders(ctx, toPersistenceShifts(updates))
}

func (a *roleStoreAdapter) DeleteRole(ctx context.Context, id string, shifts []scheduler.SortOrderUpdate) error {
	return a.roles.DeleteRole(ctx, id, toPersistenceShifts(shifts))
}

func toPersistenceShifts(shifts []scheduler.SortOrderUpdate) []persistence.SortOrderUpdate {
	if len(shifts) == 0 {
		return nil
	}
	updates := make([]persistence.SortOrderUpdate, 0, len(shifts))
	for _, shift := range shifts {
		updates = append(updates, persistence.SortOrderUpdate{ID: shift.ID, SortOrder: shift.SortOrder})
	}
	return updates
}

func toApplicationRole(model persistence.Role) application.Role {
	return application.Role{
		ID:              model.ID,
		Name:            model.Name,
		Type:            model.Type,
		SortOrder:       model.SortOrder,
		VisibleInPrints: model.VisibleInPrints,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceRole(role application.Role) persistence.Role {
	return persistence.Role{
		ID:              role.ID,
		Name:            role.Name,
		Type:            role.Type,
		SortOrder:       role.SortOrder,
		VisibleInPrints: role.VisibleInPrints,
		CreatedAt:       role.CreatedAt,
		UpdatedAt:       role.UpdatedAt,
	}
}

// taskStoreAdapter bridges the task catalog to its SQLite repository,
// resolving the supervisor role name on load.
type taskStoreAdapter struct {
	tasks persistence.TaskRepository
	roles persistence.RoleRepository
}

func newTaskStoreAdapter(tasks persistence.TaskRepository, roles persistence.RoleRepository) *taskStoreAdapter {
	return &taskStoreAdapter{tasks: tasks, roles: roles}
}

func (a *taskStoreAdapter) CreateTask(ctx context.Context, task application.Task) error {
	return a.tasks.CreateTask(ctx, toPersistenceTask(task))
}

func (a *taskStoreAdapter) UpdateTask(ctx context.Context, task application.Task) error {
	return a.tasks.UpdateTask(ctx, toPersistenceTask(task))
}

func (a *taskStoreAdapter) GetTask(ctx context.Context, id string) (application.Task, error) {
	stored, err := a.tasks.GetTask(ctx, id)
	if err != nil {
		return application.Task{}, err
	}
	return a.toApplicationTask(ctx, stored)
}

func (a *taskStoreAdapter) ListTasks(ctx context.Context) ([]application.Task, error) {
	models, err := a.tasks.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return a.toApplicationTasks(ctx, models)
}

func (a *taskStoreAdapter) ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]application.Task, error) {
	models, err := a.tasks.ListTasksBySupervisorRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return a.toApplicationTasks(ctx, models)
}

func (a *taskStoreAdapter) DeleteTask(ctx context.Context, id string) error {
	return a.tasks.DeleteTask(ctx, id)
}

func (a *taskStoreAdapter) toApplicationTasks(ctx context.Context, models []persistence.Task) ([]application.Task, error) {
	if len(models) == 0 {
		return nil, nil
	}
	tasks := make([]application.Task, 0, len(models))
	for _, model := range models {
		task, err := a.toApplicationTask(ctx, model)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (a *taskStoreAdapter) toApplicationTask(ctx context.Context, model persistence.Task) (application.Task, error) {
	var supervisorName *string
	if model.SupervisorRoleID != nil {
		role, err := a.roles.GetRole(ctx, *model.SupervisorRoleID)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return application.Task{}, err
		}
		if err == nil {
			supervisorName = &role.Name
		}
	}

	return application.Task{
		ID:                 model.ID,
		Name:               model.Name,
		Abbreviation:       model.Abbreviation,
		Category:           model.Category,
		ParticipantsLimit:  model.ParticipantsLimit,
		Permanent:          model.Permanent,
		WholePeriod:        model.WholePeriod,
		DaysOfWeek:         model.DaysOfWeek,
		AllowedRoleIDs:     model.AllowedRoleIDs,
		SupervisorRoleID:   model.SupervisorRoleID,
		SupervisorRoleName: supervisorName,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}, nil
}

func toPersistenceTask(task application.Task) persistence.Task {
	return persistence.Task{
		ID:                task.ID,
		Name:              task.Name,
		Abbreviation:      task.Abbreviation,
		Category:          task.Category,
		ParticipantsLimit: task.ParticipantsLimit,
		Permanent:         task.Permanent,
		WholePeriod:       task.WholePeriod,
		DaysOfWeek:        task.DaysOfWeek,
		AllowedRoleIDs:    task.AllowedRoleIDs,
		SupervisorRoleID:  task.SupervisorRoleID,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
}

// assignmentStoreAdapter bridges assignment persistence to the SQLite repository.
type assignmentStoreAdapter struct {
	assignments persistence.AssignmentRepository
}

func newAssignmentStoreAdapter(assignments persistence.AssignmentRepository) *assignmentStoreAdapter {
	return &assignmentStoreAdapter{assignments: assignments}
}

func (a *assignmentStoreAdapter) CreateAssignment(ctx context.Context, assignment application.Assignment) error {
	return a.assignments.CreateAssignment(ctx, toPersistenceAssignment(assignment))
}

func (a *assignmentStoreAdapter) CreateAssignments(ctx context.Context, assignments []application.Assignment) error {
	models := make([]persistence.Assignment, 0, len(assignments))
	for _, assignment := range assignments {
		models = append(models, toPersistenceAssignment(assignment))
	}
	return a.assignments.CreateAssignments(ctx, models)
}

func (a *assignmentStoreAdapter) UpdateAssignment(ctx context.Context, assignment application.Assignment) error {
	return a.assignments.UpdateAssignment(ctx, toPersistenceAssignment(assignment))
}

func (a *assignmentStoreAdapter) GetAssignment(ctx context.Context, id string) (application.Assignment, error) {
	stored, err := a.assignments.GetAssignment(ctx, id)
	if err != nil {
		return application.Assignment{}, err
	}
	return toApplicationAssignment(stored), nil
}

func (a *assignmentStoreAdapter) ListAssignments(ctx context.Context, filter application.AssignmentFilter) ([]application.Assignment, error) {
	models, err := a.assignments.ListAssignments(ctx, persistence.AssignmentFilter{
		UserID: filter.UserID,
		TaskID: filter.TaskID,
		Date:   filter.Date,
		From:   filter.From,
		To:     filter.To,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	assignments := make([]application.Assignment, 0, len(models))
	for _, model := range models {
		assignments = append(assignments, toApplicationAssignment(model))
	}
	return assignments, nil
}

func (a *assignmentStoreAdapter) CountAssignments(ctx context.Context, userID, taskID string, from, to time.Time) (int, error) {
	return a.assignments.CountAssignments(ctx, userID, taskID, from, to)
}

func (a *assignmentStoreAdapter) LatestAssignmentDate(ctx context.Context, userID, taskID string, upTo time.Time) (*time.Time, error) {
	return a.assignments.LatestAssignmentDate(ctx, userID, taskID, upTo)
}

func (a *assignmentStoreAdapter) DeleteAssignment(ctx context.Context, id string) error {
	return a.assignments.DeleteAssignment(ctx, id)
}

func (a *assignmentStoreAdapter) DeleteAssignmentsByTask(ctx context.Context, taskID string) error {
	return a.assignments.DeleteAssignmentsByTask(ctx, taskID)
}

func toApplicationAssignment(model persistence.Assignment) application.Assignment {
	return application.Assignment{
		ID:        model.ID,
		UserID:    model.UserID,
		TaskID:    model.TaskID,
		Date:      model.Date,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceAssignment(assignment application.Assignment) persistence.Assignment {
	return persistence.Assignment{
		ID:        assignment.ID,
		UserID:    assignment.UserID,
		TaskID:    assignment.TaskID,
		Date:      assignment.Date,
		CreatedAt: assignment.CreatedAt,
	}
}

// obstacleStoreAdapter bridges leave request persistence to the SQLite repository.
type obstacleStoreAdapter struct {
	obstacles persistence.ObstacleRepository
}

func newObstacleStoreAdapter(obstacles persistence.ObstacleRepository) *obstacleStoreAdapter {
	return &obstacleStoreAdapter{obstacles: obstacles}
}

func (a *obstacleStoreAdapter) CreateObstacle(ctx context.Context, obstacle application.Obstacle) error {
	return a.obstacles.CreateObstacle(ctx, toPersistenceObstacle(obstacle))
}

func (a *obstacleStoreAdapter) GetObstacle(ctx context.Context, id string) (application.Obstacle, error) {
	stored, err := a.obstacles.GetObstacle(ctx, id)
	if err != nil {
		return application.Obstacle{}, err
	}
	return toApplicationObstacle(stored), nil
}

func (a *obstacleStoreAdapter) UpdateObstacle(ctx context.Context, obstacle application.Obstacle) error {
	return a.obstacles.UpdateObstacle(ctx, toPersistenceObstacle(obstacle))
}

func (a *obstacleStoreAdapter) ApproveObstacle(ctx context.Context, obstacle application.Obstacle) error {
	return a.obstacles.ApproveObstacle(ctx, toPersistenceObstacle(obstacle))
}

func (a *obstacleStoreAdapter) ListObstacles(ctx context.Context, filter application.ObstacleFilter) ([]application.Obstacle, error) {
	models, err := a.obstacles.ListObstacles(ctx, persistence.ObstacleFilter{
		UserID: filter.UserID,
		TaskID: filter.TaskID,
		Status: filter.Status,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	obstacles := make([]application.Obstacle, 0, len(models))
	for _, model := range models {
		obstacles = append(obstacles, toApplicationObstacle(model))
	}
	return obstacles, nil
}

func (a *obstacleStoreAdapter) CountObstaclesByStatus(ctx context.Context, status string) (int, error) {
	return a.obstacles.CountObstaclesByStatus(ctx, status)
}

func (a *obstacleStoreAdapter) DeleteObstacle(ctx context.Context, id string) error {
	return a.obstacles.DeleteObstacle(ctx, id)
}

func toApplicationObstacle(model persistence.Obstacle) application.Obstacle {
	return application.Obstacle{
		ID:                   model.ID,
		UserID:               model.UserID,
		TaskIDs:              model.TaskIDs,
		FromDate:             model.FromDate,
		ToDate:               model.ToDate,
		Status:               model.Status,
		ApplicantDescription: model.ApplicantDescription,
		RecipientUserID:      model.RecipientUserID,
		RecipientAnswer:      model.RecipientAnswer,
		CreatedAt:            model.CreatedAt,
		UpdatedAt:            model.UpdatedAt,
	}
}

func toPersistenceObstacle(obstacle application.Obstacle) persistence.Obstacle {
	return persistence.Obstacle{
		ID:                   obstacle.ID,
		UserID:               obstacle.UserID,
		TaskIDs:              obstacle.TaskIDs,
		FromDate:             obstacle.FromDate,
		ToDate:               obstacle.ToDate,
		Status:               obstacle.Status,
		ApplicantDescription: obstacle.ApplicantDescription,
		RecipientUserID:      obstacle.RecipientUserID,
		RecipientAnswer:      obstacle.RecipientAnswer,
		CreatedAt:            obstacle.CreatedAt,
		UpdatedAt:            obstacle.UpdatedAt,
	}
}

// conflictStoreAdapter bridges conflict pair persistence to the SQLite repository.
type conflictStoreAdapter struct {
	conflicts persistence.ConflictRepository
}

func newConflictStoreAdapter(conflicts persistence.ConflictRepository) *conflictStoreAdapter {
	return &conflictStoreAdapter{conflicts: conflicts}
}

func (a *conflictStoreAdapter) CreateConflict(ctx context.Context, pair application.Conflict) error {
	return a.conflicts.CreateConflict(ctx, toPersistenceConflict(pair))
}

func (a *conflictStoreAdapter) UpdateConflict(ctx context.Context, pair application.Conflict) error {
	return a.conflicts.UpdateConflict(ctx, toPersistenceConflict(pair))
}

func (a *conflictStoreAdapter) GetConflict(ctx context.Context, id string) (application.Conflict, error) {
	stored, err := a.conflicts.GetConflict(ctx, id)
	if err != nil {
		return application.Conflict{}, err
	}
	return toApplicationConflict(stored), nil
}

func (a *conflictStoreAdapter) ListConflicts(ctx context.Context) ([]application.Conflict, error) {
	models, err := a.conflicts.ListConflicts(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	conflicts := make([]application.Conflict, 0, len(models))
	for _, model := range models {
		conflicts = append(conflicts, toApplicationConflict(model))
	}
	return conflicts, nil
}

func (a *conflictStoreAdapter) ConflictExists(ctx context.Context, taskAID, taskBID string) (bool, error) {
	return a.conflicts.ConflictExists(ctx, taskAID, taskBID)
}

func (a *conflictStoreAdapter) DeleteConflict(ctx context.Context, id string) error {
	return a.conflicts.DeleteConflict(ctx, id)
}

func toApplicationConflict(model persistence.ConflictPair) application.Conflict {
	return application.Conflict{
		ID:        model.ID,
		TaskAID:   model.TaskAID,
		TaskBID:   model.TaskBID,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceConflict(pair application.Conflict) persistence.ConflictPair {
	return persistence.ConflictPair{
		ID:        pair.ID,
		TaskAID:   pair.TaskAID,
		TaskBID:   pair.TaskBID,
		CreatedAt: pair.CreatedAt,
	}
}

// sessionStoreAdapter bridges session persistence to the SQLite repository.
type sessionStoreAdapter struct {
	sessions persistence.SessionRepository
}

func newSessionStoreAdapter(sessions persistence.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{sessions: sessions}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.sessions.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.sessions.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.sessions.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) RevokeSessionsForUser(ctx context.Context, userID string, revokedAt time.Time) error {
	return a.sessions.RevokeSessionsForUser(ctx, userID, revokedAt)
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.sessions.DeleteExpiredSessions(ctx, reference)
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: model.RevokedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: session.RevokedAt,
	}
}
