package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/scheduler"
)

// TaskRepository captures the persistence interactions needed by the task service.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) error
	UpdateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskService orchestrates validation and persistence for the task catalog.
type TaskService struct {
	tasks       TaskRepository
	roles       RoleDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTaskService wires dependencies for task catalog operations.
func NewTaskService(tasks TaskRepository, roles RoleDirectory, idGenerator func() string, now func() time.Time) *TaskService {
	return NewTaskServiceWithLogger(tasks, roles, idGenerator, now, nil)
}

// NewTaskServiceWithLogger constructs a TaskService with a specified logger.
func NewTaskServiceWithLogger(tasks TaskRepository, roles RoleDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TaskService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TaskService{
		tasks:       tasks,
		roles:       roles,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

// CreateTask validates input, resolves role names, and persists a new task.
func (s *TaskService) CreateTask(ctx context.Context, params CreateTaskParams) (created Task, err error) {
	if s == nil {
		return Task{}, fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return Task{}, fmt.Errorf("task repository not configured")
	}

	logger := s.loggerWith(ctx, "CreateTask", "task_name", params.Input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "task creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("task_id", created.ID).InfoContext(ctx, "task created")
	}()

	if !params.Principal.IsAdmin() && !params.Principal.IsFunctionary() {
		err = ErrForbidden
		return
	}

	var task Task
	task, err = s.buildTask(ctx, params.Input)
	if err != nil {
		return
	}

	task.ID = s.idGenerator()
	task.CreatedAt = s.now()
	task.UpdatedAt = task.CreatedAt

	if err = mapTaskRepoError(s.tasks.CreateTask(ctx, task)); err != nil {
		return
	}

	created = task
	return
}

// UpdateTask validates input and rewrites an existing task.
func (s *TaskService) UpdateTask(ctx context.Context, params UpdateTaskParams) (updated Task, err error) {
	if s == nil {
		return Task{}, fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return Task{}, fmt.Errorf("task repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateTask", "task_id", params.TaskID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "task update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task updated")
	}()

	if !params.Principal.IsAdmin() && !params.Principal.IsFunctionary() {
		err = ErrForbidden
		return
	}

	var existing Task
	existing, err = s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		err = mapTaskRepoError(err)
		return
	}

	var task Task
	task, err = s.buildTask(ctx, params.Input)
	if err != nil {
		return
	}

	task.ID = existing.ID
	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = s.now()

	if err = mapTaskRepoError(s.tasks.UpdateTask(ctx, task)); err != nil {
		return
	}

	updated = task
	return
}

// GetTask retrieves a task by id.
func (s *TaskService) GetTask(ctx context.Context, id string) (Task, error) {
	if s == nil || s.tasks == nil {
		return Task{}, fmt.Errorf("task repository not configured")
	}
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return Task{}, mapTaskRepoError(err)
	}
	return task, nil
}

// ListTasks returns the whole task catalog.
func (s *TaskService) ListTasks(ctx context.Context) ([]Task, error) {
	if s == nil || s.tasks == nil {
		return nil, fmt.Errorf("task repository not configured")
	}
	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, mapTaskRepoError(err)
	}
	return tasks, nil
}

// DeleteTask removes a task. Dependent assignments, conflict pairs, and
// obstacle bindings go with it.
func (s *TaskService) DeleteTask(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("TaskService is nil")
	}
	if s.tasks == nil {
		return fmt.Errorf("task repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteTask", "task_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "task deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "task deleted")
	}()

	if !principal.IsAdmin() && !principal.IsFunctionary() {
		return ErrForbidden
	}

	return mapTaskRepoError(s.tasks.DeleteTask(ctx, id))
}

// MissingTaskIDs reports which of the given ids reference no catalog entry.
func (s *TaskService) MissingTaskIDs(ctx context.Context, ids []string) ([]string, error) {
	if s == nil || s.tasks == nil {
		return nil, fmt.Errorf("task repository not configured")
	}
	var missing []string
	for _, id := range uniqueStrings(ids) {
		_, err := s.tasks.GetTask(ctx, id)
		if err == nil {
			continue
		}
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		return nil, err
	}
	return missing, nil
}

func (s *TaskService) buildTask(ctx context.Context, input TaskInput) (Task, error) {
	vErr := &ValidationError{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	if input.ParticipantsLimit < 1 {
		vErr.add("participants_limit", "participants limit must be positive")
	}
	days := scheduler.SortWeekdays(uniqueWeekdays(input.DaysOfWeek))
	if len(days) == 0 {
		vErr.add("days_of_week", "at least one weekday is required")
	}
	allowedNames := uniqueStrings(input.AllowedRoleNames)
	if len(allowedNames) == 0 {
		vErr.add("allowed_roles", "at least one allowed role is required")
	}
	if vErr.HasErrors() {
		return Task{}, vErr
	}

	allowedIDs := make([]string, 0, len(allowedNames))
	for _, roleName := range allowedNames {
		role, err := s.lookupRole(ctx, roleName)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				vErr.add("allowed_roles", fmt.Sprintf("unknown role: %s", roleName))
				return Task{}, vErr
			}
			return Task{}, err
		}
		allowedIDs = append(allowedIDs, role.ID)
	}

	var supervisorID, supervisorName *string
	if input.SupervisorRoleName != nil && strings.TrimSpace(*input.SupervisorRoleName) != "" {
		role, err := s.lookupRole(ctx, strings.TrimSpace(*input.SupervisorRoleName))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				vErr.add("supervisor_role", "unknown supervisor role")
				return Task{}, vErr
			}
			return Task{}, err
		}
		if role.Type != RoleTypeSupervisor {
			vErr.add("supervisor_role", "role is not a supervisor role")
			return Task{}, vErr
		}
		supervisorID = &role.ID
		supervisorName = &role.Name
	}

	return Task{
		Name:               name,
		Abbreviation:       strings.TrimSpace(input.Abbreviation),
		Category:           strings.TrimSpace(input.Category),
		ParticipantsLimit:  input.ParticipantsLimit,
		Permanent:          input.Permanent,
		WholePeriod:        input.WholePeriod,
		DaysOfWeek:         days,
		AllowedRoleIDs:     sortStrings(allowedIDs),
		SupervisorRoleID:   supervisorID,
		SupervisorRoleName: supervisorName,
	}, nil
}

func (s *TaskService) lookupRole(ctx context.Context, name string) (Role, error) {
	if s.roles == nil {
		return Role{}, fmt.Errorf("role directory not configured")
	}
	role, err := s.roles.GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func mapTaskRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("participants_limit", "participants limit must be positive")
		return vErr
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
