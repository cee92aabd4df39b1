package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/scheduler"
)

// AssignmentRepository captures the persistence interactions needed by the schedule service.
type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment Assignment) error
	// CreateAssignments persists the whole batch atomically.
	CreateAssignments(ctx context.Context, assignments []Assignment) error
	UpdateAssignment(ctx context.Context, assignment Assignment) error
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error)
	CountAssignments(ctx context.Context, userID, taskID string, from, to time.Time) (int, error)
	LatestAssignmentDate(ctx context.Context, userID, taskID string, upTo time.Time) (*time.Time, error)
	DeleteAssignment(ctx context.Context, id string) error
	DeleteAssignmentsByTask(ctx context.Context, taskID string) error
}

// TaskCatalog exposes task lookup operations.
type TaskCatalog interface {
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]Task, error)
}

// UserDirectory exposes user lookup operations.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// ConflictChecker answers the symmetric task exclusion question.
type ConflictChecker interface {
	TasksAreInConflict(ctx context.Context, taskAID, taskBID string) (bool, error)
}

// ObstacleLedger answers the approved-leave coverage question the pipeline
// asks. Single-day and whole-period validation both key off one date; range
// overlap queries stay on the ObstacleService itself.
type ObstacleLedger interface {
	HasApprovedObstacle(ctx context.Context, userID, taskID string, date time.Time) (bool, error)
}

// RoleDirectory resolves roles by name for the supervisor filter.
type RoleDirectory interface {
	GetRoleByName(ctx context.Context, name string) (Role, error)
}

// ScheduleService runs the assignment validation pipeline and the
// availability and dependency queries built on top of it.
type ScheduleService struct {
	assignments AssignmentRepository
	tasks       TaskCatalog
	users       UserDirectory
	conflicts   ConflictChecker
	obstacles   ObstacleLedger
	roles       RoleDirectory
	idGenerator func() string
	now         func() time.Time
	slotLocks   *keyedMutex
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for scheduling operations.
func NewScheduleService(assignments AssignmentRepository, tasks TaskCatalog, users UserDirectory, conflicts ConflictChecker, obstacles ObstacleLedger, roles RoleDirectory, idGenerator func() string, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(assignments, tasks, users, conflicts, obstacles, roles, idGenerator, now, nil)
}

// NewScheduleServiceWithLogger constructs a ScheduleService with a specified logger.
func NewScheduleServiceWithLogger(assignments AssignmentRepository, tasks TaskCatalog, users UserDirectory, conflicts ConflictChecker, obstacles ObstacleLedger, roles RoleDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		assignments: assignments,
		tasks:       tasks,
		users:       users,
		conflicts:   conflicts,
		obstacles:   obstacles,
		roles:       roles,
		idGenerator: idGenerator,
		now:         now,
		slotLocks:   newKeyedMutex(),
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

func slotKey(userID string, date time.Time) string {
	return userID + "|" + date.Format("2006-01-02")
}

// CreateAssignment validates a candidate binding through the fixed check
// order and persists it. The check-then-insert sequence holds a per
// (user, date) lock so concurrent creations cannot slip mutually
// conflicting assignments past each other.
func (s *ScheduleService) CreateAssignment(ctx context.Context, params CreateAssignmentParams) (created Assignment, err error) {
	if s == nil {
		return Assignment{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.assignments == nil {
		return Assignment{}, fmt.Errorf("assignment repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateAssignment",
		"user_id", input.UserID,
		"task_id", input.TaskID,
		"ignore_conflicts", input.IgnoreConflicts,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "assignment creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_id", created.ID).InfoContext(ctx, "assignment created")
	}()

	if vErr := validateAssignmentInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	date := scheduler.NormalizeDate(input.Date)

	unlock := s.slotLocks.Lock(slotKey(input.UserID, date))
	defer unlock()

	if err = s.validateCandidate(ctx, input.UserID, input.TaskID, date, input.IgnoreConflicts, ""); err != nil {
		return
	}

	assignment := Assignment{
		ID:        s.idGenerator(),
		UserID:    input.UserID,
		TaskID:    input.TaskID,
		Date:      date,
		CreatedAt: s.now(),
	}

	if err = mapAssignmentRepoError(s.assignments.CreateAssignment(ctx, assignment)); err != nil {
		return
	}

	created = assignment
	return
}

// UpdateAssignment moves an existing assignment to a new (user, task, date)
// binding, re-running the full validation pipeline against it.
func (s *ScheduleService) UpdateAssignment(ctx context.Context, params UpdateAssignmentParams) (updated Assignment, err error) {
	if s == nil {
		return Assignment{}, fmt.Errorf("ScheduleService is nil")
	}
	if s.assignments == nil {
		return Assignment{}, fmt.Errorf("assignment repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateAssignment", "assignment_id", params.AssignmentID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "assignment update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "assignment updated")
	}()

	var existing Assignment
	existing, err = s.assignments.GetAssignment(ctx, params.AssignmentID)
	if err != nil {
		err = mapAssignmentRepoError(err)
		return
	}

	input := params.Input
	if input.UserID == "" {
		input.UserID = existing.UserID
	}
	if input.TaskID == "" {
		input.TaskID = existing.TaskID
	}
	if input.Date.IsZero() {
		input.Date = existing.Date
	}
	date := scheduler.NormalizeDate(input.Date)

	unlock := s.slotLocks.Lock(slotKey(input.UserID, date))
	defer unlock()

	if err = s.validateCandidate(ctx, input.UserID, input.TaskID, date, input.IgnoreConflicts, existing.ID); err != nil {
		return
	}

	assignment := existing
	assignment.UserID = input.UserID
	assignment.TaskID = input.TaskID
	assignment.Date = date

	if err = mapAssignmentRepoError(s.assignments.UpdateAssignment(ctx, assignment)); err != nil {
		return
	}

	updated = assignment
	return
}

// CreateForWholePeriod binds a user to a task for every day of one
// Monday-to-Sunday week. Validation runs once against the aggregate window
// and all seven rows commit atomically.
func (s *ScheduleService) CreateForWholePeriod(ctx context.Context, params CreateWholePeriodParams) (created []Assignment, err error) {
	if s == nil {
		return nil, fmt.Errorf("ScheduleService is nil")
	}
	if s.assignments == nil {
		return nil, fmt.Errorf("assignment repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "CreateForWholePeriod",
		"user_id", input.UserID,
		"task_id", input.TaskID,
		"ignore_conflicts", input.IgnoreConflicts,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "whole-period creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("assignment_count", len(created)).InfoContext(ctx, "whole period scheduled")
	}()

	vErr := &ValidationError{}
	if input.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if input.TaskID == "" {
		vErr.add("task_id", "task is required")
	}
	if input.From.IsZero() || input.To.IsZero() {
		vErr.add("period", "from and to dates are required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	from := scheduler.NormalizeDate(input.From)
	to := scheduler.NormalizeDate(input.To)
	if !scheduler.IsFullWeek(from, to) {
		vErr.add("period", "period must run Monday through the following Sunday")
		err = vErr
		return
	}

	// Lock every day slot of the week in date order so concurrent single-day
	// creations for this user serialize against the block.
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		unlock := s.slotLocks.Lock(slotKey(input.UserID, day))
		defer unlock()
	}

	var task Task
	task, err = s.tasks.GetTask(ctx, input.TaskID)
	if err != nil {
		err = mapAssignmentRepoError(err)
		return
	}
	var user User
	user, err = s.users.GetUser(ctx, input.UserID)
	if err != nil {
		err = mapAssignmentRepoError(err)
		return
	}

	if !stringsIntersect(user.RoleIDs, task.AllowedRoleIDs) {
		err = ErrRoleRequirements
		return
	}

	if s.obstacles != nil {
		var covered bool
		covered, err = s.obstacles.HasApprovedObstacle(ctx, user.ID, task.ID, from)
		if err != nil {
			return
		}
		if covered {
			err = ErrObstaclePresent
			return
		}
	}

	var existing []Assignment
	existing, err = s.assignments.ListAssignments(ctx, AssignmentFilter{UserID: user.ID, From: &from, To: &to})
	if err != nil {
		return
	}

	scheduledTasks := make([]string, 0, len(existing))
	for _, assignment := range existing {
		if assignment.TaskID == task.ID {
			err = ErrAlreadyExists
			return
		}
		scheduledTasks = append(scheduledTasks, assignment.TaskID)
	}

	if !input.IgnoreConflicts && s.conflicts != nil {
		for _, scheduledTask := range uniqueStrings(scheduledTasks) {
			var conflicting bool
			conflicting, err = s.conflicts.TasksAreInConflict(ctx, scheduledTask, task.ID)
			if err != nil {
				return
			}
			if conflicting {
				err = ErrScheduleConflict
				return
			}
		}
	}

	createdAt := s.now()
	batch := make([]Assignment, 0, 7)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		batch = append(batch, Assignment{
			ID:        s.idGenerator(),
			UserID:    user.ID,
			TaskID:    task.ID,
			Date:      day,
			CreatedAt: createdAt,
		})
	}

	if err = mapAssignmentRepoError(s.assignments.CreateAssignments(ctx, batch)); err != nil {
		return
	}

	created = batch
	return
}

// GetAssignment retrieves an assignment by id.
func (s *ScheduleService) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	if s == nil || s.assignments == nil {
		return Assignment{}, fmt.Errorf("assignment repository not configured")
	}
	assignment, err := s.assignments.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, mapAssignmentRepoError(err)
	}
	return assignment, nil
}

// ListAssignments returns assignments matching the filter in date order.
func (s *ScheduleService) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	if s == nil || s.assignments == nil {
		return nil, fmt.Errorf("assignment repository not configured")
	}
	assignments, err := s.assignments.ListAssignments(ctx, normalizeAssignmentFilter(filter))
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}
	return assignments, nil
}

// ListCurrentAssignments returns assignments dated today or later.
func (s *ScheduleService) ListCurrentAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	today := scheduler.NormalizeDate(s.now())
	filter.From = &today
	return s.ListAssignments(ctx, filter)
}

// DeleteAssignment removes one assignment by id.
func (s *ScheduleService) DeleteAssignment(ctx context.Context, id string) error {
	if s == nil || s.assignments == nil {
		return fmt.Errorf("assignment repository not configured")
	}
	return mapAssignmentRepoError(s.assignments.DeleteAssignment(ctx, id))
}

// DeleteAssignmentsByTask removes every assignment of the task.
func (s *ScheduleService) DeleteAssignmentsByTask(ctx context.Context, taskID string) error {
	if s == nil || s.assignments == nil {
		return fmt.Errorf("assignment repository not configured")
	}
	return mapAssignmentRepoError(s.assignments.DeleteAssignmentsByTask(ctx, taskID))
}

// AvailableTasks returns the tasks whose occupancy within the window is
// below their weekly capacity of participantsLimit times the weekday count.
func (s *ScheduleService) AvailableTasks(ctx context.Context, params AvailableTasksParams) ([]Task, error) {
	if s == nil || s.assignments == nil || s.tasks == nil {
		return nil, fmt.Errorf("schedule service not configured")
	}

	from := scheduler.NormalizeDate(params.From)
	to := scheduler.NormalizeDate(params.To)
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	var (
		tasks []Task
		err   error
	)
	if params.SupervisorRoleName != "" {
		if s.roles == nil {
			return nil, fmt.Errorf("role directory not configured")
		}
		var role Role
		role, err = s.roles.GetRoleByName(ctx, params.SupervisorRoleName)
		if err != nil {
			return nil, mapAssignmentRepoError(err)
		}
		if role.Type != RoleTypeSupervisor {
			return nil, ErrNotFound
		}
		tasks, err = s.tasks.ListTasksBySupervisorRole(ctx, role.ID)
	} else {
		tasks, err = s.tasks.ListTasks(ctx)
	}
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	// One window query; occupancy is grouped by task in memory.
	occupied, err := s.assignments.ListAssignments(ctx, AssignmentFilter{From: &from, To: &to})
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}
	occurrences := make(map[string]int, len(occupied))
	for _, assignment := range occupied {
		occurrences[assignment.TaskID]++
	}

	available := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		required := task.ParticipantsLimit * len(task.DaysOfWeek)
		if occurrences[task.ID] < required {
			available = append(available, task)
		}
	}
	return available, nil
}

// UserDependenciesForTask aggregates the decision-support facts for
// assigning one user to one task over the window.
func (s *ScheduleService) UserDependenciesForTask(ctx context.Context, params UserDependenciesParams) (UserDependencies, error) {
	if s == nil || s.assignments == nil || s.tasks == nil {
		return UserDependencies{}, fmt.Errorf("schedule service not configured")
	}

	task, err := s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		return UserDependencies{}, mapAssignmentRepoError(err)
	}

	from := scheduler.NormalizeDate(params.From)
	to := scheduler.NormalizeDate(params.To)
	if from.After(to) {
		return UserDependencies{}, ErrInvalidDateRange
	}

	catalog, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return UserDependencies{}, mapAssignmentRepoError(err)
	}

	return s.dependenciesForUser(ctx, task, catalog, params.UserID, from, to)
}

// AllUserDependenciesForTask computes the dependency aggregate for every
// user in the directory, ordered by user id. Eligibility is not filtered
// here; the aggregate is decision support and ineligible users simply fail
// the role check at assignment time.
func (s *ScheduleService) AllUserDependenciesForTask(ctx context.Context, params AllUserDependenciesParams) ([]UserDependencies, error) {
	if s == nil || s.assignments == nil || s.tasks == nil || s.users == nil {
		return nil, fmt.Errorf("schedule service not configured")
	}

	task, err := s.tasks.GetTask(ctx, params.TaskID)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	from := scheduler.NormalizeDate(params.From)
	to := scheduler.NormalizeDate(params.To)
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}
	catalog, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return nil, mapAssignmentRepoError(err)
	}

	results := make([]UserDependencies, 0, len(users))
	for _, user := range users {
		deps, err := s.dependenciesForUser(ctx, task, catalog, user.ID, from, to)
		if err != nil {
			return nil, err
		}
		results = append(results, deps)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].UserID < results[j].UserID })
	return results, nil
}

func (s *ScheduleService) dependenciesForUser(ctx context.Context, task Task, catalog []Task, userID string, from, to time.Time) (UserDependencies, error) {
	deps := UserDependencies{UserID: userID}

	// Completions over the 365 days strictly before the window start.
	historyFrom := from.AddDate(0, 0, -365)
	historyTo := from.AddDate(0, 0, -1)
	count, err := s.assignments.CountAssignments(ctx, userID, task.ID, historyFrom, historyTo)
	if err != nil {
		return UserDependencies{}, mapAssignmentRepoError(err)
	}
	deps.CompletionCount = count

	latest, err := s.assignments.LatestAssignmentDate(ctx, userID, task.ID, from)
	if err != nil {
		return UserDependencies{}, mapAssignmentRepoError(err)
	}
	deps.LastAssignedDate = latest

	window, err := s.assignments.ListAssignments(ctx, AssignmentFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return UserDependencies{}, mapAssignmentRepoError(err)
	}

	summaryTasks := make(map[string]scheduler.SummaryTask, len(catalog))
	for _, entry := range catalog {
		summaryTasks[entry.ID] = scheduler.SummaryTask{
			ID:                entry.ID,
			Name:              entry.Name,
			WeeklyOccurrences: len(entry.DaysOfWeek),
		}
	}

	others := make([]scheduler.SummaryAssignment, 0, len(window))
	for _, assignment := range window {
		if assignment.TaskID == task.ID {
			continue
		}
		others = append(others, scheduler.SummaryAssignment{TaskID: assignment.TaskID, Date: assignment.Date})
		if !deps.HasConflict && s.conflicts != nil {
			conflicting, err := s.conflicts.TasksAreInConflict(ctx, assignment.TaskID, task.ID)
			if err != nil {
				return UserDependencies{}, err
			}
			deps.HasConflict = conflicting
		}
	}
	deps.Summaries = scheduler.BuildAssignmentSummaries(summaryTasks, others)

	if s.obstacles != nil {
		covered, err := s.obstacles.HasApprovedObstacle(ctx, userID, task.ID, from)
		if err != nil {
			return UserDependencies{}, err
		}
		deps.HasObstacle = covered
	}

	return deps, nil
}

// validateCandidate runs the fixed four-step pipeline. The first failing
// check wins; ignoreConflicts bypasses only the final conflict step.
func (s *ScheduleService) validateCandidate(ctx context.Context, userID, taskID string, date time.Time, ignoreConflicts bool, excludeAssignmentID string) error {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return mapAssignmentRepoError(err)
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return mapAssignmentRepoError(err)
	}

	// Step 1: weekday membership.
	if !slices.Contains(task.DaysOfWeek, date.Weekday()) {
		vErr := &ValidationError{}
		vErr.add("date", "day of week mismatch")
		return vErr
	}

	// Step 2: role eligibility.
	if !stringsIntersect(user.RoleIDs, task.AllowedRoleIDs) {
		return ErrRoleRequirements
	}

	// Step 3: obstacle exclusion.
	if s.obstacles != nil {
		covered, err := s.obstacles.HasApprovedObstacle(ctx, user.ID, task.ID, date)
		if err != nil {
			return err
		}
		if covered {
			return ErrObstaclePresent
		}
	}

	// Step 4: conflict exclusion against the user's same-day assignments.
	existing, err := s.assignments.ListAssignments(ctx, AssignmentFilter{UserID: user.ID, Date: &date})
	if err != nil {
		return mapAssignmentRepoError(err)
	}
	for _, assignment := range existing {
		if assignment.ID == excludeAssignmentID {
			continue
		}
		if assignment.TaskID == task.ID {
			return ErrAlreadyExists
		}
	}
	if ignoreConflicts || s.conflicts == nil {
		return nil
	}
	for _, assignment := range existing {
		if assignment.ID == excludeAssignmentID {
			continue
		}
		conflicting, err := s.conflicts.TasksAreInConflict(ctx, assignment.TaskID, task.ID)
		if err != nil {
			return err
		}
		if conflicting {
			return ErrScheduleConflict
		}
	}
	return nil
}

func validateAssignmentInput(input AssignmentInput) *ValidationError {
	vErr := &ValidationError{}
	if input.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	if input.TaskID == "" {
		vErr.add("task_id", "task is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	return vErr
}

func normalizeAssignmentFilter(filter AssignmentFilter) AssignmentFilter {
	if filter.Date != nil {
		normalized := scheduler.NormalizeDate(*filter.Date)
		filter.Date = &normalized
	}
	if filter.From != nil {
		normalized := scheduler.NormalizeDate(*filter.From)
		filter.From = &normalized
	}
	if filter.To != nil {
		normalized := scheduler.NormalizeDate(*filter.To)
		filter.To = &normalized
	}
	return filter
}

func mapAssignmentRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
