package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type assignmentRepoStub struct {
	assignments []Assignment
	created     []Assignment
	batch       []Assignment
	updated     Assignment
	deletedID   string
	deletedTask string
	count       int
	latest      *time.Time
	listCalls   int
	err         error
}

func (a *assignmentRepoStub) CreateAssignment(ctx context.Context, assignment Assignment) error {
	if a.err != nil {
		return a.err
	}
	a.created = append(a.created, assignment)
	return nil
}

func (a *assignmentRepoStub) CreateAssignments(ctx context.Context, assignments []Assignment) error {
	if a.err != nil {
		return a.err
	}
	a.batch = assignments
	return nil
}

func (a *assignmentRepoStub) UpdateAssignment(ctx context.Context, assignment Assignment) error {
	if a.err != nil {
		return a.err
	}
	a.updated = assignment
	return nil
}

func (a *assignmentRepoStub) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	if a.err != nil {
		return Assignment{}, a.err
	}
	for _, assignment := range a.assignments {
		if assignment.ID == id {
			return assignment, nil
		}
	}
	return Assignment{}, ErrNotFound
}

func (a *assignmentRepoStub) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]Assignment, error) {
	a.listCalls++
	if a.err != nil {
		return nil, a.err
	}
	out := make([]Assignment, 0, len(a.assignments))
	for _, assignment := range a.assignments {
		if filter.UserID != "" && assignment.UserID != filter.UserID {
			continue
		}
		if filter.TaskID != "" && assignment.TaskID != filter.TaskID {
			continue
		}
		if filter.Date != nil && !assignment.Date.Equal(*filter.Date) {
			continue
		}
		if filter.From != nil && assignment.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && assignment.Date.After(*filter.To) {
			continue
		}
		out = append(out, assignment)
	}
	return out, nil
}

func (a *assignmentRepoStub) CountAssignments(ctx context.Context, userID, taskID string, from, to time.Time) (int, error) {
	if a.err != nil {
		return 0, a.err
	}
	return a.count, nil
}

func (a *assignmentRepoStub) LatestAssignmentDate(ctx context.Context, userID, taskID string, upTo time.Time) (*time.Time, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.latest, nil
}

func (a *assignmentRepoStub) DeleteAssignment(ctx context.Context, id string) error {
	if a.err != nil {
		return a.err
	}
	a.deletedID = id
	return nil
}

func (a *assignmentRepoStub) DeleteAssignmentsByTask(ctx context.Context, taskID string) error {
	if a.err != nil {
		return a.err
	}
	a.deletedTask = taskID
	return nil
}

type taskCatalogStub struct {
	tasks map[string]Task
	err   error
}

func (t *taskCatalogStub) GetTask(ctx context.Context, id string) (Task, error) {
	if t.err != nil {
		return Task{}, t.err
	}
	task, ok := t.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

func (t *taskCatalogStub) ListTasks(ctx context.Context) ([]Task, error) {
	if t.err != nil {
		return nil, t.err
	}
	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (t *taskCatalogStub) ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]Task, error) {
	if t.err != nil {
		return nil, t.err
	}
	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		if task.SupervisorRoleID != nil && *task.SupervisorRoleID == roleID {
			out = append(out, task)
		}
	}
	return out, nil
}

type userDirectoryStub struct {
	users map[string]User
	err   error
}

func (u *userDirectoryStub) GetUser(ctx context.Context, id string) (User, error) {
	if u.err != nil {
		return User{}, u.err
	}
	user, ok := u.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (u *userDirectoryStub) ListUsers(ctx context.Context) ([]User, error) {
	if u.err != nil {
		return nil, u.err
	}
	out := make([]User, 0, len(u.users))
	for _, user := range u.users {
		out = append(out, user)
	}
	return out, nil
}

type conflictCheckerStub struct {
	pairs map[[2]string]bool
	err   error
}

func (c *conflictCheckerStub) TasksAreInConflict(ctx context.Context, taskAID, taskBID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if taskBID < taskAID {
		taskAID, taskBID = taskBID, taskAID
	}
	return c.pairs[[2]string{taskAID, taskBID}], nil
}

type obstacleLedgerStub struct {
	covered bool
	err     error
}

func (o *obstacleLedgerStub) HasApprovedObstacle(ctx context.Context, userID, taskID string, date time.Time) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	return o.covered, nil
}

type roleDirectoryStub struct {
	roles map[string]Role
	err   error
}

func (r *roleDirectoryStub) GetRoleByName(ctx context.Context, name string) (Role, error) {
	if r.err != nil {
		return Role{}, r.err
	}
	role, ok := r.roles[name]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}
	return parsed
}

type scheduleFixture struct {
	assignments *assignmentRepoStub
	tasks       *taskCatalogStub
	users       *userDirectoryStub
	conflicts   *conflictCheckerStub
	obstacles   *obstacleLedgerStub
	roles       *roleDirectoryStub
}

func newScheduleFixture() *scheduleFixture {
	washing := Task{
		ID:                "task-washing",
		Name:              "Washing",
		ParticipantsLimit: 2,
		DaysOfWeek:        []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		AllowedRoleIDs:    []string{"role-user"},
	}
	drying := Task{
		ID:                "task-drying",
		Name:              "Drying",
		ParticipantsLimit: 1,
		DaysOfWeek:        []time.Weekday{time.Saturday},
		AllowedRoleIDs:    []string{"role-user"},
	}
	cooking := Task{
		ID:                "task-cooking",
		Name:              "Cooking",
		ParticipantsLimit: 1,
		Permanent:         true,
		WholePeriod:       true,
		DaysOfWeek:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday},
		AllowedRoleIDs:    []string{"role-user"},
	}
	return &scheduleFixture{
		assignments: &assignmentRepoStub{},
		tasks: &taskCatalogStub{tasks: map[string]Task{
			washing.ID: washing,
			drying.ID:  drying,
			cooking.ID: cooking,
		}},
		users: &userDirectoryStub{users: map[string]User{
			"user-1": {ID: "user-1", RoleIDs: []string{"role-user"}},
			"user-2": {ID: "user-2", RoleIDs: []string{"role-other"}},
		}},
		conflicts: &conflictCheckerStub{pairs: map[[2]string]bool{}},
		obstacles: &obstacleLedgerStub{},
		roles:     &roleDirectoryStub{roles: map[string]Role{}},
	}
}

func (f *scheduleFixture) service() *ScheduleService {
	counter := 0
	return NewScheduleService(f.assignments, f.tasks, f.users, f.conflicts, f.obstacles, f.roles,
		func() string { counter++; return "assignment-" + string(rune('0'+counter)) },
		func() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC) })
}

func TestScheduleService_CreateAssignment_RejectsWeekdayMismatch(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	// 2024-03-12 is a Tuesday; Washing runs Monday, Wednesday and Friday.
	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-12")},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["date"]; !ok {
		t.Fatalf("expected date field error, got %v", vErr.FieldErrors)
	}
	if len(fixture.assignments.created) != 0 {
		t.Fatalf("expected no persistence on validation failure")
	}
}

func TestScheduleService_CreateAssignment_RejectsRoleMiss(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-2", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	})

	if !errors.Is(err, ErrRoleRequirements) {
		t.Fatalf("expected ErrRoleRequirements, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_RejectsObstacle(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.obstacles.covered = true
	svc := fixture.service()

	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	})

	if !errors.Is(err, ErrObstaclePresent) {
		t.Fatalf("expected ErrObstaclePresent, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_WeekdayCheckPrecedesRoleCheck(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.obstacles.covered = true
	svc := fixture.service()

	// user-2 fails the role check and the date fails the weekday check; the
	// weekday failure must win.
	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-2", TaskID: "task-washing", Date: day(t, "2024-03-12")},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_RejectsConflict(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-existing", UserID: "user-1", TaskID: "task-cooking", Date: day(t, "2024-03-11")},
	}
	fixture.conflicts.pairs[[2]string{"task-cooking", "task-washing"}] = true
	svc := fixture.service()

	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	})

	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_IgnoreConflictsBypassesOnlyConflictCheck(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-existing", UserID: "user-1", TaskID: "task-cooking", Date: day(t, "2024-03-11")},
	}
	fixture.conflicts.pairs[[2]string{"task-cooking", "task-washing"}] = true
	svc := fixture.service()

	created, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11"), IgnoreConflicts: true},
	})
	if err != nil {
		t.Fatalf("expected conflicting pair to pass with override, got %v", err)
	}
	if created.TaskID != "task-washing" {
		t.Fatalf("unexpected created assignment: %+v", created)
	}

	// The override never reaches the earlier pipeline steps.
	_, err = svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-2", TaskID: "task-washing", Date: day(t, "2024-03-11"), IgnoreConflicts: true},
	})
	if !errors.Is(err, ErrRoleRequirements) {
		t.Fatalf("expected ErrRoleRequirements despite override, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_RejectsDuplicateDespiteOverride(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-existing", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	}
	svc := fixture.service()

	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11"), IgnoreConflicts: true},
	})

	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestScheduleService_CreateAssignment_UnknownTaskAndUser(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	_, err := svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-1", TaskID: "task-missing", Date: day(t, "2024-03-11")},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown task, got %v", err)
	}

	_, err = svc.CreateAssignment(context.Background(), CreateAssignmentParams{
		Input: AssignmentInput{UserID: "user-missing", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestScheduleService_UpdateAssignment_ExcludesSelfFromChecks(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-1", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	}
	svc := fixture.service()

	// Re-submitting the assignment's own binding is not a duplicate.
	updated, err := svc.UpdateAssignment(context.Background(), UpdateAssignmentParams{
		AssignmentID: "assignment-1",
		Input:        AssignmentInput{UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	})
	if err != nil {
		t.Fatalf("expected self-update to pass, got %v", err)
	}
	if updated.ID != "assignment-1" {
		t.Fatalf("expected stable assignment id, got %q", updated.ID)
	}
}

func TestScheduleService_UpdateAssignment_DefaultsMissingFields(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-1", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	}
	svc := fixture.service()

	updated, err := svc.UpdateAssignment(context.Background(), UpdateAssignmentParams{
		AssignmentID: "assignment-1",
		Input:        AssignmentInput{Date: day(t, "2024-03-15")},
	})
	if err != nil {
		t.Fatalf("expected update with defaults to pass, got %v", err)
	}
	if updated.UserID != "user-1" || updated.TaskID != "task-washing" {
		t.Fatalf("expected existing binding retained, got %+v", updated)
	}
	if !updated.Date.Equal(day(t, "2024-03-15")) {
		t.Fatalf("expected moved date, got %v", updated.Date)
	}
}

func TestScheduleService_CreateForWholePeriod_RequiresMondayToSunday(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	// Tuesday to Monday spans seven days but does not start on Monday.
	_, err := svc.CreateForWholePeriod(context.Background(), CreateWholePeriodParams{
		Input: WholePeriodInput{UserID: "user-1", TaskID: "task-cooking", From: day(t, "2024-03-12"), To: day(t, "2024-03-18")},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["period"]; !ok {
		t.Fatalf("expected period field error, got %v", vErr.FieldErrors)
	}
}

func TestScheduleService_CreateForWholePeriod_CreatesSevenRows(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	created, err := svc.CreateForWholePeriod(context.Background(), CreateWholePeriodParams{
		Input: WholePeriodInput{UserID: "user-1", TaskID: "task-cooking", From: day(t, "2024-03-11"), To: day(t, "2024-03-17")},
	})
	if err != nil {
		t.Fatalf("expected whole-period creation to pass, got %v", err)
	}
	if len(created) != 7 {
		t.Fatalf("expected 7 assignments, got %d", len(created))
	}
	if len(fixture.assignments.batch) != 7 {
		t.Fatalf("expected a single 7-row batch, got %d rows", len(fixture.assignments.batch))
	}
	for i, assignment := range created {
		want := day(t, "2024-03-11").AddDate(0, 0, i)
		if !assignment.Date.Equal(want) {
			t.Fatalf("expected date %v at index %d, got %v", want, i, assignment.Date)
		}
	}
}

func TestScheduleService_CreateForWholePeriod_RejectsExistingSameTask(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-existing", UserID: "user-1", TaskID: "task-cooking", Date: day(t, "2024-03-13")},
	}
	svc := fixture.service()

	_, err := svc.CreateForWholePeriod(context.Background(), CreateWholePeriodParams{
		Input: WholePeriodInput{UserID: "user-1", TaskID: "task-cooking", From: day(t, "2024-03-11"), To: day(t, "2024-03-17")},
	})

	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if fixture.assignments.batch != nil {
		t.Fatalf("expected no rows written on rejection")
	}
}

func TestScheduleService_CreateForWholePeriod_DetectsConflictInWindow(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-existing", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-15")},
	}
	fixture.conflicts.pairs[[2]string{"task-cooking", "task-washing"}] = true
	svc := fixture.service()

	_, err := svc.CreateForWholePeriod(context.Background(), CreateWholePeriodParams{
		Input: WholePeriodInput{UserID: "user-1", TaskID: "task-cooking", From: day(t, "2024-03-11"), To: day(t, "2024-03-17")},
	})
	if !errors.Is(err, ErrScheduleConflict) {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}

	created, err := svc.CreateForWholePeriod(context.Background(), CreateWholePeriodParams{
		Input: WholePeriodInput{UserID: "user-1", TaskID: "task-cooking", From: day(t, "2024-03-11"), To: day(t, "2024-03-17"), IgnoreConflicts: true},
	})
	if err != nil {
		t.Fatalf("expected conflict override to pass, got %v", err)
	}
	if len(created) != 7 {
		t.Fatalf("expected 7 assignments with override, got %d", len(created))
	}
}

func TestScheduleService_AvailableTasks_FiltersByOccupancy(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	// Drying requires 1 participant on 1 weekday; a single booked slot fills it.
	fixture.assignments.assignments = []Assignment{
		{ID: "assignment-1", UserID: "user-1", TaskID: "task-drying", Date: day(t, "2024-03-16")},
	}
	svc := fixture.service()

	available, err := svc.AvailableTasks(context.Background(), AvailableTasksParams{
		From: day(t, "2024-03-11"), To: day(t, "2024-03-17"),
	})
	if err != nil {
		t.Fatalf("expected availability computation to pass, got %v", err)
	}

	got := make(map[string]bool, len(available))
	for _, task := range available {
		got[task.ID] = true
	}
	if got["task-drying"] {
		t.Fatalf("expected fully booked task to be excluded")
	}
	if !got["task-washing"] || !got["task-cooking"] {
		t.Fatalf("expected unbooked tasks to be included, got %v", got)
	}
	// Occupancy for the whole catalog comes from one window query.
	if fixture.assignments.listCalls != 1 {
		t.Fatalf("expected a single assignment query, got %d", fixture.assignments.listCalls)
	}
}

func TestScheduleService_AvailableTasks_SupervisorFilter(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	supervisorRoleID := "role-kitchen-lead"
	cooking := fixture.tasks.tasks["task-cooking"]
	cooking.SupervisorRoleID = &supervisorRoleID
	fixture.tasks.tasks["task-cooking"] = cooking
	fixture.roles.roles["Kitchen Lead"] = Role{ID: supervisorRoleID, Name: "Kitchen Lead", Type: RoleTypeSupervisor}
	fixture.roles.roles["ROLE_ADMIN"] = Role{ID: "role-admin", Name: "ROLE_ADMIN", Type: RoleTypeSystem}
	svc := fixture.service()

	available, err := svc.AvailableTasks(context.Background(), AvailableTasksParams{
		From: day(t, "2024-03-11"), To: day(t, "2024-03-17"), SupervisorRoleName: "Kitchen Lead",
	})
	if err != nil {
		t.Fatalf("expected supervisor filter to pass, got %v", err)
	}
	if len(available) != 1 || available[0].ID != "task-cooking" {
		t.Fatalf("expected only the supervised task, got %+v", available)
	}

	// A role of the wrong type does not act as a supervisor filter.
	if _, err := svc.AvailableTasks(context.Background(), AvailableTasksParams{
		From: day(t, "2024-03-11"), To: day(t, "2024-03-17"), SupervisorRoleName: "ROLE_ADMIN",
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-supervisor role, got %v", err)
	}
}

func TestScheduleService_AvailableTasks_RejectsInvertedRange(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	_, err := svc.AvailableTasks(context.Background(), AvailableTasksParams{
		From: day(t, "2024-03-17"), To: day(t, "2024-03-11"),
	})
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestScheduleService_UserDependenciesForTask_BuildsSummaries(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	lastCooked := day(t, "2024-02-19")
	fixture.assignments.count = 3
	fixture.assignments.latest = &lastCooked
	fixture.assignments.assignments = []Assignment{
		{ID: "a-1", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
		{ID: "a-2", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-15")},
		{ID: "a-3", UserID: "user-1", TaskID: "task-drying", Date: day(t, "2024-03-16")},
	}
	svc := fixture.service()

	deps, err := svc.UserDependenciesForTask(context.Background(), UserDependenciesParams{
		TaskID: "task-cooking", UserID: "user-1",
		From: day(t, "2024-03-11"), To: day(t, "2024-03-17"),
	})
	if err != nil {
		t.Fatalf("expected dependency aggregation to pass, got %v", err)
	}

	if deps.CompletionCount != 3 {
		t.Fatalf("expected 3 completions, got %d", deps.CompletionCount)
	}
	if deps.LastAssignedDate == nil || !deps.LastAssignedDate.Equal(lastCooked) {
		t.Fatalf("expected last assigned %v, got %v", lastCooked, deps.LastAssignedDate)
	}
	// Washing covers two of its three weekdays, so its covered days are
	// spelled out; Drying covers its single weekday and renders bare.
	want := []string{"Drying", "Washing (Pn, Pt)"}
	if !reflect.DeepEqual(deps.Summaries, want) {
		t.Fatalf("expected summaries %v, got %v", want, deps.Summaries)
	}
	if deps.HasConflict || deps.HasObstacle {
		t.Fatalf("expected no conflict or obstacle flags, got %+v", deps)
	}
}

func TestScheduleService_UserDependenciesForTask_FlagsConflictAndObstacle(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "a-1", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-11")},
	}
	fixture.conflicts.pairs[[2]string{"task-cooking", "task-washing"}] = true
	fixture.obstacles.covered = true
	svc := fixture.service()

	deps, err := svc.UserDependenciesForTask(context.Background(), UserDependenciesParams{
		TaskID: "task-cooking", UserID: "user-1",
		From: day(t, "2024-03-11"), To: day(t, "2024-03-17"),
	})
	if err != nil {
		t.Fatalf("expected dependency aggregation to pass, got %v", err)
	}
	if !deps.HasConflict {
		t.Fatalf("expected conflict flag set")
	}
	if !deps.HasObstacle {
		t.Fatalf("expected obstacle flag set")
	}
}

func TestScheduleService_AllUserDependenciesForTask_IncludesAllUsers(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	results, err := svc.AllUserDependenciesForTask(context.Background(), AllUserDependenciesParams{
		TaskID: "task-cooking",
		From:   day(t, "2024-03-11"), To: day(t, "2024-03-17"),
	})
	if err != nil {
		t.Fatalf("expected aggregation to pass, got %v", err)
	}
	// user-2 holds no allowed role but still appears; eligibility is judged
	// at assignment time, not in the decision-support listing.
	if len(results) != 2 || results[0].UserID != "user-1" || results[1].UserID != "user-2" {
		t.Fatalf("expected both users ordered by id, got %+v", results)
	}
}

func TestScheduleService_ListCurrentAssignments_ClampsToToday(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	fixture.assignments.assignments = []Assignment{
		{ID: "a-past", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-04")},
		{ID: "a-today", UserID: "user-1", TaskID: "task-cooking", Date: day(t, "2024-03-14")},
		{ID: "a-future", UserID: "user-1", TaskID: "task-washing", Date: day(t, "2024-03-18")},
	}
	svc := fixture.service()

	current, err := svc.ListCurrentAssignments(context.Background(), AssignmentFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("expected listing to pass, got %v", err)
	}
	if len(current) != 2 {
		t.Fatalf("expected 2 current assignments, got %d", len(current))
	}
	for _, assignment := range current {
		if assignment.ID == "a-past" {
			t.Fatalf("expected past assignment excluded")
		}
	}
}

func TestScheduleService_DeleteAssignmentsByTask(t *testing.T) {
	t.Parallel()

	fixture := newScheduleFixture()
	svc := fixture.service()

	if err := svc.DeleteAssignmentsByTask(context.Background(), "task-washing"); err != nil {
		t.Fatalf("expected delete-by-task to pass, got %v", err)
	}
	if fixture.assignments.deletedTask != "task-washing" {
		t.Fatalf("expected task delete forwarded, got %q", fixture.assignments.deletedTask)
	}
}
