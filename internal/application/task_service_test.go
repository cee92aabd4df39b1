package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type taskRepoStub struct {
	tasks     map[string]Task
	created   Task
	updated   Task
	deletedID string
	err       error
}

func (t *taskRepoStub) CreateTask(ctx context.Context, task Task) error {
	if t.err != nil {
		return t.err
	}
	t.created = task
	return nil
}

func (t *taskRepoStub) UpdateTask(ctx context.Context, task Task) error {
	if t.err != nil {
		return t.err
	}
	t.updated = task
	return nil
}

func (t *taskRepoStub) GetTask(ctx context.Context, id string) (Task, error) {
	if t.err != nil {
		return Task{}, t.err
	}
	task, ok := t.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

func (t *taskRepoStub) ListTasks(ctx context.Context) ([]Task, error) {
	if t.err != nil {
		return nil, t.err
	}
	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (t *taskRepoStub) ListTasksBySupervisorRole(ctx context.Context, roleID string) ([]Task, error) {
	if t.err != nil {
		return nil, t.err
	}
	return nil, nil
}

func (t *taskRepoStub) DeleteTask(ctx context.Context, id string) error {
	if t.err != nil {
		return t.err
	}
	t.deletedID = id
	return nil
}

func newTaskService(repo *taskRepoStub, roles *roleDirectoryStub) *TaskService {
	return NewTaskService(repo, roles,
		func() string { return "task-new" },
		func() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC) })
}

func taskServiceRoles() *roleDirectoryStub {
	return &roleDirectoryStub{roles: map[string]Role{
		RoleNameUser:   {ID: "role-user", Name: RoleNameUser, Type: RoleTypeSystem},
		"Kitchen Lead": {ID: "role-kitchen-lead", Name: "Kitchen Lead", Type: RoleTypeSupervisor},
	}}
}

func TestTaskService_CreateTask_ResolvesRolesAndOrdersWeekdays(t *testing.T) {
	t.Parallel()

	repo := &taskRepoStub{tasks: map[string]Task{}}
	svc := newTaskService(repo, taskServiceRoles())

	supervisor := "Kitchen Lead"
	created, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: functionaryPrincipal,
		Input: TaskInput{
			Name:               "  Cooking  ",
			ParticipantsLimit:  2,
			DaysOfWeek:         []time.Weekday{time.Sunday, time.Friday, time.Monday, time.Friday},
			AllowedRoleNames:   []string{RoleNameUser},
			SupervisorRoleName: &supervisor,
		},
	})
	if err != nil {
		t.Fatalf("expected creation to pass, got %v", err)
	}
	if created.Name != "Cooking" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	want := []time.Weekday{time.Monday, time.Friday, time.Sunday}
	if !reflect.DeepEqual(created.DaysOfWeek, want) {
		t.Fatalf("expected Monday-first deduplicated weekdays %v, got %v", want, created.DaysOfWeek)
	}
	if !reflect.DeepEqual(created.AllowedRoleIDs, []string{"role-user"}) {
		t.Fatalf("expected resolved role ids, got %v", created.AllowedRoleIDs)
	}
	if created.SupervisorRoleID == nil || *created.SupervisorRoleID != "role-kitchen-lead" {
		t.Fatalf("expected resolved supervisor role, got %v", created.SupervisorRoleID)
	}
}

func TestTaskService_CreateTask_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := newTaskService(&taskRepoStub{tasks: map[string]Task{}}, taskServiceRoles())

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: functionaryPrincipal,
		Input:     TaskInput{Name: "", ParticipantsLimit: 0},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "participants_limit", "days_of_week", "allowed_roles"} {
		if _, ok := vErr.FieldErrors[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, vErr.FieldErrors)
		}
	}
}

func TestTaskService_CreateTask_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	svc := newTaskService(&taskRepoStub{tasks: map[string]Task{}}, taskServiceRoles())

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: functionaryPrincipal,
		Input: TaskInput{
			Name:              "Cooking",
			ParticipantsLimit: 1,
			DaysOfWeek:        []time.Weekday{time.Monday},
			AllowedRoleNames:  []string{"Phantom Role"},
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["allowed_roles"]; !ok {
		t.Fatalf("expected allowed_roles field error, got %v", vErr.FieldErrors)
	}
}

func TestTaskService_CreateTask_RejectsNonSupervisorSupervisor(t *testing.T) {
	t.Parallel()

	svc := newTaskService(&taskRepoStub{tasks: map[string]Task{}}, taskServiceRoles())

	supervisor := RoleNameUser
	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: functionaryPrincipal,
		Input: TaskInput{
			Name:               "Cooking",
			ParticipantsLimit:  1,
			DaysOfWeek:         []time.Weekday{time.Monday},
			AllowedRoleNames:   []string{RoleNameUser},
			SupervisorRoleName: &supervisor,
		},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["supervisor_role"]; !ok {
		t.Fatalf("expected supervisor_role field error, got %v", vErr.FieldErrors)
	}
}

func TestTaskService_CreateTask_RequiresElevatedRole(t *testing.T) {
	t.Parallel()

	svc := newTaskService(&taskRepoStub{tasks: map[string]Task{}}, taskServiceRoles())

	_, err := svc.CreateTask(context.Background(), CreateTaskParams{
		Principal: Principal{UserID: "user-1", RoleNames: []string{RoleNameUser}},
		Input: TaskInput{
			Name:              "Cooking",
			ParticipantsLimit: 1,
			DaysOfWeek:        []time.Weekday{time.Monday},
			AllowedRoleNames:  []string{RoleNameUser},
		},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_UpdateTask_PreservesIdentity(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &taskRepoStub{tasks: map[string]Task{
		"task-1": {ID: "task-1", Name: "Cooking", CreatedAt: createdAt},
	}}
	svc := newTaskService(repo, taskServiceRoles())

	updated, err := svc.UpdateTask(context.Background(), UpdateTaskParams{
		Principal: functionaryPrincipal,
		TaskID:    "task-1",
		Input: TaskInput{
			Name:              "Cooking and Serving",
			ParticipantsLimit: 3,
			DaysOfWeek:        []time.Weekday{time.Saturday},
			AllowedRoleNames:  []string{RoleNameUser},
		},
	})
	if err != nil {
		t.Fatalf("expected update to pass, got %v", err)
	}
	if updated.ID != "task-1" || !updated.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected preserved identity, got %+v", updated)
	}
	if updated.Name != "Cooking and Serving" || updated.ParticipantsLimit != 3 {
		t.Fatalf("expected rewritten attributes, got %+v", updated)
	}
}

func TestTaskService_MissingTaskIDs(t *testing.T) {
	t.Parallel()

	repo := &taskRepoStub{tasks: map[string]Task{
		"task-1": {ID: "task-1", Name: "Cooking"},
	}}
	svc := newTaskService(repo, taskServiceRoles())

	missing, err := svc.MissingTaskIDs(context.Background(), []string{"task-1", "task-2", "task-2"})
	if err != nil {
		t.Fatalf("expected lookup to pass, got %v", err)
	}
	if !reflect.DeepEqual(missing, []string{"task-2"}) {
		t.Fatalf("expected [task-2] missing, got %v", missing)
	}
}

func TestTaskService_DeleteTask_RequiresElevatedRole(t *testing.T) {
	t.Parallel()

	repo := &taskRepoStub{tasks: map[string]Task{
		"task-1": {ID: "task-1", Name: "Cooking"},
	}}
	svc := newTaskService(repo, taskServiceRoles())

	if err := svc.DeleteTask(context.Background(), Principal{UserID: "user-1", RoleNames: []string{RoleNameUser}}, "task-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteTask(context.Background(), functionaryPrincipal, "task-1"); err != nil {
		t.Fatalf("expected functionary delete to pass, got %v", err)
	}
	if repo.deletedID != "task-1" {
		t.Fatalf("expected delete forwarded, got %q", repo.deletedID)
	}
}
