package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/duty-roster/internal/persistence"
)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	pool, err := Open(filepath.Join(t.TempDir(), "roster.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = pool.Close()
	})

	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return pool
}

func testTimestamp() time.Time {
	return time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func testDate(day int) time.Time {
	return time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC)
}

func seedRole(t *testing.T, repo *RoleRepository, id, name, roleType string, sortOrder int) persistence.Role {
	t.Helper()

	role := persistence.Role{
		ID:              id,
		Name:            name,
		Type:            roleType,
		SortOrder:       sortOrder,
		VisibleInPrints: true,
		CreatedAt:       testTimestamp(),
		UpdatedAt:       testTimestamp(),
	}
	if err := repo.CreateRole(context.Background(), role, nil); err != nil {
		t.Fatalf("CreateRole(%s) returned error: %v", name, err)
	}
	return role
}

func seedUser(t *testing.T, repo *UserRepository, id, email string, roleIDs ...string) persistence.User {
	t.Helper()

	user := persistence.User{
		ID:           id,
		Email:        email,
		Name:         "Jan",
		Surname:      "Kowalski",
		PasswordHash: "hash",
		Enabled:      true,
		RoleIDs:      roleIDs,
		CreatedAt:    testTimestamp(),
		UpdatedAt:    testTimestamp(),
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) returned error: %v", email, err)
	}
	return user
}

func seedTask(t *testing.T, repo *TaskRepository, id, name string, days []time.Weekday, roleIDs ...string) persistence.Task {
	t.Helper()

	task := persistence.Task{
		ID:                id,
		Name:              name,
		Abbreviation:      name[:1],
		Category:          "general",
		ParticipantsLimit: 2,
		DaysOfWeek:        days,
		AllowedRoleIDs:    roleIDs,
		CreatedAt:         testTimestamp(),
		UpdatedAt:         testTimestamp(),
	}
	if err := repo.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask(%s) returned error: %v", name, err)
	}
	return task
}

func TestRoleRepositoryCreateWithShifts(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoleRepository(pool)
	ctx := context.Background()

	first := seedRole(t, repo, "role-1", "Cantor", "FUNCTIONAL", 1)
	second := seedRole(t, repo, "role-2", "Lector", "FUNCTIONAL", 2)

	// Insert at position 1; existing roles shift up, highest first.
	newcomer := persistence.Role{
		ID:        "role-3",
		Name:      "Acolyte",
		Type:      "FUNCTIONAL",
		SortOrder: 1,
		CreatedAt: testTimestamp(),
		UpdatedAt: testTimestamp(),
	}
	shifts := []persistence.SortOrderUpdate{
		{ID: second.ID, SortOrder: 3},
		{ID: first.ID, SortOrder: 2},
	}
	if err := repo.CreateRole(ctx, newcomer, shifts); err != nil {
		t.Fatalf("CreateRole with shifts returned error: %v", err)
	}

	roles, err := repo.ListRoles(ctx, persistence.RoleFilter{})
	if err != nil {
		t.Fatalf("ListRoles returned error: %v", err)
	}
	wantOrder := []string{"role-3", "role-1", "role-2"}
	if len(roles) != len(wantOrder) {
		t.Fatalf("ListRoles returned %d roles, want %d", len(roles), len(wantOrder))
	}
	for i, id := range wantOrder {
		if roles[i].ID != id {
			t.Errorf("position %d holds %s, want %s", i+1, roles[i].ID, id)
		}
		if roles[i].SortOrder != i+1 {
			t.Errorf("role %s has sort order %d, want %d", roles[i].ID, roles[i].SortOrder, i+1)
		}
	}
}

func TestRoleRepositoryDuplicateName(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoleRepository(pool)

	seedRole(t, repo, "role-1", "Cantor", "FUNCTIONAL", 1)

	duplicate := persistence.Role{
		ID:        "role-2",
		Name:      "Cantor",
		Type:      "SYSTEM",
		SortOrder: 1,
		CreatedAt: testTimestamp(),
		UpdatedAt: testTimestamp(),
	}
	err := repo.CreateRole(context.Background(), duplicate, nil)
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("CreateRole with duplicate name returned %v, want ErrDuplicate", err)
	}
}

func TestRoleRepositoryUpdateSortOrdersSwap(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoleRepository(pool)
	ctx := context.Background()

	first := seedRole(t, repo, "role-1", "Cantor", "FUNCTIONAL", 1)
	second := seedRole(t, repo, "role-2", "Lector", "FUNCTIONAL", 2)

	// A straight swap would collide on (type, sort_order) if applied naively.
	updates := []persistence.SortOrderUpdate{
		{ID: first.ID, SortOrder: 2},
		{ID: second.ID, SortOrder: 1},
	}
	if err := repo.UpdateSortOrders(ctx, updates); err != nil {
		t.Fatalf("UpdateSortOrders returned error: %v", err)
	}

	roles, err := repo.ListRoles(ctx, persistence.RoleFilter{})
	if err != nil {
		t.Fatalf("ListRoles returned error: %v", err)
	}
	if roles[0].ID != second.ID || roles[1].ID != first.ID {
		t.Fatalf("swap not applied: got order %s, %s", roles[0].ID, roles[1].ID)
	}
}

func TestRoleRepositoryDeleteCascades(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	ctx := context.Background()

	doomed := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	survivor := seedRole(t, roles, "role-2", "Lector", "FUNCTIONAL", 2)
	seedUser(t, users, "user-1", "jan@example.com", doomed.ID, survivor.ID)

	task := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, doomed.ID, survivor.ID)
	task.SupervisorRoleID = &doomed.ID
	if err := tasks.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask returned error: %v", err)
	}

	shifts := []persistence.SortOrderUpdate{{ID: survivor.ID, SortOrder: 1}}
	if err := roles.DeleteRole(ctx, doomed.ID, shifts); err != nil {
		t.Fatalf("DeleteRole returned error: %v", err)
	}

	if _, err := roles.GetRole(ctx, doomed.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetRole after delete returned %v, want ErrNotFound", err)
	}

	user, err := users.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if len(user.RoleIDs) != 1 || user.RoleIDs[0] != survivor.ID {
		t.Errorf("user role ids = %v, want only %s", user.RoleIDs, survivor.ID)
	}

	got, err := tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if got.SupervisorRoleID != nil {
		t.Errorf("supervisor role id = %v, want nil", *got.SupervisorRoleID)
	}
	if len(got.AllowedRoleIDs) != 1 || got.AllowedRoleIDs[0] != survivor.ID {
		t.Errorf("allowed role ids = %v, want only %s", got.AllowedRoleIDs, survivor.ID)
	}

	remaining, err := roles.ListRoles(ctx, persistence.RoleFilter{})
	if err != nil {
		t.Fatalf("ListRoles returned error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].SortOrder != 1 {
		t.Errorf("remaining roles = %+v, want single role at position 1", remaining)
	}
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	created := seedUser(t, users, "user-1", "jan@example.com", role.ID)

	got, err := users.GetUserByEmail(ctx, created.Email)
	if err != nil {
		t.Fatalf("GetUserByEmail returned error: %v", err)
	}
	if got.ID != created.ID || got.Surname != created.Surname || !got.Enabled {
		t.Errorf("loaded user = %+v, want %+v", got, created)
	}
	if len(got.RoleIDs) != 1 || got.RoleIDs[0] != role.ID {
		t.Errorf("role ids = %v, want [%s]", got.RoleIDs, role.ID)
	}

	err = users.CreateUser(ctx, persistence.User{
		ID:        "user-2",
		Email:     created.Email,
		Name:      "Piotr",
		Surname:   "Nowak",
		CreatedAt: testTimestamp(),
		UpdatedAt: testTimestamp(),
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("CreateUser with duplicate email returned %v, want ErrDuplicate", err)
	}
}

func TestTaskRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	tasks := NewTaskRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	created := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Friday, time.Monday}, role.ID)

	got, err := tasks.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if got.Name != "Washing" || got.ParticipantsLimit != 2 {
		t.Errorf("loaded task = %+v", got)
	}
	if len(got.DaysOfWeek) != 2 || got.DaysOfWeek[0] != time.Monday || got.DaysOfWeek[1] != time.Friday {
		t.Errorf("days of week = %v, want Monday-first [Monday Friday]", got.DaysOfWeek)
	}

	supervised, err := tasks.ListTasksBySupervisorRole(ctx, role.ID)
	if err != nil {
		t.Fatalf("ListTasksBySupervisorRole returned error: %v", err)
	}
	if len(supervised) != 0 {
		t.Errorf("supervised tasks = %v, want none", supervised)
	}
}

func TestAssignmentRepositoryQueries(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	assignments := NewAssignmentRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	user := seedUser(t, users, "user-1", "jan@example.com", role.ID)
	task := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, role.ID)

	var batch []persistence.Assignment
	for i, day := range []int{4, 11, 18} {
		batch = append(batch, persistence.Assignment{
			ID:        fmt.Sprintf("assignment-%d", i+1),
			UserID:    user.ID,
			TaskID:    task.ID,
			Date:      testDate(day),
			CreatedAt: testTimestamp(),
		})
	}
	if err := assignments.CreateAssignments(ctx, batch); err != nil {
		t.Fatalf("CreateAssignments returned error: %v", err)
	}

	count, err := assignments.CountAssignments(ctx, user.ID, task.ID, testDate(1), testDate(12))
	if err != nil {
		t.Fatalf("CountAssignments returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	latest, err := assignments.LatestAssignmentDate(ctx, user.ID, task.ID, testDate(17))
	if err != nil {
		t.Fatalf("LatestAssignmentDate returned error: %v", err)
	}
	if latest == nil || !latest.Equal(testDate(11)) {
		t.Errorf("latest = %v, want 2024-03-11", latest)
	}

	latest, err = assignments.LatestAssignmentDate(ctx, user.ID, "missing-task", testDate(17))
	if err != nil {
		t.Fatalf("LatestAssignmentDate for unknown task returned error: %v", err)
	}
	if latest != nil {
		t.Errorf("latest for unknown task = %v, want nil", latest)
	}

	from := testDate(10)
	listed, err := assignments.ListAssignments(ctx, persistence.AssignmentFilter{UserID: user.ID, From: &from})
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("ListAssignments returned %d rows, want 2", len(listed))
	}
}

func TestAssignmentRepositoryBatchRollsBack(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	assignments := NewAssignmentRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	user := seedUser(t, users, "user-1", "jan@example.com", role.ID)
	task := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, role.ID)

	batch := []persistence.Assignment{
		{ID: "assignment-1", UserID: user.ID, TaskID: task.ID, Date: testDate(4), CreatedAt: testTimestamp()},
		{ID: "assignment-2", UserID: user.ID, TaskID: "missing-task", Date: testDate(11), CreatedAt: testTimestamp()},
	}
	err := assignments.CreateAssignments(ctx, batch)
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("CreateAssignments returned %v, want ErrForeignKeyViolation", err)
	}

	listed, err := assignments.ListAssignments(ctx, persistence.AssignmentFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("batch partially committed: %d rows", len(listed))
	}
}

func TestObstacleRepositoryApproveCascade(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	assignments := NewAssignmentRepository(pool)
	obstacles := NewObstacleRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	user := seedUser(t, users, "user-1", "jan@example.com", role.ID)
	covered := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, role.ID)
	untouched := seedTask(t, tasks, "task-2", "Cooking", []time.Weekday{time.Tuesday}, role.ID)

	batch := []persistence.Assignment{
		{ID: "assignment-1", UserID: user.ID, TaskID: covered.ID, Date: testDate(4), CreatedAt: testTimestamp()},
		{ID: "assignment-2", UserID: user.ID, TaskID: covered.ID, Date: testDate(25), CreatedAt: testTimestamp()},
		{ID: "assignment-3", UserID: user.ID, TaskID: untouched.ID, Date: testDate(5), CreatedAt: testTimestamp()},
	}
	if err := assignments.CreateAssignments(ctx, batch); err != nil {
		t.Fatalf("CreateAssignments returned error: %v", err)
	}

	obstacle := persistence.Obstacle{
		ID:                   "obstacle-1",
		UserID:               user.ID,
		TaskIDs:              []string{covered.ID},
		FromDate:             testDate(1),
		ToDate:               testDate(10),
		Status:               "PENDING",
		ApplicantDescription: "wyjazd",
		CreatedAt:            testTimestamp(),
		UpdatedAt:            testTimestamp(),
	}
	if err := obstacles.CreateObstacle(ctx, obstacle); err != nil {
		t.Fatalf("CreateObstacle returned error: %v", err)
	}

	recipient := user.ID
	answer := "zgoda"
	obstacle.Status = "APPROVED"
	obstacle.RecipientUserID = &recipient
	obstacle.RecipientAnswer = &answer
	if err := obstacles.ApproveObstacle(ctx, obstacle); err != nil {
		t.Fatalf("ApproveObstacle returned error: %v", err)
	}

	got, err := obstacles.GetObstacle(ctx, obstacle.ID)
	if err != nil {
		t.Fatalf("GetObstacle returned error: %v", err)
	}
	if got.Status != "APPROVED" || got.RecipientAnswer == nil || *got.RecipientAnswer != "zgoda" {
		t.Errorf("approved obstacle = %+v", got)
	}

	remaining, err := assignments.ListAssignments(ctx, persistence.AssignmentFilter{UserID: user.ID})
	if err != nil {
		t.Fatalf("ListAssignments returned error: %v", err)
	}
	var ids []string
	for _, a := range remaining {
		ids = append(ids, a.ID)
	}
	if len(ids) != 2 {
		t.Fatalf("remaining assignments = %v, want assignment-2 and assignment-3", ids)
	}
}

func TestObstacleRepositoryListByStatusAndTask(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	tasks := NewTaskRepository(pool)
	obstacles := NewObstacleRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	user := seedUser(t, users, "user-1", "jan@example.com", role.ID)
	task := seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, role.ID)

	for i, status := range []string{"PENDING", "APPROVED", "PENDING"} {
		obstacle := persistence.Obstacle{
			ID:        fmt.Sprintf("obstacle-%d", i+1),
			UserID:    user.ID,
			TaskIDs:   []string{task.ID},
			FromDate:  testDate(i + 1),
			ToDate:    testDate(i + 2),
			Status:    status,
			CreatedAt: testTimestamp(),
			UpdatedAt: testTimestamp(),
		}
		if err := obstacles.CreateObstacle(ctx, obstacle); err != nil {
			t.Fatalf("CreateObstacle returned error: %v", err)
		}
	}

	pending, err := obstacles.ListObstacles(ctx, persistence.ObstacleFilter{Status: "PENDING", TaskID: task.ID})
	if err != nil {
		t.Fatalf("ListObstacles returned error: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending obstacles = %d, want 2", len(pending))
	}

	count, err := obstacles.CountObstaclesByStatus(ctx, "APPROVED")
	if err != nil {
		t.Fatalf("CountObstaclesByStatus returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("approved count = %d, want 1", count)
	}
}

func TestConflictRepositoryUniquePair(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	tasks := NewTaskRepository(pool)
	conflicts := NewConflictRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	seedTask(t, tasks, "task-1", "Washing", []time.Weekday{time.Monday}, role.ID)
	seedTask(t, tasks, "task-2", "Cooking", []time.Weekday{time.Tuesday}, role.ID)

	pair := persistence.ConflictPair{ID: "conflict-1", TaskAID: "task-1", TaskBID: "task-2", CreatedAt: testTimestamp()}
	if err := conflicts.CreateConflict(ctx, pair); err != nil {
		t.Fatalf("CreateConflict returned error: %v", err)
	}

	dup := persistence.ConflictPair{ID: "conflict-2", TaskAID: "task-1", TaskBID: "task-2", CreatedAt: testTimestamp()}
	if err := conflicts.CreateConflict(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("duplicate pair returned %v, want ErrDuplicate", err)
	}

	exists, err := conflicts.ConflictExists(ctx, "task-1", "task-2")
	if err != nil {
		t.Fatalf("ConflictExists returned error: %v", err)
	}
	if !exists {
		t.Error("ConflictExists = false, want true")
	}
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	roles := NewRoleRepository(pool)
	users := NewUserRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	role := seedRole(t, roles, "role-1", "Cantor", "FUNCTIONAL", 1)
	user := seedUser(t, users, "user-1", "jan@example.com", role.ID)

	session := persistence.Session{
		ID:        "session-1",
		UserID:    user.ID,
		Token:     "token-1",
		ExpiresAt: testTimestamp().Add(24 * time.Hour),
		CreatedAt: testTimestamp(),
		UpdatedAt: testTimestamp(),
	}
	if _, err := sessions.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}

	revoked, err := sessions.RevokeSession(ctx, session.Token, testTimestamp().Add(time.Hour))
	if err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}
	if revoked.RevokedAt == nil {
		t.Fatal("RevokedAt is nil after revoke")
	}

	if _, err := sessions.RevokeSession(ctx, session.Token, testTimestamp()); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("second revoke returned %v, want ErrNotFound", err)
	}

	if err := sessions.DeleteExpiredSessions(ctx, testTimestamp().Add(48*time.Hour)); err != nil {
		t.Fatalf("DeleteExpiredSessions returned error: %v", err)
	}
	if _, err := sessions.GetSession(ctx, session.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetSession after prune returned %v, want ErrNotFound", err)
	}
}
