package application

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type obstacleRepoStub struct {
	obstacles []Obstacle
	created   Obstacle
	updated   Obstacle
	approved  Obstacle
	deletedID string
	count     int
	err       error
}

func (o *obstacleRepoStub) CreateObstacle(ctx context.Context, obstacle Obstacle) error {
	if o.err != nil {
		return o.err
	}
	o.created = obstacle
	return nil
}

func (o *obstacleRepoStub) GetObstacle(ctx context.Context, id string) (Obstacle, error) {
	if o.err != nil {
		return Obstacle{}, o.err
	}
	for _, obstacle := range o.obstacles {
		if obstacle.ID == id {
			return obstacle, nil
		}
	}
	return Obstacle{}, ErrNotFound
}

func (o *obstacleRepoStub) UpdateObstacle(ctx context.Context, obstacle Obstacle) error {
	if o.err != nil {
		return o.err
	}
	o.updated = obstacle
	return nil
}

func (o *obstacleRepoStub) ApproveObstacle(ctx context.Context, obstacle Obstacle) error {
	if o.err != nil {
		return o.err
	}
	o.approved = obstacle
	return nil
}

func (o *obstacleRepoStub) ListObstacles(ctx context.Context, filter ObstacleFilter) ([]Obstacle, error) {
	if o.err != nil {
		return nil, o.err
	}
	out := make([]Obstacle, 0, len(o.obstacles))
	for _, obstacle := range o.obstacles {
		if filter.UserID != "" && obstacle.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && obstacle.Status != filter.Status {
			continue
		}
		if filter.TaskID != "" {
			found := false
			for _, taskID := range obstacle.TaskIDs {
				if taskID == filter.TaskID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, obstacle)
	}
	return out, nil
}

func (o *obstacleRepoStub) CountObstaclesByStatus(ctx context.Context, status string) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	return o.count, nil
}

func (o *obstacleRepoStub) DeleteObstacle(ctx context.Context, id string) error {
	if o.err != nil {
		return o.err
	}
	o.deletedID = id
	return nil
}

var functionaryPrincipal = Principal{UserID: "func-1", RoleNames: []string{RoleNameUser, RoleNameFunkcyjny}}

func newObstacleService(repo *obstacleRepoStub, tasks *taskExistenceStub) *ObstacleService {
	return NewObstacleService(repo, tasks,
		func() string { return "obstacle-new" },
		func() time.Time { return time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC) })
}

func TestObstacleService_CreateObstacle_DefaultsToPrincipal(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{}
	svc := newObstacleService(repo, &taskExistenceStub{})

	created, err := svc.CreateObstacle(context.Background(), CreateObstacleParams{
		Principal: Principal{UserID: "user-1", RoleNames: []string{RoleNameUser}},
		Input: ObstacleInput{
			TaskIDs:  []string{"task-b", "task-a", "task-b"},
			FromDate: time.Date(2024, 4, 1, 15, 30, 0, 0, time.UTC),
			ToDate:   time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("expected creation to pass, got %v", err)
	}
	if created.UserID != "user-1" {
		t.Fatalf("expected owner defaulted to principal, got %q", created.UserID)
	}
	if created.Status != ObstacleStatusPending {
		t.Fatalf("expected PENDING status, got %q", created.Status)
	}
	if !reflect.DeepEqual(created.TaskIDs, []string{"task-a", "task-b"}) {
		t.Fatalf("expected deduplicated sorted task ids, got %v", created.TaskIDs)
	}
	if created.FromDate.Hour() != 0 {
		t.Fatalf("expected from date normalized to midnight, got %v", created.FromDate)
	}
}

func TestObstacleService_CreateObstacle_RejectsInvertedRange(t *testing.T) {
	t.Parallel()

	svc := newObstacleService(&obstacleRepoStub{}, &taskExistenceStub{})

	_, err := svc.CreateObstacle(context.Background(), CreateObstacleParams{
		Principal: Principal{UserID: "user-1"},
		Input: ObstacleInput{
			TaskIDs:  []string{"task-a"},
			FromDate: time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC),
			ToDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestObstacleService_CreateObstacle_RejectsUnknownTask(t *testing.T) {
	t.Parallel()

	svc := newObstacleService(&obstacleRepoStub{}, &taskExistenceStub{missing: []string{"task-a"}})

	_, err := svc.CreateObstacle(context.Background(), CreateObstacleParams{
		Principal: Principal{UserID: "user-1"},
		Input: ObstacleInput{
			TaskIDs:  []string{"task-a"},
			FromDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			ToDate:   time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC),
		},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObstacleService_PatchObstacle_RequiresElevatedRole(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "obstacle-1", UserID: "user-1", Status: ObstacleStatusPending},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	_, err := svc.PatchObstacle(context.Background(), PatchObstacleParams{
		Principal:  Principal{UserID: "user-1", RoleNames: []string{RoleNameUser}},
		ObstacleID: "obstacle-1",
		Patch:      ObstaclePatch{Status: ObstacleStatusApproved},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestObstacleService_PatchObstacle_ApprovalRoutesToCascade(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "obstacle-1", UserID: "user-1", Status: ObstacleStatusPending},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	answer := "approved, cover arranged"
	patched, err := svc.PatchObstacle(context.Background(), PatchObstacleParams{
		Principal:  functionaryPrincipal,
		ObstacleID: "obstacle-1",
		Patch:      ObstaclePatch{Status: "approved", RecipientAnswer: &answer},
	})
	if err != nil {
		t.Fatalf("expected patch to pass, got %v", err)
	}
	if patched.Status != ObstacleStatusApproved {
		t.Fatalf("expected normalized status APPROVED, got %q", patched.Status)
	}
	if repo.approved.ID != "obstacle-1" {
		t.Fatalf("expected approval routed to the cascading write, got %+v", repo.approved)
	}
	if repo.updated.ID != "" {
		t.Fatalf("expected no plain update on approval")
	}
	if patched.RecipientUserID == nil || *patched.RecipientUserID != "func-1" {
		t.Fatalf("expected recipient defaulted to deciding principal, got %v", patched.RecipientUserID)
	}
	if patched.RecipientAnswer == nil || *patched.RecipientAnswer != answer {
		t.Fatalf("expected recipient answer recorded, got %v", patched.RecipientAnswer)
	}
}

func TestObstacleService_PatchObstacle_RejectionSkipsCascade(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "obstacle-1", UserID: "user-1", Status: ObstacleStatusPending},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	patched, err := svc.PatchObstacle(context.Background(), PatchObstacleParams{
		Principal:  functionaryPrincipal,
		ObstacleID: "obstacle-1",
		Patch:      ObstaclePatch{Status: ObstacleStatusRejected},
	})
	if err != nil {
		t.Fatalf("expected patch to pass, got %v", err)
	}
	if patched.Status != ObstacleStatusRejected {
		t.Fatalf("expected REJECTED status, got %q", patched.Status)
	}
	if repo.updated.ID != "obstacle-1" {
		t.Fatalf("expected plain update for rejection, got %+v", repo.updated)
	}
	if repo.approved.ID != "" {
		t.Fatalf("expected no cascade on rejection")
	}
}

func TestObstacleService_PatchObstacle_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "obstacle-1", UserID: "user-1", Status: ObstacleStatusPending},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	_, err := svc.PatchObstacle(context.Background(), PatchObstacleParams{
		Principal:  functionaryPrincipal,
		ObstacleID: "obstacle-1",
		Patch:      ObstaclePatch{Status: "CANCELLED"},
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["status"]; !ok {
		t.Fatalf("expected status field error, got %v", vErr.FieldErrors)
	}
}

func TestObstacleService_DeleteObstacle_OwnerOrElevatedOnly(t *testing.T) {
	t.Parallel()

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "obstacle-1", UserID: "user-1", Status: ObstacleStatusPending},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	if err := svc.DeleteObstacle(context.Background(), Principal{UserID: "user-2", RoleNames: []string{RoleNameUser}}, "obstacle-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for unrelated user, got %v", err)
	}

	if err := svc.DeleteObstacle(context.Background(), Principal{UserID: "user-1", RoleNames: []string{RoleNameUser}}, "obstacle-1"); err != nil {
		t.Fatalf("expected owner delete to pass, got %v", err)
	}

	if err := svc.DeleteObstacle(context.Background(), functionaryPrincipal, "obstacle-1"); err != nil {
		t.Fatalf("expected functionary delete to pass, got %v", err)
	}
}

func TestObstacleService_ListObstacles_FutureFirstOrdering(t *testing.T) {
	t.Parallel()

	date := func(value string) time.Time {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			t.Fatalf("failed to parse date %q: %v", value, err)
		}
		return parsed
	}

	// "now" in the fixture is 2024-03-14.
	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{ID: "past", UserID: "user-1", FromDate: date("2024-02-01"), ToDate: date("2024-02-05")},
		{ID: "current", UserID: "user-1", FromDate: date("2024-03-10"), ToDate: date("2024-03-20")},
		{ID: "near-future", UserID: "user-1", FromDate: date("2024-03-18"), ToDate: date("2024-03-19")},
		{ID: "far-future", UserID: "user-1", FromDate: date("2024-04-01"), ToDate: date("2024-04-02")},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	listed, err := svc.ListObstacles(context.Background(), ObstacleFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("expected listing to pass, got %v", err)
	}

	ids := make([]string, 0, len(listed))
	for _, obstacle := range listed {
		ids = append(ids, obstacle.ID)
	}
	want := []string{"far-future", "near-future", "current", "past"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}
}

func TestObstacleService_HasApprovedObstacle_ChecksCoverage(t *testing.T) {
	t.Parallel()

	date := func(value string) time.Time {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			t.Fatalf("failed to parse date %q: %v", value, err)
		}
		return parsed
	}

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{
			ID: "obstacle-1", UserID: "user-1", TaskIDs: []string{"task-a"},
			FromDate: date("2024-03-11"), ToDate: date("2024-03-17"),
			Status: ObstacleStatusApproved,
		},
		{
			ID: "obstacle-2", UserID: "user-1", TaskIDs: []string{"task-b"},
			FromDate: date("2024-03-11"), ToDate: date("2024-03-17"),
			Status: ObstacleStatusPending,
		},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	covered, err := svc.HasApprovedObstacle(context.Background(), "user-1", "task-a", date("2024-03-14"))
	if err != nil {
		t.Fatalf("expected coverage check to pass, got %v", err)
	}
	if !covered {
		t.Fatalf("expected approved obstacle to cover the date")
	}

	covered, err = svc.HasApprovedObstacle(context.Background(), "user-1", "task-a", date("2024-03-18"))
	if err != nil {
		t.Fatalf("expected coverage check to pass, got %v", err)
	}
	if covered {
		t.Fatalf("expected date outside the range to be uncovered")
	}

	// A pending obstacle never blocks scheduling.
	covered, err = svc.HasApprovedObstacle(context.Background(), "user-1", "task-b", date("2024-03-14"))
	if err != nil {
		t.Fatalf("expected coverage check to pass, got %v", err)
	}
	if covered {
		t.Fatalf("expected pending obstacle to be ignored")
	}
}

func TestObstacleService_HasApprovedObstacleInRange_Overlap(t *testing.T) {
	t.Parallel()

	date := func(value string) time.Time {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			t.Fatalf("failed to parse date %q: %v", value, err)
		}
		return parsed
	}

	repo := &obstacleRepoStub{obstacles: []Obstacle{
		{
			ID: "obstacle-1", UserID: "user-1", TaskIDs: []string{"task-a"},
			FromDate: date("2024-03-15"), ToDate: date("2024-03-16"),
			Status: ObstacleStatusApproved,
		},
	}}
	svc := newObstacleService(repo, &taskExistenceStub{})

	covered, err := svc.HasApprovedObstacleInRange(context.Background(), "user-1", "task-a", date("2024-03-11"), date("2024-03-17"))
	if err != nil {
		t.Fatalf("expected range check to pass, got %v", err)
	}
	if !covered {
		t.Fatalf("expected overlapping obstacle to be detected")
	}

	covered, err = svc.HasApprovedObstacleInRange(context.Background(), "user-1", "task-a", date("2024-03-18"), date("2024-03-24"))
	if err != nil {
		t.Fatalf("expected range check to pass, got %v", err)
	}
	if covered {
		t.Fatalf("expected disjoint window to be uncovered")
	}
}
