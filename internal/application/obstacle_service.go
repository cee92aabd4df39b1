package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/scheduler"
)

// ObstacleRepository captures the persistence interactions needed by the obstacle service.
type ObstacleRepository interface {
	CreateObstacle(ctx context.Context, obstacle Obstacle) error
	GetObstacle(ctx context.Context, id string) (Obstacle, error)
	UpdateObstacle(ctx context.Context, obstacle Obstacle) error
	// ApproveObstacle persists the approved state and removes every
	// assignment it retroactively invalidates, as one transaction.
	ApproveObstacle(ctx context.Context, obstacle Obstacle) error
	ListObstacles(ctx context.Context, filter ObstacleFilter) ([]Obstacle, error)
	CountObstaclesByStatus(ctx context.Context, status string) (int, error)
	DeleteObstacle(ctx context.Context, id string) error
}

// ObstacleService runs the leave-request lifecycle: filing, the approval
// decision with its retroactive assignment cascade, and the availability
// queries the scheduling pipeline consumes.
type ObstacleService struct {
	obstacles   ObstacleRepository
	tasks       TaskExistenceChecker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewObstacleService wires dependencies for obstacle operations.
func NewObstacleService(obstacles ObstacleRepository, tasks TaskExistenceChecker, idGenerator func() string, now func() time.Time) *ObstacleService {
	return NewObstacleServiceWithLogger(obstacles, tasks, idGenerator, now, nil)
}

// NewObstacleServiceWithLogger constructs an ObstacleService with a specified logger.
func NewObstacleServiceWithLogger(obstacles ObstacleRepository, tasks TaskExistenceChecker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ObstacleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ObstacleService{
		obstacles:   obstacles,
		tasks:       tasks,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ObstacleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ObstacleService", operation, attrs...)
}

// CreateObstacle files a PENDING leave request over an inclusive date range.
func (s *ObstacleService) CreateObstacle(ctx context.Context, params CreateObstacleParams) (created Obstacle, err error) {
	if s == nil {
		return Obstacle{}, fmt.Errorf("ObstacleService is nil")
	}
	if s.obstacles == nil {
		return Obstacle{}, fmt.Errorf("obstacle repository not configured")
	}

	input := params.Input
	if input.UserID == "" {
		input.UserID = params.Principal.UserID
	}

	logger := s.loggerWith(ctx, "CreateObstacle", "user_id", input.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "obstacle creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("obstacle_id", created.ID).InfoContext(ctx, "obstacle created")
	}()

	vErr := &ValidationError{}
	if input.UserID == "" {
		vErr.add("user_id", "user is required")
	}
	taskIDs := uniqueStrings(input.TaskIDs)
	if len(taskIDs) == 0 {
		vErr.add("task_ids", "at least one task is required")
	}
	if input.FromDate.IsZero() {
		vErr.add("from_date", "from date is required")
	}
	if input.ToDate.IsZero() {
		vErr.add("to_date", "to date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	fromDate := scheduler.NormalizeDate(input.FromDate)
	toDate := scheduler.NormalizeDate(input.ToDate)
	if fromDate.After(toDate) {
		err = ErrInvalidDateRange
		return
	}

	if s.tasks != nil {
		var missing []string
		missing, err = s.tasks.MissingTaskIDs(ctx, taskIDs)
		if err != nil {
			return
		}
		if len(missing) > 0 {
			err = ErrNotFound
			return
		}
	}

	createdAt := s.now()
	obstacle := Obstacle{
		ID:                   s.idGenerator(),
		UserID:               input.UserID,
		TaskIDs:              sortStrings(taskIDs),
		FromDate:             fromDate,
		ToDate:               toDate,
		Status:               ObstacleStatusPending,
		ApplicantDescription: strings.TrimSpace(input.ApplicantDescription),
		CreatedAt:            createdAt,
		UpdatedAt:            createdAt,
	}

	if err = mapObstacleRepoError(s.obstacles.CreateObstacle(ctx, obstacle)); err != nil {
		return
	}

	created = obstacle
	return
}

// PatchObstacle applies a status decision. Approval retroactively removes
// every assignment of the obstacle's user to one of its tasks within the
// covered range; that cascade commits with the status write.
func (s *ObstacleService) PatchObstacle(ctx context.Context, params PatchObstacleParams) (patched Obstacle, err error) {
	if s == nil {
		return Obstacle{}, fmt.Errorf("ObstacleService is nil")
	}
	if s.obstacles == nil {
		return Obstacle{}, fmt.Errorf("obstacle repository not configured")
	}

	logger := s.loggerWith(ctx, "PatchObstacle", "obstacle_id", params.ObstacleID, "status", params.Patch.Status)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "obstacle patch failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "obstacle patched")
	}()

	principal := params.Principal
	if !principal.IsFunctionary() && !principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	var existing Obstacle
	existing, err = s.obstacles.GetObstacle(ctx, params.ObstacleID)
	if err != nil {
		err = mapObstacleRepoError(err)
		return
	}

	patch := params.Patch
	if patch.RecipientUserID == nil && principal.UserID != "" {
		recipient := principal.UserID
		patch.RecipientUserID = &recipient
	}

	var next Obstacle
	next, err = applyObstaclePatch(existing, patch, s.now())
	if err != nil {
		return
	}

	if next.Status == ObstacleStatusApproved {
		err = mapObstacleRepoError(s.obstacles.ApproveObstacle(ctx, next))
	} else {
		err = mapObstacleRepoError(s.obstacles.UpdateObstacle(ctx, next))
	}
	if err != nil {
		return
	}

	patched = next
	return
}

// DeleteObstacle removes a leave request. Only its owner or a functionary
// may do so.
func (s *ObstacleService) DeleteObstacle(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("ObstacleService is nil")
	}
	if s.obstacles == nil {
		return fmt.Errorf("obstacle repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteObstacle", "obstacle_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "obstacle deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "obstacle deleted")
	}()

	existing, err := s.obstacles.GetObstacle(ctx, id)
	if err != nil {
		return mapObstacleRepoError(err)
	}

	if existing.UserID != principal.UserID && !principal.IsFunctionary() && !principal.IsAdmin() {
		return ErrForbidden
	}

	return mapObstacleRepoError(s.obstacles.DeleteObstacle(ctx, id))
}

// GetObstacle retrieves an obstacle by id.
func (s *ObstacleService) GetObstacle(ctx context.Context, id string) (Obstacle, error) {
	if s == nil || s.obstacles == nil {
		return Obstacle{}, fmt.Errorf("obstacle repository not configured")
	}
	obstacle, err := s.obstacles.GetObstacle(ctx, id)
	if err != nil {
		return Obstacle{}, mapObstacleRepoError(err)
	}
	return obstacle, nil
}

// ListObstacles returns obstacles matching the filter, future requests
// first, then past and current ones by most recently ended.
func (s *ObstacleService) ListObstacles(ctx context.Context, filter ObstacleFilter) ([]Obstacle, error) {
	if s == nil || s.obstacles == nil {
		return nil, fmt.Errorf("obstacle repository not configured")
	}
	obstacles, err := s.obstacles.ListObstacles(ctx, filter)
	if err != nil {
		return nil, mapObstacleRepoError(err)
	}
	return orderObstaclesForListing(scheduler.NormalizeDate(s.now()), obstacles), nil
}

// CountByStatus counts obstacles carrying the given status.
func (s *ObstacleService) CountByStatus(ctx context.Context, status string) (int, error) {
	if s == nil || s.obstacles == nil {
		return 0, fmt.Errorf("obstacle repository not configured")
	}
	return s.obstacles.CountObstaclesByStatus(ctx, strings.ToUpper(strings.TrimSpace(status)))
}

// HasApprovedObstacle reports whether an approved obstacle covers the date
// for the (user, task) pair.
func (s *ObstacleService) HasApprovedObstacle(ctx context.Context, userID, taskID string, date time.Time) (bool, error) {
	if s == nil || s.obstacles == nil {
		return false, fmt.Errorf("obstacle repository not configured")
	}
	approved, err := s.obstacles.ListObstacles(ctx, ObstacleFilter{UserID: userID, TaskID: taskID, Status: ObstacleStatusApproved})
	if err != nil {
		return false, mapObstacleRepoError(err)
	}
	day := scheduler.NormalizeDate(date)
	for _, obstacle := range approved {
		if scheduler.DateInRange(day, obstacle.FromDate, obstacle.ToDate) {
			return true, nil
		}
	}
	return false, nil
}

// HasApprovedObstacleInRange reports whether an approved obstacle for the
// (user, task) pair overlaps the inclusive window.
func (s *ObstacleService) HasApprovedObstacleInRange(ctx context.Context, userID, taskID string, from, to time.Time) (bool, error) {
	if s == nil || s.obstacles == nil {
		return false, fmt.Errorf("obstacle repository not configured")
	}
	approved, err := s.obstacles.ListObstacles(ctx, ObstacleFilter{UserID: userID, TaskID: taskID, Status: ObstacleStatusApproved})
	if err != nil {
		return false, mapObstacleRepoError(err)
	}
	windowFrom := scheduler.NormalizeDate(from)
	windowTo := scheduler.NormalizeDate(to)
	for _, obstacle := range approved {
		if scheduler.RangesOverlap(obstacle.FromDate, obstacle.ToDate, windowFrom, windowTo) {
			return true, nil
		}
	}
	return false, nil
}

// applyObstaclePatch produces the validated state resulting from a decision,
// leaving the stored entity untouched until persistence succeeds.
func applyObstaclePatch(existing Obstacle, patch ObstaclePatch, now time.Time) (Obstacle, error) {
	status := strings.ToUpper(strings.TrimSpace(patch.Status))
	switch status {
	case ObstacleStatusPending, ObstacleStatusApproved, ObstacleStatusRejected:
	default:
		vErr := &ValidationError{}
		vErr.add("status", "status must be PENDING, APPROVED, or REJECTED")
		return Obstacle{}, vErr
	}

	next := existing
	next.Status = status
	next.UpdatedAt = now
	if patch.RecipientAnswer != nil {
		answer := strings.TrimSpace(*patch.RecipientAnswer)
		next.RecipientAnswer = &answer
	}
	if patch.RecipientUserID != nil {
		recipient := *patch.RecipientUserID
		next.RecipientUserID = &recipient
	}
	return next, nil
}

// orderObstaclesForListing puts requests starting strictly after today
// first, in reverse (fromDate, toDate) order, followed by past and current
// requests by toDate descending.
func orderObstaclesForListing(today time.Time, obstacles []Obstacle) []Obstacle {
	future := make([]Obstacle, 0, len(obstacles))
	past := make([]Obstacle, 0, len(obstacles))
	for _, obstacle := range obstacles {
		if obstacle.FromDate.After(today) {
			future = append(future, obstacle)
		} else {
			past = append(past, obstacle)
		}
	}

	sort.SliceStable(future, func(i, j int) bool {
		if !future[i].FromDate.Equal(future[j].FromDate) {
			return future[i].FromDate.After(future[j].FromDate)
		}
		return future[i].ToDate.After(future[j].ToDate)
	})
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].ToDate.After(past[j].ToDate)
	})

	return append(future, past...)
}

func mapObstacleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidDateRange
	}
	return err
}
