package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/duty-roster/internal/persistence"
	"github.com/example/duty-roster/internal/scheduler"
)

// ConflictRepository captures the persistence interactions needed by the conflict service.
type ConflictRepository interface {
	CreateConflict(ctx context.Context, pair Conflict) error
	UpdateConflict(ctx context.Context, pair Conflict) error
	GetConflict(ctx context.Context, id string) (Conflict, error)
	ListConflicts(ctx context.Context) ([]Conflict, error)
	ConflictExists(ctx context.Context, taskAID, taskBID string) (bool, error)
	DeleteConflict(ctx context.Context, id string) error
}

// TaskExistenceChecker verifies that task ids reference catalog entries.
type TaskExistenceChecker interface {
	MissingTaskIDs(ctx context.Context, ids []string) ([]string, error)
}

// ConflictService maintains the symmetric, normalized task conflict relation.
type ConflictService struct {
	conflicts   ConflictRepository
	tasks       TaskExistenceChecker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewConflictService wires dependencies for conflict matrix operations.
func NewConflictService(conflicts ConflictRepository, tasks TaskExistenceChecker, idGenerator func() string, now func() time.Time) *ConflictService {
	return NewConflictServiceWithLogger(conflicts, tasks, idGenerator, now, nil)
}

// NewConflictServiceWithLogger constructs a ConflictService with a specified logger.
func NewConflictServiceWithLogger(conflicts ConflictRepository, tasks TaskExistenceChecker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ConflictService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ConflictService{
		conflicts:   conflicts,
		tasks:       tasks,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ConflictService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ConflictService", operation, attrs...)
}

// DeclareConflict stores a normalized conflict pair between two distinct tasks.
func (s *ConflictService) DeclareConflict(ctx context.Context, params DeclareConflictParams) (declared Conflict, err error) {
	if s == nil {
		return Conflict{}, fmt.Errorf("ConflictService is nil")
	}
	if s.conflicts == nil {
		return Conflict{}, fmt.Errorf("conflict repository not configured")
	}

	input := params.Input
	logger := s.loggerWith(ctx, "DeclareConflict", "task_a", input.TaskAID, "task_b", input.TaskBID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "conflict declaration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("conflict_id", declared.ID).InfoContext(ctx, "conflict declared")
	}()

	var pair Conflict
	pair, err = s.validatePair(ctx, input)
	if err != nil {
		return
	}

	var exists bool
	exists, err = s.conflicts.ConflictExists(ctx, pair.TaskAID, pair.TaskBID)
	if err != nil {
		return
	}
	if exists {
		err = ErrAlreadyExists
		return
	}

	pair.ID = s.idGenerator()
	pair.CreatedAt = s.now()

	if err = mapConflictRepoError(s.conflicts.CreateConflict(ctx, pair)); err != nil {
		return
	}

	declared = pair
	return
}

// UpdateConflict repoints an existing conflict at a new task pair, applying
// the same validation as a fresh declaration.
func (s *ConflictService) UpdateConflict(ctx context.Context, params UpdateConflictParams) (updated Conflict, err error) {
	if s == nil {
		return Conflict{}, fmt.Errorf("ConflictService is nil")
	}
	if s.conflicts == nil {
		return Conflict{}, fmt.Errorf("conflict repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateConflict", "conflict_id", params.ConflictID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "conflict update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "conflict updated")
	}()

	var existing Conflict
	existing, err = s.conflicts.GetConflict(ctx, params.ConflictID)
	if err != nil {
		err = mapConflictRepoError(err)
		return
	}

	var pair Conflict
	pair, err = s.validatePair(ctx, params.Input)
	if err != nil {
		return
	}

	if pair.TaskAID != existing.TaskAID || pair.TaskBID != existing.TaskBID {
		var exists bool
		exists, err = s.conflicts.ConflictExists(ctx, pair.TaskAID, pair.TaskBID)
		if err != nil {
			return
		}
		if exists {
			err = ErrAlreadyExists
			return
		}
	}

	pair.ID = existing.ID
	pair.CreatedAt = existing.CreatedAt

	if err = mapConflictRepoError(s.conflicts.UpdateConflict(ctx, pair)); err != nil {
		return
	}

	updated = pair
	return
}

// RemoveConflict deletes a conflict pair by id.
func (s *ConflictService) RemoveConflict(ctx context.Context, id string) error {
	if s == nil || s.conflicts == nil {
		return fmt.Errorf("conflict repository not configured")
	}
	return mapConflictRepoError(s.conflicts.DeleteConflict(ctx, id))
}

// GetConflict retrieves a conflict pair by id.
func (s *ConflictService) GetConflict(ctx context.Context, id string) (Conflict, error) {
	if s == nil || s.conflicts == nil {
		return Conflict{}, fmt.Errorf("conflict repository not configured")
	}
	pair, err := s.conflicts.GetConflict(ctx, id)
	if err != nil {
		return Conflict{}, mapConflictRepoError(err)
	}
	return pair, nil
}

// ListConflicts returns every declared conflict pair.
func (s *ConflictService) ListConflicts(ctx context.Context) ([]Conflict, error) {
	if s == nil || s.conflicts == nil {
		return nil, fmt.Errorf("conflict repository not configured")
	}
	pairs, err := s.conflicts.ListConflicts(ctx)
	if err != nil {
		return nil, mapConflictRepoError(err)
	}
	return pairs, nil
}

// TasksAreInConflict reports whether the two tasks are declared mutually
// exclusive. Identical ids are never in conflict.
func (s *ConflictService) TasksAreInConflict(ctx context.Context, taskAID, taskBID string) (bool, error) {
	if s == nil || s.conflicts == nil {
		return false, fmt.Errorf("conflict repository not configured")
	}
	if taskAID == taskBID {
		return false, nil
	}
	a, b := scheduler.NormalizeConflictPair(taskAID, taskBID)
	return s.conflicts.ConflictExists(ctx, a, b)
}

func (s *ConflictService) validatePair(ctx context.Context, input ConflictInput) (Conflict, error) {
	if input.TaskAID == "" || input.TaskBID == "" {
		vErr := &ValidationError{}
		if input.TaskAID == "" {
			vErr.add("task_a_id", "task id is required")
		}
		if input.TaskBID == "" {
			vErr.add("task_b_id", "task id is required")
		}
		return Conflict{}, vErr
	}
	if input.TaskAID == input.TaskBID {
		return Conflict{}, ErrSameTasksForConflict
	}

	if s.tasks != nil {
		missing, err := s.tasks.MissingTaskIDs(ctx, []string{input.TaskAID, input.TaskBID})
		if err != nil {
			return Conflict{}, err
		}
		if len(missing) > 0 {
			return Conflict{}, ErrNotFound
		}
	}

	a, b := scheduler.NormalizeConflictPair(input.TaskAID, input.TaskBID)
	return Conflict{TaskAID: a, TaskBID: b}, nil
}

func mapConflictRepoError(err error) error {
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
