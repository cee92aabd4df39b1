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

// RoleRepository captures the persistence interactions needed by the role service.
type RoleRepository interface {
	CreateRole(ctx context.Context, role Role, shifts []scheduler.SortOrderUpdate) error
	UpdateRole(ctx context.Context, role Role) error
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error)
	RoleNameExists(ctx context.Context, name string) (bool, error)
	UpdateSortOrders(ctx context.Context, updates []scheduler.SortOrderUpdate) error
	DeleteRole(ctx context.Context, id string, shifts []scheduler.SortOrderUpdate) error
}

// RoleMemberDirectory resolves the users currently holding a role.
type RoleMemberDirectory interface {
	ListUsersWithRole(ctx context.Context, roleID string) ([]User, error)
}

// SessionInvalidator terminates every active session of a user. Invoked when
// a role deletion strips privileges the sessions may still carry.
type SessionInvalidator interface {
	ExpireUserSessions(ctx context.Context, userID string) error
}

// protectedFromUpdate lists role names that can never be renamed.
var protectedFromUpdate = map[string]struct{}{
	RoleNameUser:      {},
	RoleNameFunkcyjny: {},
}

// protectedFromDelete lists role names that can never be deleted.
var protectedFromDelete = map[string]struct{}{
	RoleNameUser:      {},
	RoleNameFunkcyjny: {},
	RoleNameAdmin:     {},
}

// RoleService maintains the dense, per-type role catalog ordering.
type RoleService struct {
	roles       RoleRepository
	members     RoleMemberDirectory
	sessions    SessionInvalidator
	idGenerator func() string
	now         func() time.Time
	typeLocks   *keyedMutex
	logger      *slog.Logger
}

// NewRoleService wires dependencies for role catalog operations.
func NewRoleService(roles RoleRepository, members RoleMemberDirectory, sessions SessionInvalidator, idGenerator func() string, now func() time.Time) *RoleService {
	return NewRoleServiceWithLogger(roles, members, sessions, idGenerator, now, nil)
}

// NewRoleServiceWithLogger constructs a RoleService with a specified logger.
func NewRoleServiceWithLogger(roles RoleRepository, members RoleMemberDirectory, sessions SessionInvalidator, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoleService{
		roles:       roles,
		members:     members,
		sessions:    sessions,
		idGenerator: idGenerator,
		now:         now,
		typeLocks:   newKeyedMutex(),
		logger:      defaultLogger(logger),
	}
}

func (s *RoleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoleService", operation, attrs...)
}

// CreateRole appends the role at the end of its type's catalog, or inserts
// it at an explicit 1-based position shifting trailing roles up by one.
func (s *RoleService) CreateRole(ctx context.Context, params CreateRoleParams) (created Role, err error) {
	if s == nil {
		return Role{}, fmt.Errorf("RoleService is nil")
	}
	if s.roles == nil {
		return Role{}, fmt.Errorf("role repository not configured")
	}

	input := normalizeRoleInput(params.Input)
	logger := s.loggerWith(ctx, "CreateRole", "role_name", input.Name, "role_type", input.Type)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "role creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("role_id", created.ID, "sort_order", created.SortOrder).InfoContext(ctx, "role created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	if vErr := validateRoleInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	// Concurrent shifts on the same type would race the dense ordering.
	unlock := s.typeLocks.Lock(input.Type)
	defer unlock()

	var exists bool
	exists, err = s.roles.RoleNameExists(ctx, input.Name)
	if err != nil {
		return
	}
	if exists {
		err = ErrAlreadyExists
		return
	}

	var entries []scheduler.OrderedEntry
	entries, err = s.orderedEntries(ctx, input.Type)
	if err != nil {
		return
	}

	appendAt := scheduler.AppendPosition(entries)
	position := input.SortOrder
	if position < 1 || position > appendAt {
		position = appendAt
	}

	var shifts []scheduler.SortOrderUpdate
	if position < appendAt {
		shifts = scheduler.ShiftForInsert(entries, position)
	}

	createdAt := s.now()
	role := Role{
		ID:              s.idGenerator(),
		Name:            input.Name,
		Type:            input.Type,
		SortOrder:       position,
		VisibleInPrints: input.VisibleInPrints,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	if err = mapRoleRepoError(s.roles.CreateRole(ctx, role, shifts)); err != nil {
		return
	}

	created = role
	return
}

// UpdateRole renames a role or toggles its prints visibility. The type and
// catalog position are immutable here; Reorder moves positions.
func (s *RoleService) UpdateRole(ctx context.Context, params UpdateRoleParams) (updated Role, err error) {
	if s == nil {
		return Role{}, fmt.Errorf("RoleService is nil")
	}
	if s.roles == nil {
		return Role{}, fmt.Errorf("role repository not configured")
	}

	logger := s.loggerWith(ctx, "UpdateRole", "role_id", params.RoleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "role update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role updated")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	var existing Role
	existing, err = s.roles.GetRole(ctx, params.RoleID)
	if err != nil {
		err = mapRoleRepoError(err)
		return
	}

	if _, protected := protectedFromUpdate[existing.Name]; protected {
		err = ErrSensitiveEntity
		return
	}

	input := normalizeRoleInput(params.Input)
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Type != "" && input.Type != existing.Type {
		vErr.add("type", "type cannot be changed")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if input.Name != existing.Name {
		var exists bool
		exists, err = s.roles.RoleNameExists(ctx, input.Name)
		if err != nil {
			return
		}
		if exists {
			err = ErrAlreadyExists
			return
		}
	}

	role := existing
	role.Name = input.Name
	role.VisibleInPrints = input.VisibleInPrints
	role.UpdatedAt = s.now()

	if err = mapRoleRepoError(s.roles.UpdateRole(ctx, role)); err != nil {
		return
	}

	updated = role
	return
}

// DeleteRole removes a role, strips its task and user references, closes the
// sort-order gap, and expires the sessions of every user that held it.
func (s *RoleService) DeleteRole(ctx context.Context, principal Principal, roleID string) (err error) {
	if s == nil {
		return fmt.Errorf("RoleService is nil")
	}
	if s.roles == nil {
		return fmt.Errorf("role repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRole", "role_id", roleID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "role deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "role deleted")
	}()

	if !principal.IsAdmin() {
		return ErrForbidden
	}

	existing, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		return mapRoleRepoError(err)
	}

	if _, protected := protectedFromDelete[existing.Name]; protected {
		return ErrSensitiveEntity
	}

	unlock := s.typeLocks.Lock(existing.Type)
	defer unlock()

	entries, err := s.orderedEntries(ctx, existing.Type)
	if err != nil {
		return err
	}
	remaining := make([]scheduler.OrderedEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ID != existing.ID {
			remaining = append(remaining, entry)
		}
	}
	shifts := scheduler.ShiftForRemove(remaining, existing.SortOrder)

	var holders []User
	if s.members != nil {
		holders, err = s.members.ListUsersWithRole(ctx, existing.ID)
		if err != nil {
			return err
		}
	}

	if err = mapRoleRepoError(s.roles.DeleteRole(ctx, existing.ID, shifts)); err != nil {
		return err
	}

	if s.sessions != nil {
		for _, holder := range holders {
			if err = s.sessions.ExpireUserSessions(ctx, holder.ID); err != nil {
				return err
			}
		}
	}

	return nil
}

// Reorder applies a caller-supplied batch of position moves. Batches that
// would leave any type's ordering non-dense are rejected outright.
func (s *RoleService) Reorder(ctx context.Context, params ReorderRolesParams) (err error) {
	if s == nil {
		return fmt.Errorf("RoleService is nil")
	}
	if s.roles == nil {
		return fmt.Errorf("role repository not configured")
	}

	logger := s.loggerWith(ctx, "Reorder", "update_count", len(params.Updates))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "role reorder failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "roles reordered")
	}()

	if !params.Principal.IsAdmin() {
		return ErrForbidden
	}
	if len(params.Updates) == 0 {
		return nil
	}

	roles, err := s.roles.ListRoles(ctx, RoleFilter{})
	if err != nil {
		return err
	}

	typeByID := make(map[string]string, len(roles))
	entriesByType := make(map[string][]scheduler.OrderedEntry)
	for _, role := range roles {
		typeByID[role.ID] = role.Type
		entriesByType[role.Type] = append(entriesByType[role.Type], scheduler.OrderedEntry{ID: role.ID, SortOrder: role.SortOrder})
	}

	updates := make([]scheduler.SortOrderUpdate, 0, len(params.Updates))
	updatesByType := make(map[string][]scheduler.SortOrderUpdate)
	for _, update := range params.Updates {
		roleType, known := typeByID[update.RoleID]
		if !known {
			return ErrNotFound
		}
		updatesByType[roleType] = append(updatesByType[roleType], scheduler.SortOrderUpdate{ID: update.RoleID, SortOrder: update.SortOrder})
		updates = append(updates, scheduler.SortOrderUpdate{ID: update.RoleID, SortOrder: update.SortOrder})
	}

	lockedTypes := make([]string, 0, len(updatesByType))
	for roleType := range updatesByType {
		lockedTypes = append(lockedTypes, roleType)
	}
	// Deterministic lock order across types avoids deadlocking concurrent
	// reorders touching the same pair of types.
	sortStrings(lockedTypes)
	for _, roleType := range lockedTypes {
		unlock := s.typeLocks.Lock(roleType)
		defer unlock()
	}

	for roleType, typed := range updatesByType {
		applied, _ := scheduler.ApplyUpdates(entriesByType[roleType], typed)
		if !scheduler.IsDense(applied) {
			vErr := &ValidationError{}
			vErr.add("sort_orders", fmt.Sprintf("resulting order for type %s is not dense", roleType))
			return vErr
		}
	}

	return mapRoleRepoError(s.roles.UpdateSortOrders(ctx, updates))
}

// GetRole retrieves a role by id.
func (s *RoleService) GetRole(ctx context.Context, id string) (Role, error) {
	if s == nil || s.roles == nil {
		return Role{}, fmt.Errorf("role repository not configured")
	}
	role, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return Role{}, mapRoleRepoError(err)
	}
	return role, nil
}

// GetRoleByName retrieves a role by its unique name.
func (s *RoleService) GetRoleByName(ctx context.Context, name string) (Role, error) {
	if s == nil || s.roles == nil {
		return Role{}, fmt.Errorf("role repository not configured")
	}
	role, err := s.roles.GetRoleByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return Role{}, mapRoleRepoError(err)
	}
	return role, nil
}

// ListRoles returns roles matching the filter in sort order.
func (s *RoleService) ListRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	if s == nil || s.roles == nil {
		return nil, fmt.Errorf("role repository not configured")
	}
	roles, err := s.roles.ListRoles(ctx, filter)
	if err != nil {
		return nil, mapRoleRepoError(err)
	}
	return roles, nil
}

// RoleNameExists reports whether a role with the name exists.
func (s *RoleService) RoleNameExists(ctx context.Context, name string) (bool, error) {
	if s == nil || s.roles == nil {
		return false, fmt.Errorf("role repository not configured")
	}
	return s.roles.RoleNameExists(ctx, strings.TrimSpace(name))
}

func (s *RoleService) orderedEntries(ctx context.Context, roleType string) ([]scheduler.OrderedEntry, error) {
	roles, err := s.roles.ListRoles(ctx, RoleFilter{Type: &roleType})
	if err != nil {
		return nil, err
	}
	entries := make([]scheduler.OrderedEntry, 0, len(roles))
	for _, role := range roles {
		entries = append(entries, scheduler.OrderedEntry{ID: role.ID, SortOrder: role.SortOrder})
	}
	return entries, nil
}

func normalizeRoleInput(input RoleInput) RoleInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(strings.ToUpper(input.Type))
	return input
}

func validateRoleInput(input RoleInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Type == "" {
		vErr.add("type", "type is required")
	}
	return vErr
}

func mapRoleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
