package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/duty-roster/internal/persistence"
)

// UserRepository captures the persistence interactions needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user User, passwordHash string) error
	// UpdateUser rewrites the account; an empty passwordHash keeps the
	// stored hash.
	UpdateUser(ctx context.Context, user User, passwordHash string) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListUsersWithRole(ctx context.Context, roleID string) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
}

// PasswordHasher derives a storable hash from a plaintext password.
type PasswordHasher func(password string) (string, error)

// UserService orchestrates validation, authorization, and persistence for
// member accounts.
type UserService struct {
	users       UserRepository
	roles       RoleDirectory
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for user catalog operations.
func NewUserService(users UserRepository, roles RoleDirectory, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, roles, hasher, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a UserService with a specified logger.
func NewUserServiceWithLogger(users UserRepository, roles RoleDirectory, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hasher == nil {
		hasher = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		roles:       roles,
		hasher:      hasher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new account for administrators.
// Every account implicitly holds the baseline member role.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (created User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	input := normalizeUserInput(params.Input)
	logger := s.loggerWith(ctx, "CreateUser", "email", input.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", created.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrForbidden
		return
	}

	vErr := validateUserInput(input, true)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var roleIDs, roleNames []string
	roleIDs, roleNames, err = s.resolveRoles(ctx, input.RoleNames)
	if err != nil {
		return
	}

	var hash string
	hash, err = s.hasher(input.Password)
	if err != nil {
		return
	}

	createdAt := s.now()
	user := User{
		ID:        s.idGenerator(),
		Email:     input.Email,
		Name:      input.Name,
		Surname:   input.Surname,
		Enabled:   input.Enabled,
		RoleIDs:   roleIDs,
		RoleNames: roleNames,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if err = mapUserRepoError(s.users.CreateUser(ctx, user, hash)); err != nil {
		return
	}

	created = user
	return
}

// UpdateUser validates input and rewrites an existing account. An empty
// password keeps the stored hash.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (updated User, err error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	input := normalizeUserInput(params.Input)
	logger := s.loggerWith(ctx, "UpdateUser", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !params.Principal.IsAdmin() && params.Principal.UserID != params.UserID {
		err = ErrForbidden
		return
	}

	var existing User
	existing, err = s.users.GetUser(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	vErr := validateUserInput(input, false)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	// Only administrators may change role grants or the enabled flag.
	roleIDs, roleNames := existing.RoleIDs, existing.RoleNames
	enabled := existing.Enabled
	if params.Principal.IsAdmin() {
		roleIDs, roleNames, err = s.resolveRoles(ctx, input.RoleNames)
		if err != nil {
			return
		}
		enabled = input.Enabled
	}

	hash := ""
	if input.Password != "" {
		hash, err = s.hasher(input.Password)
		if err != nil {
			return
		}
	}

	user := existing
	user.Email = input.Email
	user.Name = input.Name
	user.Surname = input.Surname
	user.Enabled = enabled
	user.RoleIDs = roleIDs
	user.RoleNames = roleNames
	user.UpdatedAt = s.now()

	if err = mapUserRepoError(s.users.UpdateUser(ctx, user, hash)); err != nil {
		return
	}

	updated = user
	return
}

// GetUser retrieves a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return users, nil
}

// ListUsersWithRole returns the accounts holding the given role.
func (s *UserService) ListUsersWithRole(ctx context.Context, roleID string) ([]User, error) {
	if s == nil || s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}
	users, err := s.users.ListUsersWithRole(ctx, roleID)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return users, nil
}

// DeleteUser removes an account for administrators.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser", "user_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin() {
		return ErrForbidden
	}

	return mapUserRepoError(s.users.DeleteUser(ctx, id))
}

func (s *UserService) resolveRoles(ctx context.Context, roleNames []string) (ids, names []string, err error) {
	// The baseline member role is always granted.
	requested := uniqueStrings(append([]string{RoleNameUser}, roleNames...))
	for _, roleName := range requested {
		if s.roles == nil {
			return nil, nil, fmt.Errorf("role directory not configured")
		}
		role, lookupErr := s.roles.GetRoleByName(ctx, roleName)
		if lookupErr != nil {
			if errors.Is(lookupErr, persistence.ErrNotFound) || errors.Is(lookupErr, ErrNotFound) {
				vErr := &ValidationError{}
				vErr.add("roles", fmt.Sprintf("unknown role: %s", roleName))
				return nil, nil, vErr
			}
			return nil, nil, lookupErr
		}
		ids = append(ids, role.ID)
		names = append(names, role.Name)
	}
	return ids, names, nil
}

func normalizeUserInput(input UserInput) UserInput {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	input.Surname = strings.TrimSpace(input.Surname)
	for i, roleName := range input.RoleNames {
		input.RoleNames[i] = strings.TrimSpace(roleName)
	}
	return input
}

func validateUserInput(input UserInput, passwordRequired bool) *ValidationError {
	vErr := &ValidationError{}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if input.Surname == "" {
		vErr.add("surname", "surname is required")
	}
	if passwordRequired && input.Password == "" {
		vErr.add("password", "password is required")
	}
	return vErr
}

func mapUserRepoError(err error) error {
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
