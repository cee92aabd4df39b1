package application

import "errors"

var (
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrForbidden is returned when the acting principal lacks permission for an operation.
	ErrForbidden = errors.New("application: forbidden")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness rule rejects the operation.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSensitiveEntity is returned when an operation targets a protected system role.
	ErrSensitiveEntity = errors.New("application: sensitive entity protected")
	// ErrSameTasksForConflict is returned when a conflict pair names the same task twice.
	ErrSameTasksForConflict = errors.New("application: conflict requires two distinct tasks")
	// ErrInvalidDateRange is returned when a range's start date falls after its end date.
	ErrInvalidDateRange = errors.New("application: invalid date range")
	// ErrRoleRequirements is returned when the user's roles do not meet the task's requirements.
	ErrRoleRequirements = errors.New("application: role requirements not met")
	// ErrObstaclePresent is returned when an approved obstacle covers the candidate date.
	ErrObstaclePresent = errors.New("application: approved obstacle present")
	// ErrScheduleConflict is returned when the candidate task conflicts with one already scheduled.
	ErrScheduleConflict = errors.New("application: schedule is in conflict")

	// ErrInvalidCredentials is returned when authentication input does not match a known account.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrAccountDisabled is returned when the account exists but is disabled.
	ErrAccountDisabled = errors.New("application: account disabled")
	// ErrSessionExpired is returned when the presented session token has expired.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the presented session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
