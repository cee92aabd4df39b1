package persistence

import "time"

// User represents a member account stored in the catalog. Roles are held as
// id references only; the join is resolved on load.
type User struct {
	ID           string
	Email        string
	Name         string
	Surname      string
	PasswordHash string
	Enabled      bool
	RoleIDs      []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role represents one entry of the ordered role catalog. SortOrder is dense
// and 1-based within a type.
type Role struct {
	ID              string
	Name            string
	Type            string
	SortOrder       int
	VisibleInPrints bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task represents a recurring duty with a weekly weekday pattern.
type Task struct {
	ID                string
	Name              string
	Abbreviation      string
	Category          string
	ParticipantsLimit int
	Permanent         bool
	WholePeriod       bool
	DaysOfWeek        []time.Weekday
	AllowedRoleIDs    []string
	SupervisorRoleID  *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Assignment binds one user to one task on one calendar date. Dates are
// stored at midnight UTC.
type Assignment struct {
	ID        string
	UserID    string
	TaskID    string
	Date      time.Time
	CreatedAt time.Time
}

// Obstacle represents a leave request over an inclusive date range.
type Obstacle struct {
	ID                   string
	UserID               string
	TaskIDs              []string
	FromDate             time.Time
	ToDate               time.Time
	Status               string
	ApplicantDescription string
	RecipientUserID      *string
	RecipientAnswer      *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ConflictPair is a normalized, unordered pair of distinct task identifiers.
// TaskAID always sorts before TaskBID.
type ConflictPair struct {
	ID        string
	TaskAID   string
	TaskBID   string
	CreatedAt time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SortOrderUpdate moves one role to a new catalog position.
type SortOrderUpdate struct {
	ID        string
	SortOrder int
}
