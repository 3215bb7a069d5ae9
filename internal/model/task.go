package model

import "time"

// Task status constants. Status values are stored verbatim and compared
// case-sensitively; any other string is carried through untouched.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// KnownStatus reports whether s is one of the Status* constants.
func KnownStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work inside a project, owned by a responsible user.
type Task struct {
	// ID is the store-assigned identifier.
	ID int64 `json:"id" db:"id"`

	// Name is the short human-readable title.
	Name string `json:"name" db:"name"`

	// Description is the free-form body text.
	Description string `json:"description" db:"description"`

	// CreatedAt is when the task was first persisted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// DueAt is the deadline. Nil means the task has no deadline.
	DueAt *time.Time `json:"due_at,omitempty" db:"due_at"`

	// ProjectID references the owning project.
	ProjectID int64 `json:"project_id" db:"project_id"`

	// ResponsibleID references the user who owns the task.
	ResponsibleID int64 `json:"responsible_id" db:"responsible_id"`

	// Status is one of the Status* constants, or an unrecognised value.
	Status string `json:"status" db:"status"`

	// Comments is an append-only log; every appended entry starts with "\n".
	Comments string `json:"comments" db:"comments"`
}

// IsCompleted reports whether the task is in the terminal COMPLETED state.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// TimeUntilDue returns the duration from now until the deadline.
// ok is false when the task has no deadline.
func (t Task) TimeUntilDue(now time.Time) (d time.Duration, ok bool) {
	if t.DueAt == nil {
		return 0, false
	}
	return t.DueAt.Sub(now), true
}
