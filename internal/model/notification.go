package model

import "time"

// NotificationKind classifies what produced a notification.
type NotificationKind string

// NotificationStatusChange marks a message produced by a task status update.
const NotificationStatusChange NotificationKind = "status_change"

// Notification is an in-app message addressed to a single user.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// UserID is the recipient.
	UserID int64 `json:"user_id" db:"user_id"`

	// TaskID links this notification to the originating task.
	TaskID int64 `json:"task_id" db:"task_id"`

	// Kind identifies which flow generated this notification.
	Kind NotificationKind `json:"kind" db:"kind"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
