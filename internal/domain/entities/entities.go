package entities

import (
	"strings"
	"time"
)

// TaskStatus is the workflow state of a task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in progress"
	TaskStatusDone       TaskStatus = "done"

	// TaskStatusUnknown is only used for display; it is never stored.
	TaskStatusUnknown TaskStatus = "unknown"
)

// User represents an account that can own tasks
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TaskOwner is the slice of the owning user exposed next to a task
type TaskOwner struct {
	Username string `json:"username"`
}

// Task represents a to-do item
type Task struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      TaskStatus `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	OwnerID     *int64     `json:"owner_id" db:"owner_id"`
	Owner       *TaskOwner `json:"owner,omitempty" db:"-"`
}

// IsValid reports whether the status is one of the known workflow states.
func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Display maps unrecognised stored values to "unknown".
func (ts TaskStatus) Display() TaskStatus {
	if ts.IsValid() {
		return ts
	}
	return TaskStatusUnknown
}

// Rank orders statuses along the workflow; unknown values sort last.
func (ts TaskStatus) Rank() int {
	switch ts {
	case TaskStatusOpen:
		return 0
	case TaskStatusInProgress:
		return 1
	case TaskStatusDone:
		return 2
	default:
		return 3
	}
}

// IsOwnedBy reports whether the task belongs to the given user.
func (t *Task) IsOwnedBy(userID int64) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// ValidateTitle rejects blank titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	return nil
}
