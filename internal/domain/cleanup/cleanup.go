package cleanup

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var ErrTaskNotFound = errors.New("cleanup task not found")

// Task records a stored file that must be removed because the listing row that
// referenced it changed or disappeared. Rows are written in the same
// transaction as that change.
type Task struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
	RunAt       time.Time  `json:"runAt"`
	LockedAt    *time.Time `json:"lockedAt,omitempty"`
	LockedBy    *string    `json:"lockedBy,omitempty"`
	LastError   *string    `json:"lastError,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

const DefaultMaxAttempts = 10
