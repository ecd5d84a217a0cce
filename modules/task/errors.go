package task

import "errors"

var (
	// ErrNotFound is returned when a task is absent or not visible to the
	// caller. The two cases are reported identically so that an
	// unauthorized caller cannot probe for a task's existence.
	ErrNotFound = errors.New("task not found")

	// ErrForbidden is returned when a visible task rejects the operation,
	// e.g. a non-creator attempting a delete.
	ErrForbidden = errors.New("access denied")

	// Validation errors. All are surfaced to the caller verbatim.
	ErrTitleRequired = errors.New("task title is required")
	ErrBadStatus     = errors.New("invalid status value")
	ErrBadPriority   = errors.New("invalid priority value")
	ErrEmptyComment  = errors.New("comment text is required")
	ErrBadAssignee   = errors.New("assignee requires an assignee_type")
)
