package task

import (
	"time"

	domain "github.com/example/team-taskboard/domain/task"
)

// Service names registered in the task module's service container.
const (
	ServiceCreateTask    = "create-task"
	ServiceListTasks     = "list-tasks"
	ServiceGetTask       = "get-task"
	ServiceUpdateTask    = "update-task"
	ServiceSetTaskStatus = "set-task-status"
	ServiceDeleteTask    = "delete-task"
	ServiceAddComment    = "add-comment"
)

// Patch describes a partial task update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	Deadline    *time.Time
	Tags        *[]string
	Visibility  *domain.Visibility
}

// VisibilityFromWire decodes the legacy assignee/assignee_type request pair
// into the tagged form.
func VisibilityFromWire(assignee, assigneeType string) domain.Visibility {
	switch assigneeType {
	case domain.VisibilityEveryone:
		return domain.Everyone()
	case domain.VisibilityShared:
		return domain.SharedWith(assignee)
	default:
		return domain.Private()
	}
}

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	UserID       string     `json:"user_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Assignee     string     `json:"assignee"`
	AssigneeType string     `json:"assignee_type"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Tags         []string   `json:"tags"`
}

// CreateTaskResponse is the response for creating a task.
type CreateTaskResponse struct {
	Task *domain.Task `json:"task"`
}

// ListTasksRequest is the request for listing tasks visible to a user.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
}

// ListTasksResponse is the response for listing tasks.
type ListTasksResponse struct {
	Tasks []*domain.Task `json:"tasks"`
}

// GetTaskRequest is the request for fetching a single task.
type GetTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// GetTaskResponse is the response for fetching a single task.
type GetTaskResponse struct {
	Task *domain.Task `json:"task"`
}

// UpdateTaskRequest is the request for a partial task update. Nil fields are
// left untouched; assignee and assignee_type travel together.
type UpdateTaskRequest struct {
	UserID       string      `json:"user_id"`
	TaskID       string      `json:"task_id"`
	Title        *string     `json:"title,omitempty"`
	Description  *string     `json:"description,omitempty"`
	Status       *string     `json:"status,omitempty"`
	Priority     *string     `json:"priority,omitempty"`
	Assignee     *string     `json:"assignee,omitempty"`
	AssigneeType *string     `json:"assignee_type,omitempty"`
	Deadline     *time.Time  `json:"deadline,omitempty"`
	Tags         *[]string   `json:"tags,omitempty"`
}

// UpdateTaskResponse is the response for a task update.
type UpdateTaskResponse struct {
	Task *domain.Task `json:"task"`
}

// SetTaskStatusRequest is the request for a status-only update.
type SetTaskStatusRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// SetTaskStatusResponse is the response for a status-only update.
type SetTaskStatusResponse struct {
	Task *domain.Task `json:"task"`
}

// DeleteTaskRequest is the request for deleting a task.
type DeleteTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// DeleteTaskResponse is the response for deleting a task.
type DeleteTaskResponse struct {
	TaskID string `json:"task_id"`
}

// AddCommentRequest is the request for appending a comment.
type AddCommentRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
	Text   string `json:"text"`
}

// AddCommentResponse is the response for appending a comment.
type AddCommentResponse struct {
	Task *domain.Task `json:"task"`
}

// Patch converts the update request into a repository patch. An assignee
// without an assignee_type is rejected rather than silently dropped.
func (r *UpdateTaskRequest) Patch() (Patch, error) {
	p := Patch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		Deadline:    r.Deadline,
		Tags:        r.Tags,
	}
	if r.AssigneeType == nil {
		if r.Assignee != nil {
			return Patch{}, ErrBadAssignee
		}
		return p, nil
	}
	assignee := ""
	if r.Assignee != nil {
		assignee = *r.Assignee
	}
	v := VisibilityFromWire(assignee, *r.AssigneeType)
	p.Visibility = &v
	return p, nil
}
