package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/team-taskboard/domain/task"
)

// TaskPort defines the interface for task operations. This is the port that
// other modules use to access task functionality.
type TaskPort interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
	ListTasks(ctx context.Context, userID string) ([]*domain.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error)
	UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error)
	SetTaskStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	AddComment(ctx context.Context, userID, taskID, text string) (*domain.Task, error)
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{container: container}
}

// CreateTask creates a new task.
func (a *TaskAdapter) CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	var resp CreateTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCreateTask,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("create-task request failed: %w", err)
	}
	return resp.Task, nil
}

// ListTasks returns all tasks visible to the user.
func (a *TaskAdapter) ListTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	req := ListTasksRequest{UserID: userID}
	var resp ListTasksResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListTasks,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("list-tasks request failed: %w", err)
	}
	return resp.Tasks, nil
}

// GetTask retrieves a single task.
func (a *TaskAdapter) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	req := GetTaskRequest{UserID: userID, TaskID: taskID}
	var resp GetTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetTask,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-task request failed: %w", err)
	}
	return resp.Task, nil
}

// UpdateTask applies a partial update to a task.
func (a *TaskAdapter) UpdateTask(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error) {
	var resp UpdateTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceUpdateTask,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("update-task request failed: %w", err)
	}
	return resp.Task, nil
}

// SetTaskStatus applies a status-only update to a task.
func (a *TaskAdapter) SetTaskStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error) {
	req := SetTaskStatusRequest{UserID: userID, TaskID: taskID, Status: status}
	var resp SetTaskStatusResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceSetTaskStatus,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("set-task-status request failed: %w", err)
	}
	return resp.Task, nil
}

// DeleteTask removes a task.
func (a *TaskAdapter) DeleteTask(ctx context.Context, userID, taskID string) error {
	req := DeleteTaskRequest{UserID: userID, TaskID: taskID}
	var resp DeleteTaskResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceDeleteTask,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("delete-task request failed: %w", err)
	}
	return nil
}

// AddComment appends a comment to a task.
func (a *TaskAdapter) AddComment(ctx context.Context, userID, taskID, text string) (*domain.Task, error) {
	req := AddCommentRequest{UserID: userID, TaskID: taskID, Text: text}
	var resp AddCommentResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceAddComment,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("add-comment request failed: %w", err)
	}
	return resp.Task, nil
}
