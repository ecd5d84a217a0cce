package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	taskdomain "github.com/example/team-taskboard/domain/task"
	userdomain "github.com/example/team-taskboard/domain/user"
	"github.com/example/team-taskboard/modules/broadcast"
	"github.com/example/team-taskboard/modules/task"
)

// mockTaskPort implements task.TaskPort for testing.
type mockTaskPort struct {
	createTaskFunc func(ctx context.Context, req task.CreateTaskRequest) (*taskdomain.Task, error)
	getTaskFunc    func(ctx context.Context, userID, taskID string) (*taskdomain.Task, error)
	deleteTaskFunc func(ctx context.Context, userID, taskID string) error
}

func (m *mockTaskPort) CreateTask(ctx context.Context, req task.CreateTaskRequest) (*taskdomain.Task, error) {
	if m.createTaskFunc != nil {
		return m.createTaskFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) ListTasks(_ context.Context, _ string) ([]*taskdomain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) GetTask(ctx context.Context, userID, taskID string) (*taskdomain.Task, error) {
	if m.getTaskFunc != nil {
		return m.getTaskFunc(ctx, userID, taskID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) UpdateTask(_ context.Context, _ task.UpdateTaskRequest) (*taskdomain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) SetTaskStatus(_ context.Context, _, _, _ string) (*taskdomain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, userID, taskID string) error {
	if m.deleteTaskFunc != nil {
		return m.deleteTaskFunc(ctx, userID, taskID)
	}
	return errors.New("not implemented")
}

func (m *mockTaskPort) AddComment(_ context.Context, _, _, _ string) (*taskdomain.Task, error) {
	return nil, errors.New("not implemented")
}

// setupTaskTestApp builds a fiber app with authenticated task routes backed
// by the given mock.
func setupTaskTestApp(t *testing.T, taskPort task.TaskPort) *fiber.App {
	t.Helper()

	authPort := &mockAuthPort{
		validateTokenFunc: func(_ context.Context, _ string) (*userdomain.Claims, error) {
			return &userdomain.Claims{UserID: "alice", Email: "alice@example.com"}, nil
		},
	}
	handlers := NewHandlers(nil, authPort, taskPort, broadcast.NewHub())

	app := fiber.New()
	app.Use(AuthMiddleware(authPort))
	app.Get("/tasks/:id", handlers.GetTask)
	app.Post("/tasks", handlers.CreateTask)
	app.Delete("/tasks/:id", handlers.DeleteTask)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	return resp, string(raw)
}

func TestGetTask_NotFoundAndInaccessibleLookTheSame(t *testing.T) {
	// The service reports both a missing task and a task the caller may
	// not see with the same error, so the API cannot leak existence.
	app := setupTaskTestApp(t, &mockTaskPort{
		getTaskFunc: func(_ context.Context, _, _ string) (*taskdomain.Task, error) {
			return nil, errors.New("get-task request failed: task not found")
		},
	})

	resp, body := doRequest(t, app, "GET", "/tasks/someone-elses-task", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if !strings.Contains(body, "not_found") {
		t.Errorf("body = %s, want not_found", body)
	}
}

func TestDeleteTask_NonCreatorForbidden(t *testing.T) {
	app := setupTaskTestApp(t, &mockTaskPort{
		deleteTaskFunc: func(_ context.Context, _, _ string) error {
			return errors.New("delete-task request failed: access denied")
		},
	})

	resp, body := doRequest(t, app, "DELETE", "/tasks/t1", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	if !strings.Contains(body, "forbidden") {
		t.Errorf("body = %s, want forbidden", body)
	}
}

func TestCreateTask_ValidationMapsToBadRequest(t *testing.T) {
	tests := []struct {
		name    string
		svcErr  string
		wantMsg string
	}{
		{"blank title", "create-task request failed: task title is required", "Task title is required"},
		{"bad status", "create-task request failed: invalid status value", "Invalid status value"},
		{"bad priority", "create-task request failed: invalid priority value", "Invalid priority value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupTaskTestApp(t, &mockTaskPort{
				createTaskFunc: func(_ context.Context, _ task.CreateTaskRequest) (*taskdomain.Task, error) {
					return nil, errors.New(tt.svcErr)
				},
			})

			resp, body := doRequest(t, app, "POST", "/tasks", `{"title":"x"}`)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
			if !strings.Contains(body, tt.wantMsg) {
				t.Errorf("body = %s, want %q", body, tt.wantMsg)
			}
		})
	}
}

func TestCreateTask_Success(t *testing.T) {
	app := setupTaskTestApp(t, &mockTaskPort{
		createTaskFunc: func(_ context.Context, req task.CreateTaskRequest) (*taskdomain.Task, error) {
			if req.UserID != "alice" {
				t.Errorf("UserID = %q, want caller identity from claims", req.UserID)
			}
			created := &taskdomain.Task{ID: "t1", Title: req.Title, CreatedBy: req.UserID}
			created.SetVisibility(task.VisibilityFromWire(req.Assignee, req.AssigneeType))
			return created, nil
		},
	})

	resp, body := doRequest(t, app, "POST", "/tasks", `{"title":"Ship v2","assignee":"bob","assignee_type":"user"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if !strings.Contains(body, `"Ship v2"`) || !strings.Contains(body, `"bob"`) {
		t.Errorf("body = %s, want created task echoed", body)
	}
}
