package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/team-taskboard/domain/task"
	"github.com/example/team-taskboard/events"
	"github.com/example/team-taskboard/modules/auth"
)

// Module provides task services and emits task change events.
type Module struct {
	db       *gorm.DB
	repo     *Repository
	service  *Service
	dbPath   string
	eventBus mono.EventBus
	dir      Directory
	cache    ListCache
}

// Compile-time interface checks.
var (
	_ mono.Module                              = (*Module)(nil)
	_ mono.ServiceProviderModule               = (*Module)(nil)
	_ mono.EventBusAwareModule                 = (*Module)(nil)
	_ mono.EventEmitterModule                  = (*Module)(nil)
	_ mono.DependentModule                     = (*Module)(nil)
	_ mono.HealthCheckableModule               = (*Module)(nil)
)

// NewModule creates a new task module.
func NewModule() *Module {
	dbPath := os.Getenv("TASKBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "task"
}

// Dependencies returns the list of module dependencies. The auth module
// doubles as the user directory.
func (m *Module) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.dir = auth.NewAuthAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskChangedV1.ToBase(),
	}
}

// SetCache enables the per-user task list cache. Wired from main when a
// Redis address is configured.
func (m *Module) SetCache(c ListCache) {
	m.cache = c
	if m.service != nil {
		m.service.SetCache(c)
	}
}

// Start opens the database and builds the service.
func (m *Module) Start(_ context.Context) error {
	if m.dir == nil {
		return fmt.Errorf("auth dependency not set")
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Task{}, &domain.Comment{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewRepository(db)
	m.service = NewService(m.repo, m.dir, &busPublisher{bus: m.eventBus})
	if m.cache != nil {
		m.service.SetCache(m.cache)
	}

	log.Printf("[task] Module started (database: %s)", m.dbPath)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.Ping(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
			"cached":   m.cache != nil,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateTask, json.Unmarshal, json.Marshal, m.handleCreateTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListTasks, json.Unmarshal, json.Marshal, m.handleListTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetTask, json.Unmarshal, json.Marshal, m.handleGetTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdateTask, json.Unmarshal, json.Marshal, m.handleUpdateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSetTaskStatus, json.Unmarshal, json.Marshal, m.handleSetTaskStatus,
	); err != nil {
		return fmt.Errorf("failed to register set-task-status service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteTask, json.Unmarshal, json.Marshal, m.handleDeleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceAddComment, json.Unmarshal, json.Marshal, m.handleAddComment,
	); err != nil {
		return fmt.Errorf("failed to register add-comment service: %w", err)
	}

	log.Println("[task] Registered services: create-task, list-tasks, get-task, update-task, set-task-status, delete-task, add-comment")
	return nil
}

func (m *Module) handleCreateTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	t, err := m.service.CreateTask(ctx, req)
	if err != nil {
		return CreateTaskResponse{}, err
	}
	return CreateTaskResponse{Task: t}, nil
}

func (m *Module) handleListTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, err := m.service.ListTasks(ctx, req.UserID)
	if err != nil {
		return ListTasksResponse{}, err
	}
	return ListTasksResponse{Tasks: tasks}, nil
}

func (m *Module) handleGetTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (GetTaskResponse, error) {
	t, err := m.service.GetTask(ctx, req.UserID, req.TaskID)
	if err != nil {
		return GetTaskResponse{}, err
	}
	return GetTaskResponse{Task: t}, nil
}

func (m *Module) handleUpdateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (UpdateTaskResponse, error) {
	patch, err := req.Patch()
	if err != nil {
		return UpdateTaskResponse{}, err
	}
	t, err := m.service.UpdateTask(ctx, req.UserID, req.TaskID, patch)
	if err != nil {
		return UpdateTaskResponse{}, err
	}
	return UpdateTaskResponse{Task: t}, nil
}

func (m *Module) handleSetTaskStatus(ctx context.Context, req SetTaskStatusRequest, _ *mono.Msg) (SetTaskStatusResponse, error) {
	t, err := m.service.SetTaskStatus(ctx, req.UserID, req.TaskID, req.Status)
	if err != nil {
		return SetTaskStatusResponse{}, err
	}
	return SetTaskStatusResponse{Task: t}, nil
}

func (m *Module) handleDeleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	if err := m.service.DeleteTask(ctx, req.UserID, req.TaskID); err != nil {
		return DeleteTaskResponse{}, err
	}
	return DeleteTaskResponse{TaskID: req.TaskID}, nil
}

func (m *Module) handleAddComment(ctx context.Context, req AddCommentRequest, _ *mono.Msg) (AddCommentResponse, error) {
	t, err := m.service.AddComment(ctx, req.UserID, req.TaskID, req.Text)
	if err != nil {
		return AddCommentResponse{}, err
	}
	return AddCommentResponse{Task: t}, nil
}

// busPublisher publishes task events on the framework event bus.
type busPublisher struct {
	bus mono.EventBus
}

func (p *busPublisher) PublishTaskChanged(_ context.Context, event events.TaskChangedEvent) error {
	return events.TaskChangedV1.Publish(p.bus, event, nil)
}
