package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/team-taskboard/domain/task"
	"github.com/example/team-taskboard/events"
)

// BroadcastModule consumes task change events and fans them out to the
// WebSocket sessions permitted to see each task.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait() // Wait for hub to finish
	}
	log.Printf("[broadcast] Module stopped - %d sessions were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_sessions": m.hub.ClientCount(),
			"online_users":       len(m.hub.OnlineUsers()),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskChangedV1, m.handleTaskChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskChanged consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: TaskChanged")
	return nil
}

// handleTaskChanged routes a task mutation to connected sessions. The
// recipient list in the event names users, not sessions; which sessions
// receive the frame is resolved against the hub at delivery time, so
// sessions that connected after the mutation committed are included and
// sessions that disconnected are skipped.
func (m *BroadcastModule) handleTaskChanged(_ context.Context, event events.TaskChangedEvent, _ *mono.Msg) error {
	frame := WSEvent{
		Type:      frameType(event.Kind),
		TaskID:    event.TaskID,
		Task:      event.Task,
		Timestamp: event.OccurredAt,
	}

	if event.Broadcast {
		log.Printf("[broadcast] Broadcasting %s for task %s to all signed-in sessions", event.Kind, event.TaskID)
		m.hub.SendToBound(frame)
		return nil
	}

	log.Printf("[broadcast] Sending %s for task %s to %d users", event.Kind, event.TaskID, len(event.Recipients))
	m.hub.SendToUsers(event.Recipients, frame)
	return nil
}

func frameType(kind string) string {
	switch kind {
	case events.TaskCreated:
		return "taskCreated"
	case events.TaskUpdated:
		return "taskUpdated"
	case events.TaskDeleted:
		return "taskDeleted"
	default:
		return kind
	}
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// WSEvent is the frame structure sent to WebSocket clients. Deleted-kind
// frames carry only the task id.
type WSEvent struct {
	Type      string       `json:"type"`
	TaskID    string       `json:"taskId"`
	Task      *domain.Task `json:"task,omitempty"`
	Timestamp time.Time    `json:"timestamp,omitempty"`
}
