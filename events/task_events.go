package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/team-taskboard/domain/task"
)

// Task event kinds.
const (
	TaskCreated = "created"
	TaskUpdated = "updated"
	TaskDeleted = "deleted"
)

// TaskChangedEvent is emitted after a task mutation commits. A deleted-kind
// event carries only the task id; it is also used as a visibility-revocation
// signal for sessions that lost access on an update.
//
// All kinds share one event definition so that events for the same task reach
// consumers in the order their mutations committed; separate definitions per
// kind would not preserve ordering between an update and its revocation.
type TaskChangedEvent struct {
	Kind       string       `json:"kind"`
	TaskID     string       `json:"task_id"`
	Task       *domain.Task `json:"task,omitempty"`
	Recipients []string     `json:"recipients"`
	Broadcast  bool         `json:"broadcast"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// TaskChangedV1 is the typed event definition for task mutations.
var TaskChangedV1 = helper.EventDefinition[TaskChangedEvent](
	"task",
	"TaskChanged",
	"v1",
)
