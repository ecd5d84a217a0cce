package task

import (
	"time"
)

// Task status values.
const (
	StatusTodo       = "todo"
	StatusInProgress = "inprogress"
	StatusDone       = "done"
)

// Task priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidStatus reports whether s is one of the allowed status values.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ValidPriority reports whether p is one of the allowed priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a task entity. The assignee/assignee_type column pair is
// the legacy storage shape; use Visibility()/SetVisibility to work with it.
type Task struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  string     `gorm:"size:2000" json:"description"`
	Status       string     `gorm:"size:16;not null;default:todo" json:"status"`
	Priority     string     `gorm:"size:16;not null;default:medium" json:"priority"`
	Assignee     string     `gorm:"size:64;index" json:"assignee,omitempty"`
	AssigneeType string     `gorm:"size:16;not null;default:private" json:"assignee_type"`
	CreatedBy    string     `gorm:"size:36;not null;index" json:"created_by"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Tags         []string   `gorm:"serializer:json" json:"tags"`
	Comments     []Comment  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"comments"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Comment is an entry in a task's append-only comment log.
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	TaskID    string    `gorm:"size:36;not null;index" json:"-"`
	Author    string    `gorm:"size:36;not null" json:"author"`
	Text      string    `gorm:"size:2000;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the Comment entity.
func (Comment) TableName() string {
	return "task_comments"
}
