// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Priority values for tasks.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status values for the kanban column a task sits in.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidPriority reports whether p is low, medium, or high.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is todo, in-progress, or completed.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusCompleted
}

// Task is a card on a project board. ProjectID is nil only for legacy tasks
// created before projects existed; those are visible solely to the user in
// LegacyUserID. TaskStatus is a free-form label distinct from Status.
type Task struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Category     string              `bson:"category" json:"category"`
	Priority     string              `bson:"priority" json:"priority"`
	Status       string              `bson:"status" json:"status"`
	TaskStatus   string              `bson:"task_status,omitempty" json:"taskStatus,omitempty"`
	Assignee     string              `bson:"assignee,omitempty" json:"assignee,omitempty"`
	ProjectID    *primitive.ObjectID `bson:"project_id,omitempty" json:"projectId,omitempty"`
	LegacyUserID primitive.ObjectID  `bson:"user_id" json:"userId"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
