package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus represents the board column a task sits in
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// StatusHistoryEntry represents a status change in the task lifecycle
type StatusHistoryEntry struct {
	Status    TaskStatus         `json:"status" bson:"status"`
	ChangedBy primitive.ObjectID `json:"changed_by" bson:"changed_by"`
	ChangedAt time.Time          `json:"changed_at" bson:"changed_at"`
}

// Task represents a board task
type Task struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Status      TaskStatus         `json:"status" bson:"status"`

	ProjectID  primitive.ObjectID  `json:"project_id,omitempty" bson:"project_id,omitempty"`
	AssigneeID *primitive.ObjectID `json:"assignee_id,omitempty" bson:"assignee_id,omitempty"`
	CreatorID  primitive.ObjectID  `json:"creator_id" bson:"creator_id"`

	StatusHistory []StatusHistoryEntry `json:"status_history,omitempty" bson:"status_history,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Comment represents a comment on a task
type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID    primitive.ObjectID `json:"task_id" bson:"task_id"`
	AuthorID  primitive.ObjectID `json:"author_id" bson:"author_id"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
