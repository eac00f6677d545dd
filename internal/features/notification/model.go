package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeTaskAssigned   NotificationType = "task_assigned"
	NotificationTypeTaskUpdated    NotificationType = "task_updated"
	NotificationTypeTaskCommented  NotificationType = "task_commented"
	NotificationTypeProjectInvited NotificationType = "project_invited"
)

// Notification is the durable record of a single event toward a single
// recipient. Only Read ever changes after creation.
type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"userId"`
	Type      NotificationType       `bson:"type" json:"type"`
	Title     string                 `bson:"title" json:"title"`
	Message   string                 `bson:"message" json:"message"`
	Read      bool                   `bson:"read" json:"read"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata"`
	CreatedAt time.Time              `bson:"created_at" json:"createdAt"`
	ReadAt    *time.Time             `bson:"read_at,omitempty" json:"readAt,omitempty"`
}
