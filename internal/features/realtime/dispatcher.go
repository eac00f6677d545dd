package realtime

import (
	"encoding/json"

	"go-taskboard/internal/features/notification"

	"go.uber.org/zap"
)

// Wire events pushed to clients.
const (
	EventNotification = "notification"
	EventTaskUpdate   = "task:update"
)

// Envelope is the wire shape of every push.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// TaskUpdatePayload accompanies EventTaskUpdate pushes.
type TaskUpdatePayload struct {
	TaskID string      `json:"taskId"`
	Update interface{} `json:"update"`
}

// PushDispatcher serializes push envelopes and hands them to the session
// registry. At-most-once: no retry, no acknowledgment, no queueing beyond
// the per-connection buffer.
type PushDispatcher struct {
	registry *SessionRegistry
	log      *zap.Logger
}

func NewPushDispatcher(registry *SessionRegistry, log *zap.Logger) *PushDispatcher {
	return &PushDispatcher{
		registry: registry,
		log:      log,
	}
}

// SendNotification pushes a persisted notification record to every live
// connection of its recipient. No connection is a silent no-op; the record
// itself is the durable fallback.
func (d *PushDispatcher) SendNotification(userID string, record *notification.Notification) {
	payload, err := json.Marshal(Envelope{Event: EventNotification, Payload: record})
	if err != nil {
		d.log.Error("failed to serialize notification push",
			zap.String("userId", userID),
			zap.Error(err))
		return
	}
	d.registry.SendToUser(userID, payload)
}

// SendTaskUpdate broadcasts a board-refresh event to all connected
// sessions regardless of identity. Carries no unread-count implications.
func (d *PushDispatcher) SendTaskUpdate(taskID string, update interface{}) {
	payload, err := json.Marshal(Envelope{
		Event:   EventTaskUpdate,
		Payload: TaskUpdatePayload{TaskID: taskID, Update: update},
	})
	if err != nil {
		d.log.Error("failed to serialize task update push",
			zap.String("taskId", taskID),
			zap.Error(err))
		return
	}
	d.registry.Broadcast(payload)
}
