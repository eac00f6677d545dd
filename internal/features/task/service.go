package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-taskboard/internal/features/email"
	"go-taskboard/internal/features/notification"
	"go-taskboard/internal/features/user"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Dispatcher is the push side consumed by the task workflows.
// *realtime.PushDispatcher satisfies it.
type Dispatcher interface {
	SendNotification(userID string, record *notification.Notification)
	SendTaskUpdate(taskID string, update interface{})
}

// TaskService defines the interface for task business logic
type TaskService interface {
	CreateTask(ctx context.Context, task *Task, createdBy primitive.ObjectID) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Task, int64, error)
	UpdateTask(ctx context.Context, id string, updates map[string]interface{}, updatedBy primitive.ObjectID) error
	DeleteTask(ctx context.Context, id string, deletedBy primitive.ObjectID) error

	// Assignment & status
	AssignTask(ctx context.Context, id string, assigneeID, assignedBy primitive.ObjectID) error
	UpdateStatus(ctx context.Context, id string, status TaskStatus, changedBy primitive.ObjectID) error

	// Comments
	AddComment(ctx context.Context, taskID string, comment *Comment) error
	ListComments(ctx context.Context, taskID string) ([]Comment, error)

	// Project membership
	InviteToProject(ctx context.Context, projectID primitive.ObjectID, projectName string, inviteeID, invitedBy primitive.ObjectID) error
}

// TaskServiceImpl implements TaskService
type TaskServiceImpl struct {
	TaskRepo            TaskRepository
	CommentRepo         CommentRepository
	UserRepo            user.UserRepository
	NotificationService notification.NotificationService
	Dispatcher          Dispatcher
	EmailService        email.EmailService
	Log                 *zap.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo TaskRepository,
	commentRepo CommentRepository,
	userRepo user.UserRepository,
	notificationService notification.NotificationService,
	dispatcher Dispatcher,
	emailService email.EmailService,
	log *zap.Logger,
) TaskService {
	return &TaskServiceImpl{
		TaskRepo:            taskRepo,
		CommentRepo:         commentRepo,
		UserRepo:            userRepo,
		NotificationService: notificationService,
		Dispatcher:          dispatcher,
		EmailService:        emailService,
		Log:                 log,
	}
}

// notify persists a notification record, pushes it to the recipient's live
// connections, and fires the email side-effect. Every failure is logged and
// swallowed: notification is additive, never a precondition for the domain
// write that triggered it.
func (s *TaskServiceImpl) notify(ctx context.Context, recipient primitive.ObjectID, kind notification.NotificationType, title, message string, metadata map[string]interface{}) {
	record, err := s.NotificationService.CreateNotification(ctx, recipient, kind, title, message, metadata)
	if err != nil {
		s.Log.Warn("notification create failed",
			zap.String("userId", recipient.Hex()),
			zap.String("type", string(kind)),
			zap.Error(err))
		return
	}

	s.Dispatcher.SendNotification(recipient.Hex(), record)

	// Email is strictly decoupled: it runs after the record exists and
	// never gates the push or the primary write.
	go s.emailNotification(recipient, title, message)
}

func (s *TaskServiceImpl) emailNotification(recipient primitive.ObjectID, subject, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := s.UserRepo.FindByID(ctx, recipient)
	if err != nil || u.Email == "" {
		return
	}
	if err := s.EmailService.SendEmail(ctx, []string{u.Email}, subject, body); err != nil {
		s.Log.Warn("notification email failed",
			zap.String("userId", recipient.Hex()),
			zap.Error(err))
	}
}

// actorName resolves a display name for notification copy; lookup failure
// degrades to a neutral placeholder rather than failing the caller.
func (s *TaskServiceImpl) actorName(ctx context.Context, id primitive.ObjectID) string {
	u, err := s.UserRepo.FindByID(ctx, id)
	if err != nil {
		return "Someone"
	}
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Username
}

// CreateTask creates a new task. Creating with an assignee is an
// assignment event and notifies the assignee, self-assignment included.
func (s *TaskServiceImpl) CreateTask(ctx context.Context, t *Task, createdBy primitive.ObjectID) error {
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	t.CreatorID = createdBy
	t.StatusHistory = []StatusHistoryEntry{
		{Status: t.Status, ChangedBy: createdBy, ChangedAt: time.Now()},
	}

	if err := s.TaskRepo.Create(ctx, t); err != nil {
		return err
	}

	if t.AssigneeID != nil {
		s.notifyAssignment(ctx, t, *t.AssigneeID, createdBy)
	}

	s.Dispatcher.SendTaskUpdate(t.ID.Hex(), map[string]interface{}{"action": "created"})
	return nil
}

// GetTask retrieves a task by ID
func (s *TaskServiceImpl) GetTask(ctx context.Context, id string) (*Task, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.New("invalid task ID")
	}
	return s.TaskRepo.FindByID(ctx, objID)
}

// ListTasks retrieves tasks with filtering and pagination
func (s *TaskServiceImpl) ListTasks(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]Task, int64, error) {
	filter := bson.M{}

	if status, ok := filters["status"].(string); ok && status != "" {
		filter["status"] = status
	}
	if assignee, ok := filters["assignee_id"].(string); ok && assignee != "" {
		if objID, err := primitive.ObjectIDFromHex(assignee); err == nil {
			filter["assignee_id"] = objID
		}
	}
	if project, ok := filters["project_id"].(string); ok && project != "" {
		if objID, err := primitive.ObjectIDFromHex(project); err == nil {
			filter["project_id"] = objID
		}
	}
	if search, ok := filters["search"].(string); ok && search != "" {
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": search, "$options": "i"}},
			{"description": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	return s.TaskRepo.FindAll(ctx, filter, page, limit)
}

// UpdateTask applies general field updates. Assignment and status moves go
// through AssignTask/UpdateStatus, which own their notification rules.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, id string, updates map[string]interface{}, updatedBy primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid task ID")
	}

	bsonUpdates := bson.M{}
	for k, v := range updates {
		if k == "assignee_id" || k == "status" {
			continue
		}
		bsonUpdates[k] = v
	}
	if len(bsonUpdates) == 0 {
		return nil
	}

	if err := s.TaskRepo.Update(ctx, objID, bsonUpdates); err != nil {
		return err
	}

	s.Dispatcher.SendTaskUpdate(id, map[string]interface{}{"action": "updated", "fields": updates})
	return nil
}

// DeleteTask removes a task and broadcasts the removal
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, id string, deletedBy primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid task ID")
	}

	if err := s.TaskRepo.Delete(ctx, objID); err != nil {
		return err
	}

	s.Dispatcher.SendTaskUpdate(id, map[string]interface{}{"action": "deleted"})
	return nil
}

// AssignTask sets the assignee and notifies them. Assigning a task to
// yourself still notifies, with different copy than a third-party
// assignment but the same notification type.
func (s *TaskServiceImpl) AssignTask(ctx context.Context, id string, assigneeID, assignedBy primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid task ID")
	}

	t, err := s.TaskRepo.FindByID(ctx, objID)
	if err != nil {
		return err
	}

	if err := s.TaskRepo.Update(ctx, objID, bson.M{"assignee_id": assigneeID}); err != nil {
		return err
	}

	s.notifyAssignment(ctx, t, assigneeID, assignedBy)
	s.Dispatcher.SendTaskUpdate(id, map[string]interface{}{"action": "assigned", "assignee_id": assigneeID.Hex()})
	return nil
}

func (s *TaskServiceImpl) notifyAssignment(ctx context.Context, t *Task, assigneeID, assignedBy primitive.ObjectID) {
	var title string
	if assigneeID == assignedBy {
		title = "You assigned yourself a task"
	} else {
		title = fmt.Sprintf("%s assigned you a task", s.actorName(ctx, assignedBy))
	}

	s.notify(ctx, assigneeID, notification.NotificationTypeTaskAssigned,
		title,
		t.Title,
		map[string]interface{}{"taskId": t.ID.Hex()})
}

// UpdateStatus moves a task on the board. It fires a notification to the
// assignee only when the status actually changes; self-moves notify too,
// matching assignment behavior.
func (s *TaskServiceImpl) UpdateStatus(ctx context.Context, id string, status TaskStatus, changedBy primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.New("invalid task ID")
	}

	t, err := s.TaskRepo.FindByID(ctx, objID)
	if err != nil {
		return err
	}

	if t.Status == status {
		return nil
	}

	if err := s.TaskRepo.Update(ctx, objID, bson.M{"status": status}); err != nil {
		return err
	}
	entry := StatusHistoryEntry{Status: status, ChangedBy: changedBy, ChangedAt: time.Now()}
	if err := s.TaskRepo.PushStatusHistory(ctx, objID, entry); err != nil {
		s.Log.Warn("status history append failed", zap.String("taskId", id), zap.Error(err))
	}

	if t.AssigneeID != nil {
		s.notify(ctx, *t.AssigneeID, notification.NotificationTypeTaskUpdated,
			"Task status updated",
			fmt.Sprintf("%s moved %q to %s", s.actorName(ctx, changedBy), t.Title, status),
			map[string]interface{}{"taskId": id, "status": string(status)})
	}

	s.Dispatcher.SendTaskUpdate(id, map[string]interface{}{"action": "status", "status": string(status)})
	return nil
}

// AddComment persists the comment, then fans notifications out to the
// resolved recipient set: mentioned users, then the assignee, then the
// creator, each at most once and never the author. Recipient resolution
// failures are logged and never fail the comment write.
func (s *TaskServiceImpl) AddComment(ctx context.Context, taskID string, comment *Comment) error {
	objID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return errors.New("invalid task ID")
	}
	comment.TaskID = objID

	if err := s.CommentRepo.Create(ctx, comment); err != nil {
		return err
	}

	t, err := s.TaskRepo.FindByID(ctx, objID)
	if err != nil {
		// Task vanished between the comment write and here; the comment
		// stands, nobody gets notified.
		s.Log.Warn("comment notification skipped: task lookup failed",
			zap.String("taskId", taskID), zap.Error(err))
		return nil
	}

	s.notifyCommentRecipients(ctx, t, comment)

	s.Dispatcher.SendTaskUpdate(taskID, map[string]interface{}{"action": "commented", "comment_id": comment.ID.Hex()})
	return nil
}

func (s *TaskServiceImpl) notifyCommentRecipients(ctx context.Context, t *Task, comment *Comment) {
	author := comment.AuthorID
	authorName := s.actorName(ctx, author)
	metadata := map[string]interface{}{
		"taskId":    t.ID.Hex(),
		"commentId": comment.ID.Hex(),
	}

	notified := map[primitive.ObjectID]struct{}{author: {}}

	directory, err := s.UserRepo.List(ctx)
	if err != nil {
		s.Log.Warn("mention resolution skipped: directory lookup failed",
			zap.String("taskId", t.ID.Hex()), zap.Error(err))
	} else {
		for _, mentioned := range ResolveMentions(comment.Body, directory) {
			if _, done := notified[mentioned]; done {
				continue
			}
			notified[mentioned] = struct{}{}
			s.notify(ctx, mentioned, notification.NotificationTypeTaskCommented,
				fmt.Sprintf("%s mentioned you on %q", authorName, t.Title),
				comment.Body, metadata)
		}
	}

	if t.AssigneeID != nil {
		if _, done := notified[*t.AssigneeID]; !done {
			notified[*t.AssigneeID] = struct{}{}
			s.notify(ctx, *t.AssigneeID, notification.NotificationTypeTaskCommented,
				fmt.Sprintf("%s commented on %q", authorName, t.Title),
				comment.Body, metadata)
		}
	}

	if _, done := notified[t.CreatorID]; !done {
		notified[t.CreatorID] = struct{}{}
		s.notify(ctx, t.CreatorID, notification.NotificationTypeTaskCommented,
			fmt.Sprintf("%s commented on %q", authorName, t.Title),
			comment.Body, metadata)
	}
}

// ListComments retrieves all comments for a task
func (s *TaskServiceImpl) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	objID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, errors.New("invalid task ID")
	}
	return s.CommentRepo.FindByTaskID(ctx, objID)
}

// InviteToProject notifies a user they were added to a project board.
// Project membership itself lives outside this service.
func (s *TaskServiceImpl) InviteToProject(ctx context.Context, projectID primitive.ObjectID, projectName string, inviteeID, invitedBy primitive.ObjectID) error {
	s.notify(ctx, inviteeID, notification.NotificationTypeProjectInvited,
		fmt.Sprintf("%s invited you to %s", s.actorName(ctx, invitedBy), projectName),
		fmt.Sprintf("You are now a member of %s", projectName),
		map[string]interface{}{"projectId": projectID.Hex()})
	return nil
}
