package notification

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService interface {
	CreateNotification(ctx context.Context, userID primitive.ObjectID, notifType NotificationType, title, message string, metadata map[string]interface{}) (*Notification, error)
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Notification, error)
	GetUnread(ctx context.Context, userID primitive.ObjectID) ([]Notification, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*Notification, error)
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id string, userID primitive.ObjectID) error
}

type NotificationServiceImpl struct {
	repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) NotificationService {
	return &NotificationServiceImpl{
		repo: repo,
	}
}

func (s *NotificationServiceImpl) CreateNotification(ctx context.Context, userID primitive.ObjectID, notifType NotificationType, title, message string, metadata map[string]interface{}) (*Notification, error) {
	notification := &Notification{
		UserID:   userID,
		Type:     notifType,
		Title:    title,
		Message:  message,
		Metadata: metadata,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, limit int64) ([]Notification, error) {
	return s.repo.FindByUserID(ctx, userID, limit)
}

func (s *NotificationServiceImpl) GetUnread(ctx context.Context, userID primitive.ObjectID) ([]Notification, error) {
	return s.repo.FindUnread(ctx, userID)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) (*Notification, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.MarkAsRead(ctx, objID, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationServiceImpl) Delete(ctx context.Context, id string, userID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, objID, userID)
}
