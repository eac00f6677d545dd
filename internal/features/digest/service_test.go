package digest

import (
	"context"
	"sync"
	"testing"

	"go-taskboard/internal/config"
	"go-taskboard/internal/features/notification"
	"go-taskboard/internal/features/user"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type stubNotificationRepo struct {
	unreadByUser map[primitive.ObjectID][]notification.Notification
}

func (r *stubNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	return nil
}

func (r *stubNotificationRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, limit int64) ([]notification.Notification, error) {
	return nil, nil
}

func (r *stubNotificationRepo) FindUnread(ctx context.Context, userID primitive.ObjectID) ([]notification.Notification, error) {
	return r.unreadByUser[userID], nil
}

func (r *stubNotificationRepo) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return int64(len(r.unreadByUser[userID])), nil
}

func (r *stubNotificationRepo) MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) (*notification.Notification, error) {
	return nil, notification.ErrNotFound
}

func (r *stubNotificationRepo) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (r *stubNotificationRepo) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	return nil
}

func (r *stubNotificationRepo) UsersWithUnread(ctx context.Context) ([]primitive.ObjectID, error) {
	ids := make([]primitive.ObjectID, 0, len(r.unreadByUser))
	for id := range r.unreadByUser {
		ids = append(ids, id)
	}
	return ids, nil
}

type stubUserRepo struct {
	byID map[primitive.ObjectID]user.User
}

func (r *stubUserRepo) Create(ctx context.Context, u *user.User) error { return nil }

func (r *stubUserRepo) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	return nil, mongo.ErrNoDocuments
}

func (r *stubUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*user.User, error) {
	if u, ok := r.byID[id]; ok {
		return &u, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (r *stubUserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]user.User, error) {
	return nil, nil
}

func (r *stubUserRepo) List(ctx context.Context) ([]user.User, error) { return nil, nil }

type recordingEmail struct {
	mu    sync.Mutex
	sends []string // recipient addresses
}

func (s *recordingEmail) SendEmail(ctx context.Context, to []string, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = append(s.sends, to...)
	return nil
}

func TestInitializeSchedulerRejectsBadSchedule(t *testing.T) {
	svc := NewDigestService(
		&stubNotificationRepo{},
		&stubUserRepo{},
		&recordingEmail{},
		&config.Config{DigestSchedule: "not a cron line"},
		zap.NewNop(),
	)

	if err := svc.InitializeScheduler(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestInitializeSchedulerAcceptsStandardSchedule(t *testing.T) {
	svc := NewDigestService(
		&stubNotificationRepo{},
		&stubUserRepo{},
		&recordingEmail{},
		&config.Config{DigestSchedule: "0 8 * * *"},
		zap.NewNop(),
	)

	if err := svc.InitializeScheduler(context.Background()); err != nil {
		t.Fatalf("InitializeScheduler() error = %v", err)
	}
	if err := svc.StopScheduler(); err != nil {
		t.Fatalf("StopScheduler() error = %v", err)
	}
}

func TestRunOnceMailsOnlyUsersWithUnreadAndAnAddress(t *testing.T) {
	withEmail := user.User{ID: primitive.NewObjectID(), Email: "ana@example.com"}
	withoutEmail := user.User{ID: primitive.NewObjectID()}

	notifs := &stubNotificationRepo{unreadByUser: map[primitive.ObjectID][]notification.Notification{
		withEmail.ID:    {{Title: "a", Message: "m"}},
		withoutEmail.ID: {{Title: "b", Message: "m"}},
	}}
	users := &stubUserRepo{byID: map[primitive.ObjectID]user.User{
		withEmail.ID:    withEmail,
		withoutEmail.ID: withoutEmail,
	}}
	mailer := &recordingEmail{}

	svc := NewDigestService(notifs, users, mailer,
		&config.Config{DigestSchedule: "0 8 * * *"}, zap.NewNop())

	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	if len(mailer.sends) != 1 || mailer.sends[0] != "ana@example.com" {
		t.Errorf("sends = %v, want exactly [ana@example.com]", mailer.sends)
	}
}
