package digest

import (
	"context"
	"fmt"
	"sync"

	"go-taskboard/internal/config"
	"go-taskboard/internal/features/email"
	"go-taskboard/internal/features/notification"
	"go-taskboard/internal/features/user"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DigestService mails each user a summary of their unread notifications on
// a fixed schedule. Purely additive: a failed digest changes nothing about
// the records themselves.
type DigestService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RunOnce(ctx context.Context) error
}

type DigestServiceImpl struct {
	notificationRepo notification.NotificationRepository
	userRepo         user.UserRepository
	emailService     email.EmailService
	schedule         string
	log              *zap.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
}

func NewDigestService(
	notificationRepo notification.NotificationRepository,
	userRepo user.UserRepository,
	emailService email.EmailService,
	cfg *config.Config,
	log *zap.Logger,
) DigestService {
	return &DigestServiceImpl{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		emailService:     emailService,
		schedule:         cfg.DigestSchedule,
		log:              log,
	}
}

func (s *DigestServiceImpl) InitializeScheduler(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler = cron.New()
	if _, err := s.scheduler.AddFunc(s.schedule, func() {
		if err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("digest run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.scheduler.Start()
	s.log.Info("digest scheduler started", zap.String("schedule", s.schedule))
	return nil
}

func (s *DigestServiceImpl) StopScheduler() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
	return nil
}

// RunOnce mails every user that currently has unread notifications.
// Per-user failures are logged and do not stop the sweep.
func (s *DigestServiceImpl) RunOnce(ctx context.Context) error {
	userIDs, err := s.notificationRepo.UsersWithUnread(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		unread, err := s.notificationRepo.FindUnread(ctx, userID)
		if err != nil || len(unread) == 0 {
			continue
		}

		u, err := s.userRepo.FindByID(ctx, userID)
		if err != nil || u.Email == "" {
			continue
		}

		body := fmt.Sprintf("You have %d unread notifications:\n\n", len(unread))
		for _, n := range unread {
			body += fmt.Sprintf("- %s: %s\n", n.Title, n.Message)
		}

		subject := fmt.Sprintf("You have %d unread notifications", len(unread))
		if err := s.emailService.SendEmail(ctx, []string{u.Email}, subject, body); err != nil {
			s.log.Warn("digest email failed",
				zap.String("userId", userID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}
