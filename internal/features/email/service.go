package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go-taskboard/internal/config"

	"go.uber.org/zap"
)

type EmailService interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

type EmailServiceImpl struct {
	cfg *config.Config
	log *zap.Logger
}

func NewEmailService(cfg *config.Config, log *zap.Logger) EmailService {
	return &EmailServiceImpl{
		cfg: cfg,
		log: log,
	}
}

// SendEmail delivers a plain-text mail through the configured SMTP relay.
// With no SMTP host configured the service is a silent no-op, which keeps
// email strictly optional for local development.
func (s *EmailServiceImpl) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		return nil
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	from := s.cfg.FromEmail
	if from == "" {
		from = s.cfg.SMTPUser
	}

	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", to[0], subject, body))

	s.log.Debug("sending email", zap.Strings("to", to), zap.String("subject", subject))
	if err := smtp.SendMail(addr, auth, from, to, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
