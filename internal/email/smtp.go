package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/logger"
)

const smtpTimeout = 15 * time.Second

// SMTPSender delivers mail through a configured SMTP relay.
type SMTPSender struct {
	cfg config.EmailConfig
	log *logger.Logger
}

func NewSMTPSender(cfg config.EmailConfig, log *logger.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

func (s *SMTPSender) SendSequenceEmail(ctx context.Context, lead domain.Lead, sequenceName string, step int) error {
	body, err := renderSequenceEmail(lead, sequenceName, step)
	if err != nil {
		return err
	}
	subject := subjectFor(lead, sequenceName, step)

	if err := s.send(ctx, lead.Email, subject, body); err != nil {
		return fmt.Errorf("send sequence email %s step %d: %w", sequenceName, step, err)
	}

	s.log.Info("sequence email sent", "to", lead.Email, "sequence_name", sequenceName, "step", step)
	return nil
}

func (s *SMTPSender) SendNewLeadNotification(ctx context.Context, lead domain.Lead) error {
	to := s.cfg.GetAdminNotifyAddress()
	if to == "" {
		s.log.Debug("no admin notify address configured, skipping notification")
		return nil
	}

	body, err := renderNewLeadNotification(lead)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New %s priority lead: %s", lead.PriorityTier(), lead.FullName())

	if err := s.send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send lead notification: %w", err)
	}
	return nil
}

func (s *SMTPSender) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	opts := []mail.Option{
		mail.WithPort(s.cfg.GetSMTPPort()),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(smtpTimeout),
	}
	if s.cfg.GetSMTPUsername() != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.GetSMTPUsername()),
			mail.WithPassword(s.cfg.GetSMTPPassword()),
		)
	}

	client, err := mail.NewClient(s.cfg.GetSMTPHost(), opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

var _ Sender = (*SMTPSender)(nil)
