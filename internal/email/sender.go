// Package email renders and dispatches outbound mail: nurture sequence steps
// and new-lead notifications to the operators.
package email

import (
	"context"

	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/logger"
)

// Sender dispatches the two mail shapes the lifecycle engine produces.
type Sender interface {
	// SendSequenceEmail sends the content variant for (sequenceName, step) to
	// the lead.
	SendSequenceEmail(ctx context.Context, lead domain.Lead, sequenceName string, step int) error
	// SendNewLeadNotification alerts the operators about a fresh inquiry.
	SendNewLeadNotification(ctx context.Context, lead domain.Lead) error
}

// NewSender returns the SMTP sender when email is configured, otherwise a
// no-op sender that only logs. Keeps dev environments working without an
// SMTP relay.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email sending disabled, using no-op sender")
		return &noopSender{log: log}
	}
	return NewSMTPSender(cfg, log)
}

type noopSender struct {
	log *logger.Logger
}

func (s *noopSender) SendSequenceEmail(_ context.Context, lead domain.Lead, sequenceName string, step int) error {
	s.log.Info("email disabled, skipping sequence email",
		"to", lead.Email, "sequence_name", sequenceName, "step", step)
	return nil
}

func (s *noopSender) SendNewLeadNotification(_ context.Context, lead domain.Lead) error {
	s.log.Info("email disabled, skipping new lead notification", "lead_id", lead.ID)
	return nil
}
