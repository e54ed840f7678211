// Package email renders and delivers templated emails.
package email

import (
	"context"
	"fmt"

	"inspection_portal_backend/platform/logger"
)

// Template names understood by Render.
const (
	TemplateVisitInvite         = "visit_invite"
	TemplateVisitRejected       = "visit_rejected"
	TemplateAppointmentReminder = "appointment_reminder"
)

// Sender delivers a rendered template to one recipient.
type Sender interface {
	SendTemplatedEmail(ctx context.Context, to, template string, data map[string]any) error
}

// NoopSender logs instead of sending. Used when email is disabled.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	if log == nil {
		log = logger.Nop()
	}
	return &NoopSender{log: log}
}

func (s *NoopSender) SendTemplatedEmail(_ context.Context, to, template string, _ map[string]any) error {
	if _, ok := subjects[template]; !ok {
		return fmt.Errorf("unknown email template %q", template)
	}
	s.log.Info("email disabled, skipping send", "to", to, "template", template)
	return nil
}

var (
	_ Sender = (*NoopSender)(nil)
	_ Sender = (*SMTPSender)(nil)
)
