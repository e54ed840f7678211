package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Inserter is the write side of the outbox.
type Inserter interface {
	Insert(ctx context.Context, p InsertParams) (uuid.UUID, error)
}

// EmailSender queues templated emails in the outbox instead of sending them inline.
type EmailSender struct {
	repo Inserter
	now  func() time.Time
}

func NewEmailSender(repo Inserter) *EmailSender {
	return &EmailSender{repo: repo, now: time.Now}
}

// SendTemplatedEmail records the email for the dispatcher to deliver.
func (s *EmailSender) SendTemplatedEmail(ctx context.Context, to, template string, data map[string]any) error {
	_, err := s.repo.Insert(ctx, InsertParams{
		ToAddress: to,
		Template:  template,
		Payload:   data,
		RunAt:     s.now().UTC(),
	})
	return err
}
