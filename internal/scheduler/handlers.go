package scheduler

import (
	"context"
	"fmt"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/notification/inapp"
	"inspection_portal_backend/internal/notification/outbox"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const maxOutboxAttempts = 5

// AppointmentReader re-reads appointments when a reminder fires.
type AppointmentReader interface {
	GetByID(ctx context.Context, id string) (*apptrepo.Appointment, error)
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, n inapp.Notification) (inapp.Notification, error)
}

// OutboxStore is the worker side of the email outbox.
type OutboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

// Handlers processes scheduler tasks. Outbox may be nil when email is sent
// directly through TaskSendEmail.
type Handlers struct {
	Appointments AppointmentReader
	Notifier     Notifier
	Email        email.Sender
	Outbox       OutboxStore
	Location     *time.Location
	ReminderLead time.Duration
	BaseURL      string
	Log          *logger.Logger
}

// Register mounts the task handlers on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskAppointmentReminder, h.HandleAppointmentReminder)
	mux.HandleFunc(TaskSendEmail, h.HandleSendEmail)
	if h.Outbox != nil {
		mux.HandleFunc(TaskNotificationOutboxDue, h.HandleNotificationOutboxDue)
	}
}

// HandleAppointmentReminder reminds the inspector and customer of an
// upcoming appointment that is still on.
func (h *Handlers) HandleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	appt, err := h.Appointments.GetByID(ctx, payload.AppointmentID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if appt.Status != apptrepo.StatusScheduled || appt.CustomerResponse == apptrepo.ResponseRejected {
		return nil
	}
	if h.stale(*appt, payload.RemindAt) {
		h.log().Info("skipping stale reminder", "appointmentId", appt.ID)
		return nil
	}

	if appt.InspectorID != "" && h.Notifier != nil {
		_, err := h.Notifier.Notify(ctx, inapp.Notification{
			UserID:   appt.InspectorID,
			Category: inapp.CategoryAppointment,
			Title:    "Upcoming appointment",
			Message:  fmt.Sprintf("%s on %s at %s", appt.Title, appt.ScheduledDate, appt.ScheduledTime),
			Link:     h.BaseURL + "/appointments/" + appt.ID,
			Priority: inapp.PriorityNormal,
			Metadata: map[string]string{"appointmentId": appt.ID},
		})
		if err != nil {
			return err
		}
	}

	if appt.CustomerEmail != "" && h.Email != nil {
		err := h.Email.SendTemplatedEmail(ctx, appt.CustomerEmail, email.TemplateAppointmentReminder, map[string]any{
			"customerName":  appt.CustomerName,
			"title":         appt.Title,
			"scheduledDate": appt.ScheduledDate,
			"scheduledTime": appt.ScheduledTime,
			"address":       appt.Address,
		})
		if err != nil {
			h.log().SecondaryFailure("appointment_reminder", "email_customer", "appointment", appt.ID, err)
		}
	}
	return nil
}

// stale reports whether the appointment moved since the reminder was queued.
func (h *Handlers) stale(appt apptrepo.Appointment, remindAt time.Time) bool {
	if remindAt.IsZero() {
		return false
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", appt.ScheduledDate+" "+appt.ScheduledTime, loc)
	if err != nil {
		return true
	}
	return !start.Add(-h.ReminderLead).Equal(remindAt)
}

// HandleSendEmail delivers a directly queued email. Failures are retried by asynq.
func (h *Handlers) HandleSendEmail(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSendEmailPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return h.Email.SendTemplatedEmail(ctx, payload.To, payload.Template, payload.Data)
}

// HandleNotificationOutboxDue delivers one outbox record. A failed send is
// put back to pending for the dispatcher, and marked failed after
// maxOutboxAttempts.
func (h *Handlers) HandleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	id, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	rec, err := h.Outbox.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		return nil
	}
	if err := h.Outbox.MarkProcessing(ctx, id); err != nil {
		return err
	}

	data, err := rec.Data()
	if err == nil {
		err = h.Email.SendTemplatedEmail(ctx, rec.ToAddress, rec.Template, data)
	}
	if err == nil {
		return h.Outbox.MarkSucceeded(ctx, id)
	}

	msg := err.Error()
	if rec.Attempts+1 >= maxOutboxAttempts {
		h.log().Error("outbox email failed permanently", "outboxId", id, "template", rec.Template, "error", err)
		return h.Outbox.MarkFailed(ctx, id, msg)
	}
	h.log().Warn("outbox email failed, will retry", "outboxId", id, "attempt", rec.Attempts+1, "error", err)
	return h.Outbox.MarkPending(ctx, id, &msg)
}

func (h *Handlers) log() *logger.Logger {
	if h.Log == nil {
		return logger.Nop()
	}
	return h.Log
}
