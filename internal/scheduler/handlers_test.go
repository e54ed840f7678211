package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/notification/inapp"
	"inspection_portal_backend/internal/notification/outbox"
	"inspection_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeAppointments map[string]apptrepo.Appointment

func (f fakeAppointments) GetByID(_ context.Context, id string) (*apptrepo.Appointment, error) {
	appt, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	return &appt, nil
}

type recordingNotifier struct {
	sent []inapp.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n inapp.Notification) (inapp.Notification, error) {
	r.sent = append(r.sent, n)
	return n, nil
}

type recordingEmail struct {
	templates []string
	err       error
}

func (r *recordingEmail) SendTemplatedEmail(_ context.Context, _, template string, _ map[string]any) error {
	r.templates = append(r.templates, template)
	return r.err
}

type fakeOutbox struct {
	rec       outbox.Record
	status    outbox.Status
	lastError string
}

func (f *fakeOutbox) GetByID(context.Context, uuid.UUID) (outbox.Record, error) { return f.rec, nil }
func (f *fakeOutbox) MarkProcessing(context.Context, uuid.UUID) error {
	f.status = outbox.StatusProcessing
	return nil
}
func (f *fakeOutbox) MarkSucceeded(context.Context, uuid.UUID) error {
	f.status = outbox.StatusSucceeded
	return nil
}
func (f *fakeOutbox) MarkFailed(_ context.Context, _ uuid.UUID, msg string) error {
	f.status, f.lastError = outbox.StatusFailed, msg
	return nil
}
func (f *fakeOutbox) MarkPending(_ context.Context, _ uuid.UUID, msg *string) error {
	f.status = outbox.StatusPending
	if msg != nil {
		f.lastError = *msg
	}
	return nil
}

func reminderTask(t *testing.T, id string, at time.Time) *asynq.Task {
	t.Helper()
	task, err := NewAppointmentReminderTask(AppointmentReminderPayload{AppointmentID: id, RemindAt: at})
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	return task
}

func TestAppointmentReminder(t *testing.T) {
	appts := fakeAppointments{
		"a1": {ID: "a1", InspectorID: "insp-1", CustomerEmail: "robin@example.com", Title: "Roof", ScheduledDate: "2025-03-10", ScheduledTime: "09:00", Status: apptrepo.StatusScheduled},
		"a2": {ID: "a2", InspectorID: "insp-1", ScheduledDate: "2025-03-10", ScheduledTime: "11:00", Status: apptrepo.StatusCancelled},
	}
	remindAt := time.Date(2025, 3, 9, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		id       string
		at       time.Time
		notified int
	}{
		{"scheduled", "a1", remindAt, 1},
		{"cancelled", "a2", remindAt.Add(2 * time.Hour), 0},
		{"rescheduled", "a1", remindAt.Add(-time.Hour), 0},
		{"deleted", "missing", remindAt, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{}
			mail := &recordingEmail{}
			h := &Handlers{Appointments: appts, Notifier: notifier, Email: mail, ReminderLead: 24 * time.Hour}

			if err := h.HandleAppointmentReminder(context.Background(), reminderTask(t, tt.id, tt.at)); err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if len(notifier.sent) != tt.notified {
				t.Fatalf("expected %d notifications, got %d", tt.notified, len(notifier.sent))
			}
			if tt.notified > 0 {
				if notifier.sent[0].UserID != "insp-1" {
					t.Fatalf("expected inspector to be notified, got %s", notifier.sent[0].UserID)
				}
				if len(mail.templates) != 1 || mail.templates[0] != email.TemplateAppointmentReminder {
					t.Fatalf("expected customer reminder email, got %v", mail.templates)
				}
			}
		})
	}
}

func outboxTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: uuid.NewString()})
	if err != nil {
		t.Fatalf("failed to build task: %v", err)
	}
	return task
}

func TestOutboxDelivery(t *testing.T) {
	payload, _ := json.Marshal(map[string]any{"title": "Roof"})
	base := outbox.Record{ID: uuid.New(), ToAddress: "robin@example.com", Template: email.TemplateVisitInvite, Payload: payload, Status: outbox.StatusEnqueued}

	t.Run("success", func(t *testing.T) {
		store := &fakeOutbox{rec: base}
		h := &Handlers{Email: &recordingEmail{}, Outbox: store}
		if err := h.HandleNotificationOutboxDue(context.Background(), outboxTask(t)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if store.status != outbox.StatusSucceeded {
			t.Fatalf("expected succeeded, got %s", store.status)
		}
	})

	t.Run("retryable failure", func(t *testing.T) {
		store := &fakeOutbox{rec: base}
		h := &Handlers{Email: &recordingEmail{err: errors.New("smtp down")}, Outbox: store}
		if err := h.HandleNotificationOutboxDue(context.Background(), outboxTask(t)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if store.status != outbox.StatusPending || store.lastError != "smtp down" {
			t.Fatalf("expected pending with error, got %s %q", store.status, store.lastError)
		}
	})

	t.Run("final failure", func(t *testing.T) {
		rec := base
		rec.Attempts = maxOutboxAttempts - 1
		store := &fakeOutbox{rec: rec}
		h := &Handlers{Email: &recordingEmail{err: errors.New("smtp down")}, Outbox: store}
		if err := h.HandleNotificationOutboxDue(context.Background(), outboxTask(t)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if store.status != outbox.StatusFailed {
			t.Fatalf("expected failed, got %s", store.status)
		}
	})

	t.Run("already delivered", func(t *testing.T) {
		rec := base
		rec.Status = outbox.StatusSucceeded
		store := &fakeOutbox{rec: rec}
		mail := &recordingEmail{}
		h := &Handlers{Email: mail, Outbox: store}
		if err := h.HandleNotificationOutboxDue(context.Background(), outboxTask(t)); err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if len(mail.templates) != 0 {
			t.Fatalf("expected no resend")
		}
	})
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	h := &Handlers{}
	err := h.HandleSendEmail(context.Background(), asynq.NewTask(TaskSendEmail, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
