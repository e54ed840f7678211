package workflow

import (
	"context"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	branchrepo "inspection_portal_backend/internal/branches/repository"
	"inspection_portal_backend/internal/notification/inapp"
	rejectedrepo "inspection_portal_backend/internal/rejectedorders/repository"
	visitrepo "inspection_portal_backend/internal/visits/repository"
)

// AppointmentStore is the canonical appointment persistence.
type AppointmentStore interface {
	Create(ctx context.Context, appt apptrepo.Appointment) (*apptrepo.Appointment, error)
	GetByID(ctx context.Context, id string) (*apptrepo.Appointment, error)
	Update(ctx context.Context, id string, patch apptrepo.Patch) error
	ListForInspectorDate(ctx context.Context, inspectorID, date string) ([]apptrepo.Appointment, error)
}

// VisitRepository is the customer-facing mirror persistence.
type VisitRepository interface {
	Create(ctx context.Context, visit visitrepo.Visit) (*visitrepo.Visit, error)
	GetByID(ctx context.Context, id string) (*visitrepo.Visit, error)
	GetByToken(ctx context.Context, token string) (*visitrepo.Visit, error)
	GetByAppointmentID(ctx context.Context, appointmentID string) (*visitrepo.Visit, error)
	Update(ctx context.Context, id string, patch visitrepo.Patch) error
}

// AuditSink archives customer rejections.
type AuditSink interface {
	Create(ctx context.Context, order rejectedrepo.RejectedOrder) (*rejectedrepo.RejectedOrder, error)
}

// NotificationSender delivers in-app notifications.
type NotificationSender interface {
	Notify(ctx context.Context, n inapp.Notification) (inapp.Notification, error)
}

// EmailSender delivers templated email.
type EmailSender interface {
	SendTemplatedEmail(ctx context.Context, to, template string, data map[string]any) error
}

// ManagerDirectory resolves who manages a branch.
type ManagerDirectory interface {
	ManagerFor(ctx context.Context, branchID string) (branchrepo.Manager, error)
}

// ReminderScheduler queues the inspector reminder for an appointment.
type ReminderScheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, appointmentID string, at time.Time) error
}
