// Package workflow coordinates appointments and their customer-facing visits.
//
// Every operation performs one primary write that decides its result. The
// steps after it (mirroring, audit, notifications) are best effort: their
// failures are collected in the Outcome and logged, never returned.
package workflow

import (
	"context"
	"errors"
	"time"

	"inspection_portal_backend/internal/appointments/conflict"
	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/events"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/config"
	"inspection_portal_backend/platform/lock"
	"inspection_portal_backend/platform/logger"
	"inspection_portal_backend/platform/phone"
	"inspection_portal_backend/platform/telemetry"

	"go.opentelemetry.io/otel/trace"
)

// Options tune the orchestrator.
type Options struct {
	// BaseURL prefixes deep links in notifications and emails.
	BaseURL string
	// Location is the wall-clock zone of scheduled dates and times.
	Location *time.Location
	// ReminderLead is how long before the start the inspector is reminded.
	ReminderLead time.Duration
	// LockTTL bounds how long a visit response holds its lock.
	LockTTL time.Duration
	// PhoneRegion is the default region for customer phone numbers.
	PhoneRegion string
}

// OptionsFromConfig reads Options from the workflow configuration.
func OptionsFromConfig(cfg config.WorkflowConfig) Options {
	return Options{
		BaseURL:      cfg.GetAppBaseURL(),
		Location:     cfg.GetTimezone(),
		ReminderLead: cfg.GetReminderLeadTime(),
		LockTTL:      cfg.GetResponseLockTTL(),
		PhoneRegion:  cfg.GetPhoneDefaultRegion(),
	}
}

// Deps are the collaborators of the orchestrator. Reminders, Locker and Bus
// are optional.
type Deps struct {
	Appointments AppointmentStore
	Visits       VisitRepository
	Audit        AuditSink
	Notifier     NotificationSender
	Email        EmailSender
	Managers     ManagerDirectory
	Reminders    ReminderScheduler
	Locker       lock.Locker
	Bus          events.Bus
	Log          *logger.Logger
}

// Service is the workflow orchestrator.
type Service struct {
	appointments AppointmentStore
	visits       VisitRepository
	audit        AuditSink
	notifier     NotificationSender
	email        EmailSender
	managers     ManagerDirectory
	reminders    ReminderScheduler
	locker       lock.Locker
	bus          events.Bus
	detector     *conflict.Detector
	phone        phone.Normalizer
	log          *logger.Logger
	tracer       trace.Tracer
	opts         Options
	now          func() time.Time
}

// New creates the orchestrator.
func New(deps Deps, opts Options) *Service {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	return &Service{
		appointments: deps.Appointments,
		visits:       deps.Visits,
		audit:        deps.Audit,
		notifier:     deps.Notifier,
		email:        deps.Email,
		managers:     deps.Managers,
		reminders:    deps.Reminders,
		locker:       deps.Locker,
		bus:          deps.Bus,
		detector:     conflict.NewDetector(deps.Appointments),
		phone:        phone.NewNormalizer(opts.PhoneRegion),
		log:          deps.Log,
		tracer:       telemetry.Tracer("inspection_portal_backend/internal/workflow"),
		opts:         opts,
		now:          time.Now,
	}
}

// WithClock overrides the timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Actor is the user performing an operation. Customers acting through the
// public portal have no user id.
type Actor struct {
	UserID string
}

func (a Actor) name() string {
	if a.UserID == "" {
		return "customer"
	}
	return a.UserID
}

// AppointmentResult is returned by appointment operations.
type AppointmentResult struct {
	Appointment apptrepo.Appointment `json:"appointment"`
	Outcome     Outcome              `json:"outcome"`
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) link(path string) string {
	return s.opts.BaseURL + path
}

// slotStart resolves the wall-clock start of an appointment in the configured zone.
func (s *Service) slotStart(date, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, s.opts.Location)
}

// lockVisit serialises responses to one visit. A busy lock is a state error.
// An unreachable lock backend is recorded and the response proceeds.
func (s *Service) lockVisit(ctx context.Context, r *run, visitID string) (lock.Release, error) {
	release, err := s.locker.Acquire(ctx, "visit-response:"+visitID, s.opts.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, r.fail(apperr.Wrap(apperr.KindState, msgAlreadyResponded, err), msgAlreadyResponded)
	}
	if err != nil {
		r.record(StepAcquireLock, "scheduled_visit", visitID, err)
		return func(context.Context) {}, nil
	}
	return release, nil
}
