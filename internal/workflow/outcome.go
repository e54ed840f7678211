package workflow

import (
	"context"
	"fmt"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SecondaryFailure is a best-effort step that did not succeed. The primary
// write of the operation stands regardless.
type SecondaryFailure struct {
	Step     string `json:"step"`
	Entity   string `json:"entity"`
	EntityID string `json:"entityId,omitempty"`
	Err      error  `json:"-"`
}

func (f SecondaryFailure) Error() string {
	return fmt.Sprintf("%s %s %s: %v", f.Step, f.Entity, f.EntityID, f.Err)
}

// Outcome reports the best-effort steps that failed during an operation.
type Outcome struct {
	SecondaryFailures []SecondaryFailure `json:"secondaryFailures,omitempty"`
}

// Degraded reports whether any secondary step failed.
func (o Outcome) Degraded() bool {
	return len(o.SecondaryFailures) > 0
}

// Failed reports whether the named step failed.
func (o Outcome) Failed(step string) bool {
	for _, f := range o.SecondaryFailures {
		if f.Step == step {
			return true
		}
	}
	return false
}

// Secondary step names.
const (
	StepCreateVisit       = "create_visit"
	StepLinkAppointment   = "link_appointment"
	StepNotifyCustomer    = "notify_customer"
	StepEmailCustomer     = "email_customer"
	StepScheduleReminder  = "schedule_reminder"
	StepRecheckSlot       = "recheck_slot"
	StepAcquireLock       = "acquire_lock"
	StepPropagateResponse = "propagate_appointment"
	StepNotifyStaff       = "notify_staff"
	StepCancelAppointment = "cancel_appointment"
	StepArchiveRejection  = "archive_rejection"
	StepResolveManager    = "resolve_manager"
	StepNotifyManager     = "notify_manager"
	StepEmailManager      = "email_manager"
	StepCancelVisit       = "cancel_visit"
	StepSyncVisit         = "sync_visit"
)

// run tracks one orchestrator operation: its span and the secondary
// failures collected along the way.
type run struct {
	op       string
	span     trace.Span
	log      *logger.Logger
	failures []SecondaryFailure
}

func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, *run) {
	ctx, span := s.tracer.Start(ctx, "workflow."+op, trace.WithAttributes(attrs...))
	return ctx, &run{op: op, span: span, log: s.log.WithContext(ctx)}
}

// attempt runs a best-effort step. A failure is recorded and swallowed.
func (r *run) attempt(step, entity, entityID string, fn func() error) bool {
	err := fn()
	if err == nil {
		return true
	}
	r.record(step, entity, entityID, err)
	return false
}

func (r *run) record(step, entity, entityID string, err error) {
	r.failures = append(r.failures, SecondaryFailure{Step: step, Entity: entity, EntityID: entityID, Err: err})
	r.log.SecondaryFailure(r.op, step, entity, entityID, err)
	r.span.AddEvent("secondary_failure", trace.WithAttributes(
		attribute.String("step", step),
		attribute.String("entity", entity),
		attribute.String("entity.id", entityID),
		attribute.String("error", err.Error()),
	))
}

func (r *run) outcome() Outcome {
	return Outcome{SecondaryFailures: append([]SecondaryFailure(nil), r.failures...)}
}

// fail ends the span with a primary error mapped onto the domain taxonomy.
func (r *run) fail(err error, message string) error {
	domainErr := asDomainError(r.op, err, message)
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, domainErr.Message)
	r.span.End()
	return domainErr
}

func (r *run) end() {
	r.span.SetAttributes(attribute.Int("workflow.secondary_failures", len(r.failures)))
	r.span.End()
}

// asDomainError keeps typed errors and wraps infrastructure errors as internal.
func asDomainError(op string, err error, message string) *apperr.Error {
	if domainErr, ok := apperr.As(err); ok {
		if domainErr.Op == "" {
			domainErr.Op = "workflow." + op
		}
		return domainErr
	}
	return apperr.Wrap(apperr.KindInternal, message, err).WithOp("workflow." + op)
}
