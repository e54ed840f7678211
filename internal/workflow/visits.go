package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/events"
	"inspection_portal_backend/internal/notification/inapp"
	rejectedrepo "inspection_portal_backend/internal/rejectedorders/repository"
	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/platform/sanitize"

	"go.opentelemetry.io/otel/attribute"
)

// VisitResult is returned by visit responses.
type VisitResult struct {
	Visit   visitrepo.Visit `json:"visit"`
	Outcome Outcome         `json:"outcome"`
}

// RespondByToken resolves a public token and records the customer's answer.
func (s *Service) RespondByToken(ctx context.Context, token string, accept bool, reason string) (*VisitResult, error) {
	visit, err := s.visits.GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, asDomainError("respond_by_token", err, "failed to resolve visit")
	}
	if accept {
		return s.AcceptVisit(ctx, visit.ID, Actor{})
	}
	return s.RejectVisit(ctx, visit.ID, reason, Actor{})
}

// AcceptVisit records the customer's acceptance and propagates it to the
// linked appointment.
func (s *Service) AcceptVisit(ctx context.Context, visitID string, actor Actor) (*VisitResult, error) {
	ctx, r := s.begin(ctx, "accept_visit", attribute.String("scheduled_visit.id", visitID))

	release, err := s.lockVisit(ctx, r, visitID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, r.fail(err, "failed to load visit")
	}
	if err := checkAcceptable(*visit); err != nil {
		return nil, r.fail(err, "visit not respondable")
	}

	now := s.now().UTC()
	accepted := apptrepo.ResponseAccepted
	if err := s.visits.Update(ctx, visit.ID, visitrepo.Patch{CustomerResponse: &accepted, RespondedAt: &now}); err != nil {
		return nil, r.fail(err, "failed to accept visit")
	}
	next := *visit
	next.CustomerResponse = accepted
	next.RespondedAt = &now
	next.UpdatedAt = now

	if next.AppointmentID != "" {
		r.attempt(StepPropagateResponse, "appointment", next.AppointmentID, func() error {
			return s.appointments.Update(ctx, next.AppointmentID, apptrepo.Patch{CustomerResponse: &accepted, RespondedAt: &now})
		})
	}

	s.notifyStaff(ctx, r, next, inapp.Notification{
		Category: inapp.CategoryAppointment,
		Title:    "Visit accepted",
		Message:  fmt.Sprintf("%s accepted %s on %s at %s.", customerLabel(next), next.Title, next.ScheduledDate, next.ScheduledTime),
		Link:     s.link("/appointments/" + next.AppointmentID),
		Priority: inapp.PriorityNormal,
		Metadata: map[string]string{"scheduledVisitId": next.ID, "appointmentId": next.AppointmentID},
	})

	s.publish(ctx, events.VisitAccepted{
		BaseEvent:        events.NewBaseEvent(),
		ScheduledVisitID: next.ID,
		AppointmentID:    next.AppointmentID,
		BranchID:         next.BranchID,
	})

	result := &VisitResult{Visit: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

// RejectVisit records the customer's rejection. The linked appointment is
// cancelled, the rejection archived and the branch manager told, each
// independently of the others.
func (s *Service) RejectVisit(ctx context.Context, visitID, reason string, actor Actor) (*VisitResult, error) {
	ctx, r := s.begin(ctx, "reject_visit", attribute.String("scheduled_visit.id", visitID))

	release, err := s.lockVisit(ctx, r, visitID)
	if err != nil {
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	visit, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, r.fail(err, "failed to load visit")
	}
	if err := checkRejectable(*visit); err != nil {
		return nil, r.fail(err, "visit not respondable")
	}

	now := s.now().UTC()
	reason = sanitize.Text(reason)
	by := actor.name()
	rejected := apptrepo.ResponseRejected
	cancelled := apptrepo.StatusCancelled
	if err := s.visits.Update(ctx, visit.ID, visitrepo.Patch{
		Status:             &cancelled,
		CustomerResponse:   &rejected,
		RespondedAt:        &now,
		ResponseReason:     &reason,
		CancellationReason: &reason,
		CancelledBy:        &by,
		CancelledAt:        &now,
	}); err != nil {
		return nil, r.fail(err, "failed to reject visit")
	}
	next := *visit
	next.Status = cancelled
	next.CustomerResponse = rejected
	next.RespondedAt = &now
	next.ResponseReason = reason
	next.CancellationReason = reason
	next.CancelledBy = by
	next.CancelledAt = &now
	next.UpdatedAt = now

	if next.AppointmentID != "" {
		r.attempt(StepCancelAppointment, "appointment", next.AppointmentID, func() error {
			return s.appointments.Update(ctx, next.AppointmentID, apptrepo.Patch{
				Status:             &cancelled,
				CustomerResponse:   &rejected,
				RespondedAt:        &now,
				CancellationReason: &reason,
				CancelledBy:        &by,
				CancelledAt:        &now,
			})
		})
		s.archiveRejection(ctx, r, next, now)
	}
	s.alertManager(ctx, r, next)

	s.publish(ctx, events.VisitRejected{
		BaseEvent:        events.NewBaseEvent(),
		ScheduledVisitID: next.ID,
		AppointmentID:    next.AppointmentID,
		BranchID:         next.BranchID,
		Reason:           reason,
	})

	result := &VisitResult{Visit: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

func (s *Service) archiveRejection(ctx context.Context, r *run, visit visitrepo.Visit, at time.Time) {
	if s.audit == nil {
		return
	}
	r.attempt(StepArchiveRejection, "rejected_order", visit.AppointmentID, func() error {
		_, err := s.audit.Create(ctx, rejectedrepo.RejectedOrder{
			AppointmentID:    visit.AppointmentID,
			ScheduledVisitID: visit.ID,
			CustomerID:       visit.CustomerID,
			CustomerName:     visit.CustomerName,
			BranchID:         visit.BranchID,
			Reason:           visit.ResponseReason,
			RejectedAt:       at,
			CreatedBy:        visit.CreatedBy,
		})
		return err
	})
}

// alertManager notifies and emails the branch manager. Without a resolved
// manager both are skipped.
func (s *Service) alertManager(ctx context.Context, r *run, visit visitrepo.Visit) {
	if s.managers == nil {
		return
	}
	manager, err := s.managers.ManagerFor(ctx, visit.BranchID)
	if err != nil {
		r.record(StepResolveManager, "branch", visit.BranchID, err)
		return
	}

	reason := visit.ResponseReason
	if reason == "" {
		reason = "no reason given"
	}

	if manager.UserID != "" && s.notifier != nil {
		r.attempt(StepNotifyManager, "user", manager.UserID, func() error {
			_, err := s.notifier.Notify(ctx, inapp.Notification{
				UserID:   manager.UserID,
				Category: inapp.CategoryAppointment,
				Title:    "Visit rejected by customer",
				Message:  fmt.Sprintf("%s rejected %s on %s: %s", customerLabel(visit), visit.Title, visit.ScheduledDate, reason),
				Link:     s.link("/rejected-orders"),
				Priority: inapp.PriorityHigh,
				Metadata: map[string]string{
					"scheduledVisitId": visit.ID,
					"appointmentId":    visit.AppointmentID,
					"reason":           visit.ResponseReason,
				},
			})
			return err
		})
	}

	if manager.Email != "" && s.email != nil {
		r.attempt(StepEmailManager, "user", manager.Email, func() error {
			return s.email.SendTemplatedEmail(ctx, manager.Email, email.TemplateVisitRejected, map[string]any{
				"managerName":   manager.Name,
				"customerName":  customerLabel(visit),
				"title":         visit.Title,
				"scheduledDate": visit.ScheduledDate,
				"scheduledTime": visit.ScheduledTime,
				"address":       visit.Address,
				"reason":        reason,
				"link":          s.link("/rejected-orders"),
			})
		})
	}
}

// notifyStaff sends n to the visit's creator and inspector, once each.
func (s *Service) notifyStaff(ctx context.Context, r *run, visit visitrepo.Visit, n inapp.Notification) {
	if s.notifier == nil {
		return
	}
	seen := make(map[string]struct{}, 2)
	for _, userID := range []string{visit.CreatedBy, visit.InspectorID} {
		if userID == "" {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		msg := n
		msg.UserID = userID
		r.attempt(StepNotifyStaff, "user", userID, func() error {
			_, err := s.notifier.Notify(ctx, msg)
			return err
		})
	}
}

func customerLabel(v visitrepo.Visit) string {
	if v.CustomerName != "" {
		return v.CustomerName
	}
	if v.CustomerEmail != "" {
		return v.CustomerEmail
	}
	return "The customer"
}
