package workflow

import (
	"context"
	"fmt"
	"strings"

	"inspection_portal_backend/internal/appointments/conflict"
	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/email"
	"inspection_portal_backend/internal/events"
	"inspection_portal_backend/internal/notification/inapp"
	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/sanitize"

	"go.opentelemetry.io/otel/attribute"
)

// CreateRequest describes a new appointment.
type CreateRequest struct {
	BranchID        string
	InspectorID     string
	CustomerID      string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Address         string
	ScheduledDate   string
	ScheduledTime   string
	DurationMinutes int
	Kind            apptrepo.Kind
	Title           string
	Description     string
}

// CreateResult is the stored appointment and, when one could be created, its visit.
type CreateResult struct {
	Appointment apptrepo.Appointment `json:"appointment"`
	Visit       *visitrepo.Visit     `json:"visit,omitempty"`
	Outcome     Outcome              `json:"outcome"`
}

func conflictError(items []apptrepo.Appointment) error {
	return apperr.Conflict("time slot conflicts with existing appointments").
		WithDetails(map[string]any{"conflicts": conflict.Summarize(items)})
}

// CheckConflicts returns the appointments overlapping a candidate slot.
func (s *Service) CheckConflicts(ctx context.Context, req conflict.Request) ([]apptrepo.Appointment, error) {
	ctx, r := s.begin(ctx, "check_conflicts",
		attribute.String("inspector.id", req.InspectorID),
		attribute.String("date", req.Date))

	found, err := s.detector.Check(ctx, req)
	if err != nil {
		return nil, r.fail(err, "failed to check conflicts")
	}
	r.span.SetAttributes(attribute.Int("conflicts", len(found)))
	r.end()
	return found, nil
}

// CreateAppointment books a slot, mirrors it as a visit when the customer is
// reachable and notifies the customer. Only the appointment write can fail
// the call.
func (s *Service) CreateAppointment(ctx context.Context, actor Actor, req CreateRequest) (*CreateResult, error) {
	ctx, r := s.begin(ctx, "create_appointment",
		attribute.String("branch.id", req.BranchID),
		attribute.String("inspector.id", req.InspectorID))

	draft := apptrepo.Appointment{
		BranchID:        strings.TrimSpace(req.BranchID),
		InspectorID:     strings.TrimSpace(req.InspectorID),
		CustomerID:      strings.TrimSpace(req.CustomerID),
		CustomerName:    sanitize.Text(req.CustomerName),
		CustomerEmail:   strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		CustomerPhone:   s.phone.E164(req.CustomerPhone),
		Address:         sanitize.Text(req.Address),
		ScheduledDate:   strings.TrimSpace(req.ScheduledDate),
		ScheduledTime:   strings.TrimSpace(req.ScheduledTime),
		DurationMinutes: req.DurationMinutes,
		Kind:            req.Kind,
		Title:           sanitize.Text(req.Title),
		Description:     sanitize.Text(req.Description),
		CreatedBy:       actor.UserID,
	}

	candidate := conflict.Request{
		InspectorID:     draft.InspectorID,
		Date:            draft.ScheduledDate,
		StartTime:       draft.ScheduledTime,
		DurationMinutes: draft.DurationMinutes,
	}
	clashes, err := s.detector.Check(ctx, candidate)
	if err != nil {
		return nil, r.fail(err, "failed to check conflicts")
	}
	if len(clashes) > 0 {
		return nil, r.fail(conflictError(clashes), "slot unavailable")
	}

	appt, err := s.appointments.Create(ctx, draft)
	if err != nil {
		return nil, r.fail(err, "failed to create appointment")
	}
	r.span.SetAttributes(attribute.String("appointment.id", appt.ID))

	result := &CreateResult{Appointment: *appt}
	if appt.HasCustomer() {
		result.Visit = s.mirrorVisit(ctx, r, &result.Appointment)
	}
	if result.Visit != nil {
		s.inviteCustomer(ctx, r, result.Appointment, *result.Visit)
	}
	s.scheduleReminder(ctx, r, result.Appointment)
	s.recheckSlot(ctx, r, result.Appointment, candidate)

	visitID := ""
	if result.Visit != nil {
		visitID = result.Visit.ID
	}
	s.publish(ctx, events.AppointmentCreated{
		BaseEvent:        events.NewBaseEvent(),
		AppointmentID:    appt.ID,
		ScheduledVisitID: visitID,
		BranchID:         appt.BranchID,
		InspectorID:      appt.InspectorID,
		ScheduledDate:    appt.ScheduledDate,
		ScheduledTime:    appt.ScheduledTime,
		DurationMinutes:  appt.DurationMinutes,
		CreatedBy:        appt.CreatedBy,
	})

	result.Outcome = r.outcome()
	r.end()
	return result, nil
}

// mirrorVisit creates the paired visit and links the appointment to it.
func (s *Service) mirrorVisit(ctx context.Context, r *run, appt *apptrepo.Appointment) *visitrepo.Visit {
	var visit *visitrepo.Visit
	ok := r.attempt(StepCreateVisit, "scheduled_visit", appt.ID, func() error {
		created, err := s.visits.Create(ctx, visitrepo.FromAppointment(*appt))
		visit = created
		return err
	})
	if !ok {
		return nil
	}

	linked := r.attempt(StepLinkAppointment, "appointment", appt.ID, func() error {
		return s.appointments.Update(ctx, appt.ID, apptrepo.Patch{ScheduledVisitID: &visit.ID})
	})
	if linked {
		appt.ScheduledVisitID = visit.ID
	}
	return visit
}

func (s *Service) inviteCustomer(ctx context.Context, r *run, appt apptrepo.Appointment, visit visitrepo.Visit) {
	portalURL := s.link("/portal/visits/" + visit.PublicToken)

	if appt.CustomerID != "" && s.notifier != nil {
		r.attempt(StepNotifyCustomer, "customer", appt.CustomerID, func() error {
			_, err := s.notifier.Notify(ctx, inapp.Notification{
				UserID:   appt.CustomerID,
				Category: inapp.CategoryAppointment,
				Title:    "Inspection visit scheduled",
				Message:  fmt.Sprintf("%s on %s at %s. Please accept or decline.", appt.Title, appt.ScheduledDate, appt.ScheduledTime),
				Link:     portalURL,
				Priority: inapp.PriorityNormal,
				Metadata: map[string]string{"appointmentId": appt.ID, "scheduledVisitId": visit.ID},
			})
			return err
		})
	}

	if appt.CustomerEmail != "" && s.email != nil {
		r.attempt(StepEmailCustomer, "customer", appt.CustomerEmail, func() error {
			return s.email.SendTemplatedEmail(ctx, appt.CustomerEmail, email.TemplateVisitInvite, map[string]any{
				"customerName":    appt.CustomerName,
				"title":           appt.Title,
				"scheduledDate":   appt.ScheduledDate,
				"scheduledTime":   appt.ScheduledTime,
				"durationMinutes": appt.DurationMinutes,
				"address":         appt.Address,
				"portalUrl":       portalURL,
			})
		})
	}
}

func (s *Service) scheduleReminder(ctx context.Context, r *run, appt apptrepo.Appointment) {
	if s.reminders == nil {
		return
	}
	start, err := s.slotStart(appt.ScheduledDate, appt.ScheduledTime)
	if err != nil {
		r.record(StepScheduleReminder, "appointment", appt.ID, err)
		return
	}
	at := start.Add(-s.opts.ReminderLead)
	if !at.After(s.now()) {
		return
	}
	r.attempt(StepScheduleReminder, "appointment", appt.ID, func() error {
		return s.reminders.ScheduleAppointmentReminder(ctx, appt.ID, at)
	})
}

// recheckSlot looks for bookings that raced this one into the same slot.
// Exclusion is advisory: the appointment stands and the overlap is reported.
func (s *Service) recheckSlot(ctx context.Context, r *run, appt apptrepo.Appointment, candidate conflict.Request) {
	candidate.ExcludeID = appt.ID
	var clashes []apptrepo.Appointment
	ok := r.attempt(StepRecheckSlot, "appointment", appt.ID, func() error {
		found, err := s.detector.Check(ctx, candidate)
		clashes = found
		return err
	})
	if !ok || len(clashes) == 0 {
		return
	}

	ids := make([]string, 0, len(clashes))
	for _, c := range clashes {
		ids = append(ids, c.ID)
	}
	r.log.Warn("double booking suspected",
		"appointmentId", appt.ID,
		"inspectorId", appt.InspectorID,
		"scheduledDate", appt.ScheduledDate,
		"conflictingIds", ids)
	r.span.AddEvent("double_booking_suspected")
	s.publish(ctx, events.DoubleBookingSuspected{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  appt.ID,
		InspectorID:    appt.InspectorID,
		ScheduledDate:  appt.ScheduledDate,
		ConflictingIDs: ids,
	})
}

// UpdateRequest is a partial edit. Nil fields keep their value.
type UpdateRequest struct {
	InspectorID     *string
	ScheduledDate   *string
	ScheduledTime   *string
	DurationMinutes *int
	Title           *string
	Description     *string
}

// UpdateAppointment edits an open appointment. A changed slot is checked for
// conflicts against everything but the appointment itself.
func (s *Service) UpdateAppointment(ctx context.Context, actor Actor, id string, req UpdateRequest) (*AppointmentResult, error) {
	ctx, r := s.begin(ctx, "update_appointment", attribute.String("appointment.id", id))

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, r.fail(err, "failed to load appointment")
	}
	if err := checkTransition(ActionUpdate, *appt); err != nil {
		return nil, r.fail(err, "invalid transition")
	}

	next := *appt
	patch := apptrepo.Patch{}
	slotChanged := false
	if req.InspectorID != nil && strings.TrimSpace(*req.InspectorID) != appt.InspectorID {
		v := strings.TrimSpace(*req.InspectorID)
		if v == "" {
			return nil, r.fail(apperr.Validation("inspectorId cannot be empty"), "invalid update")
		}
		next.InspectorID, patch.InspectorID, slotChanged = v, &v, true
	}
	if req.ScheduledDate != nil && *req.ScheduledDate != appt.ScheduledDate {
		v := strings.TrimSpace(*req.ScheduledDate)
		next.ScheduledDate, patch.ScheduledDate, slotChanged = v, &v, true
	}
	if req.ScheduledTime != nil && *req.ScheduledTime != appt.ScheduledTime {
		v := strings.TrimSpace(*req.ScheduledTime)
		next.ScheduledTime, patch.ScheduledTime, slotChanged = v, &v, true
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != appt.DurationMinutes {
		v := *req.DurationMinutes
		next.DurationMinutes, patch.DurationMinutes, slotChanged = v, &v, true
	}
	if req.Title != nil {
		v := sanitize.Text(*req.Title)
		if v == "" {
			return nil, r.fail(apperr.Validation("title cannot be empty"), "invalid update")
		}
		next.Title, patch.Title = v, &v
	}
	if req.Description != nil {
		v := sanitize.Text(*req.Description)
		next.Description, patch.Description = v, &v
	}

	if slotChanged {
		clashes, err := s.detector.Check(ctx, conflict.Request{
			InspectorID:     next.InspectorID,
			Date:            next.ScheduledDate,
			StartTime:       next.ScheduledTime,
			DurationMinutes: next.DurationMinutes,
			ExcludeID:       appt.ID,
		})
		if err != nil {
			return nil, r.fail(err, "failed to check conflicts")
		}
		if len(clashes) > 0 {
			return nil, r.fail(conflictError(clashes), "slot unavailable")
		}
	}

	if err := s.appointments.Update(ctx, appt.ID, patch); err != nil {
		return nil, r.fail(err, "failed to update appointment")
	}
	next.UpdatedAt = s.now().UTC()

	if visitID := s.visitIDFor(ctx, next); visitID != "" {
		r.attempt(StepSyncVisit, "scheduled_visit", visitID, func() error {
			return s.visits.Update(ctx, visitID, visitrepo.Patch{
				InspectorID:     patch.InspectorID,
				ScheduledDate:   patch.ScheduledDate,
				ScheduledTime:   patch.ScheduledTime,
				DurationMinutes: patch.DurationMinutes,
				Title:           patch.Title,
				Description:     patch.Description,
			})
		})
	}
	if slotChanged {
		s.scheduleReminder(ctx, r, next)
	}

	s.publish(ctx, events.AppointmentUpdated{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		SlotChanged:   slotChanged,
		UpdatedBy:     actor.UserID,
	})

	result := &AppointmentResult{Appointment: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

// CancelAppointment cancels an appointment and, best effort, its visit.
func (s *Service) CancelAppointment(ctx context.Context, actor Actor, id, reason string) (*AppointmentResult, error) {
	ctx, r := s.begin(ctx, "cancel_appointment", attribute.String("appointment.id", id))

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, r.fail(err, "failed to load appointment")
	}
	if err := checkTransition(ActionCancel, *appt); err != nil {
		return nil, r.fail(err, "invalid transition")
	}

	now := s.now().UTC()
	reason = sanitize.Text(reason)
	cancelledBy := actor.name()
	status := apptrepo.StatusCancelled
	patch := apptrepo.Patch{
		Status:             &status,
		CancelledAt:        &now,
		CancellationReason: &reason,
		CancelledBy:        &cancelledBy,
	}
	rejected := apptrepo.ResponseRejected
	if appt.HasCustomer() {
		patch.CustomerResponse = &rejected
	}
	if err := s.appointments.Update(ctx, appt.ID, patch); err != nil {
		return nil, r.fail(err, "failed to cancel appointment")
	}

	next := *appt
	next.Status = status
	next.CancelledAt = &now
	next.CancellationReason = reason
	next.CancelledBy = cancelledBy
	next.UpdatedAt = now
	if patch.CustomerResponse != nil {
		next.CustomerResponse = rejected
	}

	if visitID := s.visitIDFor(ctx, next); visitID != "" {
		r.attempt(StepCancelVisit, "scheduled_visit", visitID, func() error {
			return s.visits.Update(ctx, visitID, visitrepo.Patch{
				Status:             &status,
				CustomerResponse:   &rejected,
				CancelledAt:        &now,
				CancellationReason: &reason,
				CancelledBy:        &cancelledBy,
			})
		})
	}

	s.publish(ctx, events.AppointmentCancelled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		BranchID:      appt.BranchID,
		Reason:        reason,
		CancelledBy:   cancelledBy,
	})

	result := &AppointmentResult{Appointment: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

// StartAppointment marks the inspector as on site. The visit is not touched.
func (s *Service) StartAppointment(ctx context.Context, actor Actor, id string) (*AppointmentResult, error) {
	ctx, r := s.begin(ctx, "start_appointment", attribute.String("appointment.id", id))

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, r.fail(err, "failed to load appointment")
	}
	if err := checkTransition(ActionStart, *appt); err != nil {
		return nil, r.fail(err, "invalid transition")
	}

	now := s.now().UTC()
	status := apptrepo.StatusInProgress
	if err := s.appointments.Update(ctx, appt.ID, apptrepo.Patch{Status: &status, StartedAt: &now}); err != nil {
		return nil, r.fail(err, "failed to start appointment")
	}

	next := *appt
	next.Status = status
	next.StartedAt = &now
	next.UpdatedAt = now

	s.publish(ctx, events.AppointmentStarted{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		InspectorID:   actor.UserID,
	})

	result := &AppointmentResult{Appointment: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

// CompleteRequest carries the optional report link and inspector notes.
type CompleteRequest struct {
	ReportID string
	Notes    string
}

// CompleteAppointment closes an appointment. The visit is not touched.
func (s *Service) CompleteAppointment(ctx context.Context, actor Actor, id string, req CompleteRequest) (*AppointmentResult, error) {
	ctx, r := s.begin(ctx, "complete_appointment", attribute.String("appointment.id", id))

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, r.fail(err, "failed to load appointment")
	}
	if err := checkTransition(ActionComplete, *appt); err != nil {
		return nil, r.fail(err, "invalid transition")
	}

	now := s.now().UTC()
	status := apptrepo.StatusCompleted
	patch := apptrepo.Patch{Status: &status, CompletedAt: &now}
	next := *appt
	if reportID := strings.TrimSpace(req.ReportID); reportID != "" {
		patch.ReportID = &reportID
		next.ReportID = reportID
	}
	if notes := sanitize.Text(req.Notes); notes != "" {
		patch.InspectorNotes = &notes
		next.InspectorNotes = notes
	}
	if err := s.appointments.Update(ctx, appt.ID, patch); err != nil {
		return nil, r.fail(err, "failed to complete appointment")
	}
	next.Status = status
	next.CompletedAt = &now
	next.UpdatedAt = now

	s.publish(ctx, events.AppointmentCompleted{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		ReportID:      next.ReportID,
	})

	result := &AppointmentResult{Appointment: next, Outcome: r.outcome()}
	r.end()
	return result, nil
}

// visitIDFor returns the linked visit id, falling back to a lookup when the
// link step of an earlier create did not land.
func (s *Service) visitIDFor(ctx context.Context, appt apptrepo.Appointment) string {
	if appt.ScheduledVisitID != "" {
		return appt.ScheduledVisitID
	}
	if !appt.HasCustomer() {
		return ""
	}
	visit, err := s.visits.GetByAppointmentID(ctx, appt.ID)
	if err != nil {
		return ""
	}
	return visit.ID
}
