// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"inspection_portal_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

const (
	NameAppointmentCreated     = "appointments.created"
	NameAppointmentUpdated     = "appointments.updated"
	NameAppointmentCancelled   = "appointments.cancelled"
	NameAppointmentStarted     = "appointments.started"
	NameAppointmentCompleted   = "appointments.completed"
	NameVisitAccepted          = "visits.accepted"
	NameVisitRejected          = "visits.rejected"
	NameDoubleBookingSuspected = "appointments.double_booking_suspected"
)

// =============================================================================
// Appointment Events
// =============================================================================

// AppointmentCreated is published after the appointment (and, when possible,
// its visit) has been stored.
type AppointmentCreated struct {
	BaseEvent
	AppointmentID    string `json:"appointmentId"`
	ScheduledVisitID string `json:"scheduledVisitId,omitempty"`
	BranchID         string `json:"branchId"`
	InspectorID      string `json:"inspectorId"`
	ScheduledDate    string `json:"scheduledDate"`
	ScheduledTime    string `json:"scheduledTime"`
	DurationMinutes  int    `json:"durationMinutes"`
	CreatedBy        string `json:"createdBy"`
}

func (e AppointmentCreated) EventName() string { return NameAppointmentCreated }
func (e AppointmentCreated) EventKey() string  { return e.AppointmentID }

// AppointmentUpdated is published when an appointment's slot or text changes.
type AppointmentUpdated struct {
	BaseEvent
	AppointmentID string `json:"appointmentId"`
	SlotChanged   bool   `json:"slotChanged"`
	UpdatedBy     string `json:"updatedBy"`
}

func (e AppointmentUpdated) EventName() string { return NameAppointmentUpdated }
func (e AppointmentUpdated) EventKey() string  { return e.AppointmentID }

// AppointmentCancelled is published by staff cancellation.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID string `json:"appointmentId"`
	BranchID      string `json:"branchId"`
	Reason        string `json:"reason,omitempty"`
	CancelledBy   string `json:"cancelledBy"`
}

func (e AppointmentCancelled) EventName() string { return NameAppointmentCancelled }
func (e AppointmentCancelled) EventKey() string  { return e.AppointmentID }

// AppointmentStarted is published when the inspector starts work on site.
type AppointmentStarted struct {
	BaseEvent
	AppointmentID string `json:"appointmentId"`
	InspectorID   string `json:"inspectorId"`
}

func (e AppointmentStarted) EventName() string { return NameAppointmentStarted }
func (e AppointmentStarted) EventKey() string  { return e.AppointmentID }

// AppointmentCompleted is published when the inspection is finished.
type AppointmentCompleted struct {
	BaseEvent
	AppointmentID string `json:"appointmentId"`
	ReportID      string `json:"reportId,omitempty"`
}

func (e AppointmentCompleted) EventName() string { return NameAppointmentCompleted }
func (e AppointmentCompleted) EventKey() string  { return e.AppointmentID }

// DoubleBookingSuspected is published when a slot that was free at check
// time turned out to be shared once the appointment was stored.
type DoubleBookingSuspected struct {
	BaseEvent
	AppointmentID  string   `json:"appointmentId"`
	InspectorID    string   `json:"inspectorId"`
	ScheduledDate  string   `json:"scheduledDate"`
	ConflictingIDs []string `json:"conflictingIds"`
}

func (e DoubleBookingSuspected) EventName() string { return NameDoubleBookingSuspected }
func (e DoubleBookingSuspected) EventKey() string  { return e.AppointmentID }

// =============================================================================
// Visit Events
// =============================================================================

// VisitAccepted is published once the customer's acceptance is stored.
type VisitAccepted struct {
	BaseEvent
	ScheduledVisitID string `json:"scheduledVisitId"`
	AppointmentID    string `json:"appointmentId,omitempty"`
	BranchID         string `json:"branchId"`
}

func (e VisitAccepted) EventName() string { return NameVisitAccepted }
func (e VisitAccepted) EventKey() string  { return e.ScheduledVisitID }

// VisitRejected is published once the customer's rejection is stored.
type VisitRejected struct {
	BaseEvent
	ScheduledVisitID string `json:"scheduledVisitId"`
	AppointmentID    string `json:"appointmentId,omitempty"`
	BranchID         string `json:"branchId"`
	Reason           string `json:"reason,omitempty"`
}

func (e VisitRejected) EventName() string { return NameVisitRejected }
func (e VisitRejected) EventKey() string  { return e.ScheduledVisitID }
