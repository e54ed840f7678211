package transport

import (
	"inspection_portal_backend/internal/appointments/conflict"
	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/internal/workflow"
)

// CreateAppointmentRequest is the request body for creating an appointment.
// BranchID defaults to the caller's branch.
type CreateAppointmentRequest struct {
	BranchID        string `json:"branchId,omitempty" validate:"omitempty,max=100"`
	InspectorID     string `json:"inspectorId" validate:"required,max=100"`
	CustomerID      string `json:"customerId,omitempty" validate:"omitempty,max=100"`
	CustomerName    string `json:"customerName,omitempty" validate:"omitempty,max=200"`
	CustomerEmail   string `json:"customerEmail,omitempty" validate:"omitempty,email,max=254"`
	CustomerPhone   string `json:"customerPhone,omitempty" validate:"omitempty,max=40"`
	Address         string `json:"address,omitempty" validate:"omitempty,max=500"`
	ScheduledDate   string `json:"scheduledDate" validate:"required,isodate"`
	ScheduledTime   string `json:"scheduledTime" validate:"required,clock"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1,max=1440"`
	Kind            string `json:"kind" validate:"required,oneof=inspection follow_up estimate other"`
	Title           string `json:"title" validate:"required,min=1,max=200"`
	Description     string `json:"description,omitempty" validate:"max=2000"`
}

// UpdateAppointmentRequest is the request body for editing an open appointment.
type UpdateAppointmentRequest struct {
	InspectorID     *string `json:"inspectorId,omitempty" validate:"omitempty,min=1,max=100"`
	ScheduledDate   *string `json:"scheduledDate,omitempty" validate:"omitempty,isodate"`
	ScheduledTime   *string `json:"scheduledTime,omitempty" validate:"omitempty,clock"`
	DurationMinutes *int    `json:"durationMinutes,omitempty" validate:"omitempty,min=1,max=1440"`
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// CancelAppointmentRequest is the request body for cancelling an appointment.
type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=1000"`
}

// CompleteAppointmentRequest is the request body for completing an appointment.
type CompleteAppointmentRequest struct {
	ReportID string `json:"reportId,omitempty" validate:"max=100"`
	Notes    string `json:"notes,omitempty" validate:"max=5000"`
}

// ListAppointmentsRequest is the query parameters for listing appointments.
type ListAppointmentsRequest struct {
	BranchID string `form:"branchId"`
	Date     string `form:"date" validate:"omitempty,isodate"`
	Status   string `form:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled no_show"`
}

// ConflictsRequest is the query parameters for a slot check.
type ConflictsRequest struct {
	InspectorID string `form:"inspectorId" validate:"required"`
	Date        string `form:"date" validate:"required,isodate"`
	Time        string `form:"time" validate:"required,clock"`
	Duration    int    `form:"duration" validate:"required,min=1,max=1440"`
	ExcludeID   string `form:"excludeId"`
}

// ConflictsResponse lists the appointments blocking a slot.
type ConflictsResponse struct {
	HasConflicts bool               `json:"hasConflicts"`
	Conflicts    []conflict.Summary `json:"conflicts"`
}

// AppointmentListResponse wraps a listing.
type AppointmentListResponse struct {
	Items []repository.Appointment `json:"items"`
	Total int                      `json:"total"`
}

func (r CreateAppointmentRequest) ToWorkflow(defaultBranch string) workflow.CreateRequest {
	branch := r.BranchID
	if branch == "" {
		branch = defaultBranch
	}
	return workflow.CreateRequest{
		BranchID:        branch,
		InspectorID:     r.InspectorID,
		CustomerID:      r.CustomerID,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		Address:         r.Address,
		ScheduledDate:   r.ScheduledDate,
		ScheduledTime:   r.ScheduledTime,
		DurationMinutes: r.DurationMinutes,
		Kind:            repository.Kind(r.Kind),
		Title:           r.Title,
		Description:     r.Description,
	}
}

func (r UpdateAppointmentRequest) ToWorkflow() workflow.UpdateRequest {
	return workflow.UpdateRequest{
		InspectorID:     r.InspectorID,
		ScheduledDate:   r.ScheduledDate,
		ScheduledTime:   r.ScheduledTime,
		DurationMinutes: r.DurationMinutes,
		Title:           r.Title,
		Description:     r.Description,
	}
}

func (r ConflictsRequest) ToConflict() conflict.Request {
	return conflict.Request{
		InspectorID:     r.InspectorID,
		Date:            r.Date,
		StartTime:       r.Time,
		DurationMinutes: r.Duration,
		ExcludeID:       r.ExcludeID,
	}
}
