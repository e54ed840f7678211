package repository

import (
	"time"
)

// Collection is the docstore collection holding appointments.
const Collection = "appointments"

// Status is the appointment lifecycle status.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	// StatusNoShow is only written by legacy imports; it never blocks a slot.
	StatusNoShow Status = "no_show"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Response is the customer's answer to the visit invitation.
type Response string

const (
	ResponsePending  Response = "pending"
	ResponseAccepted Response = "accepted"
	ResponseRejected Response = "rejected"
)

// Kind is what the appointment is for.
type Kind string

const (
	KindInspection Kind = "inspection"
	KindFollowUp   Kind = "follow_up"
	KindEstimate   Kind = "estimate"
	KindOther      Kind = "other"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInspection, KindFollowUp, KindEstimate, KindOther:
		return true
	}
	return false
}

// Appointment is the canonical scheduling record.
type Appointment struct {
	ID                 string     `json:"id"`
	BranchID           string     `json:"branchId"`
	InspectorID        string     `json:"inspectorId"`
	CustomerID         string     `json:"customerId,omitempty"`
	CustomerName       string     `json:"customerName,omitempty"`
	CustomerEmail      string     `json:"customerEmail,omitempty"`
	CustomerPhone      string     `json:"customerPhone,omitempty"`
	Address            string     `json:"address,omitempty"`
	ScheduledDate      string     `json:"scheduledDate"`
	ScheduledTime      string     `json:"scheduledTime"`
	DurationMinutes    int        `json:"durationMinutes"`
	Kind               Kind       `json:"kind"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	CreatedBy          string     `json:"createdBy"`
	Status             Status     `json:"status"`
	CustomerResponse   Response   `json:"customerResponse,omitempty"`
	RespondedAt        *time.Time `json:"respondedAt,omitempty"`
	ScheduledVisitID   string     `json:"scheduledVisitId,omitempty"`
	ReportID           string     `json:"reportId,omitempty"`
	InspectorNotes     string     `json:"inspectorNotes,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`
	CancelledBy        string     `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// HasCustomer reports whether the customer can be reached through the portal.
func (a Appointment) HasCustomer() bool {
	return a.CustomerID != "" || a.CustomerEmail != ""
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	BranchID           *string
	InspectorID        *string
	ScheduledDate      *string
	ScheduledTime      *string
	DurationMinutes    *int
	Title              *string
	Description        *string
	Status             *Status
	CustomerResponse   *Response
	RespondedAt        *time.Time
	ScheduledVisitID   *string
	ReportID           *string
	InspectorNotes     *string
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

func (p Patch) fields() map[string]any {
	out := make(map[string]any)
	set := func(key string, ok bool, v any) {
		if ok {
			out[key] = v
		}
	}
	set("branchId", p.BranchID != nil, deref(p.BranchID))
	set("inspectorId", p.InspectorID != nil, deref(p.InspectorID))
	set("scheduledDate", p.ScheduledDate != nil, deref(p.ScheduledDate))
	set("scheduledTime", p.ScheduledTime != nil, deref(p.ScheduledTime))
	set("title", p.Title != nil, deref(p.Title))
	set("description", p.Description != nil, deref(p.Description))
	set("scheduledVisitId", p.ScheduledVisitID != nil, deref(p.ScheduledVisitID))
	set("reportId", p.ReportID != nil, deref(p.ReportID))
	set("inspectorNotes", p.InspectorNotes != nil, deref(p.InspectorNotes))
	set("cancellationReason", p.CancellationReason != nil, deref(p.CancellationReason))
	set("cancelledBy", p.CancelledBy != nil, deref(p.CancelledBy))
	if p.DurationMinutes != nil {
		out["durationMinutes"] = *p.DurationMinutes
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.CustomerResponse != nil {
		out["customerResponse"] = string(*p.CustomerResponse)
	}
	setTime := func(key string, t *time.Time) {
		if t != nil {
			out[key] = t.UTC()
		}
	}
	setTime("respondedAt", p.RespondedAt)
	setTime("cancelledAt", p.CancelledAt)
	setTime("startedAt", p.StartedAt)
	setTime("completedAt", p.CompletedAt)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
