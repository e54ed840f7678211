package repository

import (
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
)

// Collection is the docstore collection holding scheduled visits.
const Collection = "scheduled_visits"

// Type is the customer-facing visit category.
type Type string

const (
	TypeInspection  Type = "inspection"
	TypeMaintenance Type = "maintenance"
	TypeRepair      Type = "repair"
	TypeOther       Type = "other"
)

// TypeForKind maps an appointment kind onto the visit type shown to customers.
func TypeForKind(kind apptrepo.Kind) Type {
	switch kind {
	case apptrepo.KindInspection:
		return TypeInspection
	case apptrepo.KindFollowUp:
		return TypeMaintenance
	case apptrepo.KindEstimate:
		return TypeRepair
	default:
		return TypeOther
	}
}

// Visit is the portal projection of an appointment.
type Visit struct {
	ID                 string            `json:"id"`
	AppointmentID      string            `json:"appointmentId,omitempty"`
	BranchID           string            `json:"branchId"`
	InspectorID        string            `json:"inspectorId"`
	CustomerID         string            `json:"customerId,omitempty"`
	CustomerName       string            `json:"customerName,omitempty"`
	CustomerEmail      string            `json:"customerEmail,omitempty"`
	CustomerPhone      string            `json:"customerPhone,omitempty"`
	Address            string            `json:"address,omitempty"`
	ScheduledDate      string            `json:"scheduledDate"`
	ScheduledTime      string            `json:"scheduledTime"`
	DurationMinutes    int               `json:"durationMinutes"`
	VisitType          Type              `json:"visitType"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Status             apptrepo.Status   `json:"status"`
	CustomerResponse   apptrepo.Response `json:"customerResponse"`
	RespondedAt        *time.Time        `json:"respondedAt,omitempty"`
	ResponseReason     string            `json:"responseReason,omitempty"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
	CancelledBy        string            `json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	PublicToken        string            `json:"publicToken"`
	CreatedBy          string            `json:"createdBy"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// Responded reports whether the customer has already answered.
func (v Visit) Responded() bool {
	return v.CustomerResponse == apptrepo.ResponseAccepted || v.CustomerResponse == apptrepo.ResponseRejected
}

// FromAppointment derives the mirrored fields of a visit.
func FromAppointment(a apptrepo.Appointment) Visit {
	return Visit{
		AppointmentID:   a.ID,
		BranchID:        a.BranchID,
		InspectorID:     a.InspectorID,
		CustomerID:      a.CustomerID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		Address:         a.Address,
		ScheduledDate:   a.ScheduledDate,
		ScheduledTime:   a.ScheduledTime,
		DurationMinutes: a.DurationMinutes,
		VisitType:       TypeForKind(a.Kind),
		Title:           a.Title,
		Description:     a.Description,
		CreatedBy:       a.CreatedBy,
	}
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	InspectorID        *string
	ScheduledDate      *string
	ScheduledTime      *string
	DurationMinutes    *int
	Title              *string
	Description        *string
	Status             *apptrepo.Status
	CustomerResponse   *apptrepo.Response
	RespondedAt        *time.Time
	ResponseReason     *string
	CancellationReason *string
	CancelledBy        *string
	CancelledAt        *time.Time
}

func (p Patch) fields() map[string]any {
	out := make(map[string]any)
	str := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	str("inspectorId", p.InspectorID)
	str("scheduledDate", p.ScheduledDate)
	str("scheduledTime", p.ScheduledTime)
	str("title", p.Title)
	str("description", p.Description)
	str("responseReason", p.ResponseReason)
	str("cancellationReason", p.CancellationReason)
	str("cancelledBy", p.CancelledBy)
	if p.DurationMinutes != nil {
		out["durationMinutes"] = *p.DurationMinutes
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.CustomerResponse != nil {
		out["customerResponse"] = string(*p.CustomerResponse)
	}
	if p.RespondedAt != nil {
		out["respondedAt"] = p.RespondedAt.UTC()
	}
	if p.CancelledAt != nil {
		out["cancelledAt"] = p.CancelledAt.UTC()
	}
	return out
}
