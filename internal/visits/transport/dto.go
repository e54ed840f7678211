package transport

import (
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	visitrepo "inspection_portal_backend/internal/visits/repository"
)

// ListVisitsRequest is the query parameters for listing visits.
type ListVisitsRequest struct {
	BranchID string `form:"branchId"`
}

// RejectVisitRequest is the body customers send when declining a visit.
type RejectVisitRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// PortalVisit is what the customer portal shows for a token. Internal ids
// and staff fields are left out.
type PortalVisit struct {
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	VisitType        string     `json:"visitType"`
	CustomerName     string     `json:"customerName,omitempty"`
	Address          string     `json:"address,omitempty"`
	ScheduledDate    string     `json:"scheduledDate"`
	ScheduledTime    string     `json:"scheduledTime"`
	DurationMinutes  int        `json:"durationMinutes"`
	Status           string     `json:"status"`
	CustomerResponse string     `json:"customerResponse"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	CanRespond       bool       `json:"canRespond"`
}

// VisitListResponse wraps a listing.
type VisitListResponse struct {
	Items []visitrepo.Visit `json:"items"`
	Total int               `json:"total"`
}

// ToPortalVisit strips a visit down to its customer-facing fields.
func ToPortalVisit(v visitrepo.Visit) PortalVisit {
	return PortalVisit{
		Title:            v.Title,
		Description:      v.Description,
		VisitType:        string(v.VisitType),
		CustomerName:     v.CustomerName,
		Address:          v.Address,
		ScheduledDate:    v.ScheduledDate,
		ScheduledTime:    v.ScheduledTime,
		DurationMinutes:  v.DurationMinutes,
		Status:           string(v.Status),
		CustomerResponse: string(v.CustomerResponse),
		RespondedAt:      v.RespondedAt,
		CanRespond:       !v.Responded() && v.Status == apptrepo.StatusScheduled,
	}
}
