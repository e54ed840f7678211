package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/validator"
)

const appointmentNotFoundMsg = "appointment not found"

// Repository provides document store operations for appointments.
type Repository struct {
	store docstore.Repository
	now   func() time.Time
}

// New creates a new appointments repository.
func New(store docstore.Repository) *Repository {
	return &Repository{store: store, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// Create validates and inserts a new appointment. Status is always
// scheduled; the customer response starts pending when a customer is present.
func (r *Repository) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	if err := validateNew(appt); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	appt.Status = StatusScheduled
	appt.CustomerResponse = ""
	if appt.HasCustomer() {
		appt.CustomerResponse = ResponsePending
	}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	doc, err := docstore.Encode(appt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode appointment: %w", err)
	}
	id, err := r.store.Create(ctx, Collection, appt.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	appt.ID = id
	return &appt, nil
}

// GetByID retrieves an appointment by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	doc, ok, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound(appointmentNotFoundMsg)
	}
	return decode(doc)
}

// Update applies a partial update and restamps updatedAt.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) error {
	fields := patch.fields()
	fields["updatedAt"] = r.now().UTC()

	doc, err := docstore.Encode(fields)
	if err != nil {
		return fmt.Errorf("failed to encode appointment patch: %w", err)
	}
	if err := r.store.Update(ctx, Collection, id, doc); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFound(appointmentNotFoundMsg)
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// Delete removes an appointment.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// Viewer identifies who is listing appointments.
type Viewer struct {
	UserID   string
	BranchID string
	Admin    bool
	Manager  bool
}

// ListFilter narrows a listing. Empty fields are ignored.
type ListFilter struct {
	BranchID string
	Date     string
	Status   Status
}

// ListForUser lists appointments visible to the viewer: admins see every
// branch, managers their own branch and inspectors their own assignments.
func (r *Repository) ListForUser(ctx context.Context, viewer Viewer, filter ListFilter) ([]Appointment, error) {
	filters := make([]docstore.Filter, 0, 3)
	switch {
	case viewer.Admin:
		if filter.BranchID != "" {
			filters = append(filters, docstore.Filter{Field: "branchId", Value: filter.BranchID})
		}
	case viewer.Manager:
		if viewer.BranchID == "" {
			return nil, apperr.Forbidden("branch manager has no branch")
		}
		filters = append(filters, docstore.Filter{Field: "branchId", Value: viewer.BranchID})
	default:
		filters = append(filters, docstore.Filter{Field: "inspectorId", Value: viewer.UserID})
	}
	if filter.Date != "" {
		filters = append(filters, docstore.Filter{Field: "scheduledDate", Value: filter.Date})
	}
	if filter.Status != "" {
		filters = append(filters, docstore.Filter{Field: "status", Value: string(filter.Status)})
	}

	items, err := r.query(ctx, docstore.Query{
		Collection: Collection,
		Filters:    filters,
		OrderBy:    &docstore.OrderBy{Field: "scheduledDate"},
	})
	if err != nil {
		return nil, err
	}
	sortBySlot(items)
	return items, nil
}

// ListForInspectorDate returns every appointment of an inspector on a date,
// regardless of status.
func (r *Repository) ListForInspectorDate(ctx context.Context, inspectorID, date string) ([]Appointment, error) {
	items, err := r.query(ctx, docstore.Query{
		Collection: Collection,
		Filters: []docstore.Filter{
			{Field: "inspectorId", Value: inspectorID},
			{Field: "scheduledDate", Value: date},
		},
	})
	if err != nil {
		return nil, err
	}
	sortBySlot(items)
	return items, nil
}

func (r *Repository) query(ctx context.Context, q docstore.Query) ([]Appointment, error) {
	docs, _, err := docstore.QueryOrScan(ctx, r.store, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	items := make([]Appointment, 0, len(docs))
	for _, doc := range docs {
		appt, err := decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, *appt)
	}
	return items, nil
}

func sortBySlot(items []Appointment) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ScheduledDate != items[j].ScheduledDate {
			return items[i].ScheduledDate < items[j].ScheduledDate
		}
		return items[i].ScheduledTime < items[j].ScheduledTime
	})
}

func decode(doc docstore.Document) (*Appointment, error) {
	var appt Appointment
	if err := docstore.Decode(doc, &appt); err != nil {
		return nil, fmt.Errorf("failed to decode appointment: %w", err)
	}
	return &appt, nil
}

func validateNew(appt Appointment) error {
	missing := make([]string, 0)
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("branchId", appt.BranchID)
	require("inspectorId", appt.InspectorID)
	require("scheduledDate", appt.ScheduledDate)
	require("scheduledTime", appt.ScheduledTime)
	require("title", appt.Title)
	if len(missing) > 0 {
		return apperr.Validation("missing required fields").WithDetails(map[string][]string{"missing": missing})
	}

	if !appt.Kind.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown appointment kind %q", appt.Kind))
	}
	if appt.DurationMinutes <= 0 {
		return apperr.Validation("duration must be positive")
	}
	if _, err := time.Parse(validator.DateLayout, appt.ScheduledDate); err != nil {
		return apperr.Validation("scheduledDate must be YYYY-MM-DD")
	}
	if _, err := time.Parse(validator.ClockLayout, appt.ScheduledTime); err != nil {
		return apperr.Validation("scheduledTime must be HH:MM")
	}
	return nil
}
