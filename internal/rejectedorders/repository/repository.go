// Package repository archives customer rejections. Records are append-only.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
)

// Collection is the docstore collection holding rejected orders.
const Collection = "rejected_orders"

// RejectedOrder records one customer rejection of a linked appointment.
type RejectedOrder struct {
	ID               string    `json:"id"`
	AppointmentID    string    `json:"appointmentId"`
	ScheduledVisitID string    `json:"scheduledVisitId"`
	CustomerID       string    `json:"customerId,omitempty"`
	CustomerName     string    `json:"customerName,omitempty"`
	BranchID         string    `json:"branchId"`
	Reason           string    `json:"reason,omitempty"`
	RejectedAt       time.Time `json:"rejectedAt"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Repository stores rejected orders. There is no update or delete.
type Repository struct {
	store docstore.Repository
	now   func() time.Time
}

// New creates a new rejected order repository.
func New(store docstore.Repository) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Create appends a record under a generated id.
func (r *Repository) Create(ctx context.Context, order RejectedOrder) (*RejectedOrder, error) {
	if strings.TrimSpace(order.AppointmentID) == "" || strings.TrimSpace(order.ScheduledVisitID) == "" {
		return nil, apperr.Validation("appointmentId and scheduledVisitId are required")
	}
	order.ID = ""
	order.CreatedAt = r.now().UTC()
	if order.RejectedAt.IsZero() {
		order.RejectedAt = order.CreatedAt
	}

	doc, err := docstore.Encode(order)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rejected order: %w", err)
	}
	id, err := r.store.Create(ctx, Collection, "", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected order: %w", err)
	}
	order.ID = id
	return &order, nil
}

// List returns rejected orders, newest first. An empty branchID lists all branches.
func (r *Repository) List(ctx context.Context, branchID string) ([]RejectedOrder, error) {
	q := docstore.Query{
		Collection: Collection,
		OrderBy:    &docstore.OrderBy{Field: "rejectedAt", Desc: true},
	}
	if branchID != "" {
		q.Filters = []docstore.Filter{{Field: "branchId", Value: branchID}}
	}

	docs, _, err := docstore.QueryOrScan(ctx, r.store, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected orders: %w", err)
	}
	items := make([]RejectedOrder, 0, len(docs))
	for _, doc := range docs {
		var item RejectedOrder
		if err := docstore.Decode(doc, &item); err != nil {
			return nil, fmt.Errorf("failed to decode rejected order: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// CountForAppointment returns how many rejections reference an appointment.
func (r *Repository) CountForAppointment(ctx context.Context, appointmentID string) (int, error) {
	docs, _, err := docstore.QueryOrScan(ctx, r.store, docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{{Field: "appointmentId", Value: appointmentID}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count rejected orders: %w", err)
	}
	return len(docs), nil
}
