package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
)

const (
	visitNotFoundMsg = "scheduled visit not found"
	tokenBytes       = 32
)

// Repository provides document store operations for scheduled visits.
type Repository struct {
	store docstore.Repository
	now   func() time.Time
}

// New creates a new visits repository.
func New(store docstore.Repository) *Repository {
	return &Repository{store: store, now: time.Now}
}

// WithClock overrides the timestamp source.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// NewToken returns 32 random bytes, hex encoded. It has no relation to any id.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate visit token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create inserts a visit with a fresh public token, scheduled status and a
// pending customer response.
func (r *Repository) Create(ctx context.Context, visit Visit) (*Visit, error) {
	if strings.TrimSpace(visit.BranchID) == "" || strings.TrimSpace(visit.ScheduledDate) == "" {
		return nil, apperr.Validation("branchId and scheduledDate are required")
	}
	if visit.CustomerID == "" && visit.CustomerEmail == "" {
		return nil, apperr.Validation("visit needs a customer id or email")
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	visit.PublicToken = token
	visit.Status = apptrepo.StatusScheduled
	visit.CustomerResponse = apptrepo.ResponsePending
	visit.CreatedAt = now
	visit.UpdatedAt = now

	doc, err := docstore.Encode(visit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode visit: %w", err)
	}
	id, err := r.store.Create(ctx, Collection, visit.ID, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create visit: %w", err)
	}
	visit.ID = id
	return &visit, nil
}

// GetByID retrieves a visit by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Visit, error) {
	doc, ok, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound(visitNotFoundMsg)
	}
	return decode(doc)
}

// GetByToken resolves a public portal token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*Visit, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperr.NotFound(visitNotFoundMsg)
	}
	items, err := r.query(ctx, docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{{Field: "publicToken", Value: token}},
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(visitNotFoundMsg)
	}
	return &items[0], nil
}

// GetByAppointmentID finds the visit mirroring an appointment.
func (r *Repository) GetByAppointmentID(ctx context.Context, appointmentID string) (*Visit, error) {
	items, err := r.query(ctx, docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{{Field: "appointmentId", Value: appointmentID}},
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(visitNotFoundMsg)
	}
	return &items[0], nil
}

// ListByBranch lists a branch's visits, newest date first.
func (r *Repository) ListByBranch(ctx context.Context, branchID string) ([]Visit, error) {
	return r.query(ctx, docstore.Query{
		Collection: Collection,
		Filters:    []docstore.Filter{{Field: "branchId", Value: branchID}},
		OrderBy:    &docstore.OrderBy{Field: "scheduledDate", Desc: true},
	})
}

// Update applies a partial update and restamps updatedAt.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) error {
	fields := patch.fields()
	fields["updatedAt"] = r.now().UTC()

	doc, err := docstore.Encode(fields)
	if err != nil {
		return fmt.Errorf("failed to encode visit patch: %w", err)
	}
	if err := r.store.Update(ctx, Collection, id, doc); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFound(visitNotFoundMsg)
		}
		return fmt.Errorf("failed to update visit: %w", err)
	}
	return nil
}

// Delete removes a visit.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, q docstore.Query) ([]Visit, error) {
	docs, _, err := docstore.QueryOrScan(ctx, r.store, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	items := make([]Visit, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, *v)
	}
	return items, nil
}

func decode(doc docstore.Document) (*Visit, error) {
	var v Visit
	if err := docstore.Decode(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to decode visit: %w", err)
	}
	return &v, nil
}
