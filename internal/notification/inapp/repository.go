package inapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
)

// Collection is the docstore collection holding in-app notifications.
const Collection = "notifications"

const (
	opCreate   = "notification.inapp.repository.create"
	opList     = "notification.inapp.repository.list"
	opMarkRead = "notification.inapp.repository.mark_read"

	errUserIDRequired = "userId is required"
)

// Priority orders notifications in the inbox.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// CategoryAppointment groups scheduling notifications.
const CategoryAppointment = "appointment"

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Category  string            `json:"category"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Link      string            `json:"link,omitempty"`
	Priority  Priority          `json:"priority"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Repository struct {
	store docstore.Repository
	now   func() time.Time
}

func NewRepository(store docstore.Repository) *Repository {
	return &Repository{store: store, now: time.Now}
}

func (r *Repository) Create(ctx context.Context, n Notification) (Notification, error) {
	if strings.TrimSpace(n.UserID) == "" {
		return Notification{}, apperr.Validation(errUserIDRequired).WithOp(opCreate)
	}
	if n.Title == "" || n.Message == "" {
		return Notification{}, apperr.Validation("title and message are required").WithOp(opCreate)
	}
	if n.Category == "" {
		n.Category = CategoryAppointment
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	n.ID = ""
	n.Read = false
	n.ReadAt = nil
	n.CreatedAt = r.now().UTC()

	doc, err := docstore.Encode(n)
	if err != nil {
		return Notification{}, apperr.Wrap(apperr.KindInternal, "encode notification", err).WithOp(opCreate)
	}
	id, err := r.store.Create(ctx, Collection, "", doc)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = id
	return n, nil
}

// List returns a user's notifications, newest first.
func (r *Repository) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperr.Validation(errUserIDRequired).WithOp(opList)
	}
	filters := []docstore.Filter{{Field: "userId", Value: userID}}
	if unreadOnly {
		filters = append(filters, docstore.Filter{Field: "read", Value: false})
	}

	docs, _, err := docstore.QueryOrScan(ctx, r.store, docstore.Query{
		Collection: Collection,
		Filters:    filters,
		OrderBy:    &docstore.OrderBy{Field: "createdAt", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	items := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		var n Notification
		if err := docstore.Decode(doc, &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		items = append(items, n)
	}
	return items, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	items, err := r.List(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// MarkRead flags one of the user's notifications as read.
func (r *Repository) MarkRead(ctx context.Context, userID, id string) error {
	doc, ok, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if !ok || doc["userId"] != userID {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}

	patch, err := docstore.Encode(map[string]any{"read": true, "readAt": r.now().UTC()})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode notification patch", err).WithOp(opMarkRead)
	}
	if err := r.store.Update(ctx, Collection, id, patch); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return apperr.NotFound("notification not found").WithOp(opMarkRead)
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
