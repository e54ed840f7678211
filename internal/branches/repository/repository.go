// Package repository stores branch records, including who manages each branch.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
)

// Collection is the docstore collection holding branches.
const Collection = "branches"

const branchNotFoundMsg = "branch not found"

// Branch is a local office of the inspection company.
type Branch struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ManagerID    string    `json:"managerId"`
	ManagerName  string    `json:"managerName,omitempty"`
	ManagerEmail string    `json:"managerEmail,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Manager is the person notified about a branch's customer rejections.
type Manager struct {
	UserID string
	Name   string
	Email  string
}

// Repository provides document store operations for branches.
type Repository struct {
	store docstore.Repository
	now   func() time.Time
}

// New creates a new branches repository.
func New(store docstore.Repository) *Repository {
	return &Repository{store: store, now: time.Now}
}

// Upsert creates or replaces the branch with b.ID.
func (r *Repository) Upsert(ctx context.Context, b Branch) (*Branch, error) {
	if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.Name) == "" {
		return nil, apperr.Validation("branch id and name are required")
	}
	b.UpdatedAt = r.now().UTC()

	doc, err := docstore.Encode(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode branch: %w", err)
	}
	err = r.store.Update(ctx, Collection, b.ID, doc)
	if errors.Is(err, docstore.ErrNotFound) {
		_, err = r.store.Create(ctx, Collection, b.ID, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save branch: %w", err)
	}
	return &b, nil
}

// GetByID retrieves a branch.
func (r *Repository) GetByID(ctx context.Context, id string) (*Branch, error) {
	doc, ok, err := r.store.Get(ctx, Collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound(branchNotFoundMsg)
	}
	var b Branch
	if err := docstore.Decode(doc, &b); err != nil {
		return nil, fmt.Errorf("failed to decode branch: %w", err)
	}
	return &b, nil
}

// ManagerFor resolves the manager of a branch.
func (r *Repository) ManagerFor(ctx context.Context, branchID string) (Manager, error) {
	b, err := r.GetByID(ctx, branchID)
	if err != nil {
		return Manager{}, err
	}
	if b.ManagerID == "" {
		return Manager{}, apperr.NotFound("branch has no manager")
	}
	return Manager{UserID: b.ManagerID, Name: b.ManagerName, Email: b.ManagerEmail}, nil
}
