// Package service provides the read side of appointments: role-scoped
// listing, lookup and administrative deletion. State changes go through
// the workflow orchestrator.
package service

import (
	"context"

	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/platform/apperr"
)

// Viewer is the caller of a read operation.
type Viewer = repository.Viewer

type Repository interface {
	GetByID(ctx context.Context, id string) (*repository.Appointment, error)
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, viewer Viewer, filter repository.ListFilter) ([]repository.Appointment, error)
}

// Service handles appointment queries.
type Service struct {
	repo Repository
}

// New creates a new appointments service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the appointments the viewer may see.
func (s *Service) List(ctx context.Context, viewer Viewer, filter repository.ListFilter) ([]repository.Appointment, error) {
	items, err := s.repo.ListForUser(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.Appointment{}
	}
	return items, nil
}

// GetByID returns an appointment if the viewer may see it.
func (s *Service) GetByID(ctx context.Context, viewer Viewer, id string) (*repository.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, *appt) {
		return nil, apperr.Forbidden("not allowed to access this appointment")
	}
	return appt, nil
}

// Delete removes an appointment. Callers must be admins.
func (s *Service) Delete(ctx context.Context, viewer Viewer, id string) error {
	if !viewer.Admin {
		return apperr.Forbidden("only admins can delete appointments")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// CanView applies the same scoping as listing: admins see everything,
// managers their branch, others what they created or are assigned to.
func CanView(viewer Viewer, appt repository.Appointment) bool {
	switch {
	case viewer.Admin:
		return true
	case viewer.Manager:
		return viewer.BranchID != "" && viewer.BranchID == appt.BranchID
	default:
		return viewer.UserID != "" && (viewer.UserID == appt.InspectorID || viewer.UserID == appt.CreatedBy)
	}
}
