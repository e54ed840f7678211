package service

import (
	"context"
	"testing"

	"inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore/memory"
)

func seed(t *testing.T, repo *repository.Repository) *repository.Appointment {
	t.Helper()
	appt, err := repo.Create(context.Background(), repository.Appointment{
		BranchID:        "branch-1",
		InspectorID:     "insp-1",
		ScheduledDate:   "2025-03-10",
		ScheduledTime:   "09:00",
		DurationMinutes: 60,
		Kind:            repository.KindInspection,
		Title:           "Roof inspection",
		CreatedBy:       "sched-1",
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return appt
}

func TestCanView(t *testing.T) {
	appt := repository.Appointment{BranchID: "branch-1", InspectorID: "insp-1", CreatedBy: "sched-1"}
	tests := []struct {
		name   string
		viewer Viewer
		want   bool
	}{
		{"admin", Viewer{UserID: "x", Admin: true}, true},
		{"manager same branch", Viewer{UserID: "m", BranchID: "branch-1", Manager: true}, true},
		{"manager other branch", Viewer{UserID: "m", BranchID: "branch-2", Manager: true}, false},
		{"manager without branch", Viewer{UserID: "m", Manager: true}, false},
		{"assigned inspector", Viewer{UserID: "insp-1"}, true},
		{"creator", Viewer{UserID: "sched-1"}, true},
		{"stranger", Viewer{UserID: "insp-2"}, false},
	}
	for _, tt := range tests {
		if got := CanView(tt.viewer, appt); got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestGetByIDScoped(t *testing.T) {
	repo := repository.New(memory.New())
	svc := New(repo)
	appt := seed(t, repo)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, Viewer{UserID: "insp-2"}, appt.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}
	if _, err := svc.GetByID(ctx, Viewer{UserID: "insp-1"}, appt.ID); err != nil {
		t.Fatalf("expected inspector access, got %v", err)
	}
	if _, err := svc.GetByID(ctx, Viewer{Admin: true}, "missing"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	repo := repository.New(memory.New())
	svc := New(repo)
	appt := seed(t, repo)
	ctx := context.Background()

	if err := svc.Delete(ctx, Viewer{UserID: "m", BranchID: "branch-1", Manager: true}, appt.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for manager, got %v", err)
	}
	if err := svc.Delete(ctx, Viewer{Admin: true}, appt.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.GetByID(ctx, appt.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected appointment gone, got %v", err)
	}
}

func TestListNeverNil(t *testing.T) {
	svc := New(repository.New(memory.New()))
	items, err := svc.List(context.Background(), Viewer{UserID: "insp-1"}, repository.ListFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if items == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}
