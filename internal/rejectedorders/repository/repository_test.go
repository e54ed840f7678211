package repository

import (
	"context"
	"testing"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore/memory"
)

func TestCreateAndListNewestFirst(t *testing.T) {
	repo := New(memory.New())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, branch := range []string{"b1", "b1", "b2"} {
		_, err := repo.Create(ctx, RejectedOrder{
			ID:               "ignored",
			AppointmentID:    "appt",
			ScheduledVisitID: "visit",
			BranchID:         branch,
			RejectedAt:       base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	items, err := repo.List(ctx, "b1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 orders for b1, got %d", len(items))
	}
	if !items[0].RejectedAt.After(items[1].RejectedAt) {
		t.Fatalf("expected newest first")
	}
	if items[0].ID == "ignored" || items[0].ID == items[1].ID {
		t.Fatalf("expected generated unique ids, got %q and %q", items[0].ID, items[1].ID)
	}

	all, err := repo.List(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 orders overall, got %d (%v)", len(all), err)
	}
}

func TestCreateRequiresLinks(t *testing.T) {
	_, err := New(memory.New()).Create(context.Background(), RejectedOrder{AppointmentID: "appt"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
