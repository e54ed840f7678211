package repository

import (
	"context"
	"testing"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore/memory"
)

func TestUpsertAndResolveManager(t *testing.T) {
	repo := New(memory.New())
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, Branch{ID: "b1", Name: "North"}); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if _, err := repo.ManagerFor(ctx, "b1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for branch without manager, got %v", err)
	}

	if _, err := repo.Upsert(ctx, Branch{ID: "b1", Name: "North", ManagerID: "mgr-1", ManagerEmail: "mgr@example.com"}); err != nil {
		t.Fatalf("second Upsert returned error: %v", err)
	}
	mgr, err := repo.ManagerFor(ctx, "b1")
	if err != nil {
		t.Fatalf("ManagerFor returned error: %v", err)
	}
	if mgr.UserID != "mgr-1" || mgr.Email != "mgr@example.com" {
		t.Fatalf("unexpected manager %+v", mgr)
	}
}

func TestManagerForUnknownBranch(t *testing.T) {
	if _, err := New(memory.New()).ManagerFor(context.Background(), "nope"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
