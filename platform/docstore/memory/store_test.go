package memory

import (
	"context"
	"errors"
	"testing"

	"inspection_portal_backend/platform/docstore"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.Create(ctx, "visits", "v1", docstore.Document{"title": "a"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := s.Create(ctx, "visits", "v1", docstore.Document{"title": "b"}); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), "appointments", "nope", docstore.Document{"status": "cancelled"})
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDocumentsAreCopied(t *testing.T) {
	s := New(WithIDGenerator(func() string { return "fixed" }))
	ctx := context.Background()
	input := docstore.Document{"title": "original"}
	id, err := s.Create(ctx, "appointments", "", input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id != "fixed" {
		t.Fatalf("expected generated id fixed, got %q", id)
	}
	input["title"] = "mutated"

	got, ok, err := s.Get(ctx, "appointments", id)
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if got["title"] != "original" {
		t.Fatalf("expected stored copy to be isolated, got %v", got["title"])
	}
	got["title"] = "changed"
	again, _, _ := s.Get(ctx, "appointments", id)
	if again["title"] != "original" {
		t.Fatalf("expected returned copy to be isolated, got %v", again["title"])
	}
	if again[docstore.IDField] != "fixed" {
		t.Fatalf("expected id field to be stamped, got %v", again[docstore.IDField])
	}
}

func TestFaultInjection(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailOn("visits", OpCreate, boom)

	if _, err := s.Create(context.Background(), "visits", "", docstore.Document{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if _, err := s.Create(context.Background(), "appointments", "", docstore.Document{}); err != nil {
		t.Fatalf("expected other collection unaffected, got %v", err)
	}

	s.ClearFaults()
	if _, err := s.Create(context.Background(), "visits", "", docstore.Document{}); err != nil {
		t.Fatalf("expected create to succeed after ClearFaults, got %v", err)
	}
	if s.Count("visits") != 1 {
		t.Fatalf("expected 1 visit, got %d", s.Count("visits"))
	}
}
