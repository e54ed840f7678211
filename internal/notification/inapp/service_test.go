package inapp

import (
	"context"
	"testing"
	"time"

	"inspection_portal_backend/internal/notification/sse"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore/memory"
)

type recordingPusher struct {
	events map[string][]sse.Event
}

func (p *recordingPusher) Publish(userID string, event sse.Event) {
	if p.events == nil {
		p.events = make(map[string][]sse.Event)
	}
	p.events[userID] = append(p.events[userID], event)
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	repo := NewRepository(memory.New())
	svc := NewService(repo, nil)
	pusher := &recordingPusher{}
	svc.SetSSE(pusher)

	saved, err := svc.Notify(context.Background(), Notification{
		UserID:   "mgr-1",
		Title:    "Visit rejected",
		Message:  "Customer is not available",
		Priority: PriorityHigh,
		Metadata: map[string]string{"visitId": "v1"},
		Read:     true,
	})
	if err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if saved.Read {
		t.Fatalf("expected new notification to be unread")
	}
	if saved.Category != CategoryAppointment {
		t.Fatalf("expected default category, got %q", saved.Category)
	}
	if len(pusher.events["mgr-1"]) != 1 {
		t.Fatalf("expected one live push, got %d", len(pusher.events["mgr-1"]))
	}

	items, err := svc.List(context.Background(), "mgr-1", true)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || items[0].Priority != PriorityHigh || items[0].Metadata["visitId"] != "v1" {
		t.Fatalf("unexpected stored notifications %+v", items)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	repo := NewRepository(memory.New())
	clock := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	svc := NewService(repo, nil)
	ctx := context.Background()

	first, _ := svc.Notify(ctx, Notification{UserID: "u1", Title: "a", Message: "a"})
	if _, err := svc.Notify(ctx, Notification{UserID: "u1", Title: "b", Message: "b"}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}

	if err := svc.MarkRead(ctx, "u2", first.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected other users to get not found, got %v", err)
	}
	if err := svc.MarkRead(ctx, "u1", first.ID); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}

	count, err := svc.CountUnread(ctx, "u1")
	if err != nil || count != 1 {
		t.Fatalf("expected 1 unread, got %d (%v)", count, err)
	}
	all, _ := svc.List(ctx, "u1", false)
	if len(all) != 2 || all[0].Title != "b" {
		t.Fatalf("expected newest first, got %+v", all)
	}
}

func TestNotifyRequiresRecipient(t *testing.T) {
	svc := NewService(NewRepository(memory.New()), nil)
	if _, err := svc.Notify(context.Background(), Notification{Title: "x", Message: "y"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
