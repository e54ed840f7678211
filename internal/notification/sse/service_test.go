package sse

import (
	"testing"
)

func TestPublishReachesOnlyTargetUser(t *testing.T) {
	s := New(nil)
	a := &client{userID: "u1", branchID: "b1", events: make(chan Event, 1)}
	b := &client{userID: "u2", branchID: "b1", events: make(chan Event, 1)}
	s.addClient(a)
	s.addClient(b)

	s.Publish("u1", Event{Type: EventNotification})

	if len(a.events) != 1 || len(b.events) != 0 {
		t.Fatalf("expected only u1 to receive, got %d/%d", len(a.events), len(b.events))
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	s := New(nil)
	a := &client{userID: "u1", events: make(chan Event, 1)}
	s.addClient(a)

	s.Publish("u1", Event{Type: EventNotification})
	s.Publish("u1", Event{Type: EventNotification})

	if len(a.events) != 1 {
		t.Fatalf("expected overflow to be dropped, got %d buffered", len(a.events))
	}
}

func TestPublishToBranchAndRemove(t *testing.T) {
	s := New(nil)
	a := &client{userID: "u1", branchID: "b1", events: make(chan Event, 2)}
	b := &client{userID: "u2", branchID: "b2", events: make(chan Event, 2)}
	s.addClient(a)
	s.addClient(b)

	s.PublishToBranch("b1", Event{Type: EventAppointmentUpdated})
	if len(a.events) != 1 || len(b.events) != 0 {
		t.Fatalf("expected branch scoped delivery, got %d/%d", len(a.events), len(b.events))
	}

	s.removeClient(a)
	if s.Connected("u1") != 0 {
		t.Fatalf("expected u1 to be disconnected")
	}
	s.PublishToBranch("b1", Event{Type: EventAppointmentUpdated})
	if len(a.events) != 1 {
		t.Fatalf("expected removed client to receive nothing more")
	}
}
