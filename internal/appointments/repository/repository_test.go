package repository

import (
	"context"
	"testing"
	"time"

	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/docstore/memory"
)

func newTestRepo(now time.Time) (*Repository, *memory.Store) {
	store := memory.New(memory.WithIndexes(&docstore.IndexSet{}))
	return New(store).WithClock(func() time.Time { return now }), store
}

func validAppointment() Appointment {
	return Appointment{
		BranchID:        "branch-1",
		InspectorID:     "insp-1",
		ScheduledDate:   "2025-03-10",
		ScheduledTime:   "09:00",
		DurationMinutes: 60,
		Kind:            KindInspection,
		Title:           "Roof inspection",
		CreatedBy:       "user-1",
	}
}

func TestCreateSetsInitialState(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(now)

	appt := validAppointment()
	appt.CustomerEmail = "customer@example.com"
	appt.Status = StatusCompleted

	created, err := repo.Create(context.Background(), appt)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Status != StatusScheduled {
		t.Fatalf("expected status scheduled, got %s", created.Status)
	}
	if created.CustomerResponse != ResponsePending {
		t.Fatalf("expected pending response, got %s", created.CustomerResponse)
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps to be stamped with %v", now)
	}

	stored, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if stored.InspectorID != "insp-1" || stored.Status != StatusScheduled {
		t.Fatalf("unexpected stored appointment %+v", stored)
	}
}

func TestCreateWithoutCustomerHasNoResponse(t *testing.T) {
	repo, _ := newTestRepo(time.Now())
	created, err := repo.Create(context.Background(), validAppointment())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.CustomerResponse != "" {
		t.Fatalf("expected empty customer response, got %q", created.CustomerResponse)
	}
}

func TestCreateValidation(t *testing.T) {
	repo, store := newTestRepo(time.Now())

	cases := map[string]func(*Appointment){
		"missing inspector": func(a *Appointment) { a.InspectorID = "" },
		"zero duration":     func(a *Appointment) { a.DurationMinutes = 0 },
		"bad kind":          func(a *Appointment) { a.Kind = "survey" },
		"bad time":          func(a *Appointment) { a.ScheduledTime = "9am" },
		"bad date":          func(a *Appointment) { a.ScheduledDate = "10/03/2025" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			appt := validAppointment()
			mutate(&appt)
			_, err := repo.Create(context.Background(), appt)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if store.Count(Collection) != 0 {
		t.Fatalf("expected no writes for invalid input")
	}
}

func TestUpdateRestampsAndMapsNotFound(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	repo, _ := newTestRepo(now)
	created, err := repo.Create(context.Background(), validAppointment())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	later := now.Add(time.Hour)
	repo.WithClock(func() time.Time { return later })
	status := StatusInProgress
	if err := repo.Update(context.Background(), created.ID, Patch{Status: &status}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	got, err := repo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected updatedAt %v, got %v", later, got.UpdatedAt)
	}
	if got.Title != "Roof inspection" {
		t.Fatalf("expected untouched fields to survive, got title %q", got.Title)
	}

	err = repo.Update(context.Background(), "missing", Patch{Status: &status})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListForUserScopes(t *testing.T) {
	repo, _ := newTestRepo(time.Now())
	ctx := context.Background()

	seed := []Appointment{validAppointment(), validAppointment(), validAppointment()}
	seed[1].InspectorID = "insp-2"
	seed[1].ScheduledTime = "08:00"
	seed[2].BranchID = "branch-2"
	seed[2].InspectorID = "insp-3"
	for _, appt := range seed {
		if _, err := repo.Create(ctx, appt); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}

	inspector, err := repo.ListForUser(ctx, Viewer{UserID: "insp-1"}, ListFilter{})
	if err != nil || len(inspector) != 1 {
		t.Fatalf("expected 1 appointment for inspector, got %d (%v)", len(inspector), err)
	}

	manager, err := repo.ListForUser(ctx, Viewer{UserID: "m", BranchID: "branch-1", Manager: true}, ListFilter{Date: "2025-03-10"})
	if err != nil || len(manager) != 2 {
		t.Fatalf("expected 2 appointments for manager, got %d (%v)", len(manager), err)
	}
	if manager[0].ScheduledTime != "08:00" {
		t.Fatalf("expected results ordered by slot, got %s first", manager[0].ScheduledTime)
	}

	admin, err := repo.ListForUser(ctx, Viewer{Admin: true}, ListFilter{})
	if err != nil || len(admin) != 3 {
		t.Fatalf("expected 3 appointments for admin, got %d (%v)", len(admin), err)
	}

	if _, err := repo.ListForUser(ctx, Viewer{UserID: "m", Manager: true}, ListFilter{}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for manager without branch, got %v", err)
	}
}
