package repository

import (
	"context"
	"regexp"
	"strings"
	"testing"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	"inspection_portal_backend/platform/apperr"
	"inspection_portal_backend/platform/docstore/memory"
)

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

func newVisit() Visit {
	return Visit{
		AppointmentID:   "appt-1",
		BranchID:        "branch-1",
		InspectorID:     "insp-1",
		CustomerEmail:   "customer@example.com",
		ScheduledDate:   "2025-03-10",
		ScheduledTime:   "09:00",
		DurationMinutes: 60,
		VisitType:       TypeInspection,
		Title:           "Roof inspection",
	}
}

func TestTypeForKind(t *testing.T) {
	cases := map[apptrepo.Kind]Type{
		apptrepo.KindInspection: TypeInspection,
		apptrepo.KindFollowUp:   TypeMaintenance,
		apptrepo.KindEstimate:   TypeRepair,
		apptrepo.KindOther:      TypeOther,
	}
	for kind, want := range cases {
		if got := TypeForKind(kind); got != want {
			t.Fatalf("TypeForKind(%s) = %s, want %s", kind, got, want)
		}
	}
}

func TestCreateIssuesUnrelatedTokens(t *testing.T) {
	repo := New(memory.New())
	ctx := context.Background()

	seen := make(map[string]struct{})
	for range 20 {
		v, err := repo.Create(ctx, newVisit())
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		if !hexToken.MatchString(v.PublicToken) {
			t.Fatalf("expected 64 hex chars, got %q", v.PublicToken)
		}
		if strings.Contains(v.PublicToken, strings.ReplaceAll(v.ID, "-", "")) {
			t.Fatalf("token must not embed the visit id")
		}
		if _, dup := seen[v.PublicToken]; dup {
			t.Fatalf("duplicate token %q", v.PublicToken)
		}
		seen[v.PublicToken] = struct{}{}
		if v.CustomerResponse != apptrepo.ResponsePending || v.Status != apptrepo.StatusScheduled {
			t.Fatalf("unexpected initial state %s/%s", v.Status, v.CustomerResponse)
		}
	}
}

func TestLookupsByTokenAndAppointment(t *testing.T) {
	repo := New(memory.New())
	ctx := context.Background()
	created, err := repo.Create(ctx, newVisit())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	byToken, err := repo.GetByToken(ctx, created.PublicToken)
	if err != nil || byToken.ID != created.ID {
		t.Fatalf("GetByToken = %+v, %v", byToken, err)
	}
	byAppt, err := repo.GetByAppointmentID(ctx, "appt-1")
	if err != nil || byAppt.ID != created.ID {
		t.Fatalf("GetByAppointmentID = %+v, %v", byAppt, err)
	}
	if _, err := repo.GetByToken(ctx, "unknown"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown token, got %v", err)
	}
}

func TestCreateRequiresCustomer(t *testing.T) {
	v := newVisit()
	v.CustomerEmail = ""
	if _, err := New(memory.New()).Create(context.Background(), v); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
