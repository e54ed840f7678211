package workflow

import (
	"testing"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/platform/apperr"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name     string
		action   Action
		status   apptrepo.Status
		response apptrepo.Response
		allowed  bool
	}{
		{"update scheduled", ActionUpdate, apptrepo.StatusScheduled, apptrepo.ResponsePending, true},
		{"update in progress", ActionUpdate, apptrepo.StatusInProgress, "", false},
		{"start scheduled pending", ActionStart, apptrepo.StatusScheduled, apptrepo.ResponsePending, true},
		{"start scheduled accepted", ActionStart, apptrepo.StatusScheduled, apptrepo.ResponseAccepted, true},
		{"start rejected by customer", ActionStart, apptrepo.StatusScheduled, apptrepo.ResponseRejected, false},
		{"start in progress", ActionStart, apptrepo.StatusInProgress, "", false},
		{"complete scheduled", ActionComplete, apptrepo.StatusScheduled, "", true},
		{"complete in progress", ActionComplete, apptrepo.StatusInProgress, "", true},
		{"cancel in progress", ActionCancel, apptrepo.StatusInProgress, "", true},
	}
	for _, terminal := range []apptrepo.Status{apptrepo.StatusCompleted, apptrepo.StatusCancelled, apptrepo.StatusNoShow} {
		for _, action := range []Action{ActionUpdate, ActionStart, ActionComplete, ActionCancel} {
			tests = append(tests, struct {
				name     string
				action   Action
				status   apptrepo.Status
				response apptrepo.Response
				allowed  bool
			}{string(action) + " " + string(terminal), action, terminal, "", false})
		}
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTransition(tt.action, apptrepo.Appointment{Status: tt.status, CustomerResponse: tt.response})
			if tt.allowed && err != nil {
				t.Fatalf("expected transition allowed, got %v", err)
			}
			if !tt.allowed && !apperr.Is(err, apperr.KindState) {
				t.Fatalf("expected state error, got %v", err)
			}
		})
	}
}

func TestCheckResponseGuards(t *testing.T) {
	open := visitrepo.Visit{Status: apptrepo.StatusScheduled, CustomerResponse: apptrepo.ResponsePending}
	accepted := open
	accepted.CustomerResponse = apptrepo.ResponseAccepted
	rejected := visitrepo.Visit{Status: apptrepo.StatusCancelled, CustomerResponse: apptrepo.ResponseRejected}
	cancelled := open
	cancelled.Status = apptrepo.StatusCancelled

	tests := []struct {
		name       string
		visit      visitrepo.Visit
		acceptable bool
		rejectable bool
	}{
		{"pending", open, true, true},
		{"accepted", accepted, false, true},
		{"rejected", rejected, false, false},
		{"cancelled by staff", cancelled, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkAcceptable(tt.visit); (err == nil) != tt.acceptable {
				t.Fatalf("accept: expected allowed=%v, got %v", tt.acceptable, err)
			}
			if err := checkRejectable(tt.visit); (err == nil) != tt.rejectable {
				t.Fatalf("reject: expected allowed=%v, got %v", tt.rejectable, err)
			}
			if err := checkRejectable(tt.visit); err != nil && !apperr.Is(err, apperr.KindState) {
				t.Fatalf("expected state error, got %v", err)
			}
		})
	}
}
