package workflow

import (
	"fmt"
	"slices"

	apptrepo "inspection_portal_backend/internal/appointments/repository"
	visitrepo "inspection_portal_backend/internal/visits/repository"
	"inspection_portal_backend/platform/apperr"
)

// Action is a staff-driven appointment transition.
type Action string

const (
	ActionUpdate   Action = "update"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

// allowedFrom lists the statuses each action may leave.
var allowedFrom = map[Action][]apptrepo.Status{
	ActionUpdate:   {apptrepo.StatusScheduled},
	ActionStart:    {apptrepo.StatusScheduled},
	ActionComplete: {apptrepo.StatusScheduled, apptrepo.StatusInProgress},
	ActionCancel:   {apptrepo.StatusScheduled, apptrepo.StatusInProgress},
}

const msgAlreadyResponded = "visit already responded"

// checkTransition returns a state error when action is not allowed for appt.
func checkTransition(action Action, appt apptrepo.Appointment) error {
	from, ok := allowedFrom[action]
	if !ok {
		return apperr.Internal(fmt.Sprintf("unknown action %q", action))
	}
	if !slices.Contains(from, appt.Status) {
		return apperr.State(fmt.Sprintf("cannot %s an appointment that is %s", action, appt.Status)).
			WithDetails(map[string]string{"status": string(appt.Status), "action": string(action)})
	}
	if action == ActionStart && appt.CustomerResponse == apptrepo.ResponseRejected {
		return apperr.State("cannot start an appointment the customer rejected")
	}
	return nil
}

// checkAcceptable returns a state error when the customer has already
// answered or the visit is no longer open.
func checkAcceptable(v visitrepo.Visit) error {
	if v.Responded() || v.Status != apptrepo.StatusScheduled {
		return alreadyResponded(v)
	}
	return nil
}

// checkRejectable allows a pending or accepted visit to be declined. Rejected
// and cancelled visits are final.
func checkRejectable(v visitrepo.Visit) error {
	if v.CustomerResponse == apptrepo.ResponseRejected || v.Status != apptrepo.StatusScheduled {
		return alreadyResponded(v)
	}
	return nil
}

func alreadyResponded(v visitrepo.Visit) error {
	return apperr.State(msgAlreadyResponded).
		WithDetails(map[string]string{"customerResponse": string(v.CustomerResponse), "status": string(v.Status)})
}
