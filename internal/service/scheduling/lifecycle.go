package scheduling

import (
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// The lifecycle is a closed table keyed by (current status, action). An
// unlisted pair is invalid for every actor; a listed pair is additionally
// gated on the actor's role and identity. Keeping the table here, and
// nowhere else, is what keeps per-caller status checks out of the rest of
// the codebase.

type transitionKey struct {
	from   model.AppointmentStatus
	action model.AppointmentAction
}

type transitionRule struct {
	to   model.AppointmentStatus
	role model.Role
}

var transitions = map[transitionKey]transitionRule{
	{model.AppointmentStatusPending, model.ActionAccept}:       {model.AppointmentStatusScheduled, model.RoleDoctor},
	{model.AppointmentStatusPending, model.ActionReject}:       {model.AppointmentStatusRejected, model.RoleDoctor},
	{model.AppointmentStatusPending, model.ActionReschedule}:   {model.AppointmentStatusPending, model.RolePatient},
	{model.AppointmentStatusPending, model.ActionCancel}:       {model.AppointmentStatusCancelled, model.RolePatient},
	{model.AppointmentStatusScheduled, model.ActionComplete}:   {model.AppointmentStatusCompleted, model.RoleDoctor},
	{model.AppointmentStatusScheduled, model.ActionCancel}:     {model.AppointmentStatusCancelled, model.RolePatient},
	{model.AppointmentStatusScheduled, model.ActionReschedule}: {model.AppointmentStatusPending, model.RolePatient},
}

// EvaluateTransition returns the target status for action on apt, or an
// invalid_transition error when the (status, action) pair is not defined,
// or a forbidden_transition error when it is defined but the actor's role
// or identity does not match. The two kinds are distinct so callers can
// render "not possible" and "not allowed" differently.
func EvaluateTransition(apt *model.Appointment, actor model.Actor, action model.AppointmentAction) (model.AppointmentStatus, error) {
	rule, ok := transitions[transitionKey{from: apt.Status, action: action}]
	if !ok {
		return "", apperrors.InvalidTransition(string(apt.Status), string(action))
	}

	if actor.Role != rule.role {
		return "", apperrors.ForbiddenTransition(string(action))
	}
	switch rule.role {
	case model.RoleDoctor:
		if actor.ID != apt.DoctorID {
			return "", apperrors.ForbiddenTransition(string(action))
		}
	case model.RolePatient:
		if actor.ID != apt.PatientID {
			return "", apperrors.ForbiddenTransition(string(action))
		}
	}

	return rule.to, nil
}
