package scheduling

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func newTestAppointment(status model.AppointmentStatus) *model.Appointment {
	apt := &model.Appointment{
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		Status:    status,
	}
	apt.ID = uuid.New()
	return apt
}

func TestEvaluateTransitionLegalPairs(t *testing.T) {
	tests := []struct {
		name   string
		from   model.AppointmentStatus
		action model.AppointmentAction
		role   model.Role
		to     model.AppointmentStatus
	}{
		{"doctor accepts pending", model.AppointmentStatusPending, model.ActionAccept, model.RoleDoctor, model.AppointmentStatusScheduled},
		{"doctor rejects pending", model.AppointmentStatusPending, model.ActionReject, model.RoleDoctor, model.AppointmentStatusRejected},
		{"patient cancels pending", model.AppointmentStatusPending, model.ActionCancel, model.RolePatient, model.AppointmentStatusCancelled},
		{"patient reschedules pending", model.AppointmentStatusPending, model.ActionReschedule, model.RolePatient, model.AppointmentStatusPending},
		{"doctor completes scheduled", model.AppointmentStatusScheduled, model.ActionComplete, model.RoleDoctor, model.AppointmentStatusCompleted},
		{"patient cancels scheduled", model.AppointmentStatusScheduled, model.ActionCancel, model.RolePatient, model.AppointmentStatusCancelled},
		{"patient reschedules scheduled regresses to pending", model.AppointmentStatusScheduled, model.ActionReschedule, model.RolePatient, model.AppointmentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apt := newTestAppointment(tt.from)
			actor := model.Actor{Role: tt.role}
			if tt.role == model.RoleDoctor {
				actor.ID = apt.DoctorID
			} else {
				actor.ID = apt.PatientID
			}

			to, err := EvaluateTransition(apt, actor, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestEvaluateTransitionUndefinedPairsAreInvalid(t *testing.T) {
	tests := []struct {
		from   model.AppointmentStatus
		action model.AppointmentAction
	}{
		{model.AppointmentStatusPending, model.ActionComplete},
		{model.AppointmentStatusScheduled, model.ActionAccept},
		{model.AppointmentStatusScheduled, model.ActionReject},
		{model.AppointmentStatusRejected, model.ActionAccept},
		{model.AppointmentStatusCompleted, model.ActionCancel},
		{model.AppointmentStatusCancelled, model.ActionReschedule},
		{model.AppointmentStatusCancelled, model.ActionCancel},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			apt := newTestAppointment(tt.from)
			// Even the right actor cannot take an undefined action.
			actor := model.Actor{ID: apt.DoctorID, Role: model.RoleDoctor}

			_, err := EvaluateTransition(apt, actor, tt.action)
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
		})
	}
}

func TestEvaluateTransitionWrongRoleIsForbidden(t *testing.T) {
	apt := newTestAppointment(model.AppointmentStatusPending)

	// The appointment's own patient cannot accept.
	_, err := EvaluateTransition(apt, model.Actor{ID: apt.PatientID, Role: model.RolePatient}, model.ActionAccept)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenTransition))

	// Admins take no lifecycle actions.
	_, err = EvaluateTransition(apt, model.Actor{ID: uuid.New(), Role: model.RoleAdmin}, model.ActionCancel)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenTransition))
}

func TestEvaluateTransitionWrongIdentityIsForbidden(t *testing.T) {
	apt := newTestAppointment(model.AppointmentStatusPending)

	// A doctor, but not the referenced doctor.
	_, err := EvaluateTransition(apt, model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, model.ActionAccept)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenTransition))

	// A patient, but not the referenced patient.
	_, err = EvaluateTransition(apt, model.Actor{ID: uuid.New(), Role: model.RolePatient}, model.ActionCancel)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbiddenTransition))
}

// Walking only legal transitions, every path ends in a terminal state or
// stays within {pending, scheduled}; no undefined state is reachable.
func TestLifecycleClosure(t *testing.T) {
	known := map[model.AppointmentStatus]bool{
		model.AppointmentStatusPending:   true,
		model.AppointmentStatusScheduled: true,
		model.AppointmentStatusRejected:  true,
		model.AppointmentStatusCompleted: true,
		model.AppointmentStatusCancelled: true,
	}

	for key, rule := range transitions {
		assert.True(t, known[key.from], "transition from unknown state %q", key.from)
		assert.True(t, known[rule.to], "transition to unknown state %q", rule.to)
		assert.False(t, key.from.Terminal(), "transition defined from terminal state %q", key.from)
	}
}
