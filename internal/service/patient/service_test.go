package patient

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func newTestPatient(t *testing.T, svc *Service) *model.Patient {
	t.Helper()
	patient := &model.Patient{
		Name:  "Ana Torres",
		Email: "ana@clinic.test",
	}
	require.NoError(t, svc.repo.Create(context.Background(), patient))
	return patient
}

func TestUpdatePatientScope(t *testing.T) {
	svc := NewService(memory.NewPatientRepository())
	patient := newTestPatient(t, svc)
	ctx := context.Background()

	name := "Ana T. Torres"
	self := model.Actor{ID: patient.ID, Role: model.RolePatient}
	updated, err := svc.UpdatePatient(ctx, self, patient.ID, &model.UpdatePatientRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	stranger := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	_, err = svc.UpdatePatient(ctx, stranger, patient.ID, &model.UpdatePatientRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

func TestListPatientsAdminOnly(t *testing.T) {
	svc := NewService(memory.NewPatientRepository())
	patient := newTestPatient(t, svc)
	ctx := context.Background()

	_, err := svc.ListPatients(ctx, model.Actor{ID: patient.ID, Role: model.RolePatient})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	list, err := svc.ListPatients(ctx, model.Actor{ID: uuid.New(), Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// Deleting an account must succeed even when the patient has booked
// appointments, and the appointment rows keep their patient reference
// as history.
func TestDeletePatientKeepsAppointmentHistory(t *testing.T) {
	svc := NewService(memory.NewPatientRepository())
	patient := newTestPatient(t, svc)
	ctx := context.Background()

	appointments := memory.NewAppointmentRepository()
	apt := &model.Appointment{
		DoctorID:  uuid.New(),
		PatientID: patient.ID,
		Date:      model.DateOnly(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)),
		TimeSlot:  "09:00",
		Status:    model.AppointmentStatusScheduled,
	}
	require.NoError(t, appointments.Create(ctx, apt))

	self := model.Actor{ID: patient.ID, Role: model.RolePatient}
	require.NoError(t, svc.DeletePatient(ctx, self, patient.ID))

	_, err := svc.GetPatient(ctx, model.Actor{ID: uuid.New(), Role: model.RoleAdmin}, patient.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	kept, err := appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, patient.ID, kept.PatientID)
}

func TestDeletePatientScope(t *testing.T) {
	svc := NewService(memory.NewPatientRepository())
	patient := newTestPatient(t, svc)
	ctx := context.Background()

	stranger := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	err := svc.DeletePatient(ctx, stranger, patient.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	require.NoError(t, svc.DeletePatient(ctx, admin, patient.ID))
}
