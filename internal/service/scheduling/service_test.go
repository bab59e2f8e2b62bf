package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

var testNow = time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)

type fakeBroker struct {
	mu     sync.Mutex
	events []Event
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, message.(Event))
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

func (b *fakeBroker) actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.Action
	}
	return out
}

type testEnv struct {
	svc     *Service
	broker  *fakeBroker
	doctors repository.DoctorRepository
	doctor  *model.Doctor
	patient model.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	doctors := memory.NewDoctorRepository()
	doctor := &model.Doctor{
		Name:           "Dr. Reyes",
		Email:          "reyes@clinic.test",
		Specialization: "cardiology",
		ScheduleLabels: []string{"09:00", "09:30", "10:00"},
		Status:         model.DoctorStatusActive,
	}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	broker := &fakeBroker{}
	svc := NewService(
		memory.NewAppointmentRepository(),
		doctors,
		broker,
		metrics.New("clinic_test", prometheus.NewRegistry()),
		WithClock(func() time.Time { return testNow }),
	)

	return &testEnv{
		svc:     svc,
		broker:  broker,
		doctors: doctors,
		doctor:  doctor,
		patient: model.Actor{ID: uuid.New(), Role: model.RolePatient},
	}
}

func (e *testEnv) doctorActor() model.Actor {
	return model.Actor{ID: e.doctor.ID, Role: model.RoleDoctor}
}

func tomorrow() time.Time { return testNow.Add(24 * time.Hour) }

func TestBookThenDoubleBookSameSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:30", "knee pain")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)

	secondPatient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	_, err = env.svc.CreateAppointment(ctx, secondPatient, env.doctor.ID, tomorrow(), "09:30", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken))
}

func TestBookingRejectsSlotOutsideSchedule(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, env.doctor.ID, tomorrow(), "11:00", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidSlot))
}

func TestBookingRejectsPastDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAppointment(context.Background(), env.patient, env.doctor.ID, testNow.Add(-24*time.Hour), "09:00", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidDate))
}

func TestOnlyPatientsCanBook(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateAppointment(context.Background(), env.doctorActor(), env.doctor.ID, tomorrow(), "09:00", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
}

// Concurrent bookings of the same (doctor, date, slot) triple: exactly
// one wins, the rest fail with slot_taken.
func TestConcurrentBookingSameTriple(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			patient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
			_, errs[i] = env.svc.CreateAppointment(ctx, patient, env.doctor.ID, tomorrow(), "10:00", "")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperrors.IsKind(err, apperrors.KindSlotTaken):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, callers-1, lost)
}

func TestAcceptThenCancelFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)

	apt, err = env.svc.Transition(ctx, apt.ID, env.doctorActor(), &model.TransitionRequest{Action: model.ActionAccept})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)

	apt, err = env.svc.Transition(ctx, apt.ID, env.patient, &model.TransitionRequest{Action: model.ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, apt.Status)

	// The slot is bookable again.
	another := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	_, err = env.svc.CreateAppointment(ctx, another, env.doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"created", "accept", "cancel", "created"}, env.broker.actions())
}

func TestRejectedAppointmentFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, apt.ID, env.doctorActor(), &model.TransitionRequest{Action: model.ActionReject})
	require.NoError(t, err)

	_, err = env.svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
}

func TestRescheduleToTakenSlotLeavesOriginalUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, apt.ID, env.doctorActor(), &model.TransitionRequest{Action: model.ActionAccept})
	require.NoError(t, err)

	// Another patient holds 09:30.
	other, err := env.svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, env.doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)
	_ = other

	_, err = env.svc.Transition(ctx, apt.ID, env.patient, &model.TransitionRequest{
		Action:   model.ActionReschedule,
		Date:     tomorrow().Format(model.DateFormat),
		TimeSlot: "09:30",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken))

	// Original remains scheduled at its original slot.
	got, err := env.svc.GetAppointment(ctx, apt.ID, env.patient)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, got.Status)
	assert.Equal(t, "09:00", got.TimeSlot)
	assert.Equal(t, model.DateOnly(tomorrow()), got.Date)
}

func TestRescheduleRegressesToPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, apt.ID, env.doctorActor(), &model.TransitionRequest{Action: model.ActionAccept})
	require.NoError(t, err)

	apt, err = env.svc.Transition(ctx, apt.ID, env.patient, &model.TransitionRequest{
		Action:   model.ActionReschedule,
		Date:     tomorrow().Format(model.DateFormat),
		TimeSlot: "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, "10:00", apt.TimeSlot)

	// The old slot is free again.
	_, err = env.svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
}

func TestRescheduleRequiresNewSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, apt.ID, env.patient, &model.TransitionRequest{Action: model.ActionReschedule})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest))
}

func TestListForScopesByRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	otherPatient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	_, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
	_, err = env.svc.CreateAppointment(ctx, otherPatient, env.doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	all, err := env.svc.ListFor(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := env.svc.ListFor(ctx, env.patient)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, env.patient.ID, mine[0].PatientID)

	doctors, err := env.svc.ListFor(ctx, env.doctorActor())
	require.NoError(t, err)
	assert.Len(t, doctors, 2)
}

func TestGetAppointmentEnforcesScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)

	_, err = env.svc.GetAppointment(ctx, apt.ID, model.Actor{ID: uuid.New(), Role: model.RolePatient})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	_, err = env.svc.GetAppointment(ctx, apt.ID, model.Actor{ID: uuid.New(), Role: model.RoleDoctor})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	got, err := env.svc.GetAppointment(ctx, apt.ID, model.Actor{ID: uuid.New(), Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)
}

func TestAvailableSlotsExcludesOccupied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)

	slots, err := env.svc.AvailableSlots(ctx, env.doctor.ID, tomorrow())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, slots)
}

func TestAdminDeleteBypassesLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apt, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, apt.ID, env.doctorActor(), &model.TransitionRequest{Action: model.ActionAccept})
	require.NoError(t, err)

	err = env.svc.DeleteAppointment(ctx, apt.ID, env.patient)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	require.NoError(t, env.svc.DeleteAppointment(ctx, apt.ID, admin))

	_, err = env.svc.GetAppointment(ctx, apt.ID, admin)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

// interceptAppointments runs a one-shot hook just before forwarding a
// status write, to wedge a competing write into the gap between a
// transition's evaluation and its commit.
type interceptAppointments struct {
	repository.AppointmentRepository
	mu     sync.Mutex
	before func()
}

func (i *interceptAppointments) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error {
	i.mu.Lock()
	hook := i.before
	i.before = nil
	i.mu.Unlock()
	if hook != nil {
		hook()
	}
	return i.AppointmentRepository.UpdateStatus(ctx, id, from, to)
}

// A cancel that commits between an accept's evaluation and its write
// must stand: the stale accept is rejected instead of resurrecting the
// appointment, and the slot stays free for exactly one new booking.
func TestConcurrentCancelBeatsStaleAccept(t *testing.T) {
	ctx := context.Background()

	doctors := memory.NewDoctorRepository()
	doctor := &model.Doctor{
		Name:           "Dr. Iqbal",
		ScheduleLabels: []string{"09:30"},
		Status:         model.DoctorStatusActive,
	}
	require.NoError(t, doctors.Create(ctx, doctor))

	repo := memory.NewAppointmentRepository()
	intercept := &interceptAppointments{AppointmentRepository: repo}
	svc := NewService(intercept, doctors, nil,
		metrics.New("clinic_race_test", prometheus.NewRegistry()),
		WithClock(func() time.Time { return testNow }))

	patient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	apt, err := svc.CreateAppointment(ctx, patient, doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)

	intercept.before = func() {
		require.NoError(t, repo.UpdateStatus(ctx, apt.ID,
			model.AppointmentStatusPending, model.AppointmentStatusCancelled))
	}

	_, err = svc.Transition(ctx, apt.ID, model.Actor{ID: doctor.ID, Role: model.RoleDoctor},
		&model.TransitionRequest{Action: model.ActionAccept})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))

	got, err := svc.GetAppointment(ctx, apt.ID, patient)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)

	_, err = svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, doctor.ID, tomorrow(), "09:30", "")
	require.NoError(t, err)
	_, err = svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, doctor.ID, tomorrow(), "09:30", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken))
}

func TestScheduleChangeInvalidatesCachedDoctor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Prime the cache.
	slots, err := env.svc.AvailableSlots(ctx, env.doctor.ID, tomorrow())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)

	env.doctor.ScheduleLabels = []string{"14:00"}
	require.NoError(t, env.doctors.Update(ctx, env.doctor))
	env.svc.InvalidateDoctor(env.doctor.ID)

	slots, err = env.svc.AvailableSlots(ctx, env.doctor.ID, tomorrow())
	require.NoError(t, err)
	assert.Equal(t, []string{"14:00"}, slots)
}

type flakyAppointments struct {
	repository.AppointmentRepository
	mu           sync.Mutex
	failuresLeft int
	calls        int
}

func (f *flakyAppointments) CheckConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID *uuid.UUID) (bool, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failuresLeft > 0
	if fail {
		f.failuresLeft--
	}
	f.mu.Unlock()

	if fail {
		return false, apperrors.Persistence(errors.New("connection reset"))
	}
	return f.AppointmentRepository.CheckConflict(ctx, doctorID, date, timeSlot, excludeID)
}

func TestTransientPersistenceFailuresAreRetried(t *testing.T) {
	doctors := memory.NewDoctorRepository()
	doctor := &model.Doctor{
		Name:           "Dr. Osei",
		ScheduleLabels: []string{"09:00"},
		Status:         model.DoctorStatusActive,
	}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	flaky := &flakyAppointments{
		AppointmentRepository: memory.NewAppointmentRepository(),
		failuresLeft:          2,
	}
	svc := NewService(flaky, doctors, nil,
		metrics.New("clinic_retry_test", prometheus.NewRegistry()),
		WithClock(func() time.Time { return testNow }))

	patient := model.Actor{ID: uuid.New(), Role: model.RolePatient}
	apt, err := svc.CreateAppointment(context.Background(), patient, doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Equal(t, 3, flaky.calls)
}

func TestBusinessErrorsAreNotRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateAppointment(ctx, env.patient, env.doctor.ID, tomorrow(), "09:00", "")
	require.NoError(t, err)

	// A taken slot is terminal: the service must not loop on it.
	start := time.Now()
	_, err = env.svc.CreateAppointment(ctx, model.Actor{ID: uuid.New(), Role: model.RolePatient}, env.doctor.ID, tomorrow(), "09:00", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSlotTaken))
	assert.Less(t, time.Since(start), retryBackoff, "slot_taken should fail fast, not back off")
}
