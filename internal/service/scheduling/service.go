package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// EventChannel carries appointment status-change events for downstream
// consumers (notification worker, record keeping).
const EventChannel = "appointments.events"

const (
	maxRetries     = 3
	retryBackoff   = 50 * time.Millisecond
	doctorCacheTTL = 30 * time.Second
)

// Event is the payload published on every booking and transition.
type Event struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	DoctorID      uuid.UUID               `json:"doctor_id"`
	PatientID     uuid.UUID               `json:"patient_id"`
	Date          string                  `json:"date"`
	TimeSlot      string                  `json:"time_slot"`
	Status        model.AppointmentStatus `json:"status"`
	Action        string                  `json:"action"`
}

type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	broker       messaging.Broker
	metrics      *metrics.Metrics
	doctorCache  *cache.Cache
	now          func() time.Time
}

type Option func(*Service)

// WithClock overrides the service clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(appointments repository.AppointmentRepository, doctors repository.DoctorRepository, broker messaging.Broker, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		appointments: appointments,
		doctors:      doctors,
		broker:       broker,
		metrics:      m,
		doctorCache:  cache.New(doctorCacheTTL, time.Minute),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAppointment books a slot for the acting patient. The slot must be
// in the doctor's derived set for the date and free of conflicts; the
// write is atomic against concurrent bookings of the same triple, so at
// most one caller wins and the rest get slot_taken.
func (s *Service) CreateAppointment(ctx context.Context, actor model.Actor, doctorID uuid.UUID, date time.Time, timeSlot, notes string) (*model.Appointment, error) {
	if actor.Role != model.RolePatient {
		return nil, apperrors.Forbidden("only patients can book appointments")
	}

	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots, err := DeriveSlots(doctor.ScheduleLabels, date, s.now())
	if err != nil {
		return nil, err
	}
	if !containsSlot(slots, timeSlot) {
		return nil, apperrors.InvalidSlot(timeSlot)
	}

	apt := &model.Appointment{
		DoctorID:  doctorID,
		PatientID: actor.ID,
		Date:      model.DateOnly(date),
		TimeSlot:  timeSlot,
		Status:    model.AppointmentStatusPending,
		Notes:     notes,
	}

	// Conflict check and insert re-run together on transient failure; the
	// storage layer's uniqueness guarantee decides races the check misses.
	err = s.withRetry(ctx, func() error {
		taken, err := s.appointments.CheckConflict(ctx, doctorID, date, timeSlot, nil)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.SlotTaken(timeSlot)
		}
		return s.appointments.Create(ctx, apt)
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindSlotTaken) {
			s.metrics.SlotConflictsTotal.Inc()
		}
		return nil, err
	}

	s.metrics.BookingsTotal.Inc()
	s.publish(ctx, apt, "created")
	return apt, nil
}

// Transition applies a lifecycle action to an appointment on behalf of
// actor. Reschedules re-validate the new slot end to end and regress the
// appointment to pending for re-triage.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, actor model.Actor, req *model.TransitionRequest) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := EvaluateTransition(apt, actor, req.Action)
	if err != nil {
		return nil, err
	}

	if req.Action == model.ActionReschedule {
		return s.reschedule(ctx, apt, target, req)
	}

	// The write is guarded on the status the transition was evaluated
	// from; if a concurrent actor moved the appointment in between, the
	// repository rejects the stale write instead of overwriting theirs.
	err = s.withRetry(ctx, func() error {
		return s.appointments.UpdateStatus(ctx, apt.ID, apt.Status, target)
	})
	if err != nil {
		return nil, err
	}

	apt.Status = target
	s.metrics.TransitionsTotal.WithLabelValues(string(req.Action), string(target)).Inc()
	s.publish(ctx, apt, string(req.Action))
	return apt, nil
}

func (s *Service) reschedule(ctx context.Context, apt *model.Appointment, target model.AppointmentStatus, req *model.TransitionRequest) (*model.Appointment, error) {
	if req.Date == "" || req.TimeSlot == "" {
		return nil, apperrors.BadRequest("reschedule requires a new date and time slot", nil)
	}
	newDate, err := time.Parse(model.DateFormat, req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("invalid date format", err)
	}

	doctor, err := s.getDoctor(ctx, apt.DoctorID)
	if err != nil {
		return nil, err
	}

	slots, err := DeriveSlots(doctor.ScheduleLabels, newDate, s.now())
	if err != nil {
		return nil, err
	}
	if !containsSlot(slots, req.TimeSlot) {
		return nil, apperrors.InvalidSlot(req.TimeSlot)
	}

	err = s.withRetry(ctx, func() error {
		taken, err := s.appointments.CheckConflict(ctx, apt.DoctorID, newDate, req.TimeSlot, &apt.ID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.SlotTaken(req.TimeSlot)
		}
		return s.appointments.Reschedule(ctx, apt.ID, newDate, req.TimeSlot, apt.Status, target)
	})
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindSlotTaken) {
			s.metrics.SlotConflictsTotal.Inc()
		}
		return nil, err
	}

	apt.Date = model.DateOnly(newDate)
	apt.TimeSlot = req.TimeSlot
	apt.Status = target
	s.metrics.TransitionsTotal.WithLabelValues(string(model.ActionReschedule), string(target)).Inc()
	s.publish(ctx, apt, string(model.ActionReschedule))
	return apt, nil
}

// ListFor returns the role-scoped appointment projection: admins see all,
// doctors and patients only their own.
func (s *Service) ListFor(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{}
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleDoctor:
		filters.DoctorID = actor.ID
	case model.RolePatient:
		filters.PatientID = actor.ID
	default:
		return nil, apperrors.Forbidden("unknown role")
	}
	return s.appointments.List(ctx, filters)
}

// GetAppointment fetches a single appointment, enforcing the same scope
// as ListFor when addressing by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleDoctor:
		if apt.DoctorID != actor.ID {
			return nil, apperrors.Forbidden("appointment belongs to another doctor")
		}
	case model.RolePatient:
		if apt.PatientID != actor.ID {
			return nil, apperrors.Forbidden("appointment belongs to another patient")
		}
	default:
		return nil, apperrors.Forbidden("unknown role")
	}
	return apt, nil
}

// AvailableSlots is the presentation feed: the doctor's derived slots for
// date minus the ones already occupied.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	slots, err := DeriveSlots(doctor.ScheduleLabels, date, s.now())
	if err != nil {
		return nil, err
	}

	occupied, err := s.appointments.ListOccupiedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if !containsSlot(occupied, slot) {
			out = append(out, slot)
		}
	}
	return out, nil
}

// DeleteAppointment is the administrative override: a hard delete in any
// state, outside the lifecycle table.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	if actor.Role != model.RoleAdmin {
		return apperrors.Forbidden("only admins can delete appointments")
	}
	return s.withRetry(ctx, func() error {
		return s.appointments.Delete(ctx, id)
	})
}

// InvalidateDoctor drops the cached doctor so the next slot derivation
// sees an updated schedule. Callers that change schedule labels must
// invalidate, or stale labels can serve for up to the cache TTL.
func (s *Service) InvalidateDoctor(id uuid.UUID) {
	s.doctorCache.Delete(id.String())
}

func (s *Service) getDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.doctorCache.Get(id.String()); ok {
		return cached.(*model.Doctor), nil
	}
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.doctorCache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

// withRetry re-executes fn as a whole on transient persistence failures.
// Business-rule errors are terminal and returned immediately.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil || !apperrors.Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return apperrors.Persistence(ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
	return err
}

func (s *Service) publish(ctx context.Context, apt *model.Appointment, action string) {
	if s.broker == nil {
		return
	}
	event := Event{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		Date:          apt.Date.Format(model.DateFormat),
		TimeSlot:      apt.TimeSlot,
		Status:        apt.Status,
		Action:        action,
	}
	if err := s.broker.Publish(ctx, EventChannel, event); err != nil {
		log.Error().Err(err).
			Str("appointment_id", apt.ID.String()).
			Str("action", action).
			Msg("failed to publish appointment event")
	}
}
