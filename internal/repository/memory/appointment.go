package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type slotKey struct {
	doctorID uuid.UUID
	date     string
	slot     string
}

func keyFor(doctorID uuid.UUID, date time.Time, slot string) slotKey {
	return slotKey{
		doctorID: doctorID,
		date:     model.DateOnly(date).Format(model.DateFormat),
		slot:     slot,
	}
}

type appointmentRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]model.Appointment
	occupied map[slotKey]uuid.UUID
}

func NewAppointmentRepository() repository.AppointmentRepository {
	return &appointmentRepo{
		byID:     make(map[uuid.UUID]model.Appointment),
		occupied: make(map[slotKey]uuid.UUID),
	}
}

func (r *appointmentRepo) Create(ctx context.Context, appointment *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyFor(appointment.DoctorID, appointment.Date, appointment.TimeSlot)
	if appointment.Status.Occupying() {
		if _, taken := r.occupied[key]; taken {
			return apperrors.SlotTaken(appointment.TimeSlot)
		}
	}

	now := time.Now()
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.Date = model.DateOnly(appointment.Date)
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	r.byID[appointment.ID] = *appointment
	if appointment.Status.Occupying() {
		r.occupied[key] = appointment.ID
	}
	return nil
}

func (r *appointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return &apt, nil
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if apt.Status != from {
		return apperrors.ConcurrentTransition(string(apt.Status))
	}

	key := keyFor(apt.DoctorID, apt.Date, apt.TimeSlot)
	switch {
	case apt.Status.Occupying() && !to.Occupying():
		delete(r.occupied, key)
	case !apt.Status.Occupying() && to.Occupying():
		if holder, taken := r.occupied[key]; taken && holder != id {
			return apperrors.SlotTaken(apt.TimeSlot)
		}
		r.occupied[key] = id
	}

	apt.Status = to
	apt.UpdatedAt = time.Now()
	r.byID[id] = apt
	return nil
}

func (r *appointmentRepo) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, timeSlot string, from, to model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if apt.Status != from {
		return apperrors.ConcurrentTransition(string(apt.Status))
	}

	newKey := keyFor(apt.DoctorID, date, timeSlot)
	if holder, taken := r.occupied[newKey]; taken && holder != id {
		return apperrors.SlotTaken(timeSlot)
	}

	oldKey := keyFor(apt.DoctorID, apt.Date, apt.TimeSlot)
	if apt.Status.Occupying() {
		delete(r.occupied, oldKey)
	}

	apt.Date = model.DateOnly(date)
	apt.TimeSlot = timeSlot
	apt.Status = to
	apt.UpdatedAt = time.Now()
	r.byID[id] = apt
	if to.Occupying() {
		r.occupied[newKey] = id
	}
	return nil
}

func (r *appointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	apt, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if apt.Status.Occupying() {
		delete(r.occupied, keyFor(apt.DoctorID, apt.Date, apt.TimeSlot))
	}
	delete(r.byID, id)
	return nil
}

func (r *appointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Appointment, 0)
	for _, apt := range r.byID {
		if filters != nil {
			if filters.DoctorID != uuid.Nil && apt.DoctorID != filters.DoctorID {
				continue
			}
			if filters.PatientID != uuid.Nil && apt.PatientID != filters.PatientID {
				continue
			}
			if filters.Status != "" && apt.Status != filters.Status {
				continue
			}
			if !filters.StartDate.IsZero() && apt.Date.Before(model.DateOnly(filters.StartDate)) {
				continue
			}
			if !filters.EndDate.IsZero() && apt.Date.After(model.DateOnly(filters.EndDate)) {
				continue
			}
		}
		a := apt
		out = append(out, &a)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TimeSlot < out[j].TimeSlot
	})
	return out, nil
}

func (r *appointmentRepo) CheckConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holder, taken := r.occupied[keyFor(doctorID, date, timeSlot)]
	if !taken {
		return false, nil
	}
	if excludeID != nil && holder == *excludeID {
		return false, nil
	}
	return true, nil
}

func (r *appointmentRepo) ListOccupiedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := model.DateOnly(date).Format(model.DateFormat)
	var slots []string
	for key := range r.occupied {
		if key.doctorID == doctorID && key.date == day {
			slots = append(slots, key.slot)
		}
	}
	sort.Strings(slots)
	return slots, nil
}
