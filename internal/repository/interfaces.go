package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByEmail(ctx context.Context, email string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Patient, error)
	}

	// AppointmentRepository is the store backing the scheduling core. The
	// implementation must guarantee at most one occupying appointment per
	// (doctor_id, date, time_slot) triple: Create and Reschedule fail with
	// a slot_taken error when the triple is held, atomically with respect
	// to concurrent writers. UpdateStatus and Reschedule are compare-and-
	// swap writes: they apply only while the row still holds the status
	// the caller evaluated the transition from, and fail with an
	// invalid_transition error once a concurrent writer moved it.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error
		Reschedule(ctx context.Context, id uuid.UUID, date time.Time, timeSlot string, from, to model.AppointmentStatus) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		CheckConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID *uuid.UUID) (bool, error)
		ListOccupiedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
	}

	// MedicalRecordRepository enforces at most one record per appointment.
	MedicalRecordRepository interface {
		Create(ctx context.Context, record *model.MedicalRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error)
	}
)
