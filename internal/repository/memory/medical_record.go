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

type medicalRecordRepo struct {
	mu            sync.Mutex
	byID          map[uuid.UUID]model.MedicalRecord
	byAppointment map[uuid.UUID]uuid.UUID
}

func NewMedicalRecordRepository() repository.MedicalRecordRepository {
	return &medicalRecordRepo{
		byID:          make(map[uuid.UUID]model.MedicalRecord),
		byAppointment: make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *medicalRecordRepo) Create(ctx context.Context, record *model.MedicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAppointment[record.AppointmentID]; exists {
		return apperrors.BadRequest("appointment already has a medical record", nil)
	}

	now := time.Now()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	r.byID[record.ID] = *record
	r.byAppointment[record.AppointmentID] = record.ID
	return nil
}

func (r *medicalRecordRepo) Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("medical record", nil)
	}
	return &record, nil
}

func (r *medicalRecordRepo) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byAppointment[appointmentID]
	if !ok {
		return nil, apperrors.NotFound("medical record", nil)
	}
	record := r.byID[id]
	return &record, nil
}

func (r *medicalRecordRepo) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.MedicalRecord, 0)
	for _, record := range r.byID {
		if record.PatientID == patientID {
			rec := record
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
