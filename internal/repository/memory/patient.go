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

type patientRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]model.Patient
}

func NewPatientRepository() repository.PatientRepository {
	return &patientRepo{byID: make(map[uuid.UUID]model.Patient)}
}

func (r *patientRepo) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now
	r.byID[patient.ID] = *patient
	return nil
}

func (r *patientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patient, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return &patient, nil
}

func (r *patientRepo) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, patient := range r.byID {
		if patient.Email == email {
			p := patient
			return &p, nil
		}
	}
	return nil, apperrors.NotFound("patient", nil)
}

func (r *patientRepo) Update(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[patient.ID]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	patient.UpdatedAt = time.Now()
	r.byID[patient.ID] = *patient
	return nil
}

func (r *patientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("patient", nil)
	}
	delete(r.byID, id)
	return nil
}

func (r *patientRepo) List(ctx context.Context) ([]*model.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Patient, 0, len(r.byID))
	for _, patient := range r.byID {
		p := patient
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
