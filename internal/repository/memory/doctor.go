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

type doctorRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]model.Doctor
}

func NewDoctorRepository() repository.DoctorRepository {
	return &doctorRepo{byID: make(map[uuid.UUID]model.Doctor)}
}

func (r *doctorRepo) Create(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	r.byID[doctor.ID] = *doctor
	return nil
}

func (r *doctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doctor, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return &doctor, nil
}

func (r *doctorRepo) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doctor := range r.byID {
		if doctor.Email == email {
			d := doctor
			return &d, nil
		}
	}
	return nil, apperrors.NotFound("doctor", nil)
}

func (r *doctorRepo) Update(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[doctor.ID]; !ok {
		return apperrors.NotFound("doctor", nil)
	}
	doctor.UpdatedAt = time.Now()
	r.byID[doctor.ID] = *doctor
	return nil
}

func (r *doctorRepo) List(ctx context.Context) ([]*model.Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.byID))
	for _, doctor := range r.byID {
		d := doctor
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
