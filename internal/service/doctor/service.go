package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/scheduling"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	repo   repository.DoctorRepository
	hasher security.PasswordHasher
}

func NewService(repo repository.DoctorRepository, hasher security.PasswordHasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// CreateDoctor provisions a doctor account. Admin only; schedule labels
// are normalized on the way in so the stored set is already clean.
func (s *Service) CreateDoctor(ctx context.Context, actor model.Actor, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can create doctors")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.BadRequest("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	doctor := &model.Doctor{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   hash,
		Specialization: req.Specialization,
		ScheduleLabels: scheduling.NormalizeLabels(req.ScheduleLabels),
		Status:         model.DoctorStatusActive,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	return s.repo.List(ctx)
}

// UpdateDoctor applies a partial update. Admins may update any doctor,
// doctors only themselves.
func (s *Service) UpdateDoctor(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	if actor.Role != model.RoleAdmin && !(actor.Role == model.RoleDoctor && actor.ID == id) {
		return nil, apperrors.Forbidden("cannot update another doctor's profile")
	}

	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.ScheduleLabels != nil {
		doctor.ScheduleLabels = scheduling.NormalizeLabels(*req.ScheduleLabels)
	}
	if req.Status != nil {
		doctor.Status = model.DoctorStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}
