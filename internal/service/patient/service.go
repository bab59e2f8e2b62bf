package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	repo repository.PatientRepository
}

func NewService(repo repository.PatientRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPatient(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Patient, error) {
	if !canAccess(actor, id) {
		return nil, apperrors.Forbidden("cannot access another patient's profile")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	if !canAccess(actor, id) {
		return nil, apperrors.Forbidden("cannot update another patient's profile")
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Status != nil {
		patient.Status = model.PatientStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient removes the account. No cascade to appointments or
// records; those keep their references.
func (s *Service) DeletePatient(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !canAccess(actor, id) {
		return apperrors.Forbidden("cannot delete another patient's profile")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, actor model.Actor) ([]*model.Patient, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can list patients")
	}
	return s.repo.List(ctx)
}

func canAccess(actor model.Actor, patientID uuid.UUID) bool {
	return actor.Role == model.RoleAdmin || (actor.Role == model.RolePatient && actor.ID == patientID)
}
