package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

// AdminCredentials is the config-backed admin account. Clinics run with a
// single operations login; there is no admin table.
type AdminCredentials struct {
	Email        string
	PasswordHash string
}

// ID derives a stable admin identity from the configured email.
func (a AdminCredentials) ID() uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(a.Email))
}

type Service struct {
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
	jwt      *auth.JWTService
	admin    AdminCredentials
}

func NewService(doctors repository.DoctorRepository, patients repository.PatientRepository, hasher security.PasswordHasher, jwt *auth.JWTService, admin AdminCredentials) *Service {
	return &Service{
		doctors:  doctors,
		patients: patients,
		hasher:   hasher,
		jwt:      jwt,
		admin:    admin,
	}
}

// RegisterPatient is the self-registration path; patients always start
// active.
func (s *Service) RegisterPatient(ctx context.Context, req *model.RegisterPatientRequest) (*model.Patient, error) {
	if _, err := s.patients.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.BadRequest("email already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	patient := &model.Patient{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Status:       model.PatientStatusActive,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// Login authenticates against the admin account, then doctors, then
// patients, and issues an access token carrying (id, role).
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	if s.admin.Email != "" && req.Email == s.admin.Email {
		if err := s.hasher.Compare(s.admin.PasswordHash, req.Password); err != nil {
			return nil, apperrors.Unauthorized(err)
		}
		return s.issueToken(s.admin.ID(), req.Email, model.RoleAdmin)
	}

	if doctor, err := s.doctors.GetByEmail(ctx, req.Email); err == nil {
		if err := s.hasher.Compare(doctor.PasswordHash, req.Password); err != nil {
			return nil, apperrors.Unauthorized(err)
		}
		return s.issueToken(doctor.ID, doctor.Email, model.RoleDoctor)
	}

	patient, err := s.patients.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if err := s.hasher.Compare(patient.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return s.issueToken(patient.ID, patient.Email, model.RolePatient)
}

// ValidateToken resolves a bearer token to the actor it represents.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.Actor, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return &model.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) issueToken(id uuid.UUID, email string, role model.Role) (*model.LoginResponse, error) {
	token, err := s.jwt.GenerateToken(model.TokenClaims{UserID: id, Email: email, Role: role})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.LoginResponse{
		Token: token,
		Actor: model.Actor{ID: id, Role: role},
	}, nil
}
