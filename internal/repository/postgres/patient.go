package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, name, email, password_hash, phone,
			date_of_birth, address, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	now := time.Now()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Email,
		patient.PasswordHash,
		patient.Phone,
		patient.DateOfBirth,
		patient.Address,
		patient.Status,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to create patient: %w", err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, name, email, password_hash, phone,
			   date_of_birth, address, status, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get patient: %w", err))
	}
	return &patient, nil
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*model.Patient, error) {
	query := `
		SELECT id, name, email, password_hash, phone,
			   date_of_birth, address, status, created_at, updated_at
		FROM patients
		WHERE email = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get patient by email: %w", err))
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, phone = $2, date_of_birth = $3,
			address = $4, status = $5, updated_at = $6
		WHERE id = $7
	`
	patient.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Phone,
		patient.DateOfBirth,
		patient.Address,
		patient.Status,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to update patient: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM patients
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to delete patient: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `
		SELECT id, name, email, password_hash, phone,
			   date_of_birth, address, status, created_at, updated_at
		FROM patients
		ORDER BY name ASC
	`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}
