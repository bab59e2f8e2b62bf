package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, email, password_hash, specialization,
			schedule_labels, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	doctor.CreatedAt = now
	doctor.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Email,
		doctor.PasswordHash,
		doctor.Specialization,
		pq.Array(doctor.ScheduleLabels),
		doctor.Status,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to create doctor: %w", err))
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, email, password_hash, specialization,
			   schedule_labels, status, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get doctor: %w", err))
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := `
		SELECT id, name, email, password_hash, specialization,
			   schedule_labels, status, created_at, updated_at
		FROM doctors
		WHERE email = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get doctor by email: %w", err))
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, specialization = $2, schedule_labels = $3,
			status = $4, updated_at = $5
		WHERE id = $6
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Specialization,
		pq.Array(doctor.ScheduleLabels),
		doctor.Status,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to update doctor: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, email, password_hash, specialization,
			   schedule_labels, status, created_at, updated_at
		FROM doctors
		ORDER BY name ASC
	`
	var doctors []*model.Doctor
	err := r.db.SelectContext(ctx, &doctors, query)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list doctors: %w", err))
	}
	return doctors, nil
}
