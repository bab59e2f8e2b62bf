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

// medical_records.appointment_id carries a unique constraint so at most
// one record exists per appointment.
const recordUniqueConstraint = "medical_records_appointment_id_key"

func (r *medicalRecordRepository) Create(ctx context.Context, record *model.MedicalRecord) error {
	query := `
		INSERT INTO medical_records (
			id, appointment_id, doctor_id, patient_id,
			summary, content, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	now := time.Now()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.AppointmentID,
		record.DoctorID,
		record.PatientID,
		record.Summary,
		record.Content,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == recordUniqueConstraint {
			return apperrors.BadRequest("appointment already has a medical record", err)
		}
		return apperrors.Persistence(fmt.Errorf("failed to create medical record: %w", err))
	}
	return nil
}

func (r *medicalRecordRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id,
			   summary, content, created_at, updated_at
		FROM medical_records
		WHERE id = $1
	`
	var record model.MedicalRecord
	err := r.db.GetContext(ctx, &record, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medical record", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get medical record: %w", err))
	}
	return &record, nil
}

func (r *medicalRecordRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id,
			   summary, content, created_at, updated_at
		FROM medical_records
		WHERE appointment_id = $1
	`
	var record model.MedicalRecord
	err := r.db.GetContext(ctx, &record, query, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medical record", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get medical record: %w", err))
	}
	return &record, nil
}

func (r *medicalRecordRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	query := `
		SELECT id, appointment_id, doctor_id, patient_id,
			   summary, content, created_at, updated_at
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var records []*model.MedicalRecord
	err := r.db.SelectContext(ctx, &records, query, patientID)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list medical records: %w", err))
	}
	return records, nil
}
