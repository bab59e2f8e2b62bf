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

// The appointments table carries a partial unique index on
// (doctor_id, date, time_slot) WHERE status NOT IN ('cancelled','rejected').
// That index, not the application-level conflict check, is what makes
// concurrent bookings of the same slot safe: the loser of the race gets a
// unique violation, which we surface as slot_taken.
const slotUniqueIndex = "appointments_doctor_slot_key"

func isSlotUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == slotUniqueIndex
	}
	return false
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, doctor_id, patient_id, date, time_slot,
			status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	now := time.Now()
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.DoctorID,
		appointment.PatientID,
		model.DateOnly(appointment.Date),
		appointment.TimeSlot,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		if isSlotUniqueViolation(err) {
			return apperrors.SlotTaken(appointment.TimeSlot)
		}
		return apperrors.Persistence(fmt.Errorf("failed to create appointment: %w", err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, date, time_slot,
			   status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Persistence(fmt.Errorf("failed to get appointment: %w", err))
	}
	return &appointment, nil
}

// UpdateStatus is a compare-and-swap on the status column: the guard in
// the WHERE clause loses against any concurrent transition that already
// moved the row, so an evaluated transition can never overwrite one that
// committed first.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		if isSlotUniqueViolation(err) {
			return apperrors.SlotTaken("")
		}
		return apperrors.Persistence(fmt.Errorf("failed to update appointment status: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return r.staleWriteError(ctx, id)
	}
	return nil
}

func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, timeSlot string, from, to model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET date = $1, time_slot = $2, status = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query, model.DateOnly(date), timeSlot, to, time.Now(), id, from)
	if err != nil {
		if isSlotUniqueViolation(err) {
			return apperrors.SlotTaken(timeSlot)
		}
		return apperrors.Persistence(fmt.Errorf("failed to reschedule appointment: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return r.staleWriteError(ctx, id)
	}
	return nil
}

// staleWriteError tells a missing row apart from one whose status moved
// under a guarded update.
func (r *appointmentRepository) staleWriteError(ctx context.Context, id uuid.UUID) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return apperrors.ConcurrentTransition(string(current.Status))
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM appointments
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to delete appointment: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT id, doctor_id, patient_id, date, time_slot,
			   status, notes, created_at, updated_at
		FROM appointments
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.DoctorID != uuid.Nil {
			query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
			args = append(args, filters.DoctorID)
			argCount++
		}
		if filters.PatientID != uuid.Nil {
			query += fmt.Sprintf(" AND patient_id = $%d", argCount)
			args = append(args, filters.PatientID)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if !filters.StartDate.IsZero() {
			query += fmt.Sprintf(" AND date >= $%d", argCount)
			args = append(args, model.DateOnly(filters.StartDate))
			argCount++
		}
		if !filters.EndDate.IsZero() {
			query += fmt.Sprintf(" AND date <= $%d", argCount)
			args = append(args, model.DateOnly(filters.EndDate))
			argCount++
		}
	}

	query += " ORDER BY date ASC, time_slot ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list appointments: %w", err))
	}
	return appointments, nil
}

func (r *appointmentRepository) CheckConflict(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, excludeID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND date = $2
			AND time_slot = $3
			AND status NOT IN ('cancelled', 'rejected')
	`
	args := []interface{}{doctorID, model.DateOnly(date), timeSlot}

	if excludeID != nil {
		query += " AND id != $4"
		args = append(args, *excludeID)
	}

	query += ")"

	var hasConflict bool
	err := r.db.GetContext(ctx, &hasConflict, query, args...)
	if err != nil {
		return false, apperrors.Persistence(fmt.Errorf("failed to check conflicts: %w", err))
	}
	return hasConflict, nil
}

func (r *appointmentRepository) ListOccupiedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	query := `
		SELECT time_slot FROM appointments
		WHERE doctor_id = $1
		AND date = $2
		AND status NOT IN ('cancelled', 'rejected')
		ORDER BY time_slot ASC
	`
	var slots []string
	err := r.db.SelectContext(ctx, &slots, query, doctorID, model.DateOnly(date))
	if err != nil {
		return nil, apperrors.Persistence(fmt.Errorf("failed to list occupied slots: %w", err))
	}
	return slots, nil
}
