package record

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	records      repository.MedicalRecordRepository
	appointments repository.AppointmentRepository
}

func NewService(records repository.MedicalRecordRepository, appointments repository.AppointmentRepository) *Service {
	return &Service{records: records, appointments: appointments}
}

// CreateRecord attaches the medical record to a completed appointment.
// Only the appointment's doctor may write it, and only once; the store
// enforces the one-record-per-appointment constraint.
func (s *Service) CreateRecord(ctx context.Context, actor model.Actor, appointmentID uuid.UUID, req *model.CreateMedicalRecordRequest) (*model.MedicalRecord, error) {
	if actor.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only doctors can create medical records")
	}

	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.DoctorID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another doctor")
	}
	if apt.Status != model.AppointmentStatusCompleted {
		return nil, apperrors.BadRequest("medical records can only be attached to completed appointments", nil)
	}

	record := &model.MedicalRecord{
		AppointmentID: apt.ID,
		DoctorID:      apt.DoctorID,
		PatientID:     apt.PatientID,
		Summary:       req.Summary,
		Content:       req.Content,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord is readable by the record's doctor, the appointment's
// patient, and admins.
func (s *Service) GetRecord(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.MedicalRecord, error) {
	record, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, record) {
		return nil, apperrors.Forbidden("not allowed to read this medical record")
	}
	return record, nil
}

func (s *Service) GetRecordForAppointment(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (*model.MedicalRecord, error) {
	record, err := s.records.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, record) {
		return nil, apperrors.Forbidden("not allowed to read this medical record")
	}
	return record, nil
}

func (s *Service) ListForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	if actor.Role != model.RoleAdmin && !(actor.Role == model.RolePatient && actor.ID == patientID) {
		return nil, apperrors.Forbidden("not allowed to list these medical records")
	}
	return s.records.ListForPatient(ctx, patientID)
}

func canRead(actor model.Actor, record *model.MedicalRecord) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleDoctor:
		return actor.ID == record.DoctorID
	case model.RolePatient:
		return actor.ID == record.PatientID
	}
	return false
}
