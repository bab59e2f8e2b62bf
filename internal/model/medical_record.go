package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MedicalRecord is an opaque payload attached by the doctor once an
// appointment completes. At most one record exists per appointment.
type MedicalRecord struct {
	Base
	AppointmentID uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	DoctorID      uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	Summary       string          `db:"summary" json:"summary"`
	Content       json.RawMessage `db:"content" json:"content"`
}

type CreateMedicalRecordRequest struct {
	Summary string          `json:"summary" binding:"required,max=2000"`
	Content json.RawMessage `json:"content"`
}
