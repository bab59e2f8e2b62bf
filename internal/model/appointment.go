package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further lifecycle transition is defined
// from s.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Occupying reports whether an appointment in this status holds its
// (doctor, date, slot) triple against other bookings. Cancelled and
// rejected appointments free the slot.
func (s AppointmentStatus) Occupying() bool {
	return !(s == AppointmentStatusCancelled || s == AppointmentStatusRejected)
}

// AppointmentAction is a lifecycle action requested by an actor.
type AppointmentAction string

const (
	ActionAccept     AppointmentAction = "accept"
	ActionReject     AppointmentAction = "reject"
	ActionCancel     AppointmentAction = "cancel"
	ActionComplete   AppointmentAction = "complete"
	ActionReschedule AppointmentAction = "reschedule"
)

// Appointment references its doctor and patient; it does not own them.
// Date carries no time component, TimeSlot is a label from the doctor's
// derived slot set for that date.
type Appointment struct {
	Base
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	Date      time.Time         `db:"date" json:"date"`
	TimeSlot  string            `db:"time_slot" json:"time_slot"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Notes     string            `db:"notes" json:"notes,omitempty"`
}

type CreateAppointmentRequest struct {
	DoctorID uuid.UUID `json:"doctor_id" binding:"required"`
	Date     string    `json:"date" binding:"required,datetime=2006-01-02"`
	TimeSlot string    `json:"time_slot" binding:"required,timeslot"`
	Notes    string    `json:"notes" binding:"max=1000"`
}

// TransitionRequest carries a lifecycle action. Date and TimeSlot are
// required only for reschedule.
type TransitionRequest struct {
	Action   AppointmentAction `json:"action" binding:"required,oneof=accept reject cancel complete reschedule"`
	Date     string            `json:"date" binding:"omitempty,datetime=2006-01-02"`
	TimeSlot string            `json:"time_slot" binding:"omitempty,timeslot"`
}

type AppointmentFilters struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
