package model

import (
	"github.com/lib/pq"
)

type DoctorStatus string

const (
	DoctorStatusActive   DoctorStatus = "active"
	DoctorStatusInactive DoctorStatus = "inactive"
)

// Doctor holds a clinician account. ScheduleLabels is the recurring
// availability window as discrete start-time labels ("09:00", "09:30", ...);
// concrete bookable slots are derived from it per candidate date.
type Doctor struct {
	Base
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	Specialization string         `db:"specialization" json:"specialization"`
	ScheduleLabels pq.StringArray `db:"schedule_labels" json:"schedule_labels"`
	Status         DoctorStatus   `db:"status" json:"status"`
}

type CreateDoctorRequest struct {
	Name           string   `json:"name" binding:"required"`
	Email          string   `json:"email" binding:"required,email"`
	Password       string   `json:"password" binding:"required,min=8"`
	Specialization string   `json:"specialization" binding:"required"`
	ScheduleLabels []string `json:"schedule_labels" binding:"required,dive,timeslot"`
}

type UpdateDoctorRequest struct {
	Name           *string   `json:"name"`
	Specialization *string   `json:"specialization"`
	ScheduleLabels *[]string `json:"schedule_labels" binding:"omitempty,dive,timeslot"`
	Status         *string   `json:"status"`
}
