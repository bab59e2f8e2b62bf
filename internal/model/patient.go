package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

type Patient struct {
	Base
	Name         string        `db:"name" json:"name"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Phone        string        `db:"phone" json:"phone,omitempty"`
	DateOfBirth  *time.Time    `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address      string        `db:"address" json:"address,omitempty"`
	Status       PatientStatus `db:"status" json:"status"`
}

type UpdatePatientRequest struct {
	Name        *string    `json:"name"`
	Phone       *string    `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Address     *string    `json:"address"`
	Status      *string    `json:"status"`
}
