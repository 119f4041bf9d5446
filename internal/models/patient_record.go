package models

import "time"

// PatientRecord carries the slice of the clinical record the security layer
// needs for scoping decisions: which doctor owns it and which department it
// belongs to. Full record lifecycle is owned by the CRUD subsystem.
type PatientRecord struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	UUID             string `json:"uuid" gorm:"uniqueIndex"`
	PatientName      string `json:"patient_name"`
	Department       string `json:"department" gorm:"index"`
	AssignedDoctorID uint   `json:"assigned_doctor_id" gorm:"index"`
	Diagnosis        string `json:"diagnosis"`
	Prescription     string `json:"prescription"`
	Notes            string `json:"notes"`
	Status           string `json:"status" gorm:"default:'active'"` // active or discharged

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
