package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// Patient holds demographics and clinical flags. SSN is stored
// encrypted; repositories only ever see the ciphertext.
type Patient struct {
	Base
	MRN               string        `db:"mrn" json:"mrn"`
	FirstName         string        `db:"first_name" json:"first_name"`
	LastName          string        `db:"last_name" json:"last_name"`
	DateOfBirth       time.Time     `db:"date_of_birth" json:"date_of_birth"`
	Gender            string        `db:"gender" json:"gender"`
	SSN               string        `db:"ssn" json:"-"`
	Email             string        `db:"email" json:"email"`
	Phone             string        `db:"phone" json:"phone"`
	AddressLine1      string        `db:"address_line1" json:"address_line1"`
	AddressLine2      string        `db:"address_line2" json:"address_line2,omitempty"`
	City              string        `db:"city" json:"city"`
	State             string        `db:"state" json:"state"`
	ZipCode           string        `db:"zip_code" json:"zip_code"`
	EmergencyContact  string        `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone    string        `db:"emergency_phone" json:"emergency_phone,omitempty"`
	InsuranceProvider string        `db:"insurance_provider" json:"insurance_provider,omitempty"`
	InsurancePolicy   string        `db:"insurance_policy" json:"insurance_policy,omitempty"`
	BloodType         string        `db:"blood_type" json:"blood_type,omitempty"`
	Allergies         string        `db:"allergies" json:"allergies,omitempty"`
	MedicalAlerts     string        `db:"medical_alerts" json:"medical_alerts,omitempty"`
	Status            PatientStatus `db:"status" json:"status"`
	LastVisitAt       *time.Time    `db:"last_visit_at" json:"last_visit_at,omitempty"`
}

type CreatePatientRequest struct {
	FirstName    string    `json:"first_name" binding:"required"`
	LastName     string    `json:"last_name" binding:"required"`
	DateOfBirth  time.Time `json:"date_of_birth" binding:"required"`
	Gender       string    `json:"gender" binding:"required"`
	SSN          string    `json:"ssn"`
	Email        string    `json:"email" binding:"omitempty,email"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	ZipCode      string    `json:"zip_code"`
	BloodType    string    `json:"blood_type"`
	Allergies    string    `json:"allergies"`
}

type UpdatePatientRequest struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Phone         *string `json:"phone"`
	AddressLine1  *string `json:"address_line1"`
	AddressLine2  *string `json:"address_line2"`
	City          *string `json:"city"`
	State         *string `json:"state"`
	ZipCode       *string `json:"zip_code"`
	Allergies     *string `json:"allergies"`
	MedicalAlerts *string `json:"medical_alerts"`
	Status        *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PatientFilters struct {
	SearchTerm string        `form:"search_term"`
	Status     PatientStatus `form:"status"`
	MRN        string        `form:"mrn"`
}
