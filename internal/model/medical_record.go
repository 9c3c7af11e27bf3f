package model

import (
	"time"

	"github.com/google/uuid"
)

type EncounterStatus string

const (
	EncounterStatusActive    EncounterStatus = "active"
	EncounterStatusCompleted EncounterStatus = "completed"
	EncounterStatusCancelled EncounterStatus = "cancelled"
)

// Encounter is a clinical visit: outpatient, inpatient or emergency.
type Encounter struct {
	Base
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID       `db:"doctor_id" json:"doctor_id"`
	Type           string          `db:"type" json:"type"`
	Status         EncounterStatus `db:"status" json:"status"`
	StartTime      time.Time       `db:"start_time" json:"start_time"`
	EndTime        *time.Time      `db:"end_time" json:"end_time,omitempty"`
	ChiefComplaint string          `db:"chief_complaint" json:"chief_complaint,omitempty"`
	AssessmentPlan string          `db:"assessment_plan" json:"assessment_plan,omitempty"`
	Department     string          `db:"department" json:"department,omitempty"`
	RoomNumber     string          `db:"room_number" json:"room_number,omitempty"`

	// Latest recorded vitals
	Temperature      *float64 `db:"temperature" json:"temperature,omitempty"`
	SystolicBP       *int     `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP      *int     `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate        *int     `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate  *int     `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `db:"oxygen_saturation" json:"oxygen_saturation,omitempty"`
	WeightKg         *float64 `db:"weight_kg" json:"weight_kg,omitempty"`
	HeightCm         *float64 `db:"height_cm" json:"height_cm,omitempty"`
	BMI              *float64 `db:"bmi" json:"bmi,omitempty"`
}

// VitalSigns is the payload for recording vitals on an encounter.
type VitalSigns struct {
	Temperature      *float64 `json:"temperature" binding:"omitempty,gt=25,lt=45"`
	SystolicBP       *int     `json:"systolic_bp" binding:"omitempty,gt=0,lt=300"`
	DiastolicBP      *int     `json:"diastolic_bp" binding:"omitempty,gt=0,lt=200"`
	HeartRate        *int     `json:"heart_rate" binding:"omitempty,gt=0,lt=300"`
	RespiratoryRate  *int     `json:"respiratory_rate" binding:"omitempty,gt=0,lt=100"`
	OxygenSaturation *float64 `json:"oxygen_saturation" binding:"omitempty,gt=0,lte=100"`
	WeightKg         *float64 `json:"weight_kg" binding:"omitempty,gt=0"`
	HeightCm         *float64 `json:"height_cm" binding:"omitempty,gt=0"`
}

// ClinicalAlert flags a critical or abnormal finding.
type ClinicalAlert struct {
	Severity       string `json:"severity"`
	Message        string `json:"message"`
	ActionRequired string `json:"action_required"`
}

type Diagnosis struct {
	Base
	EncounterID uuid.UUID `db:"encounter_id" json:"encounter_id"`
	ICD10Code   string    `db:"icd10_code" json:"icd10_code"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"type" json:"type"`
	Status      string    `db:"status" json:"status"`
	Severity    string    `db:"severity" json:"severity,omitempty"`
}

type CreateEncounterRequest struct {
	PatientID      uuid.UUID `json:"patient_id" binding:"required"`
	DoctorID       uuid.UUID `json:"doctor_id" binding:"required"`
	Type           string    `json:"type" binding:"required,oneof=outpatient inpatient emergency"`
	ChiefComplaint string    `json:"chief_complaint"`
	Department     string    `json:"department"`
	RoomNumber     string    `json:"room_number"`
}

type CreateDiagnosisRequest struct {
	ICD10Code   string `json:"icd10_code" binding:"required,max=10"`
	Description string `json:"description" binding:"required,max=500"`
	Type        string `json:"type" binding:"omitempty,oneof=primary secondary differential"`
	Severity    string `json:"severity" binding:"omitempty,oneof=mild moderate severe critical"`
}

// ClinicalSummary aggregates a patient's recent clinical activity.
type ClinicalSummary struct {
	Patient          *Patient        `json:"patient"`
	RecentEncounters []*Encounter    `json:"recent_encounters"`
	ActiveDiagnoses  []*Diagnosis    `json:"active_diagnoses"`
	Alerts           []ClinicalAlert `json:"clinical_alerts"`
}
