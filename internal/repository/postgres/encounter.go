package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
)

type encounterRepository struct {
	db *sqlx.DB
}

func NewEncounterRepository(db *sqlx.DB) repository.EncounterRepository {
	return &encounterRepository{db: db}
}

const encounterColumns = `
	id, patient_id, doctor_id, type, status, start_time, end_time,
	chief_complaint, assessment_plan, department, room_number,
	temperature, systolic_bp, diastolic_bp, heart_rate, respiratory_rate,
	oxygen_saturation, weight_kg, height_cm, bmi,
	created_at, updated_at, deleted_at
`

func (r *encounterRepository) Create(ctx context.Context, enc *model.Encounter) error {
	query := `
		INSERT INTO encounters (
			id, patient_id, doctor_id, type, status, start_time,
			chief_complaint, department, room_number, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		enc.ID, enc.PatientID, enc.DoctorID, enc.Type, enc.Status,
		enc.StartTime, enc.ChiefComplaint, enc.Department, enc.RoomNumber,
		enc.CreatedAt, enc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create encounter: %w", err)
	}
	return nil
}

func (r *encounterRepository) Get(ctx context.Context, id uuid.UUID) (*model.Encounter, error) {
	query := `SELECT ` + encounterColumns + ` FROM encounters WHERE id = $1 AND deleted_at IS NULL`

	var enc model.Encounter
	err := r.db.GetContext(ctx, &enc, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("encounter", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get encounter: %w", err)
	}
	return &enc, nil
}

func (r *encounterRepository) Update(ctx context.Context, enc *model.Encounter) error {
	query := `
		UPDATE encounters
		SET status = $1, end_time = $2, chief_complaint = $3, assessment_plan = $4,
		    temperature = $5, systolic_bp = $6, diastolic_bp = $7, heart_rate = $8,
		    respiratory_rate = $9, oxygen_saturation = $10, weight_kg = $11,
		    height_cm = $12, bmi = $13, updated_at = $14
		WHERE id = $15 AND deleted_at IS NULL
	`
	enc.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		enc.Status, enc.EndTime, enc.ChiefComplaint, enc.AssessmentPlan,
		enc.Temperature, enc.SystolicBP, enc.DiastolicBP, enc.HeartRate,
		enc.RespiratoryRate, enc.OxygenSaturation, enc.WeightKg,
		enc.HeightCm, enc.BMI, enc.UpdatedAt, enc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update encounter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("encounter", nil)
	}

	return nil
}

func (r *encounterRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Encounter, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + encounterColumns + `
		FROM encounters
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY start_time DESC
		LIMIT $2`

	var encounters []*model.Encounter
	err := r.db.SelectContext(ctx, &encounters, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list encounters: %w", err)
	}
	return encounters, nil
}

func (r *encounterRepository) CreateDiagnosis(ctx context.Context, d *model.Diagnosis) error {
	query := `
		INSERT INTO diagnoses (
			id, encounter_id, icd10_code, description, type, status,
			severity, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.EncounterID, d.ICD10Code, d.Description, d.Type,
		d.Status, d.Severity, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis: %w", err)
	}
	return nil
}

func (r *encounterRepository) ListActiveDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error) {
	query := `
		SELECT d.id, d.encounter_id, d.icd10_code, d.description, d.type,
		       d.status, d.severity, d.created_at, d.updated_at, d.deleted_at
		FROM diagnoses d
		JOIN encounters e ON e.id = d.encounter_id
		WHERE e.patient_id = $1 AND d.status = 'active'
		ORDER BY d.created_at DESC
	`
	var diagnoses []*model.Diagnosis
	err := r.db.SelectContext(ctx, &diagnoses, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	return diagnoses, nil
}
