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

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, mrn, first_name, last_name, date_of_birth, gender, ssn,
			email, phone, address_line1, address_line2, city, state, zip_code,
			emergency_contact, emergency_phone, insurance_provider, insurance_policy,
			blood_type, allergies, medical_alerts, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.ID, patient.MRN, patient.FirstName, patient.LastName,
		patient.DateOfBirth, patient.Gender, patient.SSN,
		patient.Email, patient.Phone, patient.AddressLine1, patient.AddressLine2,
		patient.City, patient.State, patient.ZipCode,
		patient.EmergencyContact, patient.EmergencyPhone,
		patient.InsuranceProvider, patient.InsurancePolicy,
		patient.BloodType, patient.Allergies, patient.MedicalAlerts,
		patient.Status, patient.CreatedAt, patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

const patientColumns = `
	id, mrn, first_name, last_name, date_of_birth, gender, ssn,
	email, phone, address_line1, address_line2, city, state, zip_code,
	emergency_contact, emergency_phone, insurance_provider, insurance_policy,
	blood_type, allergies, medical_alerts, status, last_visit_at,
	created_at, updated_at, deleted_at
`

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1 AND deleted_at IS NULL`

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByMRN(ctx context.Context, mrn string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE mrn = $1 AND deleted_at IS NULL`

	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, mrn)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient by MRN: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
		    address_line1 = $5, address_line2 = $6, city = $7, state = $8,
		    zip_code = $9, allergies = $10, medical_alerts = $11,
		    status = $12, last_visit_at = $13, updated_at = $14
		WHERE id = $15 AND deleted_at IS NULL
	`
	patient.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		patient.FirstName, patient.LastName, patient.Email, patient.Phone,
		patient.AddressLine1, patient.AddressLine2, patient.City, patient.State,
		patient.ZipCode, patient.Allergies, patient.MedicalAlerts,
		patient.Status, patient.LastVisitAt, patient.UpdatedAt, patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}

	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patients SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}

	return nil
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if filters.MRN != "" {
		query += fmt.Sprintf(" AND mrn = $%d", argCount)
		args = append(args, filters.MRN)
		argCount++
	}

	if filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR mrn ILIKE $%d)", argCount, argCount, argCount)
		args = append(args, "%"+filters.SearchTerm+"%")
		argCount++
	}

	query += " ORDER BY last_name, first_name"

	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) MRNExists(ctx context.Context, mrn string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE mrn = $1)`, mrn)
	if err != nil {
		return false, fmt.Errorf("failed to check MRN: %w", err)
	}
	return exists, nil
}
