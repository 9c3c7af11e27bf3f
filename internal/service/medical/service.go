package medical

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
)

// Vital sign alert thresholds.
const (
	criticalSystolicBP   = 180
	elevatedHeartRate    = 120
	criticalOxygenSat    = 90.0
	feverTemperature     = 38.5
	recentEncounterLimit = 5
)

type Service interface {
	CreateEncounter(ctx context.Context, actorID uuid.UUID, req *model.CreateEncounterRequest) (*model.Encounter, error)
	GetEncounter(ctx context.Context, id uuid.UUID) (*model.Encounter, error)
	CompleteEncounter(ctx context.Context, actorID, id uuid.UUID, assessmentPlan string) error
	// RecordVitals stores vitals on an encounter and returns clinical
	// alerts for readings past critical thresholds.
	RecordVitals(ctx context.Context, actorID, encounterID uuid.UUID, vitals *model.VitalSigns) ([]model.ClinicalAlert, error)
	AddDiagnosis(ctx context.Context, actorID, encounterID uuid.UUID, req *model.CreateDiagnosisRequest) (*model.Diagnosis, error)
	GetClinicalSummary(ctx context.Context, patientID uuid.UUID) (*model.ClinicalSummary, error)
}

type service struct {
	repo        repository.EncounterRepository
	patientRepo repository.PatientRepository
	audit       audit.Service
	logger      *logger.Logger
}

func NewService(
	repo repository.EncounterRepository,
	patientRepo repository.PatientRepository,
	auditSvc audit.Service,
	logger *logger.Logger,
) Service {
	return &service{
		repo:        repo,
		patientRepo: patientRepo,
		audit:       auditSvc,
		logger:      logger,
	}
}

func (s *service) CreateEncounter(ctx context.Context, actorID uuid.UUID, req *model.CreateEncounterRequest) (*model.Encounter, error) {
	if _, err := s.patientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}

	now := time.Now()
	enc := &model.Encounter{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Type:           req.Type,
		Status:         model.EncounterStatusActive,
		StartTime:      now,
		ChiefComplaint: req.ChiefComplaint,
		Department:     req.Department,
		RoomNumber:     req.RoomNumber,
	}

	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityEncounter,
		EntityID:   enc.ID,
		Metadata:   map[string]interface{}{"type": enc.Type, "patient_id": enc.PatientID},
	})
	return enc, nil
}

func (s *service) GetEncounter(ctx context.Context, id uuid.UUID) (*model.Encounter, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) CompleteEncounter(ctx context.Context, actorID, id uuid.UUID, assessmentPlan string) error {
	enc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if enc.Status != model.EncounterStatusActive {
		return apperrors.Conflict("encounter is not active", nil)
	}

	now := time.Now()
	enc.Status = model.EncounterStatusCompleted
	enc.EndTime = &now
	if assessmentPlan != "" {
		enc.AssessmentPlan = assessmentPlan
	}

	if err := s.repo.Update(ctx, enc); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityEncounter,
		EntityID:   enc.ID,
		Metadata:   map[string]interface{}{"status": enc.Status},
	})
	return nil
}

func (s *service) RecordVitals(ctx context.Context, actorID, encounterID uuid.UUID, vitals *model.VitalSigns) ([]model.ClinicalAlert, error) {
	enc, err := s.repo.Get(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	if enc.Status != model.EncounterStatusActive {
		return nil, apperrors.Conflict("vitals can only be recorded on active encounters", nil)
	}

	if vitals.Temperature != nil {
		enc.Temperature = vitals.Temperature
	}
	if vitals.SystolicBP != nil {
		enc.SystolicBP = vitals.SystolicBP
	}
	if vitals.DiastolicBP != nil {
		enc.DiastolicBP = vitals.DiastolicBP
	}
	if vitals.HeartRate != nil {
		enc.HeartRate = vitals.HeartRate
	}
	if vitals.RespiratoryRate != nil {
		enc.RespiratoryRate = vitals.RespiratoryRate
	}
	if vitals.OxygenSaturation != nil {
		enc.OxygenSaturation = vitals.OxygenSaturation
	}
	if vitals.WeightKg != nil {
		enc.WeightKg = vitals.WeightKg
	}
	if vitals.HeightCm != nil {
		enc.HeightCm = vitals.HeightCm
	}

	if enc.WeightKg != nil && enc.HeightCm != nil && *enc.HeightCm > 0 {
		bmi := computeBMI(*enc.WeightKg, *enc.HeightCm)
		enc.BMI = &bmi
	}

	if err := s.repo.Update(ctx, enc); err != nil {
		return nil, err
	}

	alerts := EvaluateVitals(vitals)

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityEncounter,
		EntityID:   enc.ID,
		Changes:    vitals,
		Metadata:   map[string]interface{}{"alerts": len(alerts)},
	})

	return alerts, nil
}

// EvaluateVitals checks readings against alert thresholds.
func EvaluateVitals(vitals *model.VitalSigns) []model.ClinicalAlert {
	var alerts []model.ClinicalAlert

	if vitals.SystolicBP != nil && *vitals.SystolicBP > criticalSystolicBP {
		alerts = append(alerts, model.ClinicalAlert{
			Severity:       "critical",
			Message:        fmt.Sprintf("Systolic blood pressure %d mmHg indicates hypertensive crisis", *vitals.SystolicBP),
			ActionRequired: "Immediate physician evaluation",
		})
	}

	if vitals.HeartRate != nil && *vitals.HeartRate > elevatedHeartRate {
		alerts = append(alerts, model.ClinicalAlert{
			Severity:       "warning",
			Message:        fmt.Sprintf("Heart rate %d bpm indicates tachycardia", *vitals.HeartRate),
			ActionRequired: "Monitor and reassess",
		})
	}

	if vitals.OxygenSaturation != nil && *vitals.OxygenSaturation < criticalOxygenSat {
		alerts = append(alerts, model.ClinicalAlert{
			Severity:       "critical",
			Message:        fmt.Sprintf("Oxygen saturation %.1f%% indicates hypoxemia", *vitals.OxygenSaturation),
			ActionRequired: "Administer supplemental oxygen",
		})
	}

	if vitals.Temperature != nil && *vitals.Temperature > feverTemperature {
		alerts = append(alerts, model.ClinicalAlert{
			Severity:       "warning",
			Message:        fmt.Sprintf("Temperature %.1f C indicates fever", *vitals.Temperature),
			ActionRequired: "Consider antipyretics and infection workup",
		})
	}

	return alerts
}

func computeBMI(weightKg, heightCm float64) float64 {
	heightM := heightCm / 100
	return math.Round(weightKg/(heightM*heightM)*10) / 10
}

func (s *service) AddDiagnosis(ctx context.Context, actorID, encounterID uuid.UUID, req *model.CreateDiagnosisRequest) (*model.Diagnosis, error) {
	if _, err := s.repo.Get(ctx, encounterID); err != nil {
		return nil, err
	}

	now := time.Now()
	d := &model.Diagnosis{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EncounterID: encounterID,
		ICD10Code:   req.ICD10Code,
		Description: req.Description,
		Type:        req.Type,
		Status:      "active",
		Severity:    req.Severity,
	}
	if d.Type == "" {
		d.Type = "primary"
	}

	if err := s.repo.CreateDiagnosis(ctx, d); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityEncounter,
		EntityID:   encounterID,
		Metadata:   map[string]interface{}{"icd10": d.ICD10Code},
	})
	return d, nil
}

func (s *service) GetClinicalSummary(ctx context.Context, patientID uuid.UUID) (*model.ClinicalSummary, error) {
	patient, err := s.patientRepo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	encounters, err := s.repo.ListByPatient(ctx, patientID, recentEncounterLimit)
	if err != nil {
		return nil, err
	}

	diagnoses, err := s.repo.ListActiveDiagnoses(ctx, patientID)
	if err != nil {
		return nil, err
	}

	summary := &model.ClinicalSummary{
		Patient:          patient,
		RecentEncounters: encounters,
		ActiveDiagnoses:  diagnoses,
	}

	// Surface alerts from the most recent encounter's vitals.
	if len(encounters) > 0 {
		latest := encounters[0]
		summary.Alerts = EvaluateVitals(&model.VitalSigns{
			Temperature:      latest.Temperature,
			SystolicBP:       latest.SystolicBP,
			DiastolicBP:      latest.DiastolicBP,
			HeartRate:        latest.HeartRate,
			RespiratoryRate:  latest.RespiratoryRate,
			OxygenSaturation: latest.OxygenSaturation,
		})
	}

	return summary, nil
}
