package patient

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/event"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/security"
)

const mrnAttempts = 10

type Service interface {
	CreatePatient(ctx context.Context, actorID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetPatientByMRN(ctx context.Context, mrn string) (*model.Patient, error)
	UpdatePatient(ctx context.Context, actorID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, actorID, id uuid.UUID) error
	ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
}

type service struct {
	repo      repository.PatientRepository
	encryptor security.Encryptor
	events    event.Service
	audit     audit.Service
	logger    *logger.Logger
}

func NewService(
	repo repository.PatientRepository,
	encryptor security.Encryptor,
	events event.Service,
	auditSvc audit.Service,
	logger *logger.Logger,
) Service {
	return &service{
		repo:      repo,
		encryptor: encryptor,
		events:    events,
		audit:     auditSvc,
		logger:    logger,
	}
}

func (s *service) CreatePatient(ctx context.Context, actorID uuid.UUID, req *model.CreatePatientRequest) (*model.Patient, error) {
	mrn, err := s.generateMRN(ctx)
	if err != nil {
		return nil, err
	}

	encryptedSSN, err := s.encryptor.EncryptString(req.SSN)
	if err != nil {
		return nil, apperrors.Internal("failed to protect patient record", err)
	}

	now := time.Now()
	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		MRN:          mrn,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		SSN:          encryptedSSN,
		Email:        req.Email,
		Phone:        req.Phone,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		ZipCode:      req.ZipCode,
		BloodType:    req.BloodType,
		Allergies:    req.Allergies,
		Status:       model.PatientStatusActive,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityPatient,
		EntityID:   patient.ID,
		Metadata:   map[string]interface{}{"mrn": patient.MRN},
	})

	if err := s.events.Emit(ctx, model.EventPatientCreated, map[string]interface{}{
		"patient_id": patient.ID,
		"mrn":        patient.MRN,
	}); err != nil {
		s.logger.Error(err, "failed to stage patient.created event")
	}

	return patient, nil
}

// generateMRN produces a medical record number of the form MRN followed
// by six digits, retrying on collision.
func (s *service) generateMRN(ctx context.Context) (string, error) {
	for i := 0; i < mrnAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(1000000))
		if err != nil {
			return "", apperrors.Internal("failed to generate MRN", err)
		}
		mrn := fmt.Sprintf("MRN%06d", n.Int64())

		exists, err := s.repo.MRNExists(ctx, mrn)
		if err != nil {
			return "", err
		}
		if !exists {
			return mrn, nil
		}
	}
	return "", apperrors.Internal("failed to generate unique MRN", nil)
}

func (s *service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *service) GetPatientByMRN(ctx context.Context, mrn string) (*model.Patient, error) {
	return s.repo.GetByMRN(ctx, mrn)
}

func (s *service) UpdatePatient(ctx context.Context, actorID, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Email != nil {
		patient.Email = *req.Email
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.AddressLine1 != nil {
		patient.AddressLine1 = *req.AddressLine1
	}
	if req.AddressLine2 != nil {
		patient.AddressLine2 = *req.AddressLine2
	}
	if req.City != nil {
		patient.City = *req.City
	}
	if req.State != nil {
		patient.State = *req.State
	}
	if req.ZipCode != nil {
		patient.ZipCode = *req.ZipCode
	}
	if req.Allergies != nil {
		patient.Allergies = *req.Allergies
	}
	if req.MedicalAlerts != nil {
		patient.MedicalAlerts = *req.MedicalAlerts
	}
	if req.Status != nil {
		patient.Status = model.PatientStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityPatient,
		EntityID:   patient.ID,
		Changes:    req,
	})
	return patient, nil
}

func (s *service) DeletePatient(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityPatient,
		EntityID:   id,
	})
	return nil
}

func (s *service) ListPatients(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return s.repo.List(ctx, filters)
}
