package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/event"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
)

type Service interface {
	CreateInvoice(ctx context.Context, actorID uuid.UUID, req *model.CreateInvoiceRequest) (*model.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error)
	IssueInvoice(ctx context.Context, actorID, id uuid.UUID) error
	PayInvoice(ctx context.Context, actorID, id uuid.UUID) error
	CancelInvoice(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	repo        repository.InvoiceRepository
	patientRepo repository.PatientRepository
	events      event.Service
	audit       audit.Service
	logger      *logger.Logger
}

func NewService(
	repo repository.InvoiceRepository,
	patientRepo repository.PatientRepository,
	events event.Service,
	auditSvc audit.Service,
	logger *logger.Logger,
) Service {
	return &service{
		repo:        repo,
		patientRepo: patientRepo,
		events:      events,
		audit:       auditSvc,
		logger:      logger,
	}
}

// CreateInvoice builds a draft invoice. Line amounts are computed from
// quantity and unit price; negative amounts never enter the system.
func (s *service) CreateInvoice(ctx context.Context, actorID uuid.UUID, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	if _, err := s.patientRepo.Get(ctx, req.PatientID); err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &model.Invoice{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:   req.PatientID,
		EncounterID: req.EncounterID,
		Status:      model.InvoiceStatusDraft,
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 || item.UnitCents < 0 {
			return nil, apperrors.Validation("invoice items require positive quantity and non-negative price", nil)
		}
		amount := int64(item.Quantity) * item.UnitCents
		inv.Items = append(inv.Items, model.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitCents:   item.UnitCents,
			AmountCents: amount,
		})
		inv.TotalCents += amount
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityInvoice,
		EntityID:   inv.ID,
		Metadata:   map[string]interface{}{"total_cents": inv.TotalCents},
	})
	return inv, nil
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListInvoices(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) IssueInvoice(ctx context.Context, actorID, id uuid.UUID) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceStatusDraft {
		return apperrors.Conflict("only draft invoices can be issued", nil)
	}

	now := time.Now()
	inv.Status = model.InvoiceStatusIssued
	inv.IssuedAt = &now
	if err := s.repo.Update(ctx, inv); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityInvoice,
		EntityID:   inv.ID,
		Metadata:   map[string]interface{}{"status": inv.Status},
	})

	if err := s.events.Emit(ctx, model.EventInvoiceIssued, map[string]interface{}{
		"invoice_id":  inv.ID,
		"patient_id":  inv.PatientID,
		"total_cents": inv.TotalCents,
	}); err != nil {
		s.logger.Error(err, "failed to stage invoice.issued event")
	}
	return nil
}

func (s *service) PayInvoice(ctx context.Context, actorID, id uuid.UUID) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != model.InvoiceStatusIssued {
		return apperrors.Conflict("only issued invoices can be paid", nil)
	}

	now := time.Now()
	inv.Status = model.InvoiceStatusPaid
	inv.PaidAt = &now
	if err := s.repo.Update(ctx, inv); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityInvoice,
		EntityID:   inv.ID,
		Metadata:   map[string]interface{}{"status": inv.Status},
	})
	return nil
}

func (s *service) CancelInvoice(ctx context.Context, actorID, id uuid.UUID) error {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == model.InvoiceStatusPaid {
		return apperrors.Conflict("paid invoices cannot be cancelled", nil)
	}
	if inv.Status == model.InvoiceStatusCancelled {
		return apperrors.Conflict("invoice is already cancelled", nil)
	}

	inv.Status = model.InvoiceStatusCancelled
	if err := s.repo.Update(ctx, inv); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityInvoice,
		EntityID:   inv.ID,
		Metadata:   map[string]interface{}{"status": inv.Status},
	})
	return nil
}
