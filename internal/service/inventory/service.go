package inventory

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
	CreateItem(ctx context.Context, actorID uuid.UUID, req *model.CreateInventoryItemRequest) (*model.InventoryItem, error)
	GetItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	ListItems(ctx context.Context, filters *model.InventoryFilters) ([]*model.InventoryItem, error)
	DeleteItem(ctx context.Context, actorID, id uuid.UUID) error
	// AdjustStock applies a signed delta. An adjustment that would take
	// the quantity below zero fails with a conflict.
	AdjustStock(ctx context.Context, actorID, id uuid.UUID, req *model.AdjustStockRequest) (*model.InventoryItem, error)
}

type service struct {
	repo   repository.InventoryRepository
	events event.Service
	audit  audit.Service
	logger *logger.Logger
}

func NewService(repo repository.InventoryRepository, events event.Service, auditSvc audit.Service, logger *logger.Logger) Service {
	return &service{repo: repo, events: events, audit: auditSvc, logger: logger}
}

func (s *service) CreateItem(ctx context.Context, actorID uuid.UUID, req *model.CreateInventoryItemRequest) (*model.InventoryItem, error) {
	if req.Quantity < 0 {
		return nil, apperrors.Validation("quantity cannot be negative", nil)
	}
	if _, err := s.repo.GetBySKU(ctx, req.SKU); err == nil {
		return nil, apperrors.Conflict("SKU already exists", nil)
	}

	now := time.Now()
	item := &model.InventoryItem{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:         req.Name,
		SKU:          req.SKU,
		Category:     req.Category,
		Quantity:     req.Quantity,
		UnitCents:    req.UnitCents,
		ReorderLevel: req.ReorderLevel,
		ExpiryDate:   req.ExpiryDate,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityInventory,
		EntityID:   item.ID,
		Metadata:   map[string]interface{}{"sku": item.SKU},
	})
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) ListItems(ctx context.Context, filters *model.InventoryFilters) ([]*model.InventoryItem, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) DeleteItem(ctx context.Context, actorID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityInventory,
		EntityID:   id,
	})
	return nil
}

func (s *service) AdjustStock(ctx context.Context, actorID, id uuid.UUID, req *model.AdjustStockRequest) (*model.InventoryItem, error) {
	newQuantity, err := s.repo.AdjustQuantity(ctx, id, req.Delta)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityInventory,
		EntityID:   id,
		Metadata: map[string]interface{}{
			"delta":    req.Delta,
			"reason":   req.Reason,
			"quantity": newQuantity,
		},
	})

	if newQuantity <= item.ReorderLevel {
		if err := s.events.Emit(ctx, model.EventInventoryLowStock, map[string]interface{}{
			"item_id":       item.ID,
			"sku":           item.SKU,
			"quantity":      newQuantity,
			"reorder_level": item.ReorderLevel,
		}); err != nil {
			s.logger.Error(err, "failed to stage low stock event")
		}
	}

	return item, nil
}
