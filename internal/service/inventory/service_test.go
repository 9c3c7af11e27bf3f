package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
)

type fakeInventoryRepo struct {
	items map[uuid.UUID]*model.InventoryItem
	bySKU map[string]*model.InventoryItem
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		items: make(map[uuid.UUID]*model.InventoryItem),
		bySKU: make(map[string]*model.InventoryItem),
	}
}

func (r *fakeInventoryRepo) Create(_ context.Context, item *model.InventoryItem) error {
	r.items[item.ID] = item
	r.bySKU[item.SKU] = item
	return nil
}

func (r *fakeInventoryRepo) Get(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("inventory item", nil)
	}
	return item, nil
}

func (r *fakeInventoryRepo) GetBySKU(_ context.Context, sku string) (*model.InventoryItem, error) {
	item, ok := r.bySKU[sku]
	if !ok {
		return nil, apperrors.NotFound("inventory item", nil)
	}
	return item, nil
}

func (r *fakeInventoryRepo) Update(_ context.Context, item *model.InventoryItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeInventoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	item, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("inventory item", nil)
	}
	delete(r.bySKU, item.SKU)
	delete(r.items, id)
	return nil
}

func (r *fakeInventoryRepo) List(_ context.Context, _ *model.InventoryFilters) ([]*model.InventoryItem, error) {
	var out []*model.InventoryItem
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeInventoryRepo) AdjustQuantity(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	item, ok := r.items[id]
	if !ok {
		return 0, apperrors.NotFound("inventory item", nil)
	}
	if item.Quantity+delta < 0 {
		return 0, apperrors.Conflict("insufficient stock", nil)
	}
	item.Quantity += delta
	return item.Quantity, nil
}

type noopAudit struct{}

func (noopAudit) Log(_ context.Context, _ *audit.LogOptions) error { return nil }
func (noopAudit) List(_ context.Context, _ map[string]interface{}) ([]*model.AuditLog, error) {
	return nil, nil
}
func (noopAudit) GetStats(_ context.Context, _, _ time.Time) (*model.AuditStats, error) {
	return nil, nil
}
func (noopAudit) Cleanup(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }

type captureEvents struct {
	emitted []string
}

func (e *captureEvents) Emit(_ context.Context, eventType string, _ interface{}) error {
	e.emitted = append(e.emitted, eventType)
	return nil
}

func newInventoryEnv(t *testing.T) (Service, *captureEvents) {
	t.Helper()

	events := &captureEvents{}
	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	return NewService(newFakeInventoryRepo(), events, noopAudit{}, log), events
}

func createItem(t *testing.T, svc Service, quantity, reorderLevel int64) *model.InventoryItem {
	t.Helper()

	item, err := svc.CreateItem(context.Background(), uuid.New(), &model.CreateInventoryItemRequest{
		Name:         "Saline 0.9% 500ml",
		SKU:          "SAL-500",
		Category:     "fluids",
		Quantity:     quantity,
		UnitCents:    450,
		ReorderLevel: reorderLevel,
	})
	require.NoError(t, err)
	return item
}

func TestCreateItem(t *testing.T) {
	svc, _ := newInventoryEnv(t)
	ctx := context.Background()

	item := createItem(t, svc, 100, 10)
	assert.Equal(t, int64(100), item.Quantity)

	// Duplicate SKU
	_, err := svc.CreateItem(ctx, uuid.New(), &model.CreateInventoryItemRequest{
		Name:     "Saline again",
		SKU:      "SAL-500",
		Category: "fluids",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateItemRejectsNegativeQuantity(t *testing.T) {
	svc, _ := newInventoryEnv(t)

	_, err := svc.CreateItem(context.Background(), uuid.New(), &model.CreateInventoryItemRequest{
		Name:     "Bad stock",
		SKU:      "BAD-1",
		Category: "misc",
		Quantity: -5,
	})
	require.Error(t, err)
}

func TestAdjustStock(t *testing.T) {
	svc, _ := newInventoryEnv(t)
	item := createItem(t, svc, 100, 10)
	ctx := context.Background()

	updated, err := svc.AdjustStock(ctx, uuid.New(), item.ID, &model.AdjustStockRequest{
		Delta:  -30,
		Reason: "ward restock",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), updated.Quantity)
}

func TestAdjustStockNeverGoesNegative(t *testing.T) {
	svc, _ := newInventoryEnv(t)
	item := createItem(t, svc, 10, 2)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, uuid.New(), item.ID, &model.AdjustStockRequest{
		Delta:  -11,
		Reason: "overdraw",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Draining to exactly zero is fine.
	updated, err := svc.AdjustStock(ctx, uuid.New(), item.ID, &model.AdjustStockRequest{
		Delta:  -10,
		Reason: "dispensed",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Quantity)
}

func TestAdjustStockLowStockEvent(t *testing.T) {
	svc, events := newInventoryEnv(t)
	item := createItem(t, svc, 100, 10)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, uuid.New(), item.ID, &model.AdjustStockRequest{
		Delta:  -50,
		Reason: "dispensed",
	})
	require.NoError(t, err)
	assert.Empty(t, events.emitted)

	_, err = svc.AdjustStock(ctx, uuid.New(), item.ID, &model.AdjustStockRequest{
		Delta:  -45,
		Reason: "dispensed",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{model.EventInventoryLowStock}, events.emitted)
}
