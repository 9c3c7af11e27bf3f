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

type inventoryRepository struct {
	db *sqlx.DB
}

func NewInventoryRepository(db *sqlx.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

const inventoryColumns = `
	id, name, sku, category, quantity, unit_cents, reorder_level,
	expiry_date, created_at, updated_at, deleted_at
`

func (r *inventoryRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			id, name, sku, category, quantity, unit_cents, reorder_level,
			expiry_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.SKU, item.Category, item.Quantity,
		item.UnitCents, item.ReorderLevel, item.ExpiryDate,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inventory item: %w", err)
	}
	return nil
}

func (r *inventoryRepository) Get(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1 AND deleted_at IS NULL`

	var item model.InventoryItem
	err := r.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("inventory item", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return &item, nil
}

func (r *inventoryRepository) GetBySKU(ctx context.Context, sku string) (*model.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE sku = $1 AND deleted_at IS NULL`

	var item model.InventoryItem
	err := r.db.GetContext(ctx, &item, query, sku)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("inventory item", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item by SKU: %w", err)
	}
	return &item, nil
}

func (r *inventoryRepository) Update(ctx context.Context, item *model.InventoryItem) error {
	query := `
		UPDATE inventory_items
		SET name = $1, category = $2, unit_cents = $3, reorder_level = $4,
		    expiry_date = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`
	item.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		item.Name, item.Category, item.UnitCents, item.ReorderLevel,
		item.ExpiryDate, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update inventory item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("inventory item", nil)
	}

	return nil
}

func (r *inventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE inventory_items SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("inventory item", nil)
	}

	return nil
}

func (r *inventoryRepository) List(ctx context.Context, filters *model.InventoryFilters) ([]*model.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE deleted_at IS NULL`
	args := []interface{}{}
	argCount := 1

	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argCount)
		args = append(args, filters.Category)
		argCount++
	}

	if filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR sku ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.SearchTerm+"%")
		argCount++
	}

	if filters.LowStock {
		query += " AND quantity <= reorder_level"
	}

	query += " ORDER BY name"

	var items []*model.InventoryItem
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory items: %w", err)
	}
	return items, nil
}

// AdjustQuantity applies the delta in a single statement; the quantity
// check in the WHERE clause makes concurrent adjustments safe without
// row locks.
func (r *inventoryRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	query := `
		UPDATE inventory_items
		SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL AND quantity + $1 >= 0
		RETURNING quantity
	`
	var newQuantity int64
	err := r.db.GetContext(ctx, &newQuantity, query, delta, time.Now(), id)
	if err == sql.ErrNoRows {
		return 0, apperrors.Conflict("insufficient stock", nil)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust quantity: %w", err)
	}
	return newQuantity, nil
}
