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

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create inserts the invoice and its items in one transaction.
func (r *invoiceRepository) Create(ctx context.Context, inv *model.Invoice) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (
			id, patient_id, encounter_id, status, total_cents,
			issued_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		inv.ID, inv.PatientID, inv.EncounterID, inv.Status,
		inv.TotalCents, inv.IssuedAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	for _, item := range inv.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_items (
				id, invoice_id, description, quantity, unit_cents, amount_cents
			) VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, inv.ID, item.Description, item.Quantity,
			item.UnitCents, item.AmountCents,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit invoice: %w", err)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	query := `
		SELECT id, patient_id, encounter_id, status, total_cents,
		       issued_at, paid_at, created_at, updated_at, deleted_at
		FROM invoices
		WHERE id = $1 AND deleted_at IS NULL
	`
	var inv model.Invoice
	err := r.db.GetContext(ctx, &inv, query, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("invoice", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Items = items

	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *model.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $1, total_cents = $2, issued_at = $3, paid_at = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`
	inv.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		inv.Status, inv.TotalCents, inv.IssuedAt, inv.PaidAt,
		inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("invoice", nil)
	}

	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error) {
	query := `
		SELECT id, patient_id, encounter_id, status, total_cents,
		       issued_at, paid_at, created_at, updated_at, deleted_at
		FROM invoices
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var invoices []*model.Invoice
	err := r.db.SelectContext(ctx, &invoices, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT id, invoice_id, description, quantity, unit_cents, amount_cents
		 FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	return items, nil
}
