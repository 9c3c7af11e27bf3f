package model

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice totals are derived from line items; amounts are stored in
// cents and never negative.
type Invoice struct {
	Base
	PatientID   uuid.UUID     `db:"patient_id" json:"patient_id"`
	EncounterID *uuid.UUID    `db:"encounter_id" json:"encounter_id,omitempty"`
	Status      InvoiceStatus `db:"status" json:"status"`
	TotalCents  int64         `db:"total_cents" json:"total_cents"`
	IssuedAt    *time.Time    `db:"issued_at" json:"issued_at,omitempty"`
	PaidAt      *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	Items       []InvoiceItem `db:"-" json:"items,omitempty"`
}

type InvoiceItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	InvoiceID   uuid.UUID `db:"invoice_id" json:"invoice_id"`
	Description string    `db:"description" json:"description"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitCents   int64     `db:"unit_cents" json:"unit_cents"`
	AmountCents int64     `db:"amount_cents" json:"amount_cents"`
}

type CreateInvoiceRequest struct {
	PatientID   uuid.UUID              `json:"patient_id" binding:"required"`
	EncounterID *uuid.UUID             `json:"encounter_id"`
	Items       []CreateInvoiceItemReq `json:"items" binding:"required,min=1,dive"`
}

type CreateInvoiceItemReq struct {
	Description string `json:"description" binding:"required,max=500"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitCents   int64  `json:"unit_cents" binding:"required,gte=0"`
}

type InvoiceFilters struct {
	PatientID uuid.UUID     `form:"patient_id"`
	Status    InvoiceStatus `form:"status"`
}
