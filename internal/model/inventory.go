package model

import (
	"time"
)

// InventoryItem quantity is never negative; adjustments that would go
// below zero are rejected.
type InventoryItem struct {
	Base
	Name         string     `db:"name" json:"name"`
	SKU          string     `db:"sku" json:"sku"`
	Category     string     `db:"category" json:"category"`
	Quantity     int64      `db:"quantity" json:"quantity"`
	UnitCents    int64      `db:"unit_cents" json:"unit_cents"`
	ReorderLevel int64      `db:"reorder_level" json:"reorder_level"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
}

type CreateInventoryItemRequest struct {
	Name         string     `json:"name" binding:"required,max=200"`
	SKU          string     `json:"sku" binding:"required,max=50"`
	Category     string     `json:"category" binding:"required"`
	Quantity     int64      `json:"quantity" binding:"gte=0"`
	UnitCents    int64      `json:"unit_cents" binding:"gte=0"`
	ReorderLevel int64      `json:"reorder_level" binding:"gte=0"`
	ExpiryDate   *time.Time `json:"expiry_date"`
}

// AdjustStockRequest changes quantity by a signed delta.
type AdjustStockRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required,max=500"`
}

type InventoryFilters struct {
	Category   string `form:"category"`
	SearchTerm string `form:"search_term"`
	LowStock   bool   `form:"low_stock"`
}
