package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Changes    json.RawMessage `json:"changes" db:"changes"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate = "create"
	AuditActionRead   = "read"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"
	AuditActionDenied = "access_denied"

	// Entity types
	AuditEntityUser        = "user"
	AuditEntityPatient     = "patient"
	AuditEntityEncounter   = "encounter"
	AuditEntityAppointment = "appointment"
	AuditEntityInvoice     = "invoice"
	AuditEntityInventory   = "inventory_item"
	AuditEntityRole        = "role"
	AuditEntityPermission  = "permission"
)

type AuditStats struct {
	TotalLogs    int64          `json:"total_logs"`
	ActionCounts map[string]int `json:"action_counts"`
	EntityCounts map[string]int `json:"entity_counts"`
	UserActivity map[string]int `json:"user_activity"`
}
