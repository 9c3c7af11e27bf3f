package model

import (
	"github.com/google/uuid"
)

// Role is a named permission set. Built-in system roles mirror the
// static matrix in the rbac service; custom roles live in the database.
type Role struct {
	Base
	Name         string `db:"name" json:"name"`
	Description  string `db:"description" json:"description"`
	IsSystemRole bool   `db:"is_system_role" json:"is_system_role"`
}

type Permission struct {
	Base
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
}

type RolePermission struct {
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
}

type UserRole struct {
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	RoleID uuid.UUID `db:"role_id" json:"role_id"`
}

type CreateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
