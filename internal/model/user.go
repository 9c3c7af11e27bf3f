package model

import (
	"time"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
	UserStatusLocked   = "locked"
)

// System roles. Role is immutable once the user is created; changing it
// requires creating a new user.
const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RolePharmacist   = "pharmacist"
	RoleLabTech      = "lab_tech"
)

// User represents a system user (an authenticated actor)
type User struct {
	Base
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	Password         string     `json:"password,omitempty" db:"-"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Phone            *string    `json:"phone" db:"phone"`
	Role             string     `json:"role" db:"role"`
	Department       *string    `json:"department" db:"department"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at" db:"last_login_at"`
	LoginAttempts    int        `json:"-" db:"login_attempts"`
	LastLoginAttempt time.Time  `json:"-" db:"last_login_attempt"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email" validate:"required,email"`
	Name     string `json:"name" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required,min=12" validate:"required,min=12"`
	Role     string `json:"role" binding:"required,oneof=admin doctor nurse receptionist pharmacist lab_tech" validate:"required,role"`
	Phone    string `json:"phone" validate:"omitempty"`
}

/// UpdateUserRequest represents user update parameters. Role is absent:
// it cannot change after creation.
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Status     *string `json:"status" binding:"omitempty,oneof=active inactive pending locked"`
}

type UserFilters struct {
	Role       string `json:"role" form:"role"`
	Status     string `json:"status" form:"status"`
	SearchTerm string `json:"search_term" form:"search_term"`
}
