package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	MRNExists(ctx context.Context, mrn string) (bool, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, apt *model.Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// CheckConflict reports whether any non-cancelled, non-completed
	// appointment for the doctor overlaps the half-open interval
	// [start, end). excludeID skips one appointment (reschedules).
	CheckConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	GetDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
}

type RBACRepository interface {
	CreateRole(ctx context.Context, role *model.Role) error
	GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
	GetRoleByName(ctx context.Context, name string) (*model.Role, error)
	UpdateRole(ctx context.Context, role *model.Role) error
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context) ([]*model.Role, error)

	CreatePermission(ctx context.Context, perm *model.Permission) error
	GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error
	ListPermissions(ctx context.Context) ([]*model.Permission, error)

	AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error
	GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error)

	AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error
	GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error)
}

type EncounterRepository interface {
	Create(ctx context.Context, enc *model.Encounter) error
	Get(ctx context.Context, id uuid.UUID) (*model.Encounter, error)
	Update(ctx context.Context, enc *model.Encounter) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*model.Encounter, error)
	CreateDiagnosis(ctx context.Context, d *model.Diagnosis) error
	ListActiveDiagnoses(ctx context.Context, patientID uuid.UUID) ([]*model.Diagnosis, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	Update(ctx context.Context, inv *model.Invoice) error
	List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error)
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoiceItem, error)
}

type InventoryRepository interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	Get(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error)
	GetBySKU(ctx context.Context, sku string) (*model.InventoryItem, error)
	Update(ctx context.Context, item *model.InventoryItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.InventoryFilters) ([]*model.InventoryItem, error)
	// AdjustQuantity atomically applies delta and fails if the result
	// would be negative.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, log *model.AuditLog) error
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	GetStats(ctx context.Context, from, to time.Time) (*model.AuditStats, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
	CountPending(ctx context.Context) (int64, error)
}

type TokenRepository interface {
	StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
	ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error)
	InvalidateToken(ctx context.Context, token string) error
	// RevokeRefreshToken records a refresh token as unusable until it
	// would have expired anyway.
	RevokeRefreshToken(ctx context.Context, token string, expiresAt time.Time) error
	IsRefreshTokenRevoked(ctx context.Context, token string) (bool, error)
}
