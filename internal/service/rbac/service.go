package rbac

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/metrics"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

// rolePermissions is the built-in permission matrix. Custom roles stored
// in the database extend it; nothing outside the matrix or the database
// is ever allowed.
var rolePermissions = map[string][]string{
	model.RoleAdmin: {
		"user:read", "user:create", "user:update", "user:delete",
		"role:read", "role:create", "role:update", "role:delete",
		"permission:read", "permission:create", "permission:delete",
		"appointment:read", "invoice:read", "inventory:read", "inventory:write",
		"audit:read", "report:generate", "system:configure",
	},
	model.RoleDoctor: {
		"patient:read", "patient:write", "patient:create",
		"encounter:read", "encounter:write", "encounter:create",
		"diagnosis:read", "diagnosis:write", "diagnosis:create",
		"appointment:read", "appointment:update", "appointment:complete",
		"vitals:record", "medication:prescribe", "lab:order", "imaging:order",
	},
	model.RoleNurse: {
		"patient:read", "patient:write",
		"encounter:read", "encounter:write",
		"appointment:read",
		"vitals:record", "medication:administer",
		"order:read", "order:update_status",
	},
	model.RoleReceptionist: {
		"patient:read", "patient:create", "patient:update_demographics",
		"appointment:read", "appointment:create", "appointment:update",
		"appointment:cancel",
		"invoice:read", "invoice:create",
		"insurance:verify",
	},
	model.RolePharmacist: {
		"patient:read",
		"medication:read", "medication:verify", "medication:dispense",
		"allergy:read",
		"inventory:read", "inventory:adjust",
	},
	model.RoleLabTech: {
		"patient:read", "order:read",
		"lab:read", "lab:write", "lab:result_entry",
		"specimen:track",
	},
}

type Service interface {
	// Authorize checks a role against a permission. Unknown roles and
	// unknown permissions both deny.
	Authorize(ctx context.Context, role, permission string) error
	HasPermission(ctx context.Context, userID uuid.UUID, role, permission string) (bool, error)
	GetPermissionsForRole(ctx context.Context, role string) ([]string, error)
	GetUserPermissions(ctx context.Context, userID uuid.UUID, role string) ([]string, error)

	CreateRole(ctx context.Context, actorID uuid.UUID, req *model.CreateRoleRequest) (*model.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
	DeleteRole(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error
	ListRoles(ctx context.Context) ([]*model.Role, error)

	CreatePermission(ctx context.Context, actorID uuid.UUID, req *model.CreatePermissionRequest) (*model.Permission, error)
	ListPermissions(ctx context.Context) ([]*model.Permission, error)

	AssignPermissionToRole(ctx context.Context, actorID, roleID, permissionID uuid.UUID) error
	RemovePermissionFromRole(ctx context.Context, actorID, roleID, permissionID uuid.UUID) error
	AssignRoleToUser(ctx context.Context, actorID, userID, roleID uuid.UUID) error
	RemoveRoleFromUser(ctx context.Context, actorID, userID, roleID uuid.UUID) error
}

type service struct {
	repo    repository.RBACRepository
	audit   audit.Service
	cache   *gocache.Cache
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(repo repository.RBACRepository, auditSvc audit.Service, m *metrics.Metrics, logger *logger.Logger) Service {
	return &service{
		repo:    repo,
		audit:   auditSvc,
		cache:   gocache.New(cacheTTL, cacheCleanup),
		metrics: m,
		logger:  logger,
	}
}

func (s *service) Authorize(ctx context.Context, role, permission string) error {
	if role == "" || permission == "" {
		s.deny(role, permission)
		return apperrors.Forbidden("permission denied", nil)
	}

	perms, err := s.GetPermissionsForRole(ctx, role)
	if err != nil {
		// Lookup failures deny rather than allow.
		s.deny(role, permission)
		return apperrors.Forbidden("permission denied", err)
	}

	for _, p := range perms {
		if p == permission {
			return nil
		}
	}

	s.deny(role, permission)
	return apperrors.Forbidden("permission denied", nil)
}

func (s *service) deny(role, permission string) {
	if s.metrics != nil {
		s.metrics.AuthorizationDenied.WithLabelValues(role, permission).Inc()
	}
	s.logger.Warn("authorization denied", map[string]interface{}{
		"role":       role,
		"permission": permission,
	})
}

// HasPermission checks the union of the user's primary role and any
// assigned roles. Lookup failures deny.
func (s *service) HasPermission(ctx context.Context, userID uuid.UUID, role, permission string) (bool, error) {
	perms, err := s.GetUserPermissions(ctx, userID, role)
	if err != nil {
		s.deny(role, permission)
		return false, err
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	s.deny(role, permission)
	return false, nil
}

// GetPermissionsForRole resolves a role name to its permission set: the
// built-in matrix for system roles, the database for custom roles.
func (s *service) GetPermissionsForRole(ctx context.Context, role string) ([]string, error) {
	if perms, ok := rolePermissions[role]; ok {
		return perms, nil
	}

	cacheKey := "role:" + role
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	dbRole, err := s.repo.GetRoleByName(ctx, role)
	if err != nil {
		return nil, err
	}

	dbPerms, err := s.repo.GetRolePermissions(ctx, dbRole.ID)
	if err != nil {
		return nil, err
	}

	perms := make([]string, 0, len(dbPerms))
	for _, p := range dbPerms {
		perms = append(perms, p.Name)
	}

	s.cache.Set(cacheKey, perms, cacheTTL)
	return perms, nil
}

// GetUserPermissions returns the union of the user's primary role
// permissions and any roles assigned through user_roles.
func (s *service) GetUserPermissions(ctx context.Context, userID uuid.UUID, role string) ([]string, error) {
	cacheKey := "user:" + userID.String()
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	seen := make(map[string]struct{})
	var perms []string

	add := func(names []string) {
		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			perms = append(perms, n)
		}
	}

	if matrixPerms, ok := rolePermissions[role]; ok {
		add(matrixPerms)
	}

	extraRoles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, r := range extraRoles {
		rolePerms, err := s.GetPermissionsForRole(ctx, r.Name)
		if err != nil {
			return nil, err
		}
		add(rolePerms)
	}

	s.cache.Set(cacheKey, perms, cacheTTL)
	return perms, nil
}

func (s *service) CreateRole(ctx context.Context, actorID uuid.UUID, req *model.CreateRoleRequest) (*model.Role, error) {
	if _, reserved := rolePermissions[req.Name]; reserved {
		return nil, apperrors.Conflict("role name is reserved", nil)
	}

	now := time.Now()
	role := &model.Role{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityRole,
		EntityID:   role.ID,
		Changes:    role,
	})
	return role, nil
}

func (s *service) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return s.repo.GetRole(ctx, id)
}

func (s *service) DeleteRole(ctx context.Context, actorID uuid.UUID, id uuid.UUID) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return apperrors.Forbidden("system roles cannot be deleted", nil)
	}

	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityRole,
		EntityID:   id,
	})
	return nil
}

func (s *service) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.repo.ListRoles(ctx)
}

func (s *service) CreatePermission(ctx context.Context, actorID uuid.UUID, req *model.CreatePermissionRequest) (*model.Permission, error) {
	now := time.Now()
	perm := &model.Permission{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.repo.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityPermission,
		EntityID:   perm.ID,
		Changes:    perm,
	})
	return perm, nil
}

func (s *service) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

func (s *service) AssignPermissionToRole(ctx context.Context, actorID, roleID, permissionID uuid.UUID) error {
	if err := s.repo.AssignPermissionToRole(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.cache.Flush()

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityRole,
		EntityID:   roleID,
		Metadata:   map[string]interface{}{"permission_id": permissionID, "op": "assign"},
	})
	return nil
}

func (s *service) RemovePermissionFromRole(ctx context.Context, actorID, roleID, permissionID uuid.UUID) error {
	if err := s.repo.RemovePermissionFromRole(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.cache.Flush()

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityRole,
		EntityID:   roleID,
		Metadata:   map[string]interface{}{"permission_id": permissionID, "op": "remove"},
	})
	return nil
}

func (s *service) AssignRoleToUser(ctx context.Context, actorID, userID, roleID uuid.UUID) error {
	if err := s.repo.AssignRoleToUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Delete("user:" + userID.String())

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityUser,
		EntityID:   userID,
		Metadata:   map[string]interface{}{"role_id": roleID, "op": "assign"},
	})
	return nil
}

func (s *service) RemoveRoleFromUser(ctx context.Context, actorID, userID, roleID uuid.UUID) error {
	if err := s.repo.RemoveRoleFromUser(ctx, userID, roleID); err != nil {
		return err
	}
	s.cache.Delete("user:" + userID.String())

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityUser,
		EntityID:   userID,
		Metadata:   map[string]interface{}{"role_id": roleID, "op": "remove"},
	})
	return nil
}
