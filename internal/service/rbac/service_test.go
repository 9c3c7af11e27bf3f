package rbac

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

type fakeRBACRepo struct {
	roles           map[uuid.UUID]*model.Role
	rolesByName     map[string]*model.Role
	permissions     map[uuid.UUID]*model.Permission
	rolePerms       map[uuid.UUID][]*model.Permission
	userRoles       map[uuid.UUID][]*model.Role
	roleNameLookups int
}

func newFakeRBACRepo() *fakeRBACRepo {
	return &fakeRBACRepo{
		roles:       make(map[uuid.UUID]*model.Role),
		rolesByName: make(map[string]*model.Role),
		permissions: make(map[uuid.UUID]*model.Permission),
		rolePerms:   make(map[uuid.UUID][]*model.Permission),
		userRoles:   make(map[uuid.UUID][]*model.Role),
	}
}

func (r *fakeRBACRepo) addRole(name string, perms ...string) *model.Role {
	role := &model.Role{Base: model.Base{ID: uuid.New()}, Name: name}
	r.roles[role.ID] = role
	r.rolesByName[name] = role
	for _, p := range perms {
		perm := &model.Permission{Base: model.Base{ID: uuid.New()}, Name: p}
		r.permissions[perm.ID] = perm
		r.rolePerms[role.ID] = append(r.rolePerms[role.ID], perm)
	}
	return role
}

func (r *fakeRBACRepo) CreateRole(_ context.Context, role *model.Role) error {
	r.roles[role.ID] = role
	r.rolesByName[role.Name] = role
	return nil
}

func (r *fakeRBACRepo) GetRole(_ context.Context, id uuid.UUID) (*model.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, apperrors.NotFound("role", nil)
	}
	return role, nil
}

func (r *fakeRBACRepo) GetRoleByName(_ context.Context, name string) (*model.Role, error) {
	r.roleNameLookups++
	role, ok := r.rolesByName[name]
	if !ok {
		return nil, apperrors.NotFound("role", nil)
	}
	return role, nil
}

func (r *fakeRBACRepo) UpdateRole(_ context.Context, _ *model.Role) error { return nil }

func (r *fakeRBACRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	role, ok := r.roles[id]
	if !ok {
		return apperrors.NotFound("role", nil)
	}
	delete(r.rolesByName, role.Name)
	delete(r.roles, id)
	return nil
}

func (r *fakeRBACRepo) ListRoles(_ context.Context) ([]*model.Role, error) {
	var out []*model.Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *fakeRBACRepo) CreatePermission(_ context.Context, perm *model.Permission) error {
	r.permissions[perm.ID] = perm
	return nil
}

func (r *fakeRBACRepo) GetPermission(_ context.Context, id uuid.UUID) (*model.Permission, error) {
	perm, ok := r.permissions[id]
	if !ok {
		return nil, apperrors.NotFound("permission", nil)
	}
	return perm, nil
}

func (r *fakeRBACRepo) DeletePermission(_ context.Context, id uuid.UUID) error {
	delete(r.permissions, id)
	return nil
}

func (r *fakeRBACRepo) ListPermissions(_ context.Context) ([]*model.Permission, error) {
	var out []*model.Permission
	for _, perm := range r.permissions {
		out = append(out, perm)
	}
	return out, nil
}

func (r *fakeRBACRepo) AssignPermissionToRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	perm, ok := r.permissions[permissionID]
	if !ok {
		return apperrors.NotFound("permission", nil)
	}
	r.rolePerms[roleID] = append(r.rolePerms[roleID], perm)
	return nil
}

func (r *fakeRBACRepo) RemovePermissionFromRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	perms := r.rolePerms[roleID]
	for i, p := range perms {
		if p.ID == permissionID {
			r.rolePerms[roleID] = append(perms[:i], perms[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("permission", nil)
}

func (r *fakeRBACRepo) GetRolePermissions(_ context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	return r.rolePerms[roleID], nil
}

func (r *fakeRBACRepo) AssignRoleToUser(_ context.Context, userID, roleID uuid.UUID) error {
	role, ok := r.roles[roleID]
	if !ok {
		return apperrors.NotFound("role", nil)
	}
	r.userRoles[userID] = append(r.userRoles[userID], role)
	return nil
}

func (r *fakeRBACRepo) RemoveRoleFromUser(_ context.Context, userID, roleID uuid.UUID) error {
	roles := r.userRoles[userID]
	for i, role := range roles {
		if role.ID == roleID {
			r.userRoles[userID] = append(roles[:i], roles[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("role", nil)
}

func (r *fakeRBACRepo) GetUserRoles(_ context.Context, userID uuid.UUID) ([]*model.Role, error) {
	return r.userRoles[userID], nil
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

func newTestService(repo *fakeRBACRepo) Service {
	log := logger.NewLogger(&logger.Config{Output: io.Discard})
	return NewService(repo, noopAudit{}, nil, log)
}

func TestAuthorizeMatrixRoles(t *testing.T) {
	svc := newTestService(newFakeRBACRepo())
	ctx := context.Background()

	tests := []struct {
		role       string
		permission string
		allowed    bool
	}{
		{model.RoleAdmin, "user:create", true},
		{model.RoleAdmin, "audit:read", true},
		{model.RoleDoctor, "patient:read", true},
		{model.RoleDoctor, "vitals:record", true},
		{model.RoleReceptionist, "appointment:create", true},
		{model.RoleReceptionist, "appointment:cancel", true},
		{model.RoleNurse, "appointment:read", true},
		{model.RolePharmacist, "medication:dispense", true},
		{model.RoleLabTech, "lab:result_entry", true},

		// Not granted by the matrix
		{model.RoleDoctor, "appointment:create", false},
		{model.RoleNurse, "user:delete", false},
		{model.RoleReceptionist, "encounter:write", false},
		{model.RoleLabTech, "medication:dispense", false},
		{model.RoleAdmin, "vitals:record", false},
	}

	for _, tt := range tests {
		err := svc.Authorize(ctx, tt.role, tt.permission)
		if tt.allowed {
			assert.NoError(t, err, "%s should have %s", tt.role, tt.permission)
		} else {
			assert.Error(t, err, "%s should not have %s", tt.role, tt.permission)
		}
	}
}

func TestAuthorizeFailsClosed(t *testing.T) {
	svc := newTestService(newFakeRBACRepo())
	ctx := context.Background()

	// Unknown role
	err := svc.Authorize(ctx, "superuser", "patient:read")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)

	// Known role, unknown permission
	err = svc.Authorize(ctx, model.RoleDoctor, "reactor:launch")
	assert.Error(t, err)

	// Empty inputs
	assert.Error(t, svc.Authorize(ctx, "", "patient:read"))
	assert.Error(t, svc.Authorize(ctx, model.RoleDoctor, ""))
	assert.Error(t, svc.Authorize(ctx, "", ""))
}

func TestAuthorizeCustomRole(t *testing.T) {
	repo := newFakeRBACRepo()
	repo.addRole("triage", "patient:read", "vitals:record")
	svc := newTestService(repo)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "triage", "vitals:record"))
	assert.Error(t, svc.Authorize(ctx, "triage", "patient:write"))
}

func TestAuthorizeCachesCustomRoleLookups(t *testing.T) {
	repo := newFakeRBACRepo()
	repo.addRole("triage", "patient:read")
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "triage", "patient:read"))
	require.NoError(t, svc.Authorize(ctx, "triage", "patient:read"))

	assert.Equal(t, 1, repo.roleNameLookups)
}

func TestGetUserPermissionsUnion(t *testing.T) {
	repo := newFakeRBACRepo()
	role := repo.addRole("billing_clerk", "invoice:create", "patient:read")
	svc := newTestService(repo)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, repo.AssignRoleToUser(ctx, userID, role.ID))

	perms, err := svc.GetUserPermissions(ctx, userID, model.RoleNurse)
	require.NoError(t, err)

	assert.Contains(t, perms, "vitals:record")   // from the nurse matrix
	assert.Contains(t, perms, "invoice:create")  // from the assigned role
	assert.NotContains(t, perms, "user:delete")

	// patient:read appears in both sources exactly once
	count := 0
	for _, p := range perms {
		if p == "patient:read" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestHasPermission(t *testing.T) {
	svc := newTestService(newFakeRBACRepo())
	ctx := context.Background()

	ok, err := svc.HasPermission(ctx, uuid.New(), model.RoleDoctor, "patient:read")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, uuid.New(), model.RoleDoctor, "user:delete")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionThroughAssignedRole(t *testing.T) {
	repo := newFakeRBACRepo()
	role := repo.addRole("triage", "vitals:record")
	svc := newTestService(repo)
	ctx := context.Background()

	userID := uuid.New()

	// The receptionist matrix carries no vitals:record.
	ok, err := svc.HasPermission(ctx, userID, model.RoleReceptionist, "vitals:record")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.AssignRoleToUser(ctx, uuid.New(), userID, role.ID))

	ok, err = svc.HasPermission(ctx, userID, model.RoleReceptionist, "vitals:record")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateRoleRejectsReservedNames(t *testing.T) {
	svc := newTestService(newFakeRBACRepo())
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, uuid.New(), &model.CreateRoleRequest{Name: model.RoleAdmin})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	role, err := svc.CreateRole(ctx, uuid.New(), &model.CreateRoleRequest{Name: "triage"})
	require.NoError(t, err)
	assert.Equal(t, "triage", role.Name)
}

func TestDeleteRoleProtectsSystemRoles(t *testing.T) {
	repo := newFakeRBACRepo()
	role := repo.addRole("legacy")
	role.IsSystemRole = true
	svc := newTestService(repo)

	err := svc.DeleteRole(context.Background(), uuid.New(), role.ID)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestAssignPermissionInvalidatesCache(t *testing.T) {
	repo := newFakeRBACRepo()
	role := repo.addRole("triage", "patient:read")
	perm := &model.Permission{Base: model.Base{ID: uuid.New()}, Name: "vitals:record"}
	repo.permissions[perm.ID] = perm

	svc := newTestService(repo)
	ctx := context.Background()

	require.Error(t, svc.Authorize(ctx, "triage", "vitals:record"))

	require.NoError(t, svc.AssignPermissionToRole(ctx, uuid.New(), role.ID, perm.ID))

	assert.NoError(t, svc.Authorize(ctx, "triage", "vitals:record"))
}
