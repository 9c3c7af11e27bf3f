package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
)

type rbacRepository struct {
	db *sqlx.DB
}

func NewRBACRepository(db *sqlx.DB) repository.RBACRepository {
	return &rbacRepository{db: db}
}

func (r *rbacRepository) CreateRole(ctx context.Context, role *model.Role) error {
	query := `
		INSERT INTO roles (id, name, description, is_system_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		role.ID, role.Name, role.Description, role.IsSystemRole,
		role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role,
		`SELECT id, name, description, is_system_role, created_at, updated_at, deleted_at
		 FROM roles WHERE id = $1 AND deleted_at IS NULL`, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("role", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.GetContext(ctx, &role,
		`SELECT id, name, description, is_system_role, created_at, updated_at, deleted_at
		 FROM roles WHERE name = $1 AND deleted_at IS NULL`, name)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("role", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE roles SET name = $1, description = $2, updated_at = $3
		 WHERE id = $4 AND deleted_at IS NULL`,
		role.Name, role.Description, role.UpdatedAt, role.ID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("role", nil)
	}
	return nil
}

func (r *rbacRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove role assignments: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove role permissions: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("role", nil)
	}
	return nil
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	var roles []*model.Role
	err := r.db.SelectContext(ctx, &roles,
		`SELECT id, name, description, is_system_role, created_at, updated_at, deleted_at
		 FROM roles WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *rbacRepository) CreatePermission(ctx context.Context, perm *model.Permission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO permissions (id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		perm.ID, perm.Name, perm.Description, perm.CreatedAt, perm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetPermission(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	var perm model.Permission
	err := r.db.GetContext(ctx, &perm,
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM permissions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("permission", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

func (r *rbacRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to remove permission assignments: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("permission", nil)
	}
	return nil
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	var perms []*model.Permission
	err := r.db.SelectContext(ctx, &perms,
		`SELECT id, name, description, created_at, updated_at, deleted_at
		 FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (r *rbacRepository) AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role_permissions (role_id, permission_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to assign permission to role: %w", err)
	}
	return nil
}

func (r *rbacRepository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`,
		roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to remove permission from role: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	var perms []*model.Permission
	err := r.db.SelectContext(ctx, &perms,
		`SELECT p.id, p.name, p.description, p.created_at, p.updated_at, p.deleted_at
		 FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return perms, nil
}

func (r *rbacRepository) AssignRoleToUser(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}
	return nil
}

func (r *rbacRepository) RemoveRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to remove role from user: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error) {
	var roles []*model.Role
	err := r.db.SelectContext(ctx, &roles,
		`SELECT r.id, r.name, r.description, r.is_system_role, r.created_at, r.updated_at, r.deleted_at
		 FROM roles r
		 JOIN user_roles ur ON ur.role_id = r.id
		 WHERE ur.user_id = $1 AND r.deleted_at IS NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}
