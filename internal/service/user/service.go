package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/security"
	"github.com/medflow/medflow-api/pkg/validator"
)

type Service interface {
	CreateUser(ctx context.Context, actorID uuid.UUID, req *model.CreateUserRequest) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	// UpdateUser applies profile changes. Role is not among them; a
	// user's role is fixed at creation.
	UpdateUser(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	DeleteUser(ctx context.Context, actorID, id uuid.UUID) error
	ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
}

type service struct {
	repo     repository.UserRepository
	hasher   security.PasswordHasher
	audit    audit.Service
	validate *validator.Validator
	logger   *logger.Logger
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, auditSvc audit.Service, logger *logger.Logger) Service {
	return &service{repo: repo, hasher: hasher, audit: auditSvc, validate: validator.New(), logger: logger}
}

func (s *service) CreateUser(ctx context.Context, actorID uuid.UUID, req *model.CreateUserRequest) (*model.User, error) {
	// Re-checked here so callers outside the HTTP layer get the same rules.
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation(err.Error(), err)
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("email already in use", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation(err.Error(), err)
	}

	now := time.Now()
	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       model.UserStatusActive,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityUser,
		EntityID:   user.ID,
		Metadata:   map[string]interface{}{"role": user.Role},
	})
	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) UpdateUser(ctx context.Context, actorID, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, *req.Email); err == nil {
			return nil, apperrors.Conflict("email already in use", nil)
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityUser,
		EntityID:   user.ID,
		Changes:    req,
	})
	return user, nil
}

func (s *service) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return apperrors.BadRequest("cannot delete own account", nil)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     actorID,
		Action:     model.AuditActionDelete,
		EntityType: model.AuditEntityUser,
		EntityID:   id,
	})
	return nil
}

func (s *service) ListUsers(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	return s.repo.List(ctx, filters)
}
