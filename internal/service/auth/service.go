package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/email"
	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/internal/service/audit"
	"github.com/medflow/medflow-api/internal/service/rbac"
	pkgauth "github.com/medflow/medflow-api/pkg/auth"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
	"github.com/medflow/medflow-api/pkg/logger"
	"github.com/medflow/medflow-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
	resetTokenExpiry = time.Hour
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, emailAddr string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	jwt       pkgauth.JWTService
	hasher    security.PasswordHasher
	rbac      rbac.Service
	audit     audit.Service
	email     email.Service
	logger    *logger.Logger
}

func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	jwt pkgauth.JWTService,
	hasher security.PasswordHasher,
	rbacSvc rbac.Service,
	auditSvc audit.Service,
	emailSvc email.Service,
	logger *logger.Logger,
) Service {
	return &service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwt:       jwt,
		hasher:    hasher,
		rbac:      rbacSvc,
		audit:     auditSvc,
		email:     emailSvc,
		logger:    logger,
	}
}

func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("email already registered", nil)
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

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     user.ID,
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityUser,
		EntityID:   user.ID,
		Metadata:   map[string]interface{}{"role": user.Role},
	})
	return user, nil
}

// Login verifies credentials with account lockout: five failures lock
// the account for fifteen minutes.
func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same error as a bad password so callers cannot probe for
		// registered addresses.
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	if s.isLockedOut(user) {
		s.audit.Log(ctx, &audit.LogOptions{
			UserID:     user.ID,
			Action:     model.AuditActionDenied,
			EntityType: model.AuditEntityUser,
			EntityID:   user.ID,
			Metadata:   map[string]interface{}{"reason": "account locked"},
		})
		return nil, apperrors.Unauthorized("account temporarily locked", nil)
	}

	if user.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("account is not active", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		user.LoginAttempts++
		user.LastLoginAttempt = time.Now()
		if uerr := s.userRepo.Update(ctx, user); uerr != nil {
			s.logger.Error(uerr, "failed to record login attempt")
		}
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	now := time.Now()
	user.LoginAttempts = 0
	user.LastLoginAttempt = now
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error(err, "failed to record login")
	}

	perms, err := s.rbac.GetUserPermissions(ctx, user.ID, user.Role)
	if err != nil {
		s.logger.Error(err, "failed to resolve permissions for token")
		perms = nil
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role, perms)
	if err != nil {
		return nil, apperrors.Internal("failed to issue token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("failed to issue refresh token", err)
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     user.ID,
		Action:     model.AuditActionLogin,
		EntityType: model.AuditEntityUser,
		EntityID:   user.ID,
	})

	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *service) isLockedOut(user *model.User) bool {
	if user.LoginAttempts < maxLoginAttempts {
		return false
	}
	return time.Since(user.LastLoginAttempt) < lockoutDuration
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	revoked, err := s.tokenRepo.IsRefreshTokenRevoked(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.Internal("failed to check token", err)
	}
	if revoked {
		return nil, apperrors.Unauthorized("invalid refresh token", nil)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}
	if user.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("account is not active", nil)
	}

	perms, err := s.rbac.GetUserPermissions(ctx, user.ID, user.Role)
	if err != nil {
		perms = nil
	}

	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, user.Role, perms)
	if err != nil {
		return nil, apperrors.Internal("failed to issue token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("failed to issue refresh token", err)
	}

	// Rotation: the presented token must not stay usable alongside the
	// one replacing it.
	if err := s.tokenRepo.RevokeRefreshToken(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return nil, apperrors.Internal("failed to rotate refresh token", err)
	}

	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the refresh token. Access tokens stay valid until
// expiry; the short access lifetime bounds the exposure.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return apperrors.Unauthorized("invalid refresh token", err)
	}

	if err := s.tokenRepo.RevokeRefreshToken(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return err
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     claims.UserID,
		Action:     model.AuditActionLogout,
		EntityType: model.AuditEntityUser,
		EntityID:   claims.UserID,
	})
	return nil
}

func (s *service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		// Report success regardless so the endpoint cannot be used to
		// enumerate accounts.
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return apperrors.Internal("failed to generate reset token", err)
	}

	if err := s.tokenRepo.StoreResetToken(ctx, user.ID, token, time.Now().Add(resetTokenExpiry)); err != nil {
		return err
	}

	if err := s.email.SendPasswordReset(user.Email, token); err != nil {
		s.logger.Error(err, "failed to send password reset mail")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokenRepo.ValidateResetToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Validation(err.Error(), err)
	}

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.LoginAttempts = 0
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.tokenRepo.InvalidateToken(ctx, token); err != nil {
		s.logger.Error(err, "failed to invalidate reset token")
	}

	s.audit.Log(ctx, &audit.LogOptions{
		UserID:     userID,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityUser,
		EntityID:   userID,
		Metadata:   map[string]interface{}{"op": "password_reset"},
	})
	return nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
