package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medflow/medflow-api/internal/repository"
	apperrors "github.com/medflow/medflow-api/pkg/errors"
)

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	query := `
		INSERT INTO password_reset_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, token, userID, expiry, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID,
		`SELECT user_id FROM password_reset_tokens
		 WHERE token = $1 AND expires_at > $2 AND used_at IS NULL`,
		token, time.Now())
	if err == sql.ErrNoRows {
		return uuid.Nil, apperrors.Unauthorized("invalid or expired reset token", err)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to validate reset token: %w", err)
	}
	return userID, nil
}

func (r *tokenRepository) InvalidateToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used_at = $1 WHERE token = $2`,
		time.Now(), token)
	if err != nil {
		return fmt.Errorf("failed to invalidate reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) RevokeRefreshToken(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO revoked_tokens (token, expires_at, revoked_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, token, expiresAt, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) IsRefreshTokenRevoked(ctx context.Context, token string) (bool, error) {
	var revoked bool
	err := r.db.GetContext(ctx, &revoked,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token)
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return revoked, nil
}
