package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/pkg/logger"
)

// LogOptions describes a single audit entry.
type LogOptions struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Changes    interface{}
	Metadata   interface{}
	IPAddress  string
	UserAgent  string
}

type Service interface {
	Log(ctx context.Context, opts *LogOptions) error
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	GetStats(ctx context.Context, from, to time.Time) (*model.AuditStats, error)
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, logger *logger.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// Log records an audit entry. Failures are logged but never propagated:
// an audit write must not fail the operation it describes.
func (s *service) Log(ctx context.Context, opts *LogOptions) error {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     opts.UserID,
		Action:     opts.Action,
		EntityType: opts.EntityType,
		EntityID:   opts.EntityID,
		IPAddress:  opts.IPAddress,
		UserAgent:  opts.UserAgent,
		CreatedAt:  time.Now(),
	}

	if opts.Changes != nil {
		data, err := json.Marshal(opts.Changes)
		if err != nil {
			s.logger.Error(err, "failed to marshal audit changes")
		} else {
			entry.Changes = data
		}
	}

	if opts.Metadata != nil {
		data, err := json.Marshal(opts.Metadata)
		if err != nil {
			s.logger.Error(err, "failed to marshal audit metadata")
		} else {
			entry.Metadata = data
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write audit log", map[string]interface{}{
			"action":      opts.Action,
			"entity_type": opts.EntityType,
		})
	}
	return nil
}

func (s *service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}

func (s *service) GetStats(ctx context.Context, from, to time.Time) (*model.AuditStats, error) {
	return s.repo.GetStats(ctx, from, to)
}

func (s *service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.Cleanup(ctx, time.Now().Add(-retention))
}
