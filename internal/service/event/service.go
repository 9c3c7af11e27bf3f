package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
	"github.com/medflow/medflow-api/pkg/logger"
)

// Service stages domain events in the transactional outbox. A worker
// publishes them to the broker afterwards.
type Service interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type service struct {
	repo   repository.OutboxRepository
	logger *logger.Logger
}

func NewService(repo repository.OutboxRepository, logger *logger.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Emit(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to stage event: %w", err)
	}

	s.logger.Debug("event staged", map[string]interface{}{
		"event_type": eventType,
		"event_id":   event.ID,
	})
	return nil
}
