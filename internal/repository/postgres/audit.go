package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medflow/medflow-api/internal/model"
	"github.com/medflow/medflow-api/internal/repository"
)

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, user_id, action, entity_type, entity_id, changes,
			metadata, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.UserID, log.Action, log.EntityType, log.EntityID,
		log.Changes, log.Metadata, log.IPAddress, log.UserAgent, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, changes,
		       metadata, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if v, ok := filters["user_id"]; ok {
		query += fmt.Sprintf(" AND user_id = $%d", argCount)
		args = append(args, v)
		argCount++
	}

	if v, ok := filters["action"]; ok {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, v)
		argCount++
	}

	if v, ok := filters["entity_type"]; ok {
		query += fmt.Sprintf(" AND entity_type = $%d", argCount)
		args = append(args, v)
		argCount++
	}

	if v, ok := filters["from"]; ok {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, v)
		argCount++
	}

	if v, ok := filters["to"]; ok {
		query += fmt.Sprintf(" AND created_at < $%d", argCount)
		args = append(args, v)
		argCount++
	}

	query += " ORDER BY created_at DESC LIMIT 500"

	var logs []*model.AuditLog
	err := r.db.SelectContext(ctx, &logs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) GetStats(ctx context.Context, from, to time.Time) (*model.AuditStats, error) {
	stats := &model.AuditStats{
		ActionCounts: make(map[string]int),
		EntityCounts: make(map[string]int),
		UserActivity: make(map[string]int),
	}

	err := r.db.GetContext(ctx, &stats.TotalLogs,
		`SELECT COUNT(*) FROM audit_logs WHERE created_at >= $1 AND created_at < $2`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit logs: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT action, COUNT(*) FROM audit_logs
		 WHERE created_at >= $1 AND created_at < $2 GROUP BY action`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate actions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		stats.ActionCounts[action] = count
	}

	entityRows, err := r.db.QueryxContext(ctx,
		`SELECT entity_type, COUNT(*) FROM audit_logs
		 WHERE created_at >= $1 AND created_at < $2 GROUP BY entity_type`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate entities: %w", err)
	}
	defer entityRows.Close()

	for entityRows.Next() {
		var entity string
		var count int
		if err := entityRows.Scan(&entity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan entity count: %w", err)
		}
		stats.EntityCounts[entity] = count
	}

	userRows, err := r.db.QueryxContext(ctx,
		`SELECT user_id::text, COUNT(*) FROM audit_logs
		 WHERE created_at >= $1 AND created_at < $2 GROUP BY user_id`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate users: %w", err)
	}
	defer userRows.Close()

	for userRows.Next() {
		var userID string
		var count int
		if err := userRows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan user count: %w", err)
		}
		stats.UserActivity[userID] = count
	}

	return stats, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
