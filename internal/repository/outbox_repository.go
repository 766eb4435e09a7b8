package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arkham-nexus/internal/domain/outbox"
	"arkham-nexus/pkg/apperrors"
)

type PostgresOutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

func (r *PostgresOutboxRepository) Create(ctx context.Context, e *outbox.OutboxEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(e).Error)
}

func (r *PostgresOutboxRepository) GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error) {
	var events []outbox.OutboxEvent
	q := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, translateError(err)
	}
	return events, nil
}

func (r *PostgresOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_at":  time.Now(),
			"error_message": "",
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, errorMessage string) error {
	res := r.db.WithContext(ctx).
		Model(&outbox.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"next_retry_at": nextRetryAt,
			"error_message": errorMessage,
		})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
