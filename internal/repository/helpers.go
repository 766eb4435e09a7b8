package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"arkham-nexus/internal/domain/outbox"
	"arkham-nexus/pkg/apperrors"
)

// translateError maps driver errors onto the application taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrAlreadyExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperrors.ErrAlreadyExists
	}
	return err
}

// stageEvent writes an outbox row inside the caller's transaction so
// the event commits or rolls back with the state change it describes.
func stageEvent(tx *gorm.DB, eventType, aggregateType, aggregateID string, groupID uuid.UUID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	row := outbox.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		GroupID:       groupID,
		Payload:       data,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	return tx.Create(&row).Error
}
