package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/pkg/apperrors"
)

type PostgresSessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *schedule.Session) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.ShareToken == uuid.Nil {
		s.ShareToken = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(s).Error)
}

func (r *PostgresSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (schedule.Session, error) {
	var s schedule.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		return schedule.Session{}, translateError(err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) GetByShareToken(ctx context.Context, token uuid.UUID) (schedule.Session, error) {
	var s schedule.Session
	err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&s).Error
	if err != nil {
		return schedule.Session{}, translateError(err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) Update(ctx context.Context, s schedule.Session) error {
	res := r.db.WithContext(ctx).Save(&s)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresSessionRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]schedule.Session, error) {
	var sessions []schedule.Session
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("date ASC NULLS LAST, created_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, translateError(err)
	}
	return sessions, nil
}
