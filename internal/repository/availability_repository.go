package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/events"
)

type PostgresAvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) AvailabilityRepository {
	return &PostgresAvailabilityRepository{db: db}
}

// conflictTarget picks the partial unique index matching the populated
// discriminator. Proposed-date rows are keyed per (user, proposed_date).
func conflictTarget(a *availability.SessionAvailability) clause.OnConflict {
	updates := clause.Assignments(map[string]interface{}{
		"status":     a.Status,
		"comment":    a.Comment,
		"updated_at": time.Now(),
	})
	// TargetWhere must repeat the partial index predicate or Postgres
	// cannot infer the conflict target.
	switch {
	case a.SessionID != nil:
		return clause.OnConflict{
			Columns:     []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "session_id IS NOT NULL"}}},
			DoUpdates:   updates,
		}
	case a.OccurrenceID != nil:
		return clause.OnConflict{
			Columns:     []clause.Column{{Name: "occurrence_id"}, {Name: "user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "occurrence_id IS NOT NULL"}}},
			DoUpdates:   updates,
		}
	default:
		return clause.OnConflict{
			Columns:     []clause.Column{{Name: "proposed_date"}, {Name: "user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "proposed_date IS NOT NULL"}}},
			DoUpdates:   updates,
		}
	}
}

func (r *PostgresAvailabilityRepository) Set(ctx context.Context, a *availability.SessionAvailability, groupID uuid.UUID) error {
	if err := a.ValidateTarget(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(conflictTarget(a)).Create(a).Error; err != nil {
			return err
		}
		// Read the canonical row back; a conflicting insert keeps the
		// original id.
		q := tx.Where("user_id = ?", a.UserID)
		switch {
		case a.SessionID != nil:
			q = q.Where("session_id = ?", *a.SessionID)
		case a.OccurrenceID != nil:
			q = q.Where("occurrence_id = ?", *a.OccurrenceID)
		default:
			q = q.Where("proposed_date = ?", *a.ProposedDate)
		}
		if err := q.First(a).Error; err != nil {
			return err
		}
		return stageEvent(tx, events.EventAvailabilityChanged, events.AggregateAvailability,
			a.ID.String(), groupID,
			map[string]any{"availability_id": a.ID, "user_id": a.UserID, "status": a.Status})
	}))
}

func (r *PostgresAvailabilityRepository) Clear(ctx context.Context, a *availability.SessionAvailability) error {
	if err := a.ValidateTarget(); err != nil {
		return err
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", a.UserID)
	switch {
	case a.SessionID != nil:
		q = q.Where("session_id = ?", *a.SessionID)
	case a.OccurrenceID != nil:
		q = q.Where("occurrence_id = ?", *a.OccurrenceID)
	default:
		q = q.Where("proposed_date = ?", *a.ProposedDate)
	}
	return translateError(q.Delete(&availability.SessionAvailability{}).Error)
}

func (r *PostgresAvailabilityRepository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]availability.SessionAvailability, error) {
	var rows []availability.SessionAvailability
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

func (r *PostgresAvailabilityRepository) ListForOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]availability.SessionAvailability, error) {
	var rows []availability.SessionAvailability
	err := r.db.WithContext(ctx).
		Where("occurrence_id = ?", occurrenceID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}
