package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/events"
	"arkham-nexus/pkg/apperrors"
)

type PostgresSeriesRepository struct {
	db *gorm.DB
}

func NewSeriesRepository(db *gorm.DB) SeriesRepository {
	return &PostgresSeriesRepository{db: db}
}

func (r *PostgresSeriesRepository) Create(ctx context.Context, s *schedule.Series) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(s).Error)
}

func (r *PostgresSeriesRepository) GetByID(ctx context.Context, id uuid.UUID) (schedule.Series, error) {
	var s schedule.Series
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		return schedule.Series{}, translateError(err)
	}
	return s, nil
}

func (r *PostgresSeriesRepository) Update(ctx context.Context, s schedule.Series) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Save(&s)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return stageEvent(tx, events.EventSeriesUpdated, events.AggregateSeries, s.ID.String(), s.GroupID,
			map[string]any{"series_id": s.ID, "title": s.Title, "recurrence": s.Recurrence})
	}))
}

func (r *PostgresSeriesRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Select(clause.Associations).Delete(&schedule.Series{ID: id})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PostgresSeriesRepository) ListActive(ctx context.Context) ([]schedule.Series, error) {
	var series []schedule.Series
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND auto_create = ?", true, true).
		Order("created_at ASC").
		Find(&series).Error
	if err != nil {
		return nil, translateError(err)
	}
	return series, nil
}

// CreateOccurrences inserts missing targets. Duplicate inserts resolve
// to the existing row via the (series_id, target_datetime) unique
// constraint, which also makes concurrent callers safe.
func (r *PostgresSeriesRepository) CreateOccurrences(ctx context.Context, seriesID uuid.UUID, targets []time.Time) ([]schedule.Occurrence, error) {
	var created []schedule.Occurrence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groupID uuid.UUID
		if err := tx.Model(&schedule.Series{}).
			Select("group_id").
			Where("id = ?", seriesID).
			Scan(&groupID).Error; err != nil {
			return err
		}
		if groupID == uuid.Nil {
			return apperrors.ErrNotFound
		}

		for _, target := range targets {
			occ, inserted, err := upsertOccurrenceTx(tx, seriesID, target)
			if err != nil {
				return err
			}
			if inserted {
				created = append(created, occ)
			}
		}

		if len(created) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, len(created))
		for i, occ := range created {
			ids[i] = occ.ID
		}
		return stageEvent(tx, events.EventOccurrencesGenerated, events.AggregateSeries, seriesID.String(), groupID,
			map[string]any{"series_id": seriesID, "occurrence_ids": ids})
	})
	if err != nil {
		return nil, translateError(err)
	}
	return created, nil
}

func upsertOccurrenceTx(tx *gorm.DB, seriesID uuid.UUID, target time.Time) (schedule.Occurrence, bool, error) {
	occ := schedule.Occurrence{
		ID:             uuid.New(),
		SeriesID:       seriesID,
		TargetDatetime: target,
		Status:         schedule.OccurrencePlanned,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "series_id"}, {Name: "target_datetime"}},
		DoNothing: true,
	}).Create(&occ)
	if res.Error != nil {
		return schedule.Occurrence{}, false, res.Error
	}
	if res.RowsAffected == 1 {
		return occ, true, nil
	}
	// Insert skipped: look the existing row up.
	var existing schedule.Occurrence
	err := tx.Where("series_id = ? AND target_datetime = ?", seriesID, target).First(&existing).Error
	if err != nil {
		return schedule.Occurrence{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresSeriesRepository) ReconcileOccurrences(ctx context.Context, seriesID uuid.UUID, now time.Time, targets []time.Time) (ReconcileResult, error) {
	var result ReconcileResult
	wanted := make(map[int64]bool, len(targets))
	for _, t := range targets {
		wanted[t.Unix()] = true
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var series schedule.Series
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", seriesID).
			First(&series).Error; err != nil {
			return err
		}

		var future []schedule.Occurrence
		if err := tx.Where("series_id = ? AND target_datetime > ?", seriesID, now).
			Order("target_datetime ASC").
			Find(&future).Error; err != nil {
			return err
		}

		for _, occ := range future {
			if wanted[occ.TargetDatetime.Unix()] {
				continue
			}
			if occ.SessionID != nil {
				// Committed reality: keep it, flag it.
				result.Orphaned = append(result.Orphaned, occ)
				if err := stageEvent(tx, events.EventOccurrenceOrphaned, events.AggregateOccurrence,
					occ.ID.String(), series.GroupID,
					map[string]any{"occurrence_id": occ.ID, "series_id": seriesID, "target_datetime": occ.TargetDatetime}); err != nil {
					return err
				}
				continue
			}
			if occ.Status != schedule.OccurrencePlanned {
				continue
			}
			if err := tx.Delete(&schedule.Occurrence{}, "id = ?", occ.ID).Error; err != nil {
				return err
			}
			result.Removed = append(result.Removed, occ)
		}

		for _, target := range targets {
			if !target.After(now) {
				continue
			}
			occ, inserted, err := upsertOccurrenceTx(tx, seriesID, target)
			if err != nil {
				return err
			}
			if inserted {
				result.Created = append(result.Created, occ)
			}
		}

		if len(result.Created) > 0 {
			ids := make([]uuid.UUID, len(result.Created))
			for i, occ := range result.Created {
				ids[i] = occ.ID
			}
			if err := stageEvent(tx, events.EventOccurrencesGenerated, events.AggregateSeries,
				seriesID.String(), series.GroupID,
				map[string]any{"series_id": seriesID, "occurrence_ids": ids}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ReconcileResult{}, translateError(err)
	}
	return result, nil
}

func (r *PostgresSeriesRepository) GetOccurrenceByID(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error) {
	var occ schedule.Occurrence
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&occ).Error
	if err != nil {
		return schedule.Occurrence{}, translateError(err)
	}
	return occ, nil
}

func (r *PostgresSeriesRepository) ListOccurrences(ctx context.Context, seriesID uuid.UUID, f OccurrenceFilter) ([]schedule.Occurrence, error) {
	q := r.db.WithContext(ctx).Where("series_id = ?", seriesID)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("target_datetime >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("target_datetime <= ?", *f.To)
	}
	var occurrences []schedule.Occurrence
	err := q.Order("target_datetime ASC").Find(&occurrences).Error
	if err != nil {
		return nil, translateError(err)
	}
	return occurrences, nil
}

func (r *PostgresSeriesRepository) CancelOccurrence(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error) {
	var occ schedule.Occurrence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&occ).Error; err != nil {
			return err
		}
		if !occ.Status.CanTransition(schedule.OccurrenceCancelled) {
			return fmt.Errorf("%w: occurrence is %s", apperrors.ErrInvalidTransition, occ.Status)
		}
		occ.Status = schedule.OccurrenceCancelled
		if err := tx.Model(&schedule.Occurrence{}).
			Where("id = ?", id).
			Update("status", schedule.OccurrenceCancelled).Error; err != nil {
			return err
		}
		if occ.SessionID == nil {
			return nil
		}
		// Mirror the cancellation onto the bound session.
		return tx.Model(&schedule.Session{}).
			Where("id = ? AND status NOT IN ?", *occ.SessionID,
				[]schedule.SessionStatus{schedule.SessionCompleted, schedule.SessionCancelled}).
			Update("status", schedule.SessionCancelled).Error
	})
	if err != nil {
		return schedule.Occurrence{}, translateError(err)
	}
	return occ, nil
}

func (r *PostgresSeriesRepository) BindSession(ctx context.Context, occurrenceID, sessionID uuid.UUID) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var occ schedule.Occurrence
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", occurrenceID).
			First(&occ).Error; err != nil {
			return err
		}
		if occ.SessionID != nil {
			return fmt.Errorf("%w: occurrence already bound to a session", apperrors.ErrConflict)
		}
		if err := tx.Model(&schedule.Occurrence{}).
			Where("id = ?", occurrenceID).
			Update("session_id", sessionID).Error; err != nil {
			return err
		}
		res := tx.Model(&schedule.Session{}).
			Where("id = ?", sessionID).
			Update("series_id", occ.SeriesID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	}))
}
