package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/events"
	"arkham-nexus/pkg/apperrors"
)

type PostgresPollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) PollRepository {
	return &PostgresPollRepository{db: db}
}

func (r *PostgresPollRepository) Create(ctx context.Context, p *poll.DatePoll) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Options {
		if p.Options[i].ID == uuid.Nil {
			p.Options[i].ID = uuid.New()
		}
		p.Options[i].PollID = p.ID
	}
	return translateError(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PostgresPollRepository) GetByID(ctx context.Context, id uuid.UUID) (poll.DatePoll, error) {
	var p poll.DatePoll
	err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("datetime ASC")
		}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return poll.DatePoll{}, translateError(err)
	}
	return p, nil
}

// lockOpenPoll loads the poll row under FOR UPDATE and rejects closed
// polls. Vote mutations serialize on this lock.
func lockOpenPoll(tx *gorm.DB, pollID uuid.UUID) (poll.DatePoll, error) {
	var p poll.DatePoll
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", pollID).
		First(&p).Error; err != nil {
		return poll.DatePoll{}, err
	}
	if p.IsClosed {
		return poll.DatePoll{}, apperrors.ErrPollClosed
	}
	return p, nil
}

func (r *PostgresPollRepository) UpsertVote(ctx context.Context, pollID, optionID, userID uuid.UUID, status poll.VoteStatus, comment *string) (poll.DatePollVote, error) {
	var vote poll.DatePollVote
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOpenPoll(tx, pollID); err != nil {
			return err
		}
		var opt poll.DatePollOption
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).First(&opt).Error; err != nil {
			return err
		}

		candidate := poll.DatePollVote{
			ID:       uuid.New(),
			OptionID: optionID,
			UserID:   userID,
			Status:   status,
			Comment:  comment,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "option_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     status,
				"comment":    comment,
				"updated_at": time.Now(),
			}),
		}).Create(&candidate).Error; err != nil {
			return err
		}
		// Re-read so the caller sees the canonical row regardless of
		// whether the insert or the update branch won.
		return tx.Where("option_id = ? AND user_id = ?", optionID, userID).First(&vote).Error
	})
	if err != nil {
		return poll.DatePollVote{}, translateError(err)
	}
	return vote, nil
}

func (r *PostgresPollRepository) DeleteVote(ctx context.Context, pollID, optionID, userID uuid.UUID) error {
	return translateError(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOpenPoll(tx, pollID); err != nil {
			return err
		}
		var opt poll.DatePollOption
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).First(&opt).Error; err != nil {
			return err
		}
		// Withdrawing an absent vote is a no-op.
		return tx.Where("option_id = ? AND user_id = ?", optionID, userID).
			Delete(&poll.DatePollVote{}).Error
	}))
}

func (r *PostgresPollRepository) CreateComment(ctx context.Context, c *poll.DatePollComment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(c).Error)
}

func (r *PostgresPollRepository) ListComments(ctx context.Context, pollID uuid.UUID) ([]poll.DatePollComment, error) {
	var comments []poll.DatePollComment
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translateError(err)
	}
	return comments, nil
}

func (r *PostgresPollRepository) Close(ctx context.Context, pollID uuid.UUID) (poll.DatePoll, bool, error) {
	var p poll.DatePoll
	flipped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&poll.DatePoll{}).
			Where("id = ? AND is_closed = ?", pollID, false).
			Updates(map[string]interface{}{"is_closed": true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected == 1

		if err := tx.Where("id = ?", pollID).First(&p).Error; err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		return stageEvent(tx, events.EventPollClosed, events.AggregatePoll, p.ID.String(), p.GroupID,
			map[string]any{"poll_id": p.ID, "title": p.Title})
	})
	if err != nil {
		return poll.DatePoll{}, false, translateError(err)
	}
	return p, flipped, nil
}

// CloseExpired flips every open poll whose deadline has passed. Each
// flip happens under the is_closed=false guard so concurrent ticks
// never double-emit poll_closed.
func (r *PostgresPollRepository) CloseExpired(ctx context.Context, now time.Time) ([]poll.DatePoll, error) {
	var candidates []poll.DatePoll
	err := r.db.WithContext(ctx).
		Where("is_closed = ? AND deadline IS NOT NULL AND deadline <= ?", false, now).
		Find(&candidates).Error
	if err != nil {
		return nil, translateError(err)
	}

	var closed []poll.DatePoll
	for _, candidate := range candidates {
		p, flipped, err := r.Close(ctx, candidate.ID)
		if err != nil {
			return closed, err
		}
		if flipped {
			closed = append(closed, p)
		}
	}
	return closed, nil
}

func (r *PostgresPollRepository) Confirm(ctx context.Context, pollID, optionID uuid.UUID, defaults ConfirmDefaults) (poll.DatePoll, *schedule.Session, error) {
	var (
		p    poll.DatePoll
		sess *schedule.Session
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", pollID).
			First(&p).Error; err != nil {
			return err
		}

		var opt poll.DatePollOption
		if err := tx.Where("id = ? AND poll_id = ?", optionID, pollID).First(&opt).Error; err != nil {
			return err
		}

		if p.SelectedDate != nil {
			if p.SelectedDate.Equal(opt.Datetime) {
				// Confirming the already-selected option again is a
				// success without side effects.
				if p.SessionID != nil {
					var existing schedule.Session
					if err := tx.Where("id = ?", *p.SessionID).First(&existing).Error; err != nil {
						return err
					}
					sess = &existing
				}
				return nil
			}
			return fmt.Errorf("%w: poll already confirmed for %s", apperrors.ErrConflict, p.SelectedDate)
		}

		switch {
		case p.SessionID != nil:
			var existing schedule.Session
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", *p.SessionID).
				First(&existing).Error; err != nil {
				return err
			}
			if existing.Status.Terminal() {
				return fmt.Errorf("%w: bound session is %s", apperrors.ErrConflict, existing.Status)
			}
			existing.Date = &opt.Datetime
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			sess = &existing

		case p.CreateSessionOnConfirm:
			duration := p.DurationMinutes
			if duration <= 0 {
				duration = defaults.DurationMinutes
			}
			created := schedule.Session{
				ID:              uuid.New(),
				Title:           p.Title,
				Date:            &opt.Datetime,
				DurationMinutes: duration,
				GamemasterID:    p.CreatedByID,
				GroupID:         p.GroupID,
				Status:          schedule.SessionPlanned,
				ShareToken:      uuid.New(),
			}
			// Session first, then the poll back-reference, so no
			// partial state is observable outside the transaction.
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			p.SessionID = &created.ID
			sess = &created
		}

		p.SelectedDate = &opt.Datetime
		p.IsClosed = true
		p.UpdatedAt = defaults.Now
		if err := tx.Save(&p).Error; err != nil {
			return err
		}

		payload := map[string]any{
			"poll_id":       p.ID,
			"option_id":     opt.ID,
			"selected_date": opt.Datetime,
		}
		if sess != nil {
			payload["session_id"] = sess.ID
		}
		return stageEvent(tx, events.EventPollConfirmed, events.AggregatePoll, p.ID.String(), p.GroupID, payload)
	})
	if err != nil {
		return poll.DatePoll{}, nil, translateError(err)
	}
	return p, sess, nil
}

func (r *PostgresPollRepository) Tally(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]poll.TallyCount, error) {
	var options []poll.DatePollOption
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("datetime ASC").
		Find(&options).Error
	if err != nil {
		return nil, translateError(err)
	}

	counts := make(map[uuid.UUID]poll.TallyCount, len(options))
	for _, opt := range options {
		counts[opt.ID] = poll.TallyCount{}
	}

	type row struct {
		OptionID uuid.UUID
		Status   poll.VoteStatus
		Total    int
	}
	var rows []row
	err = r.db.WithContext(ctx).
		Model(&poll.DatePollVote{}).
		Select("date_poll_votes.option_id, date_poll_votes.status, count(*) as total").
		Joins("JOIN date_poll_options ON date_poll_options.id = date_poll_votes.option_id").
		Where("date_poll_options.poll_id = ?", pollID).
		Group("date_poll_votes.option_id, date_poll_votes.status").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	for _, rw := range rows {
		c := counts[rw.OptionID]
		switch rw.Status {
		case poll.VoteAvailable:
			c.Available = rw.Total
		case poll.VoteMaybe:
			c.Maybe = rw.Total
		case poll.VoteUnavailable:
			c.Unavailable = rw.Total
		}
		counts[rw.OptionID] = c
	}
	return counts, nil
}
