package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/recurrence"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

type SeriesService struct {
	seriesRepo  repository.SeriesRepository
	sessionRepo repository.SessionRepository
	groups      *GroupService
	resolver    *recurrence.Resolver
	clock       clock.Clock
}

func NewSeriesService(seriesRepo repository.SeriesRepository, sessionRepo repository.SessionRepository, groups *GroupService, resolver *recurrence.Resolver, clk clock.Clock) *SeriesService {
	return &SeriesService{
		seriesRepo:  seriesRepo,
		sessionRepo: sessionRepo,
		groups:      groups,
		resolver:    resolver,
		clock:       clk,
	}
}

type CreateSeriesInput struct {
	GroupID              uuid.UUID
	Title                string
	Description          *string
	Recurrence           schedule.RecurrenceType
	Weekday              *int
	DayOfMonth           *int
	CustomIntervalDays   *int
	StartTime            string
	DurationMinutes      int
	StartDate            time.Time
	EndDate              *time.Time
	AutoCreate           *bool
	AutoCreateWeeksAhead int
	ScenarioID           *uuid.UUID
}

// UpdateSeriesInput carries a partial update; nil pointers leave the
// field untouched. Clearing an optional discriminator is done by
// changing the recurrence type, not by writing nulls.
type UpdateSeriesInput struct {
	Title                *string
	Description          *string
	Recurrence           *schedule.RecurrenceType
	Weekday              *int
	DayOfMonth           *int
	CustomIntervalDays   *int
	StartTime            *string
	DurationMinutes      *int
	StartDate            *time.Time
	EndDate              *time.Time
	AutoCreate           *bool
	AutoCreateWeeksAhead *int
	IsActive             *bool
}

func (s *SeriesService) Create(ctx context.Context, actorID uuid.UUID, in CreateSeriesInput) (schedule.Series, error) {
	if err := s.groups.RequireOrganizer(ctx, in.GroupID, actorID); err != nil {
		return schedule.Series{}, err
	}
	if in.Title == "" {
		return schedule.Series{}, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if in.StartDate.IsZero() {
		return schedule.Series{}, fmt.Errorf("%w: start_date is required", apperrors.ErrInvalidInput)
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 180
	}
	if in.AutoCreateWeeksAhead <= 0 {
		in.AutoCreateWeeksAhead = 4
	}
	autoCreate := true
	if in.AutoCreate != nil {
		autoCreate = *in.AutoCreate
	}

	series := schedule.Series{
		ID:                   uuid.New(),
		GroupID:              in.GroupID,
		GamemasterID:         actorID,
		ScenarioID:           in.ScenarioID,
		Title:                in.Title,
		Description:          in.Description,
		Recurrence:           in.Recurrence,
		Weekday:              in.Weekday,
		DayOfMonth:           in.DayOfMonth,
		CustomIntervalDays:   in.CustomIntervalDays,
		StartTime:            in.StartTime,
		DurationMinutes:      in.DurationMinutes,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		AutoCreate:           autoCreate,
		AutoCreateWeeksAhead: in.AutoCreateWeeksAhead,
		IsActive:             true,
	}
	if series.Recurrence == "" {
		series.Recurrence = schedule.RecurrenceNone
	}
	if err := s.resolver.ValidateConfig(&series); err != nil {
		return schedule.Series{}, err
	}
	if err := s.seriesRepo.Create(ctx, &series); err != nil {
		return schedule.Series{}, err
	}
	return series, nil
}

func (s *SeriesService) Get(ctx context.Context, actorID, seriesID uuid.UUID) (schedule.Series, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return schedule.Series{}, err
	}
	if err := s.groups.RequireMember(ctx, series.GroupID, actorID); err != nil {
		return schedule.Series{}, err
	}
	return series, nil
}

// Update applies the patch, then reconciles future planned occurrences
// against the new schedule. Occurrences bound to a session survive and
// are reported as orphaned through the event stream.
func (s *SeriesService) Update(ctx context.Context, actorID, seriesID uuid.UUID, in UpdateSeriesInput) (schedule.Series, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return schedule.Series{}, err
	}
	if err := s.groups.RequireOrganizer(ctx, series.GroupID, actorID); err != nil {
		return schedule.Series{}, err
	}

	scheduleChanged := applySeriesPatch(&series, in)
	if err := s.resolver.ValidateConfig(&series); err != nil {
		return schedule.Series{}, err
	}
	if err := s.seriesRepo.Update(ctx, series); err != nil {
		return schedule.Series{}, err
	}

	if scheduleChanged && series.IsActive {
		now := s.clock.Now()
		targets, err := s.resolveWindow(&series, now)
		if err != nil {
			return schedule.Series{}, err
		}
		if _, err := s.seriesRepo.ReconcileOccurrences(ctx, series.ID, now, targets); err != nil {
			return schedule.Series{}, err
		}
	}
	return series, nil
}

func applySeriesPatch(series *schedule.Series, in UpdateSeriesInput) bool {
	changed := false
	if in.Title != nil {
		series.Title = *in.Title
	}
	if in.Description != nil {
		series.Description = in.Description
	}
	if in.Recurrence != nil {
		series.Recurrence = *in.Recurrence
		changed = true
	}
	if in.Weekday != nil {
		series.Weekday = in.Weekday
		changed = true
	}
	if in.DayOfMonth != nil {
		series.DayOfMonth = in.DayOfMonth
		changed = true
	}
	if in.CustomIntervalDays != nil {
		series.CustomIntervalDays = in.CustomIntervalDays
		changed = true
	}
	if in.StartTime != nil {
		series.StartTime = *in.StartTime
		changed = true
	}
	if in.DurationMinutes != nil {
		series.DurationMinutes = *in.DurationMinutes
	}
	if in.StartDate != nil {
		series.StartDate = *in.StartDate
		changed = true
	}
	if in.EndDate != nil {
		series.EndDate = in.EndDate
		changed = true
	}
	if in.AutoCreate != nil {
		series.AutoCreate = *in.AutoCreate
	}
	if in.AutoCreateWeeksAhead != nil {
		series.AutoCreateWeeksAhead = *in.AutoCreateWeeksAhead
	}
	if in.IsActive != nil {
		series.IsActive = *in.IsActive
	}
	return changed
}

func (s *SeriesService) resolveWindow(series *schedule.Series, now time.Time) ([]time.Time, error) {
	weeks := series.AutoCreateWeeksAhead
	if weeks <= 0 {
		weeks = 4
	}
	horizon := advanceHorizon(now, weeks)
	from := series.StartDate
	if now.After(from) {
		from = now
	}
	return s.resolver.Resolve(series, from, horizon)
}

func (s *SeriesService) Delete(ctx context.Context, actorID, seriesID uuid.UUID) error {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return err
	}
	if err := s.groups.RequireOrganizer(ctx, series.GroupID, actorID); err != nil {
		return err
	}
	return s.seriesRepo.Delete(ctx, seriesID)
}

func (s *SeriesService) ListOccurrences(ctx context.Context, actorID, seriesID uuid.UUID, f repository.OccurrenceFilter) ([]schedule.Occurrence, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireMember(ctx, series.GroupID, actorID); err != nil {
		return nil, err
	}
	return s.seriesRepo.ListOccurrences(ctx, seriesID, f)
}

func (s *SeriesService) CancelOccurrence(ctx context.Context, actorID, occurrenceID uuid.UUID) (schedule.Occurrence, error) {
	occ, err := s.seriesRepo.GetOccurrenceByID(ctx, occurrenceID)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	series, err := s.seriesRepo.GetByID(ctx, occ.SeriesID)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	if err := s.groups.RequireOrganizer(ctx, series.GroupID, actorID); err != nil {
		return schedule.Occurrence{}, err
	}
	return s.seriesRepo.CancelOccurrence(ctx, occurrenceID)
}

// BindSession links an occurrence to an existing session.
func (s *SeriesService) BindSession(ctx context.Context, actorID, occurrenceID, sessionID uuid.UUID) error {
	occ, err := s.seriesRepo.GetOccurrenceByID(ctx, occurrenceID)
	if err != nil {
		return err
	}
	series, err := s.seriesRepo.GetByID(ctx, occ.SeriesID)
	if err != nil {
		return err
	}
	if err := s.groups.RequireOrganizer(ctx, series.GroupID, actorID); err != nil {
		return err
	}
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.GroupID != series.GroupID {
		return fmt.Errorf("%w: session belongs to another group", apperrors.ErrConflict)
	}
	return s.seriesRepo.BindSession(ctx, occurrenceID, sessionID)
}
