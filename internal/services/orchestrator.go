package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/recurrence"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/logger"
)

// Orchestrator advances the occurrence horizon of every active series.
// It is driven by the periodic tick and by the explicit advance
// endpoint, and is idempotent: rerunning with the same `now` creates
// no additional rows.
type Orchestrator struct {
	seriesRepo   repository.SeriesRepository
	resolver     *recurrence.Resolver
	log          *logger.Logger
	defaultWeeks int
}

func NewOrchestrator(seriesRepo repository.SeriesRepository, resolver *recurrence.Resolver, log *logger.Logger, defaultWeeks int) *Orchestrator {
	if defaultWeeks <= 0 {
		defaultWeeks = 4
	}
	return &Orchestrator{
		seriesRepo:   seriesRepo,
		resolver:     resolver,
		log:          log,
		defaultWeeks: defaultWeeks,
	}
}

// advanceHorizon is the end of the day weeks*7 days from now. The
// horizon is date-granular: an occurrence later on the horizon day is
// still inside the window.
func advanceHorizon(now time.Time, weeks int) time.Time {
	d := now.AddDate(0, 0, weeks*7)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, d.Location())
}

// AdvanceSeries materializes occurrences from max(start_date, now)
// through the whole day weeks ahead. Concurrent invocations are safe:
// duplicate targets resolve to the existing row.
func (o *Orchestrator) AdvanceSeries(ctx context.Context, seriesID uuid.UUID, now time.Time) ([]schedule.Occurrence, error) {
	series, err := o.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if !series.IsActive {
		return nil, nil
	}

	weeks := series.AutoCreateWeeksAhead
	if weeks <= 0 {
		weeks = o.defaultWeeks
	}
	horizon := advanceHorizon(now, weeks)

	from := series.StartDate
	if now.After(from) {
		from = now
	}
	targets, err := o.resolver.Resolve(&series, from, horizon)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	return o.seriesRepo.CreateOccurrences(ctx, seriesID, targets)
}

// AdvanceAll runs AdvanceSeries for every active auto-creating series.
// A failing series is logged and skipped; the tick keeps going.
func (o *Orchestrator) AdvanceAll(ctx context.Context, now time.Time) {
	series, err := o.seriesRepo.ListActive(ctx)
	if err != nil {
		o.log.Logger.Error("orchestrator: listing active series failed", zap.Error(err))
		return
	}
	for _, s := range series {
		created, err := o.AdvanceSeries(ctx, s.ID, now)
		if err != nil {
			o.log.Logger.Error("orchestrator: advancing series failed",
				zap.String("series_id", s.ID.String()), zap.Error(err))
			continue
		}
		if len(created) > 0 {
			o.log.Logger.Info("orchestrator: occurrences generated",
				zap.String("series_id", s.ID.String()), zap.Int("count", len(created)))
		}
	}
}
