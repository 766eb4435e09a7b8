package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/recurrence"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

type seriesFixture struct {
	svc        *SeriesService
	seriesRepo *fakeSeriesRepo
	sessions   *fakeSessionRepo
	groupID    uuid.UUID
	owner      uuid.UUID
	member     uuid.UUID
	now        time.Time
}

func newSeriesFixture(t *testing.T) *seriesFixture {
	t.Helper()
	userRepo := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	seriesRepo := newFakeSeriesRepo(sessions)
	groups := NewGroupService(userRepo)

	owner := uuid.New()
	member := uuid.New()
	groupID := uuid.New()
	if err := userRepo.CreateGroup(context.Background(), &user.Group{ID: groupID, Name: "g", OwnerID: owner}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	userRepo.members[groupID][member] = user.RoleMember

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewSeriesService(seriesRepo, sessions, groups, recurrence.NewResolver(time.UTC), clock.Fixed{T: now})

	return &seriesFixture{
		svc:        svc,
		seriesRepo: seriesRepo,
		sessions:   sessions,
		groupID:    groupID,
		owner:      owner,
		member:     member,
		now:        now,
	}
}

func TestCreateSeriesValidatesRecurrence(t *testing.T) {
	f := newSeriesFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "weekly without weekday",
		Recurrence: schedule.RecurrenceWeekly,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("missing weekday: got %v, want ErrInvalidInput", err)
	}

	_, err = f.svc.Create(ctx, f.member, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "member cannot create",
		Recurrence: schedule.RecurrenceNone,
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("plain member create: got %v, want ErrForbidden", err)
	}
}

func TestCreateSeriesAppliesDefaults(t *testing.T) {
	f := newSeriesFixture(t)
	series, err := f.svc.Create(context.Background(), f.owner, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "campaign",
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(2),
		StartTime:  "19:00",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if series.DurationMinutes != 180 || series.AutoCreateWeeksAhead != 4 {
		t.Fatalf("defaults not applied: duration=%d weeks=%d", series.DurationMinutes, series.AutoCreateWeeksAhead)
	}
	if !series.IsActive || !series.AutoCreate {
		t.Fatalf("new series should be active and auto-creating")
	}
	if series.GamemasterID != f.owner {
		t.Fatalf("gamemaster = %s, want creator", series.GamemasterID)
	}
}

func TestUpdateScheduleReconcilesFutureOccurrences(t *testing.T) {
	f := newSeriesFixture(t)
	ctx := context.Background()

	series, err := f.svc.Create(ctx, f.owner, CreateSeriesInput{
		GroupID:              f.groupID,
		Title:                "campaign",
		Recurrence:           schedule.RecurrenceWeekly,
		Weekday:              intPtr(2), // Wednesday
		StartTime:            "19:00",
		StartDate:            time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		AutoCreateWeeksAhead: 4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Materialize the Wednesday occurrences first.
	if _, err := f.seriesRepo.CreateOccurrences(ctx, series.ID, []time.Time{
		time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 15, 19, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seed occurrences: %v", err)
	}

	// Move the series to Fridays.
	_, err = f.svc.Update(ctx, f.owner, series.ID, UpdateSeriesInput{Weekday: intPtr(4)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	occs, err := f.seriesRepo.ListOccurrences(ctx, series.ID, repository.OccurrenceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(occs) == 0 {
		t.Fatalf("no occurrences after reconcile")
	}
	for _, occ := range occs {
		if occ.TargetDatetime.Weekday() != time.Friday {
			t.Fatalf("occurrence on %s survived the weekday change", occ.TargetDatetime.Weekday())
		}
	}
}

func TestUpdateKeepsBoundOccurrencesAsOrphans(t *testing.T) {
	f := newSeriesFixture(t)
	ctx := context.Background()

	series, err := f.svc.Create(ctx, f.owner, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "campaign",
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(2),
		StartTime:  "19:00",
		StartDate:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, err := f.seriesRepo.CreateOccurrences(ctx, series.ID, []time.Time{
		time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC),
	})
	if err != nil || len(created) != 1 {
		t.Fatalf("seed occurrence: %v", err)
	}

	sess := schedule.Session{ID: uuid.New(), Title: "bound", GroupID: f.groupID, Status: schedule.SessionPlanned, ShareToken: uuid.New()}
	if err := f.sessions.Create(ctx, &sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := f.svc.BindSession(ctx, f.owner, created[0].ID, sess.ID); err != nil {
		t.Fatalf("bind: %v", err)
	}

	if _, err := f.svc.Update(ctx, f.owner, series.ID, UpdateSeriesInput{Weekday: intPtr(4)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	occ, err := f.seriesRepo.GetOccurrenceByID(ctx, created[0].ID)
	if err != nil {
		t.Fatalf("bound occurrence was deleted by reconcile: %v", err)
	}
	if occ.SessionID == nil || *occ.SessionID != sess.ID {
		t.Fatalf("bound occurrence lost its session")
	}

	orphaned := false
	for _, e := range f.seriesRepo.events {
		if e == "occurrence_orphaned" {
			orphaned = true
		}
	}
	if !orphaned {
		t.Fatalf("no orphan event recorded for the bound occurrence")
	}
}

func TestBindSessionRejectsForeignGroup(t *testing.T) {
	f := newSeriesFixture(t)
	ctx := context.Background()

	series, err := f.svc.Create(ctx, f.owner, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "campaign",
		Recurrence: schedule.RecurrenceNone,
		StartTime:  "19:00",
		StartDate:  time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, err := f.seriesRepo.CreateOccurrences(ctx, series.ID, []time.Time{
		time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC),
	})
	if err != nil || len(created) != 1 {
		t.Fatalf("seed occurrence: %v", err)
	}

	foreign := schedule.Session{ID: uuid.New(), Title: "elsewhere", GroupID: uuid.New(), Status: schedule.SessionPlanned, ShareToken: uuid.New()}
	if err := f.sessions.Create(ctx, &foreign); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := f.svc.BindSession(ctx, f.owner, created[0].ID, foreign.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("foreign bind: got %v, want ErrConflict", err)
	}
}

func TestCancelOccurrenceIsTerminal(t *testing.T) {
	f := newSeriesFixture(t)
	ctx := context.Background()

	series, err := f.svc.Create(ctx, f.owner, CreateSeriesInput{
		GroupID:    f.groupID,
		Title:      "campaign",
		Recurrence: schedule.RecurrenceNone,
		StartTime:  "19:00",
		StartDate:  time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, err := f.seriesRepo.CreateOccurrences(ctx, series.ID, []time.Time{
		time.Date(2025, 1, 8, 19, 0, 0, 0, time.UTC),
	})
	if err != nil || len(created) != 1 {
		t.Fatalf("seed occurrence: %v", err)
	}

	occ, err := f.svc.CancelOccurrence(ctx, f.owner, created[0].ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if occ.Status != schedule.OccurrenceCancelled {
		t.Fatalf("status = %s, want cancelled", occ.Status)
	}
	if _, err := f.svc.CancelOccurrence(ctx, f.owner, created[0].ID); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("second cancel: got %v, want ErrInvalidTransition", err)
	}
}
