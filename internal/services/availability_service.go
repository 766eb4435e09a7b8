package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

// AvailabilityService maintains the per-user availability ledger over
// sessions, occurrences and free-form proposed dates.
type AvailabilityService struct {
	availRepo   repository.AvailabilityRepository
	sessionRepo repository.SessionRepository
	seriesRepo  repository.SeriesRepository
	groups      *GroupService
}

func NewAvailabilityService(availRepo repository.AvailabilityRepository, sessionRepo repository.SessionRepository, seriesRepo repository.SeriesRepository, groups *GroupService) *AvailabilityService {
	return &AvailabilityService{
		availRepo:   availRepo,
		sessionRepo: sessionRepo,
		seriesRepo:  seriesRepo,
		groups:      groups,
	}
}

type SetAvailabilityInput struct {
	SessionID    *uuid.UUID
	OccurrenceID *uuid.UUID
	ProposedDate *time.Time
	Status       availability.Status
	Comment      *string
}

// Set upserts the caller's availability for exactly one target. Session
// and occurrence targets require group membership; a proposed date is a
// free-form personal marker and needs none.
func (s *AvailabilityService) Set(ctx context.Context, actorID uuid.UUID, in SetAvailabilityInput) (availability.SessionAvailability, error) {
	if !in.Status.Valid() {
		return availability.SessionAvailability{}, fmt.Errorf("%w: unknown availability status %q", apperrors.ErrInvalidInput, in.Status)
	}
	a := availability.SessionAvailability{
		ID:           uuid.New(),
		UserID:       actorID,
		SessionID:    in.SessionID,
		OccurrenceID: in.OccurrenceID,
		ProposedDate: in.ProposedDate,
		Status:       in.Status,
		Comment:      in.Comment,
	}
	if err := a.ValidateTarget(); err != nil {
		return availability.SessionAvailability{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	groupID, err := s.resolveGroup(ctx, &a)
	if err != nil {
		return availability.SessionAvailability{}, err
	}
	if groupID != uuid.Nil {
		if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
			return availability.SessionAvailability{}, err
		}
	}
	if err := s.availRepo.Set(ctx, &a, groupID); err != nil {
		return availability.SessionAvailability{}, err
	}
	return a, nil
}

// Clear removes the caller's availability row for the given target.
func (s *AvailabilityService) Clear(ctx context.Context, actorID uuid.UUID, in SetAvailabilityInput) error {
	a := availability.SessionAvailability{
		UserID:       actorID,
		SessionID:    in.SessionID,
		OccurrenceID: in.OccurrenceID,
		ProposedDate: in.ProposedDate,
	}
	if err := a.ValidateTarget(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return s.availRepo.Clear(ctx, &a)
}

func (s *AvailabilityService) ListForSession(ctx context.Context, actorID, sessionID uuid.UUID) ([]availability.SessionAvailability, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireMember(ctx, sess.GroupID, actorID); err != nil {
		return nil, err
	}
	return s.availRepo.ListForSession(ctx, sessionID)
}

func (s *AvailabilityService) ListForOccurrence(ctx context.Context, actorID, occurrenceID uuid.UUID) ([]availability.SessionAvailability, error) {
	occ, err := s.seriesRepo.GetOccurrenceByID(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	series, err := s.seriesRepo.GetByID(ctx, occ.SeriesID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireMember(ctx, series.GroupID, actorID); err != nil {
		return nil, err
	}
	return s.availRepo.ListForOccurrence(ctx, occurrenceID)
}

// resolveGroup maps the target to its owning group. Proposed-date rows
// have no group; they publish to the system channel instead.
func (s *AvailabilityService) resolveGroup(ctx context.Context, a *availability.SessionAvailability) (uuid.UUID, error) {
	switch {
	case a.SessionID != nil:
		sess, err := s.sessionRepo.GetByID(ctx, *a.SessionID)
		if err != nil {
			return uuid.Nil, err
		}
		return sess.GroupID, nil
	case a.OccurrenceID != nil:
		occ, err := s.seriesRepo.GetOccurrenceByID(ctx, *a.OccurrenceID)
		if err != nil {
			return uuid.Nil, err
		}
		series, err := s.seriesRepo.GetByID(ctx, occ.SeriesID)
		if err != nil {
			return uuid.Nil, err
		}
		return series.GroupID, nil
	default:
		return uuid.Nil, nil
	}
}
