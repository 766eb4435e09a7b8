package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

type SessionService struct {
	sessionRepo repository.SessionRepository
	groups      *GroupService
}

func NewSessionService(sessionRepo repository.SessionRepository, groups *GroupService) *SessionService {
	return &SessionService{sessionRepo: sessionRepo, groups: groups}
}

type CreateSessionInput struct {
	GroupID         uuid.UUID
	Title           string
	Date            *time.Time
	DurationMinutes int
	ScenarioID      *uuid.UUID
}

func (s *SessionService) Create(ctx context.Context, actorID uuid.UUID, in CreateSessionInput) (schedule.Session, error) {
	if err := s.groups.RequireMember(ctx, in.GroupID, actorID); err != nil {
		return schedule.Session{}, err
	}
	if in.Title == "" {
		return schedule.Session{}, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = 180
	}
	sess := schedule.Session{
		ID:              uuid.New(),
		Title:           in.Title,
		Date:            in.Date,
		DurationMinutes: in.DurationMinutes,
		GamemasterID:    actorID,
		GroupID:         in.GroupID,
		ScenarioID:      in.ScenarioID,
		Status:          schedule.SessionPlanned,
		ShareToken:      uuid.New(),
	}
	if err := s.sessionRepo.Create(ctx, &sess); err != nil {
		return schedule.Session{}, err
	}
	return sess, nil
}

func (s *SessionService) Get(ctx context.Context, actorID, sessionID uuid.UUID) (schedule.Session, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return schedule.Session{}, err
	}
	if err := s.groups.RequireMember(ctx, sess.GroupID, actorID); err != nil {
		return schedule.Session{}, err
	}
	return sess, nil
}

// GetShared serves the unauthenticated share-link view.
func (s *SessionService) GetShared(ctx context.Context, token uuid.UUID) (schedule.Session, error) {
	return s.sessionRepo.GetByShareToken(ctx, token)
}

func (s *SessionService) ListByGroup(ctx context.Context, actorID, groupID uuid.UUID) ([]schedule.Session, error) {
	if err := s.groups.RequireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	return s.sessionRepo.ListByGroup(ctx, groupID)
}

// UpdateStatus moves the session through its lifecycle. Terminal
// states never transition again.
func (s *SessionService) UpdateStatus(ctx context.Context, actorID, sessionID uuid.UUID, to schedule.SessionStatus) (schedule.Session, error) {
	sess, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return schedule.Session{}, err
	}
	if err := s.groups.RequireOrganizer(ctx, sess.GroupID, actorID); err != nil {
		return schedule.Session{}, err
	}
	if !sess.Status.CanTransition(to) {
		return schedule.Session{}, fmt.Errorf("%w: cannot move session from %s to %s", apperrors.ErrInvalidTransition, sess.Status, to)
	}
	sess.Status = to
	if err := s.sessionRepo.Update(ctx, sess); err != nil {
		return schedule.Session{}, err
	}
	return sess, nil
}
