package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
	"arkham-nexus/pkg/logger"
)

// PollService owns the date-poll lifecycle: creation, voting, comments,
// closure and confirmation.
type PollService struct {
	pollRepo repository.PollRepository
	userRepo repository.UserRepository
	groups   *GroupService
	clock    clock.Clock
	log      *logger.Logger
}

func NewPollService(pollRepo repository.PollRepository, userRepo repository.UserRepository, groups *GroupService, clk clock.Clock, log *logger.Logger) *PollService {
	return &PollService{
		pollRepo: pollRepo,
		userRepo: userRepo,
		groups:   groups,
		clock:    clk,
		log:      log,
	}
}

type PollOptionInput struct {
	Datetime time.Time
	Note     *string
}

type CreatePollInput struct {
	GroupID                uuid.UUID
	Title                  string
	Description            *string
	Options                []PollOptionInput
	Deadline               *time.Time
	CreateSessionOnConfirm bool
	DurationMinutes        int
}

func (s *PollService) Create(ctx context.Context, creatorID uuid.UUID, in CreatePollInput) (poll.DatePoll, error) {
	if err := s.groups.RequireMember(ctx, in.GroupID, creatorID); err != nil {
		return poll.DatePoll{}, err
	}
	if in.Title == "" {
		return poll.DatePoll{}, fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	}
	if len(in.Options) == 0 {
		return poll.DatePoll{}, fmt.Errorf("%w: a poll needs at least one option", apperrors.ErrInvalidInput)
	}
	seen := make(map[int64]bool, len(in.Options))
	for _, opt := range in.Options {
		key := opt.Datetime.Unix()
		if seen[key] {
			return poll.DatePoll{}, fmt.Errorf("%w: duplicate option datetime %s", apperrors.ErrInvalidInput, opt.Datetime)
		}
		seen[key] = true
	}
	if in.DurationMinutes <= 0 {
		if g, err := s.userRepo.GetGroupByID(ctx, in.GroupID); err == nil {
			in.DurationMinutes = g.DefaultSessionMinutes
		}
	}

	p := poll.DatePoll{
		ID:                     uuid.New(),
		GroupID:                in.GroupID,
		CreatedByID:            creatorID,
		Title:                  in.Title,
		Description:            in.Description,
		Deadline:               in.Deadline,
		CreateSessionOnConfirm: in.CreateSessionOnConfirm,
		DurationMinutes:        in.DurationMinutes,
	}
	for _, opt := range in.Options {
		p.Options = append(p.Options, poll.DatePollOption{
			ID:       uuid.New(),
			Datetime: opt.Datetime,
			Note:     opt.Note,
		})
	}
	if err := s.pollRepo.Create(ctx, &p); err != nil {
		return poll.DatePoll{}, err
	}
	return s.pollRepo.GetByID(ctx, p.ID)
}

func (s *PollService) Get(ctx context.Context, actorID, pollID uuid.UUID) (poll.DatePoll, error) {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return poll.DatePoll{}, err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return poll.DatePoll{}, err
	}
	return p, nil
}

// CastVote upserts the (option, user) vote; a second cast updates the
// previous row.
func (s *PollService) CastVote(ctx context.Context, actorID, pollID, optionID uuid.UUID, status poll.VoteStatus, comment *string) (poll.DatePollVote, error) {
	if !status.Valid() {
		return poll.DatePollVote{}, fmt.Errorf("%w: unknown vote status %q", apperrors.ErrInvalidInput, status)
	}
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return poll.DatePollVote{}, err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return poll.DatePollVote{}, err
	}
	return s.pollRepo.UpsertVote(ctx, pollID, optionID, actorID, status, comment)
}

func (s *PollService) WithdrawVote(ctx context.Context, actorID, pollID, optionID uuid.UUID) error {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return err
	}
	return s.pollRepo.DeleteVote(ctx, pollID, optionID, actorID)
}

// PostComment appends to the poll chat; allowed on closed polls too.
func (s *PollService) PostComment(ctx context.Context, actorID, pollID uuid.UUID, content string) (poll.DatePollComment, error) {
	if content == "" {
		return poll.DatePollComment{}, fmt.Errorf("%w: comment content is required", apperrors.ErrInvalidInput)
	}
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return poll.DatePollComment{}, err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return poll.DatePollComment{}, err
	}
	c := poll.DatePollComment{
		ID:      uuid.New(),
		PollID:  pollID,
		UserID:  actorID,
		Content: content,
	}
	if err := s.pollRepo.CreateComment(ctx, &c); err != nil {
		return poll.DatePollComment{}, err
	}
	return c, nil
}

func (s *PollService) ListComments(ctx context.Context, actorID, pollID uuid.UUID) ([]poll.DatePollComment, error) {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return nil, err
	}
	return s.pollRepo.ListComments(ctx, pollID)
}

// Close shuts the poll by organizer action. Closing an already closed
// poll is a no-op success.
func (s *PollService) Close(ctx context.Context, actorID, pollID uuid.UUID) (poll.DatePoll, error) {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return poll.DatePoll{}, err
	}
	if err := s.requirePollOrganizer(ctx, p, actorID); err != nil {
		return poll.DatePoll{}, err
	}
	closed, _, err := s.pollRepo.Close(ctx, pollID)
	return closed, err
}

// Confirm binds the option's datetime to the poll and runs the
// confirmation pipeline. Confirming the already-selected option again
// succeeds without side effects; a different option conflicts.
func (s *PollService) Confirm(ctx context.Context, actorID, pollID, optionID uuid.UUID) (poll.DatePoll, *schedule.Session, error) {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return poll.DatePoll{}, nil, err
	}
	if err := s.requirePollOrganizer(ctx, p, actorID); err != nil {
		return poll.DatePoll{}, nil, err
	}

	duration := p.DurationMinutes
	if duration <= 0 {
		if g, err := s.userRepo.GetGroupByID(ctx, p.GroupID); err == nil {
			duration = g.DefaultSessionMinutes
		} else {
			duration = 180
		}
	}
	return s.pollRepo.Confirm(ctx, pollID, optionID, repository.ConfirmDefaults{
		DurationMinutes: duration,
		Now:             s.clock.Now(),
	})
}

// TallyResult pairs per-option counts with the advisory recommendation.
type TallyResult struct {
	Counts      map[uuid.UUID]poll.TallyCount `json:"counts"`
	Recommended *uuid.UUID                    `json:"recommended_option_id,omitempty"`
}

func (s *PollService) Tally(ctx context.Context, actorID, pollID uuid.UUID) (TallyResult, error) {
	p, err := s.pollRepo.GetByID(ctx, pollID)
	if err != nil {
		return TallyResult{}, err
	}
	if err := s.groups.RequireMember(ctx, p.GroupID, actorID); err != nil {
		return TallyResult{}, err
	}
	counts, err := s.pollRepo.Tally(ctx, pollID)
	if err != nil {
		return TallyResult{}, err
	}
	return TallyResult{
		Counts:      counts,
		Recommended: RecommendOption(p.Options, counts),
	}, nil
}

// RecommendOption ranks options by highest available count, then
// lowest unavailable count, then earliest datetime. Advisory only;
// nothing auto-confirms.
func RecommendOption(options []poll.DatePollOption, counts map[uuid.UUID]poll.TallyCount) *uuid.UUID {
	var best *poll.DatePollOption
	for i := range options {
		opt := &options[i]
		if best == nil {
			best = opt
			continue
		}
		bc, oc := counts[best.ID], counts[opt.ID]
		switch {
		case oc.Available != bc.Available:
			if oc.Available > bc.Available {
				best = opt
			}
		case oc.Unavailable != bc.Unavailable:
			if oc.Unavailable < bc.Unavailable {
				best = opt
			}
		case opt.Datetime.Before(best.Datetime):
			best = opt
		}
	}
	if best == nil {
		return nil
	}
	id := best.ID
	return &id
}

// AutoTick closes every open poll whose deadline has passed. Safe to
// run concurrently; each poll flips at most once.
func (s *PollService) AutoTick(ctx context.Context, now time.Time) {
	closed, err := s.pollRepo.CloseExpired(ctx, now)
	if err != nil {
		s.log.Logger.Error("poll auto-tick failed", zap.Error(err))
		return
	}
	for _, p := range closed {
		s.log.Logger.Info("poll closed by deadline",
			zap.String("poll_id", p.ID.String()), zap.String("title", p.Title))
	}
}

func (s *PollService) requirePollOrganizer(ctx context.Context, p poll.DatePoll, actorID uuid.UUID) error {
	if p.CreatedByID == actorID {
		return nil
	}
	role, err := s.userRepo.GetMemberRole(ctx, p.GroupID, actorID)
	if err != nil {
		return err
	}
	if role != user.RoleOwner && role != user.RoleGamemaster {
		return apperrors.ErrForbidden
	}
	return nil
}
