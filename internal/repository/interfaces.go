package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/domain/outbox"
	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)

	CreateGroup(ctx context.Context, g *user.Group) error
	GetGroupByID(ctx context.Context, id uuid.UUID) (user.Group, error)
	AddMember(ctx context.Context, m *user.GroupMember) error
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (user.MemberRole, error)
	// ListGroupIDs returns every group the user belongs to.
	ListGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// OccurrenceFilter narrows occurrence listings.
type OccurrenceFilter struct {
	Status *schedule.OccurrenceStatus
	From   *time.Time
	To     *time.Time
}

// ReconcileResult reports what a schedule-edit reconciliation did.
type ReconcileResult struct {
	Created  []schedule.Occurrence
	Removed  []schedule.Occurrence
	Orphaned []schedule.Occurrence
}

type SeriesRepository interface {
	Create(ctx context.Context, s *schedule.Series) error
	GetByID(ctx context.Context, id uuid.UUID) (schedule.Series, error)
	// Update persists the series and stages a series_updated event in
	// the same transaction.
	Update(ctx context.Context, s schedule.Series) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]schedule.Series, error)

	// CreateOccurrences inserts the targets that do not exist yet and
	// returns the newly created rows. Existing (series, target) pairs
	// are left untouched. When any row is created an
	// occurrences_generated event is staged in the same transaction.
	CreateOccurrences(ctx context.Context, seriesID uuid.UUID, targets []time.Time) ([]schedule.Occurrence, error)

	// ReconcileOccurrences aligns future planned occurrences with the
	// resolved target set: stale unbound rows are deleted, rows bound
	// to a session are kept and reported as orphaned, and missing
	// targets are created. Events are staged in the same transaction.
	ReconcileOccurrences(ctx context.Context, seriesID uuid.UUID, now time.Time, targets []time.Time) (ReconcileResult, error)

	GetOccurrenceByID(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error)
	ListOccurrences(ctx context.Context, seriesID uuid.UUID, f OccurrenceFilter) ([]schedule.Occurrence, error)
	// CancelOccurrence cancels the occurrence and mirrors the status
	// onto a bound session within one transaction.
	CancelOccurrence(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error)
	// BindSession links an occurrence and a session both ways.
	// Fails with a conflict if the occurrence already has a session.
	BindSession(ctx context.Context, occurrenceID, sessionID uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *schedule.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (schedule.Session, error)
	GetByShareToken(ctx context.Context, token uuid.UUID) (schedule.Session, error)
	Update(ctx context.Context, s schedule.Session) error
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]schedule.Session, error)
}

// ConfirmDefaults carries fallbacks for sessions created on confirm.
type ConfirmDefaults struct {
	DurationMinutes int
	Now             time.Time
}

type PollRepository interface {
	Create(ctx context.Context, p *poll.DatePoll) error
	// GetByID loads the poll with options in ascending datetime order.
	GetByID(ctx context.Context, id uuid.UUID) (poll.DatePoll, error)

	// UpsertVote records or updates the (option, user) vote inside a
	// transaction that verifies the poll is still open and the option
	// belongs to the poll.
	UpsertVote(ctx context.Context, pollID, optionID, userID uuid.UUID, status poll.VoteStatus, comment *string) (poll.DatePollVote, error)
	// DeleteVote removes the (option, user) vote; no-op when absent,
	// rejected when the poll is closed.
	DeleteVote(ctx context.Context, pollID, optionID, userID uuid.UUID) error

	CreateComment(ctx context.Context, c *poll.DatePollComment) error
	ListComments(ctx context.Context, pollID uuid.UUID) ([]poll.DatePollComment, error)

	// Close flips is_closed with a guarded UPDATE. The returned flag
	// reports whether this call performed the flip; a poll_closed
	// event is staged only then.
	Close(ctx context.Context, pollID uuid.UUID) (poll.DatePoll, bool, error)
	// CloseExpired closes every open poll whose deadline has passed
	// and returns the polls this call flipped.
	CloseExpired(ctx context.Context, now time.Time) ([]poll.DatePoll, error)

	// Confirm runs the confirmation pipeline in one transaction:
	// locks the poll, binds or creates the session, sets
	// selected_date, closes the poll and stages poll_confirmed.
	Confirm(ctx context.Context, pollID, optionID uuid.UUID, defaults ConfirmDefaults) (poll.DatePoll, *schedule.Session, error)

	Tally(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]poll.TallyCount, error)
}

type AvailabilityRepository interface {
	// Set upserts the availability row keyed on (target, user) and
	// stages availability_changed in the same transaction.
	Set(ctx context.Context, a *availability.SessionAvailability, groupID uuid.UUID) error
	Clear(ctx context.Context, a *availability.SessionAvailability) error
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]availability.SessionAvailability, error)
	ListForOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]availability.SessionAvailability, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, e *outbox.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]outbox.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, errorMessage string) error
}
