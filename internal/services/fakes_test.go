package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"arkham-nexus/internal/domain/availability"
	"arkham-nexus/internal/domain/poll"
	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/internal/domain/user"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/apperrors"
)

// In-memory repositories mirroring the Postgres implementations'
// semantics closely enough for service-level tests. Staged event types
// are recorded on the `events` slices for assertions.

type fakeUserRepo struct {
	users   map[uuid.UUID]user.User
	groups  map[uuid.UUID]user.Group
	members map[uuid.UUID]map[uuid.UUID]user.MemberRole
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[uuid.UUID]user.User),
		groups:  make(map[uuid.UUID]user.Group),
		members: make(map[uuid.UUID]map[uuid.UUID]user.MemberRole),
	}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, u *user.User) error {
	for _, existing := range r.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return apperrors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	u, ok := r.users[id]
	if !ok {
		return user.User{}, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, apperrors.ErrNotFound
}

func (r *fakeUserRepo) CreateGroup(ctx context.Context, g *user.Group) error {
	r.groups[g.ID] = *g
	if r.members[g.ID] == nil {
		r.members[g.ID] = make(map[uuid.UUID]user.MemberRole)
	}
	r.members[g.ID][g.OwnerID] = user.RoleOwner
	return nil
}

func (r *fakeUserRepo) GetGroupByID(ctx context.Context, id uuid.UUID) (user.Group, error) {
	g, ok := r.groups[id]
	if !ok {
		return user.Group{}, apperrors.ErrNotFound
	}
	return g, nil
}

func (r *fakeUserRepo) AddMember(ctx context.Context, m *user.GroupMember) error {
	if r.members[m.GroupID] == nil {
		r.members[m.GroupID] = make(map[uuid.UUID]user.MemberRole)
	}
	if _, ok := r.members[m.GroupID][m.UserID]; ok {
		return apperrors.ErrAlreadyExists
	}
	r.members[m.GroupID][m.UserID] = m.Role
	return nil
}

func (r *fakeUserRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	_, ok := r.members[groupID][userID]
	return ok, nil
}

func (r *fakeUserRepo) GetMemberRole(ctx context.Context, groupID, userID uuid.UUID) (user.MemberRole, error) {
	role, ok := r.members[groupID][userID]
	if !ok {
		return "", apperrors.ErrForbidden
	}
	return role, nil
}

func (r *fakeUserRepo) ListGroupIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for groupID, members := range r.members {
		if _, ok := members[userID]; ok {
			ids = append(ids, groupID)
		}
	}
	return ids, nil
}

type fakeSessionRepo struct {
	sessions map[uuid.UUID]schedule.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]schedule.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *schedule.Session) error {
	r.sessions[s.ID] = *s
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (schedule.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return schedule.Session{}, apperrors.ErrNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) GetByShareToken(ctx context.Context, token uuid.UUID) (schedule.Session, error) {
	for _, s := range r.sessions {
		if s.ShareToken == token {
			return s, nil
		}
	}
	return schedule.Session{}, apperrors.ErrNotFound
}

func (r *fakeSessionRepo) Update(ctx context.Context, s schedule.Session) error {
	if _, ok := r.sessions[s.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]schedule.Session, error) {
	var out []schedule.Session
	for _, s := range r.sessions {
		if s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeSeriesRepo struct {
	series      map[uuid.UUID]schedule.Series
	occurrences map[uuid.UUID]schedule.Occurrence
	sessions    *fakeSessionRepo
	events      []string
}

func newFakeSeriesRepo(sessions *fakeSessionRepo) *fakeSeriesRepo {
	return &fakeSeriesRepo{
		series:      make(map[uuid.UUID]schedule.Series),
		occurrences: make(map[uuid.UUID]schedule.Occurrence),
		sessions:    sessions,
	}
}

func (r *fakeSeriesRepo) Create(ctx context.Context, s *schedule.Series) error {
	r.series[s.ID] = *s
	return nil
}

func (r *fakeSeriesRepo) GetByID(ctx context.Context, id uuid.UUID) (schedule.Series, error) {
	s, ok := r.series[id]
	if !ok {
		return schedule.Series{}, apperrors.ErrNotFound
	}
	return s, nil
}

func (r *fakeSeriesRepo) Update(ctx context.Context, s schedule.Series) error {
	if _, ok := r.series[s.ID]; !ok {
		return apperrors.ErrNotFound
	}
	r.series[s.ID] = s
	r.events = append(r.events, "series_updated")
	return nil
}

func (r *fakeSeriesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.series, id)
	return nil
}

func (r *fakeSeriesRepo) ListActive(ctx context.Context) ([]schedule.Series, error) {
	var out []schedule.Series
	for _, s := range r.series {
		if s.IsActive && s.AutoCreate {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSeriesRepo) CreateOccurrences(ctx context.Context, seriesID uuid.UUID, targets []time.Time) ([]schedule.Occurrence, error) {
	if _, ok := r.series[seriesID]; !ok {
		return nil, apperrors.ErrNotFound
	}
	var created []schedule.Occurrence
	for _, target := range targets {
		if r.findOccurrence(seriesID, target) != nil {
			continue
		}
		occ := schedule.Occurrence{
			ID:             uuid.New(),
			SeriesID:       seriesID,
			TargetDatetime: target,
			Status:         schedule.OccurrencePlanned,
		}
		r.occurrences[occ.ID] = occ
		created = append(created, occ)
	}
	if len(created) > 0 {
		r.events = append(r.events, "occurrences_generated")
	}
	return created, nil
}

func (r *fakeSeriesRepo) findOccurrence(seriesID uuid.UUID, target time.Time) *schedule.Occurrence {
	for _, occ := range r.occurrences {
		if occ.SeriesID == seriesID && occ.TargetDatetime.Equal(target) {
			o := occ
			return &o
		}
	}
	return nil
}

func (r *fakeSeriesRepo) ReconcileOccurrences(ctx context.Context, seriesID uuid.UUID, now time.Time, targets []time.Time) (repository.ReconcileResult, error) {
	var res repository.ReconcileResult
	wanted := make(map[int64]bool, len(targets))
	for _, t := range targets {
		wanted[t.Unix()] = true
	}
	for id, occ := range r.occurrences {
		if occ.SeriesID != seriesID || !occ.TargetDatetime.After(now) {
			continue
		}
		if wanted[occ.TargetDatetime.Unix()] {
			continue
		}
		if occ.SessionID != nil {
			res.Orphaned = append(res.Orphaned, occ)
			r.events = append(r.events, "occurrence_orphaned")
			continue
		}
		if occ.Status == schedule.OccurrencePlanned {
			delete(r.occurrences, id)
			res.Removed = append(res.Removed, occ)
		}
	}
	for _, target := range targets {
		if !target.After(now) || r.findOccurrence(seriesID, target) != nil {
			continue
		}
		occ := schedule.Occurrence{
			ID:             uuid.New(),
			SeriesID:       seriesID,
			TargetDatetime: target,
			Status:         schedule.OccurrencePlanned,
		}
		r.occurrences[occ.ID] = occ
		res.Created = append(res.Created, occ)
	}
	if len(res.Created) > 0 {
		r.events = append(r.events, "occurrences_generated")
	}
	return res, nil
}

func (r *fakeSeriesRepo) GetOccurrenceByID(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error) {
	occ, ok := r.occurrences[id]
	if !ok {
		return schedule.Occurrence{}, apperrors.ErrNotFound
	}
	return occ, nil
}

func (r *fakeSeriesRepo) ListOccurrences(ctx context.Context, seriesID uuid.UUID, f repository.OccurrenceFilter) ([]schedule.Occurrence, error) {
	var out []schedule.Occurrence
	for _, occ := range r.occurrences {
		if occ.SeriesID != seriesID {
			continue
		}
		if f.Status != nil && occ.Status != *f.Status {
			continue
		}
		if f.From != nil && occ.TargetDatetime.Before(*f.From) {
			continue
		}
		if f.To != nil && occ.TargetDatetime.After(*f.To) {
			continue
		}
		out = append(out, occ)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TargetDatetime.Before(out[j].TargetDatetime)
	})
	return out, nil
}

func (r *fakeSeriesRepo) CancelOccurrence(ctx context.Context, id uuid.UUID) (schedule.Occurrence, error) {
	occ, ok := r.occurrences[id]
	if !ok {
		return schedule.Occurrence{}, apperrors.ErrNotFound
	}
	if !occ.Status.CanTransition(schedule.OccurrenceCancelled) {
		return schedule.Occurrence{}, apperrors.ErrInvalidTransition
	}
	occ.Status = schedule.OccurrenceCancelled
	r.occurrences[id] = occ
	if occ.SessionID != nil {
		if sess, err := r.sessions.GetByID(ctx, *occ.SessionID); err == nil && sess.Status.CanTransition(schedule.SessionCancelled) {
			sess.Status = schedule.SessionCancelled
			_ = r.sessions.Update(ctx, sess)
		}
	}
	return occ, nil
}

func (r *fakeSeriesRepo) BindSession(ctx context.Context, occurrenceID, sessionID uuid.UUID) error {
	occ, ok := r.occurrences[occurrenceID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if occ.SessionID != nil {
		return apperrors.ErrConflict
	}
	occ.SessionID = &sessionID
	r.occurrences[occurrenceID] = occ
	return nil
}

type fakePollRepo struct {
	polls    map[uuid.UUID]poll.DatePoll
	votes    map[uuid.UUID]map[uuid.UUID]poll.DatePollVote // option -> user
	comments map[uuid.UUID][]poll.DatePollComment
	sessions *fakeSessionRepo
	events   []string
}

func newFakePollRepo(sessions *fakeSessionRepo) *fakePollRepo {
	return &fakePollRepo{
		polls:    make(map[uuid.UUID]poll.DatePoll),
		votes:    make(map[uuid.UUID]map[uuid.UUID]poll.DatePollVote),
		comments: make(map[uuid.UUID][]poll.DatePollComment),
		sessions: sessions,
	}
}

func (r *fakePollRepo) Create(ctx context.Context, p *poll.DatePoll) error {
	for i := range p.Options {
		p.Options[i].PollID = p.ID
	}
	r.polls[p.ID] = *p
	return nil
}

func (r *fakePollRepo) GetByID(ctx context.Context, id uuid.UUID) (poll.DatePoll, error) {
	p, ok := r.polls[id]
	if !ok {
		return poll.DatePoll{}, apperrors.ErrNotFound
	}
	sort.Slice(p.Options, func(i, j int) bool {
		return p.Options[i].Datetime.Before(p.Options[j].Datetime)
	})
	return p, nil
}

func (r *fakePollRepo) option(p poll.DatePoll, optionID uuid.UUID) *poll.DatePollOption {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

func (r *fakePollRepo) UpsertVote(ctx context.Context, pollID, optionID, userID uuid.UUID, status poll.VoteStatus, comment *string) (poll.DatePollVote, error) {
	p, ok := r.polls[pollID]
	if !ok {
		return poll.DatePollVote{}, apperrors.ErrNotFound
	}
	if p.IsClosed {
		return poll.DatePollVote{}, apperrors.ErrPollClosed
	}
	if r.option(p, optionID) == nil {
		return poll.DatePollVote{}, fmt.Errorf("%w: option does not belong to poll", apperrors.ErrInvalidInput)
	}
	if r.votes[optionID] == nil {
		r.votes[optionID] = make(map[uuid.UUID]poll.DatePollVote)
	}
	v, exists := r.votes[optionID][userID]
	if !exists {
		v = poll.DatePollVote{ID: uuid.New(), OptionID: optionID, UserID: userID}
	}
	v.Status = status
	v.Comment = comment
	r.votes[optionID][userID] = v
	return v, nil
}

func (r *fakePollRepo) DeleteVote(ctx context.Context, pollID, optionID, userID uuid.UUID) error {
	p, ok := r.polls[pollID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if p.IsClosed {
		return apperrors.ErrPollClosed
	}
	delete(r.votes[optionID], userID)
	return nil
}

func (r *fakePollRepo) CreateComment(ctx context.Context, c *poll.DatePollComment) error {
	if _, ok := r.polls[c.PollID]; !ok {
		return apperrors.ErrNotFound
	}
	r.comments[c.PollID] = append(r.comments[c.PollID], *c)
	return nil
}

func (r *fakePollRepo) ListComments(ctx context.Context, pollID uuid.UUID) ([]poll.DatePollComment, error) {
	return r.comments[pollID], nil
}

func (r *fakePollRepo) Close(ctx context.Context, pollID uuid.UUID) (poll.DatePoll, bool, error) {
	p, ok := r.polls[pollID]
	if !ok {
		return poll.DatePoll{}, false, apperrors.ErrNotFound
	}
	if p.IsClosed {
		return p, false, nil
	}
	p.IsClosed = true
	r.polls[pollID] = p
	r.events = append(r.events, "poll_closed")
	return p, true, nil
}

func (r *fakePollRepo) CloseExpired(ctx context.Context, now time.Time) ([]poll.DatePoll, error) {
	var closed []poll.DatePoll
	for id, p := range r.polls {
		if p.IsClosed || p.Deadline == nil || p.Deadline.After(now) {
			continue
		}
		flipped, didFlip, err := r.Close(ctx, id)
		if err != nil {
			return nil, err
		}
		if didFlip {
			closed = append(closed, flipped)
		}
	}
	return closed, nil
}

func (r *fakePollRepo) Confirm(ctx context.Context, pollID, optionID uuid.UUID, defaults repository.ConfirmDefaults) (poll.DatePoll, *schedule.Session, error) {
	p, ok := r.polls[pollID]
	if !ok {
		return poll.DatePoll{}, nil, apperrors.ErrNotFound
	}
	opt := r.option(p, optionID)
	if opt == nil {
		return poll.DatePoll{}, nil, apperrors.ErrNotFound
	}
	if p.SelectedDate != nil {
		if p.SelectedDate.Equal(opt.Datetime) {
			var sess *schedule.Session
			if p.SessionID != nil {
				if s, err := r.sessions.GetByID(ctx, *p.SessionID); err == nil {
					sess = &s
				}
			}
			return p, sess, nil
		}
		return poll.DatePoll{}, nil, apperrors.ErrConflict
	}

	var sess *schedule.Session
	if p.SessionID != nil {
		s, err := r.sessions.GetByID(ctx, *p.SessionID)
		if err != nil {
			return poll.DatePoll{}, nil, err
		}
		if s.Status.Terminal() {
			return poll.DatePoll{}, nil, apperrors.ErrConflict
		}
		d := opt.Datetime
		s.Date = &d
		if err := r.sessions.Update(ctx, s); err != nil {
			return poll.DatePoll{}, nil, err
		}
		sess = &s
	} else if p.CreateSessionOnConfirm {
		d := opt.Datetime
		s := schedule.Session{
			ID:              uuid.New(),
			Title:           p.Title,
			Date:            &d,
			DurationMinutes: defaults.DurationMinutes,
			GamemasterID:    p.CreatedByID,
			GroupID:         p.GroupID,
			Status:          schedule.SessionPlanned,
			ShareToken:      uuid.New(),
		}
		if err := r.sessions.Create(ctx, &s); err != nil {
			return poll.DatePoll{}, nil, err
		}
		p.SessionID = &s.ID
		sess = &s
	}

	d := opt.Datetime
	p.SelectedDate = &d
	p.IsClosed = true
	r.polls[pollID] = p
	r.events = append(r.events, "poll_confirmed")
	return p, sess, nil
}

func (r *fakePollRepo) Tally(ctx context.Context, pollID uuid.UUID) (map[uuid.UUID]poll.TallyCount, error) {
	p, ok := r.polls[pollID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	counts := make(map[uuid.UUID]poll.TallyCount, len(p.Options))
	for _, opt := range p.Options {
		var c poll.TallyCount
		for _, v := range r.votes[opt.ID] {
			switch v.Status {
			case poll.VoteAvailable:
				c.Available++
			case poll.VoteMaybe:
				c.Maybe++
			case poll.VoteUnavailable:
				c.Unavailable++
			}
		}
		counts[opt.ID] = c
	}
	return counts, nil
}

type availabilityKey struct {
	user   uuid.UUID
	target string
}

type fakeAvailabilityRepo struct {
	rows   map[availabilityKey]availability.SessionAvailability
	events []string
}

func newFakeAvailabilityRepo() *fakeAvailabilityRepo {
	return &fakeAvailabilityRepo{rows: make(map[availabilityKey]availability.SessionAvailability)}
}

func (r *fakeAvailabilityRepo) key(a *availability.SessionAvailability) availabilityKey {
	switch {
	case a.SessionID != nil:
		return availabilityKey{a.UserID, "s:" + a.SessionID.String()}
	case a.OccurrenceID != nil:
		return availabilityKey{a.UserID, "o:" + a.OccurrenceID.String()}
	default:
		return availabilityKey{a.UserID, "d:" + a.ProposedDate.UTC().Format(time.RFC3339)}
	}
}

func (r *fakeAvailabilityRepo) Set(ctx context.Context, a *availability.SessionAvailability, groupID uuid.UUID) error {
	if err := a.ValidateTarget(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	k := r.key(a)
	if existing, ok := r.rows[k]; ok {
		a.ID = existing.ID
	}
	r.rows[k] = *a
	r.events = append(r.events, "availability_changed")
	return nil
}

func (r *fakeAvailabilityRepo) Clear(ctx context.Context, a *availability.SessionAvailability) error {
	delete(r.rows, r.key(a))
	return nil
}

func (r *fakeAvailabilityRepo) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]availability.SessionAvailability, error) {
	var out []availability.SessionAvailability
	for _, a := range r.rows {
		if a.SessionID != nil && *a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAvailabilityRepo) ListForOccurrence(ctx context.Context, occurrenceID uuid.UUID) ([]availability.SessionAvailability, error) {
	var out []availability.SessionAvailability
	for _, a := range r.rows {
		if a.OccurrenceID != nil && *a.OccurrenceID == occurrenceID {
			out = append(out, a)
		}
	}
	return out, nil
}
