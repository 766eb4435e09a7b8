package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/pkg/apperrors"
)

// Resolver expands a series definition into concrete target datetimes.
// All calendar arithmetic happens in the resolver's zone. Resolution is
// pure: no I/O, no clock access.
type Resolver struct {
	loc *time.Location
}

// NewResolver constructs a Resolver normalizing results to loc.
// If loc is nil, JST is used.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.FixedZone("JST", 9*60*60)
	}
	return &Resolver{loc: loc}
}

// Resolve returns the ascending, de-duplicated target datetimes of s
// within the closed interval [from, to]. The recurrence phase anchors
// at the series start date, never at `from`, so resolving over a larger
// window is always a superset of resolving over a smaller one.
func (r *Resolver) Resolve(s *schedule.Series, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: resolution window end precedes start", apperrors.ErrInvalidInput)
	}

	startTime, err := r.parseStartTime(s.StartTime)
	if err != nil {
		return nil, err
	}

	lo := from.In(r.loc)
	hi := to.In(r.loc)
	if s.EndDate != nil {
		endBound := r.combine(*s.EndDate, 23, 59)
		if endBound.Before(hi) {
			hi = endBound
		}
	}
	if hi.Before(lo) {
		return nil, nil
	}

	first := r.combine(s.StartDate, startTime.hour, startTime.minute)

	switch s.Recurrence {
	case schedule.RecurrenceNone:
		if !first.Before(lo) && !first.After(hi) {
			return []time.Time{first}, nil
		}
		return nil, nil

	case schedule.RecurrenceWeekly, schedule.RecurrenceBiweekly:
		if s.Weekday == nil || *s.Weekday < 0 || *s.Weekday > 6 {
			return nil, fmt.Errorf("%w: %s recurrence requires a weekday between 0 and 6", apperrors.ErrInvalidInput, s.Recurrence)
		}
		interval := 1
		if s.Recurrence == schedule.RecurrenceBiweekly {
			interval = 2
		}
		anchor := advanceToWeekday(first, *s.Weekday)
		return r.expand(rrule.ROption{
			Freq:     rrule.WEEKLY,
			Interval: interval,
			Dtstart:  anchor,
		}, lo, hi)

	case schedule.RecurrenceMonthly:
		if s.DayOfMonth == nil || *s.DayOfMonth < 1 || *s.DayOfMonth > 31 {
			return nil, fmt.Errorf("%w: monthly recurrence requires a day of month between 1 and 31", apperrors.ErrInvalidInput)
		}
		// RRULE semantics skip months lacking the day; no rollover.
		return r.expand(rrule.ROption{
			Freq:       rrule.MONTHLY,
			Dtstart:    first,
			Bymonthday: []int{*s.DayOfMonth},
		}, lo, hi)

	case schedule.RecurrenceCustom:
		if s.CustomIntervalDays == nil || *s.CustomIntervalDays < 1 {
			return nil, fmt.Errorf("%w: custom recurrence requires a positive interval in days", apperrors.ErrInvalidInput)
		}
		return r.expand(rrule.ROption{
			Freq:     rrule.DAILY,
			Interval: *s.CustomIntervalDays,
			Dtstart:  first,
		}, lo, hi)
	}

	return nil, fmt.Errorf("%w: unknown recurrence %q", apperrors.ErrInvalidInput, s.Recurrence)
}

func (r *Resolver) expand(opt rrule.ROption, lo, hi time.Time) ([]time.Time, error) {
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	raw := rule.Between(lo, hi, true)
	out := make([]time.Time, 0, len(raw))
	var prev time.Time
	for _, t := range raw {
		t = t.In(r.loc)
		if !prev.IsZero() && t.Equal(prev) {
			continue
		}
		out = append(out, t)
		prev = t
	}
	return out, nil
}

type timeOfDay struct {
	hour   int
	minute int
}

func (r *Resolver) parseStartTime(value string) (timeOfDay, error) {
	if value == "" {
		return timeOfDay{}, nil
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return timeOfDay{}, fmt.Errorf("%w: start_time must be HH:MM", apperrors.ErrInvalidInput)
	}
	return timeOfDay{hour: t.Hour(), minute: t.Minute()}, nil
}

func (r *Resolver) combine(date time.Time, hour, minute int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, r.loc)
}

// ValidateConfig checks the recurrence discriminator and its required
// fields without producing occurrences.
func (r *Resolver) ValidateConfig(s *schedule.Series) error {
	at := r.combine(s.StartDate, 0, 0)
	_, err := r.Resolve(s, at, at)
	return err
}

// advanceToWeekday moves t forward to the first instant falling on the
// requested weekday (0=Mon .. 6=Sun), keeping the time of day.
func advanceToWeekday(t time.Time, weekday int) time.Time {
	target := (weekday + 1) % 7 // time.Weekday has Sunday=0
	days := (target - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, days)
}
