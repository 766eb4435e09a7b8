package recurrence

import (
	"errors"
	"testing"
	"time"

	"arkham-nexus/internal/domain/schedule"
	"arkham-nexus/pkg/apperrors"
)

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestResolveWeekly(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(2), // Wednesday
		StartTime:  "19:00",
		StartDate:  date(2025, time.January, 1), // a Wednesday
	}

	got, err := r.Resolve(s, date(2025, time.January, 1), date(2025, time.January, 16))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.January, 1, 19, 0),
		at(2025, time.January, 8, 19, 0),
		at(2025, time.January, 15, 19, 0),
	}
	assertTimes(t, got, want)
}

func TestResolveWeeklyStartsMidweek(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(5), // Saturday
		StartTime:  "13:30",
		StartDate:  date(2025, time.January, 1), // Wednesday
	}

	got, err := r.Resolve(s, date(2025, time.January, 1), date(2025, time.January, 12))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.January, 4, 13, 30),
		at(2025, time.January, 11, 13, 30),
	}
	assertTimes(t, got, want)
}

func TestResolveBiweeklyPhaseAnchorsAtStartDate(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceBiweekly,
		Weekday:    intPtr(2),
		StartTime:  "19:00",
		StartDate:  date(2025, time.January, 1),
	}

	// Querying from the second week must not shift the phase.
	got, err := r.Resolve(s, date(2025, time.January, 10), date(2025, time.February, 1))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.January, 15, 19, 0),
		at(2025, time.January, 29, 19, 0),
	}
	assertTimes(t, got, want)
}

func TestResolveMonthlySkipsShortMonths(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceMonthly,
		DayOfMonth: intPtr(31),
		StartTime:  "19:00",
		StartDate:  date(2025, time.January, 31),
	}

	got, err := r.Resolve(s, date(2025, time.January, 1), date(2025, time.April, 30))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.January, 31, 19, 0),
		at(2025, time.March, 31, 19, 0),
	}
	assertTimes(t, got, want)
}

func TestResolveCustomInterval(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence:         schedule.RecurrenceCustom,
		CustomIntervalDays: intPtr(10),
		StartTime:          "20:00",
		StartDate:          date(2025, time.March, 1),
	}

	got, err := r.Resolve(s, date(2025, time.March, 1), date(2025, time.March, 31))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.March, 1, 20, 0),
		at(2025, time.March, 11, 20, 0),
		at(2025, time.March, 21, 20, 0),
		at(2025, time.March, 31, 20, 0),
	}
	assertTimes(t, got, want)
}

func TestResolveNone(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceNone,
		StartTime:  "19:00",
		StartDate:  date(2025, time.June, 7),
	}

	got, err := r.Resolve(s, date(2025, time.June, 1), date(2025, time.June, 30))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	assertTimes(t, got, []time.Time{at(2025, time.June, 7, 19, 0)})

	got, err = r.Resolve(s, date(2025, time.July, 1), date(2025, time.July, 31))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no occurrences outside window, got %v", got)
	}
}

func TestResolveRespectsEndDate(t *testing.T) {
	r := NewResolver(time.UTC)
	end := date(2025, time.January, 10)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(2),
		StartTime:  "19:00",
		StartDate:  date(2025, time.January, 1),
		EndDate:    &end,
	}

	got, err := r.Resolve(s, date(2025, time.January, 1), date(2025, time.February, 1))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []time.Time{
		at(2025, time.January, 1, 19, 0),
		at(2025, time.January, 8, 19, 0),
	}
	assertTimes(t, got, want)
}

func TestResolveInvalidConfig(t *testing.T) {
	r := NewResolver(time.UTC)
	cases := []struct {
		name   string
		series *schedule.Series
	}{
		{"weekly without weekday", &schedule.Series{
			Recurrence: schedule.RecurrenceWeekly,
			StartDate:  date(2025, time.January, 1),
		}},
		{"monthly without day", &schedule.Series{
			Recurrence: schedule.RecurrenceMonthly,
			StartDate:  date(2025, time.January, 1),
		}},
		{"monthly day out of range", &schedule.Series{
			Recurrence: schedule.RecurrenceMonthly,
			DayOfMonth: intPtr(32),
			StartDate:  date(2025, time.January, 1),
		}},
		{"custom zero interval", &schedule.Series{
			Recurrence:         schedule.RecurrenceCustom,
			CustomIntervalDays: intPtr(0),
			StartDate:          date(2025, time.January, 1),
		}},
		{"bad start time", &schedule.Series{
			Recurrence: schedule.RecurrenceNone,
			StartTime:  "25:99",
			StartDate:  date(2025, time.January, 1),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(tc.series, date(2025, time.January, 1), date(2025, time.December, 31))
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected invalid input error, got %v", err)
			}
		})
	}
}

func TestResolveMonotonicHorizon(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceBiweekly,
		Weekday:    intPtr(4),
		StartTime:  "18:00",
		StartDate:  date(2025, time.February, 3),
	}

	from := date(2025, time.February, 1)
	short, err := r.Resolve(s, from, date(2025, time.March, 15))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	long, err := r.Resolve(s, from, date(2025, time.May, 15))
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(short) == 0 || len(long) < len(short) {
		t.Fatalf("expected growing result sets, got %d then %d", len(short), len(long))
	}
	for i, ts := range short {
		if !long[i].Equal(ts) {
			t.Fatalf("longer horizon is not a superset at index %d: %v vs %v", i, long[i], ts)
		}
	}
}

func TestResolveComposition(t *testing.T) {
	r := NewResolver(time.UTC)
	s := &schedule.Series{
		Recurrence: schedule.RecurrenceWeekly,
		Weekday:    intPtr(0),
		StartTime:  "21:00",
		StartDate:  date(2025, time.January, 6),
	}

	a := date(2025, time.January, 6)
	m := date(2025, time.February, 10)
	b := date(2025, time.March, 17)

	whole, err := r.Resolve(s, a, b)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	left, err := r.Resolve(s, a, m)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	right, err := r.Resolve(s, m, b)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	merged := make(map[time.Time]bool)
	for _, ts := range left {
		merged[ts] = true
	}
	for _, ts := range right {
		merged[ts] = true
	}
	if len(merged) != len(whole) {
		t.Fatalf("split resolution yielded %d distinct targets, whole window %d", len(merged), len(whole))
	}
	for _, ts := range whole {
		if !merged[ts] {
			t.Fatalf("target %v missing from split resolution", ts)
		}
	}
}

func assertTimes(t *testing.T, got, want []time.Time) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d occurrences, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}
