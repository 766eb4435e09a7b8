package schedule

import (
	"time"

	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = "none"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceBiweekly RecurrenceType = "biweekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
	RecurrenceCustom   RecurrenceType = "custom"
)

// Series is a template that emits a stream of target datetimes under a
// recurrence rule. The flat nullable columns are a storage concession;
// the recurrence resolver validates the discriminator and its required
// fields together.
type Series struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GroupID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"group_id"`
	GamemasterID uuid.UUID      `gorm:"type:uuid;not null" json:"gamemaster_id"`
	ScenarioID   *uuid.UUID     `gorm:"type:uuid" json:"scenario_id,omitempty"`
	Title        string         `gorm:"type:varchar(255);not null" json:"title"`
	Description  *string        `gorm:"type:text" json:"description,omitempty"`
	Recurrence   RecurrenceType `gorm:"type:varchar(16);default:'none';not null" json:"recurrence"`

	// Recurrence discriminator fields. Which of these are required
	// depends on Recurrence; see the recurrence package.
	Weekday            *int `json:"weekday,omitempty"`      // 0=Mon .. 6=Sun
	DayOfMonth         *int `json:"day_of_month,omitempty"` // 1..31
	CustomIntervalDays *int `json:"custom_interval_days,omitempty"`

	// StartTime is the time of day of each occurrence, "15:04" format.
	// Empty means midnight.
	StartTime       string     `gorm:"type:varchar(5)" json:"start_time,omitempty"`
	DurationMinutes int        `gorm:"default:180" json:"duration_minutes"`
	StartDate       time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate         *time.Time `gorm:"type:date" json:"end_date,omitempty"`

	AutoCreate           bool `gorm:"default:true" json:"auto_create"`
	AutoCreateWeeksAhead int  `gorm:"default:4" json:"auto_create_weeks_ahead"`
	IsActive             bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Occurrences []Occurrence `gorm:"foreignKey:SeriesID;constraint:OnDelete:CASCADE" json:"occurrences,omitempty"`
}

type OccurrenceStatus string

const (
	OccurrencePlanned   OccurrenceStatus = "planned"
	OccurrenceOngoing   OccurrenceStatus = "ongoing"
	OccurrenceCompleted OccurrenceStatus = "completed"
	OccurrenceCancelled OccurrenceStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s OccurrenceStatus) Terminal() bool {
	return s == OccurrenceCompleted || s == OccurrenceCancelled
}

// CanTransition enforces planned -> ongoing -> completed with
// cancellation allowed from any non-terminal state.
func (s OccurrenceStatus) CanTransition(to OccurrenceStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case OccurrenceOngoing:
		return s == OccurrencePlanned
	case OccurrenceCompleted:
		return s == OccurrenceOngoing
	case OccurrenceCancelled:
		return true
	}
	return false
}

// Occurrence is a materialized target datetime belonging to a series.
// (series_id, target_datetime) is unique; concurrent generation relies
// on that constraint.
type Occurrence struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SeriesID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_occurrences_series_target" json:"series_id"`
	TargetDatetime time.Time        `gorm:"not null;uniqueIndex:idx_occurrences_series_target" json:"target_datetime"`
	Status         OccurrenceStatus `gorm:"type:varchar(16);default:'planned';not null" json:"status"`
	SessionID      *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"session_id,omitempty"`
	CreatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}
