package schedule

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionPlanned   SessionStatus = "planned"
	SessionOngoing   SessionStatus = "ongoing"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

func (s SessionStatus) CanTransition(to SessionStatus) bool {
	if s.Terminal() {
		return false
	}
	switch to {
	case SessionOngoing:
		return s == SessionPlanned
	case SessionCompleted:
		return s == SessionOngoing
	case SessionCancelled:
		return true
	}
	return false
}

// Session is a committed, shareable play event. Date is nullable: a
// session may exist before a calendar slot is confirmed for it.
type Session struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title           string        `gorm:"type:varchar(255);not null" json:"title"`
	Date            *time.Time    `json:"date,omitempty"`
	DurationMinutes int           `gorm:"default:180" json:"duration_minutes"`
	GamemasterID    uuid.UUID     `gorm:"type:uuid;not null" json:"gamemaster_id"`
	GroupID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"group_id"`
	SeriesID        *uuid.UUID    `gorm:"type:uuid;index" json:"series_id,omitempty"`
	ScenarioID      *uuid.UUID    `gorm:"type:uuid" json:"scenario_id,omitempty"`
	Status          SessionStatus `gorm:"type:varchar(16);default:'planned';not null" json:"status"`
	// ShareToken backs unauthenticated share links; guessability is
	// the only protection.
	ShareToken uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"share_token"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}
