package availability

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusMaybe       Status = "maybe"
	StatusUnavailable Status = "unavailable"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusMaybe, StatusUnavailable:
		return true
	}
	return false
}

// ErrAmbiguousTarget is returned when zero or more than one of the
// target discriminators is populated.
var ErrAmbiguousTarget = errors.New("availability: exactly one of session, occurrence or proposed_date must be set")

// SessionAvailability records one user's availability against exactly
// one of: a session, an occurrence, or a free-form proposed datetime.
// The three nullable columns are a storage concession for a sum type.
type SessionAvailability struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null" json:"user_id"`
	SessionID    *uuid.UUID `gorm:"type:uuid" json:"session_id,omitempty"`
	OccurrenceID *uuid.UUID `gorm:"type:uuid" json:"occurrence_id,omitempty"`
	ProposedDate *time.Time `json:"proposed_date,omitempty"`
	Status       Status     `gorm:"type:varchar(16);not null" json:"status"`
	Comment      *string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// ValidateTarget checks the one-of-three discriminator invariant.
func (a *SessionAvailability) ValidateTarget() error {
	n := 0
	if a.SessionID != nil {
		n++
	}
	if a.OccurrenceID != nil {
		n++
	}
	if a.ProposedDate != nil {
		n++
	}
	if n != 1 {
		return ErrAmbiguousTarget
	}
	return nil
}
