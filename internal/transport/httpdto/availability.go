package httpdto

import "time"

// SetAvailabilityRequest targets exactly one of session_id,
// occurrence_id or proposed_date.
type SetAvailabilityRequest struct {
	SessionID    *string    `json:"session_id"`
	OccurrenceID *string    `json:"occurrence_id"`
	ProposedDate *time.Time `json:"proposed_date"`
	Status       string     `json:"status" binding:"required"`
	Comment      *string    `json:"comment"`
}

// ClearAvailabilityRequest names the target whose row to delete.
type ClearAvailabilityRequest struct {
	SessionID    *string    `json:"session_id"`
	OccurrenceID *string    `json:"occurrence_id"`
	ProposedDate *time.Time `json:"proposed_date"`
}
