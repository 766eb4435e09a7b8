package httpdto

import "time"

type CreateSessionRequest struct {
	GroupID         string     `json:"group_id" binding:"required"`
	Title           string     `json:"title" binding:"required"`
	Date            *time.Time `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	ScenarioID      *string    `json:"scenario_id"`
}

type UpdateSessionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
