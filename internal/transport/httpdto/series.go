package httpdto

import "time"

// Dates (start_date, end_date) travel as "2006-01-02" strings in the
// service timezone; datetimes elsewhere are RFC3339.
type CreateSeriesRequest struct {
	GroupID              string  `json:"group_id" binding:"required"`
	Title                string  `json:"title" binding:"required"`
	Description          *string `json:"description"`
	Recurrence           string  `json:"recurrence"`
	Weekday              *int    `json:"weekday"`
	DayOfMonth           *int    `json:"day_of_month"`
	CustomIntervalDays   *int    `json:"custom_interval_days"`
	StartTime            string  `json:"start_time"`
	DurationMinutes      int     `json:"duration_minutes"`
	StartDate            string  `json:"start_date" binding:"required"`
	EndDate              *string `json:"end_date"`
	AutoCreate           *bool   `json:"auto_create"`
	AutoCreateWeeksAhead int     `json:"auto_create_weeks_ahead"`
	ScenarioID           *string `json:"scenario_id"`
}

type UpdateSeriesRequest struct {
	Title                *string `json:"title"`
	Description          *string `json:"description"`
	Recurrence           *string `json:"recurrence"`
	Weekday              *int    `json:"weekday"`
	DayOfMonth           *int    `json:"day_of_month"`
	CustomIntervalDays   *int    `json:"custom_interval_days"`
	StartTime            *string `json:"start_time"`
	DurationMinutes      *int    `json:"duration_minutes"`
	StartDate            *string `json:"start_date"`
	EndDate              *string `json:"end_date"`
	AutoCreate           *bool   `json:"auto_create"`
	AutoCreateWeeksAhead *int    `json:"auto_create_weeks_ahead"`
	IsActive             *bool   `json:"is_active"`
}

type BindSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// AdvanceSeriesRequest optionally overrides the advance reference time;
// without it the service clock is used.
type AdvanceSeriesRequest struct {
	Now *time.Time `json:"now"`
}
