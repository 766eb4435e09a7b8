package httpdto

import "time"

type PollOptionRequest struct {
	Datetime time.Time `json:"datetime" binding:"required"`
	Note     *string   `json:"note"`
}

type CreatePollRequest struct {
	GroupID                string              `json:"group_id" binding:"required"`
	Title                  string              `json:"title" binding:"required"`
	Description            *string             `json:"description"`
	Options                []PollOptionRequest `json:"options" binding:"required"`
	Deadline               *time.Time          `json:"deadline"`
	CreateSessionOnConfirm bool                `json:"create_session_on_confirm"`
	DurationMinutes        int                 `json:"duration_minutes"`
}

type CastVoteRequest struct {
	OptionID string  `json:"option_id" binding:"required"`
	Status   string  `json:"status" binding:"required"`
	Comment  *string `json:"comment"`
}

type PostCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type ConfirmPollRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}
