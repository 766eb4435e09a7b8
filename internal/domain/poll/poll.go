package poll

import (
	"time"

	"github.com/google/uuid"
)

type VoteStatus string

const (
	VoteAvailable   VoteStatus = "available"
	VoteMaybe       VoteStatus = "maybe"
	VoteUnavailable VoteStatus = "unavailable"
)

// Valid reports whether s is one of the three vote statuses.
func (s VoteStatus) Valid() bool {
	switch s {
	case VoteAvailable, VoteMaybe, VoteUnavailable:
		return true
	}
	return false
}

// DatePoll is a group-scoped decision over multiple candidate datetimes.
// A closed poll is immutable except for comments. SelectedDate is set
// only through confirmation.
type DatePoll struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GroupID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"group_id"`
	CreatedByID  uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`
	SessionID    *uuid.UUID `gorm:"type:uuid" json:"session_id,omitempty"`
	Title        string     `gorm:"type:varchar(255);not null" json:"title"`
	Description  *string    `gorm:"type:text" json:"description,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	IsClosed     bool       `gorm:"default:false" json:"is_closed"`
	SelectedDate *time.Time `json:"selected_date,omitempty"`

	CreateSessionOnConfirm bool `gorm:"default:true" json:"create_session_on_confirm"`
	// DurationMinutes is copied onto the session created on confirm.
	DurationMinutes int `gorm:"default:180" json:"duration_minutes"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Options  []DatePollOption  `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
	Comments []DatePollComment `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// DatePollOption is one candidate datetime within a poll. Options are
// always listed in ascending datetime order.
type DatePollOption struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PollID    uuid.UUID `gorm:"type:uuid;not null;index" json:"poll_id"`
	Datetime  time.Time `gorm:"not null" json:"datetime"`
	Note      *string   `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	// Relations
	Votes []DatePollVote `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE" json:"votes,omitempty"`
}

// DatePollVote is one user's availability on one option.
// (option_id, user_id) is unique; a second cast updates in place.
type DatePollVote struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OptionID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_option_user" json:"option_id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_votes_option_user" json:"user_id"`
	Status    VoteStatus `gorm:"type:varchar(16);not null" json:"status"`
	Comment   *string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// DatePollComment is append-only chat on a poll; allowed even after
// the poll closes.
type DatePollComment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PollID    uuid.UUID `gorm:"type:uuid;not null;index:idx_poll_comments_poll_created,priority:1" json:"poll_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_poll_comments_poll_created,priority:2" json:"created_at"`
}

// TallyCount is the per-option vote breakdown.
type TallyCount struct {
	Available   int `json:"available"`
	Maybe       int `json:"maybe"`
	Unavailable int `json:"unavailable"`
}
