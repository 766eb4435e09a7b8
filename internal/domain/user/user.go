package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	DisplayName  string    `gorm:"type:varchar(128)" json:"display_name"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

type MemberRole string

const (
	RoleOwner      MemberRole = "OWNER"
	RoleGamemaster MemberRole = "GAMEMASTER"
	RoleMember     MemberRole = "MEMBER"
)

// Group is the unit of campaign ownership. Series, polls and sessions
// all belong to exactly one group.
type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string    `gorm:"type:varchar(128);not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null" json:"owner_id"`
	// DefaultSessionMinutes seeds the duration of sessions created by
	// poll confirmation when the poll does not carry its own.
	DefaultSessionMinutes int       `gorm:"default:180" json:"default_session_minutes"`
	CreatedAt             time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

type GroupMember struct {
	GroupID  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"group_id"`
	UserID   uuid.UUID  `gorm:"type:uuid;primaryKey;index:idx_group_members_user" json:"user_id"`
	Role     MemberRole `gorm:"type:varchar(16);default:'MEMBER';not null" json:"role"`
	JoinedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
