package outbox

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEvent stores domain events written in the same transaction as
// the state change they describe, waiting to be published after commit.
type OutboxEvent struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventType     string     `gorm:"type:varchar(50);not null"`
	AggregateType string     `gorm:"type:varchar(50);not null"`
	AggregateID   string     `gorm:"type:varchar(36);not null"`
	GroupID       uuid.UUID  `gorm:"type:uuid;not null"`
	Payload       []byte     `gorm:"type:jsonb;not null"`
	RetryCount    int        `gorm:"default:0"`
	ErrorMessage  string     `gorm:"type:text"`
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;default:now()"`
	UpdatedAt     time.Time `gorm:"not null;default:now()"`
}

// TableName returns the database table name.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}
