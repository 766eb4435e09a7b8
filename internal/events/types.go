package events

import (
	"encoding/json"
	"time"
)

// Event kinds emitted by the scheduling core. These are the wire names
// notification consumers subscribe to.
const (
	EventOccurrencesGenerated = "occurrences_generated"
	EventOccurrenceOrphaned   = "occurrence_orphaned"
	EventPollClosed           = "poll_closed"
	EventPollConfirmed        = "poll_confirmed"
	EventAvailabilityChanged  = "availability_changed"
	EventSeriesUpdated        = "series_updated"
)

// Aggregate type constants.
const (
	AggregateSeries       = "series"
	AggregateOccurrence   = "occurrence"
	AggregatePoll         = "poll"
	AggregateSession      = "session"
	AggregateAvailability = "availability"
)

// Redis channel prefix. Every event is published on its owning group's
// channel so stream consumers can filter by membership.
const ChannelPrefixGroup = "channel:group:"

// Envelope is the published wire format.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	GroupID       string          `json:"group_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}
