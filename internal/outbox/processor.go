package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"arkham-nexus/internal/events"
	"arkham-nexus/internal/repository"
	"arkham-nexus/pkg/logger"
)

// Processor drains staged outbox rows and publishes them after commit.
// Rows that fail to publish are retried with a backoff window until
// maxRetries, then parked for an hour.
type Processor struct {
	repo       repository.OutboxRepository
	publisher  events.Publisher
	log        *logger.Logger
	clock      func() time.Time
	batchSize  int
	interval   time.Duration
	maxRetries int
}

func NewProcessor(repo repository.OutboxRepository, publisher events.Publisher, log *logger.Logger, batchSize int, interval time.Duration, maxRetries int) *Processor {
	return &Processor{
		repo:       repo,
		publisher:  publisher,
		log:        log,
		clock:      time.Now,
		batchSize:  batchSize,
		interval:   interval,
		maxRetries: maxRetries,
	}
}

func DefaultProcessor(repo repository.OutboxRepository, publisher events.Publisher, log *logger.Logger) *Processor {
	return NewProcessor(repo, publisher, log, 100, 2*time.Second, 5)
}

func (p *Processor) Start(ctx context.Context) {
	go p.Run(ctx)
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publishes one batch of pending events. Exported so the
// periodic tick and tests can drain synchronously.
func (p *Processor) ProcessBatch(ctx context.Context) {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil {
		p.log.Logger.Error("outbox: fetching pending events failed", zap.Error(err))
		return
	}

	for _, e := range batch {
		if e.RetryCount >= p.maxRetries {
			_ = p.repo.MarkFailed(ctx, e.ID, p.clock().Add(time.Hour), "max retries exceeded")
			continue
		}

		env := events.Envelope{
			EventType:     e.EventType,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			GroupID:       e.GroupID.String(),
			OccurredAt:    e.CreatedAt.UTC(),
			Payload:       json.RawMessage(e.Payload),
		}
		payload, err := json.Marshal(env)
		if err != nil {
			_ = p.repo.MarkFailed(ctx, e.ID, p.clock().Add(time.Minute), err.Error())
			continue
		}

		if err := p.publisher.Publish(ctx, routeChannel(e.GroupID), payload); err != nil {
			p.log.Logger.Warn("outbox: publish failed",
				zap.String("event_id", e.ID.String()),
				zap.String("event_type", e.EventType),
				zap.Error(err))
			_ = p.repo.MarkFailed(ctx, e.ID, p.clock().Add(time.Minute), err.Error())
			continue
		}
		_ = p.repo.MarkProcessed(ctx, e.ID)
	}
}

// routeChannel picks the group channel, or the system channel for
// events with no owning group (proposed-date availability).
func routeChannel(groupID uuid.UUID) string {
	if groupID == uuid.Nil {
		return "channel:system:outbox"
	}
	return events.ChannelPrefixGroup + groupID.String()
}
