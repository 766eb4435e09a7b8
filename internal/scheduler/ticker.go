package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"arkham-nexus/internal/clock"
	"arkham-nexus/internal/services"
	"arkham-nexus/pkg/logger"
)

// Ticker drives the periodic scheduling work: advancing occurrence
// horizons and closing polls past their deadline.
type Ticker struct {
	cron         *cron.Cron
	orchestrator *services.Orchestrator
	polls        *services.PollService
	clock        clock.Clock
	log          *logger.Logger
	spec         string
}

func NewTicker(orchestrator *services.Orchestrator, polls *services.PollService, clk clock.Clock, log *logger.Logger, spec string) *Ticker {
	if spec == "" {
		spec = "@every 1m"
	}
	return &Ticker{
		cron:         cron.New(cron.WithLocation(clk.Location())),
		orchestrator: orchestrator,
		polls:        polls,
		clock:        clk,
		log:          log,
		spec:         spec,
	}
}

func (t *Ticker) Start(ctx context.Context) error {
	_, err := t.cron.AddFunc(t.spec, func() {
		t.Tick(ctx)
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

// Tick runs one scheduling pass. Exported so the manual advance
// endpoint and tests can invoke it directly.
func (t *Ticker) Tick(ctx context.Context) {
	now := t.clock.Now()
	started := time.Now()
	t.orchestrator.AdvanceAll(ctx, now)
	t.polls.AutoTick(ctx, now)
	t.log.Logger.Debug("scheduler tick complete",
		zap.Duration("elapsed", time.Since(started)))
}

// Stop halts the cron loop and waits for a running job to finish.
func (t *Ticker) Stop() {
	<-t.cron.Stop().Done()
}
