package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/nodebase/pkg/metrics"
	"github.com/dukex/nodebase/pkg/steps"
	"github.com/robfig/cron/v3"
)

// DefaultJanitorSchedule runs the purge at the top of every hour.
const DefaultJanitorSchedule = "0 * * * *"

// Janitor periodically removes step checkpoints older than the retention.
type Janitor struct {
	store     steps.Store
	retention time.Duration
	schedule  string
	metrics   *metrics.Collector
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron
}

func NewJanitor(store steps.Store, retention time.Duration, schedule string, collector *metrics.Collector, logger *slog.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}

	return &Janitor{
		store:     store,
		retention: retention,
		schedule:  schedule,
		metrics:   collector,
		logger:    logger.With("module", "checkpoint_janitor"),
		now:       time.Now,
	}
}

// ValidateSchedule parses a standard 5-field cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}

	return nil
}

func (j *Janitor) Start(ctx context.Context) error {
	j.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Purge(ctx); err != nil {
			j.logger.ErrorContext(ctx, "Checkpoint purge failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule checkpoint purge: %w", err)
	}

	j.cron.Start()
	j.logger.InfoContext(ctx, "Checkpoint janitor started", "schedule", j.schedule, "retention", j.retention, "entry_id", entryID)

	return nil
}

// Stop waits for a running purge to return.
func (j *Janitor) Stop() {
	if j.cron == nil {
		return
	}

	<-j.cron.Stop().Done()
}

// Purge removes checkpoints completed before now minus the retention.
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	before := j.now().Add(-j.retention)

	purged, err := j.store.PurgeCheckpoints(ctx, before)
	if err != nil {
		return 0, err
	}

	j.metrics.RecordCheckpointsPurged(purged)

	if purged > 0 {
		j.logger.InfoContext(ctx, "Purged step checkpoints", "count", purged, "before", before)
	}

	return purged, nil
}
