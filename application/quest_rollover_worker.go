package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"pyquest/infrastructure/observability"
	"pyquest/models"
)

// QuestSeeder creates a day's quest rows. service.QuestService satisfies it.
type QuestSeeder interface {
	SeedDay(ctx context.Context, at time.Time) (int64, error)
}

// QuestRolloverWorker seeds each day's quests at local midnight
type QuestRolloverWorker struct {
	seeder   QuestSeeder
	location *time.Location
	metrics  *observability.MetricsProvider
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

// NewQuestRolloverWorker creates a new rollover worker. metrics may be nil.
func NewQuestRolloverWorker(seeder QuestSeeder, loc *time.Location, metrics *observability.MetricsProvider) *QuestRolloverWorker {
	if loc == nil {
		loc = time.Local
	}
	return &QuestRolloverWorker{
		seeder:   seeder,
		location: loc,
		metrics:  metrics,
		now:      time.Now,
		after:    time.After,
	}
}

// Retry delays after a failed seed. Quests are missing until a seed succeeds.
const (
	initialRetryDelay = time.Minute
	maxRetryDelay     = 30 * time.Minute
)

// Start seeds today immediately, then again at every local midnight. A failed seed is
// retried with a doubling delay capped at maxRetryDelay, never past the next midnight.
// The returned function stops the worker.
func (w *QuestRolloverWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		var retryDelay time.Duration
		if _, err := w.RunOnce(ctx); err != nil {
			retryDelay = initialRetryDelay
		}

		for {
			waitDuration := w.untilNextRun()
			if retryDelay > 0 && retryDelay < waitDuration {
				waitDuration = retryDelay
			}
			log.WithFields(log.Fields{
				"wait":  waitDuration.String(),
				"retry": retryDelay > 0,
			}).Info("Quest rollover worker waiting for next run")

			select {
			case <-ctx.Done():
				log.Info("Quest rollover worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Quest rollover worker shutting down (stop requested)...")
				return
			case <-w.after(waitDuration):
				if _, err := w.RunOnce(ctx); err != nil {
					retryDelay = nextRetryDelay(retryDelay)
				} else {
					retryDelay = 0
				}
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() { close(stopChan) })
	}
}

// RunOnce seeds quests for the current day. Seeding is idempotent, so a retry after a
// partial failure only creates the missing rows.
func (w *QuestRolloverWorker) RunOnce(ctx context.Context) (int64, error) {
	now := w.now()
	created, err := w.seeder.SeedDay(ctx, now)
	if err != nil {
		log.WithError(err).Error("Failed to seed daily quests")
		return 0, err
	}

	w.metrics.RecordQuestsSeeded(created)
	log.WithFields(log.Fields{
		"day":     models.DayBucketFor(now, w.location).Start.Format("2006-01-02"),
		"created": created,
	}).Info("Completed daily quest rollover")
	return created, nil
}

func nextRetryDelay(current time.Duration) time.Duration {
	if current <= 0 {
		return initialRetryDelay
	}
	if next := current * 2; next < maxRetryDelay {
		return next
	}
	return maxRetryDelay
}

// untilNextRun returns the wait until the next local midnight. A day bucket's end
// accounts for DST, so the wait is not always 24h.
func (w *QuestRolloverWorker) untilNextRun() time.Duration {
	now := w.now()
	next := models.DayBucketFor(now, w.location).End
	if wait := next.Sub(now); wait > 0 {
		return wait
	}
	return time.Second
}
