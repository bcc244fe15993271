package eventstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Retention periodically deletes journal entries older than a maximum age.
type Retention struct {
	scheduler gocron.Scheduler
	journal   *Journal
	maxAge    time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetention creates a pruning scheduler for journal. Call Start to begin.
func NewRetention(journal *Journal, maxAge, interval time.Duration, logger *slog.Logger) (*Retention, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	r := &Retention{scheduler: s, journal: journal, maxAge: maxAge, logger: logger, now: time.Now}

	if _, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.prune),
		gocron.WithName("journal-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create retention job: %w", err)
	}
	return r, nil
}

// Start begins the scheduler.
func (r *Retention) Start() {
	r.logger.Info("Starting journal retention", slog.Duration("max_age", r.maxAge))
	r.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (r *Retention) Stop() error {
	return r.scheduler.Shutdown()
}

// PruneNow deletes expired entries immediately and reports how many went.
func (r *Retention) PruneNow(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.maxAge)
	n, err := r.journal.Store().DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	r.journal.Projection().Forget(cutoff)
	return n, nil
}

func (r *Retention) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := r.PruneNow(ctx)
	if err != nil {
		r.logger.Error("Journal retention failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		r.logger.Info("Pruned journal entries", slog.Int64("deleted", n))
	}
}
