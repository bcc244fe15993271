package eventstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// Journal appends run events to a Store and keeps a projection current.
type Journal struct {
	store      Store
	projection *RunHistoryProjection
	logger     *slog.Logger
}

// OpenJournal opens the SQLite journal at path and rebuilds its projection.
func OpenJournal(ctx context.Context, path string, logger *slog.Logger) (*Journal, error) {
	store, err := NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	j := NewJournal(store, logger)
	if err := j.projection.Rebuild(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return j, nil
}

// NewJournal wraps an existing store.
func NewJournal(store Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		store:      store,
		projection: NewRunHistoryProjection(store, 0),
		logger:     logger,
	}
}

// Record persists event and applies it to the projection. A nil event is
// ignored. Persistence failures are logged and returned; the projection is
// updated regardless so the live view stays complete.
func (j *Journal) Record(ctx context.Context, event Event) error {
	if j == nil || event == nil {
		return nil
	}
	j.projection.Apply(event)
	if err := j.store.Append(ctx, event); err != nil {
		j.logger.Warn("Failed to journal event",
			logfields.RunID(event.RunID()),
			slog.String("event_type", event.Type()),
			logfields.Error(err))
		return err
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(limit int) []RunSummary {
	return j.projection.Recent(limit)
}

// Run returns one run summary.
func (j *Journal) Run(runID string) (RunSummary, bool) {
	return j.projection.Get(runID)
}

// Events returns the raw events of one run.
func (j *Journal) Events(ctx context.Context, runID string) ([]Event, error) {
	return j.store.GetByRunID(ctx, runID)
}

// Store exposes the underlying store.
func (j *Journal) Store() Store { return j.store }

// Projection exposes the run history projection.
func (j *Journal) Projection() *RunHistoryProjection { return j.projection }

// Close closes the underlying store.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.store.Close()
}
