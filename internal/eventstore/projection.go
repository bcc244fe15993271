// Package eventstore journals pipeline runs as a sequence of stage events in
// SQLite and projects them into run summaries.
package eventstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunSummary is a read model of one run.
type RunSummary struct {
	RunID        string     `json:"run_id"`
	Task         string     `json:"task,omitempty"`
	Round        string     `json:"round,omitempty"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMS   int64      `json:"duration_ms,omitempty"`
	Stages       []string   `json:"stages,omitempty"`
	Repository   string     `json:"repository,omitempty"`
	RepoURL      string     `json:"repo_url,omitempty"`
	PagesURL     string     `json:"pages_url,omitempty"`
	CommitSHA    string     `json:"commit_sha,omitempty"`
	Warnings     []string   `json:"warnings,omitempty"`
	ErrorStage   string     `json:"error_stage,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// RunHistoryProjection maintains an in-memory view of run history,
// reconstructed from the events of a Store.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store holding at
// most maxSize runs.
func NewRunHistoryProjection(store Store, maxSize int) *RunHistoryProjection {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxSize,
	}
}

// Rebuild reconstructs the projection from all events in the store.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.trimLocked()
	return nil
}

// Apply processes a single event.
func (p *RunHistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
	p.trimLocked()
}

func (p *RunHistoryProjection) applyEventLocked(event Event) {
	runID := event.RunID()
	if runID == "" {
		return
	}
	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Status: RunStatusRunning, StartedAt: event.Timestamp()}
		p.runs[runID] = summary
	}

	switch event.Type() {
	case TypeRunStarted:
		var payload RunStartedPayload
		if decodePayload(event, &payload) {
			summary.Task = payload.Task
			summary.Round = payload.Round
		}
		summary.StartedAt = event.Timestamp()

	case TypeStageCompleted:
		var payload StagePayload
		if decodePayload(event, &payload) {
			summary.Stages = append(summary.Stages, payload.Stage)
		}
		if repo, ok := event.Metadata()["repository"]; ok {
			summary.Repository = repo
		}

	case TypeStageFailed:
		var payload StagePayload
		if decodePayload(event, &payload) && !payload.Fatal {
			summary.Warnings = append(summary.Warnings, payload.Stage+": "+payload.Error)
		}

	case TypeRunCompleted:
		var payload RunCompletedPayload
		if decodePayload(event, &payload) {
			summary.RepoURL = payload.RepoURL
			summary.PagesURL = payload.PagesURL
			summary.CommitSHA = payload.CommitSHA
			summary.DurationMS = payload.DurationMS
		}
		ts := event.Timestamp()
		summary.CompletedAt = &ts
		summary.Status = RunStatusSucceeded

	case TypeRunFailed:
		var payload RunFailedPayload
		if decodePayload(event, &payload) {
			summary.ErrorStage = payload.Stage
			summary.ErrorMessage = payload.Error
			summary.DurationMS = payload.DurationMS
		}
		ts := event.Timestamp()
		summary.CompletedAt = &ts
		summary.Status = RunStatusFailed
	}
}

// trimLocked drops the oldest runs beyond maxSize.
func (p *RunHistoryProjection) trimLocked() {
	if len(p.runs) <= p.maxSize {
		return
	}
	ordered := p.sortedLocked()
	for _, s := range ordered[p.maxSize:] {
		delete(p.runs, s.RunID)
	}
}

func (p *RunHistoryProjection) sortedLocked() []*RunSummary {
	out := make([]*RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Recent returns up to limit runs, newest first.
func (p *RunHistoryProjection) Recent(limit int) []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ordered := p.sortedLocked()
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]RunSummary, len(ordered))
	for i, s := range ordered {
		out[i] = copySummary(s)
	}
	return out
}

// Get returns the summary of one run.
func (p *RunHistoryProjection) Get(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return copySummary(s), true
}

// Forget drops finished runs that completed before cutoff.
func (p *RunHistoryProjection) Forget(cutoff time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, s := range p.runs {
		if s.CompletedAt != nil && s.CompletedAt.Before(cutoff) {
			delete(p.runs, id)
			n++
		}
	}
	return n
}

func copySummary(s *RunSummary) RunSummary {
	c := *s
	c.Stages = append([]string(nil), s.Stages...)
	c.Warnings = append([]string(nil), s.Warnings...)
	if s.CompletedAt != nil {
		ts := *s.CompletedAt
		c.CompletedAt = &ts
	}
	return c
}
