// Package eventbus announces finished pipeline runs to subscribers.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Outcome values carried by RunOutcome.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// RunOutcome is the message published when a run finishes.
type RunOutcome struct {
	RunID      string    `json:"run_id"`
	Task       string    `json:"task"`
	Round      string    `json:"round"`
	Outcome    string    `json:"outcome"`
	RepoURL    string    `json:"repo_url,omitempty"`
	PagesURL   string    `json:"pages_url,omitempty"`
	CommitSHA  string    `json:"commit_sha,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Marshal encodes the outcome as JSON.
func (o RunOutcome) Marshal() ([]byte, error) {
	return json.Marshal(o)
}

// Publisher delivers run outcomes.
type Publisher interface {
	Publish(ctx context.Context, outcome RunOutcome) error
	Close() error
}

// NoopPublisher discards every outcome.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, RunOutcome) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

// MemoryPublisher keeps outcomes in memory; used by tests and the run command.
type MemoryPublisher struct {
	mu       sync.Mutex
	outcomes []RunOutcome
}

// Publish stores outcome.
func (m *MemoryPublisher) Publish(_ context.Context, outcome RunOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

// Close is a no-op.
func (m *MemoryPublisher) Close() error { return nil }

// Outcomes returns a copy of everything published so far.
func (m *MemoryPublisher) Outcomes() []RunOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RunOutcome(nil), m.outcomes...)
}
