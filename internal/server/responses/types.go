// Package responses defines API response types used by pagesmith HTTP handlers.
package responses

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
)

// HealthResponse represents the health probe response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// GenerateResponse is returned when a pipeline run succeeds.
type GenerateResponse struct {
	Success   bool     `json:"success"`
	RunID     string   `json:"run_id"`
	RepoURL   string   `json:"repo_url"`
	PagesURL  string   `json:"pages_url"`
	CommitSHA string   `json:"commit_sha"`
	Message   string   `json:"message"`
	Warnings  []string `json:"warnings,omitempty"`
}

// RunsResponse lists recent runs from the journal.
type RunsResponse struct {
	Count int                     `json:"count"`
	Runs  []eventstore.RunSummary `json:"runs"`
}

// RunEvent is one journaled stage event of a run.
type RunEvent struct {
	ID        int64             `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// RunDetailResponse is a run summary with its full event trail.
type RunDetailResponse struct {
	Run    eventstore.RunSummary `json:"run"`
	Events []RunEvent            `json:"events"`
}
