package eventstore

import "time"

// Event type names.
const (
	TypeRunStarted     = "RunStarted"
	TypeStageCompleted = "StageCompleted"
	TypeStageFailed    = "StageFailed"
	TypeRunCompleted   = "RunCompleted"
	TypeRunFailed      = "RunFailed"
)

// RunStartedPayload describes the request that started a run. The shared
// secret and the brief are never journaled.
type RunStartedPayload struct {
	Task        string `json:"task"`
	Round       string `json:"round"`
	Email       string `json:"email"`
	Attachments int    `json:"attachments"`
}

// StagePayload describes a finished stage.
type StagePayload struct {
	Stage      string `json:"stage"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Fatal      bool   `json:"fatal,omitempty"`
}

// RunCompletedPayload describes a successful run.
type RunCompletedPayload struct {
	RepoURL    string `json:"repo_url"`
	PagesURL   string `json:"pages_url"`
	CommitSHA  string `json:"commit_sha"`
	DurationMS int64  `json:"duration_ms"`
}

// RunFailedPayload describes a failed run.
type RunFailedPayload struct {
	Stage      string `json:"stage"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID string, p RunStartedPayload) (Event, error) {
	return newEvent(runID, TypeRunStarted, p, nil)
}

// NewStageCompleted creates a StageCompleted event; metadata carries small
// stage facts such as the repository name or commit id.
func NewStageCompleted(runID, stage string, d time.Duration, metadata map[string]string) (Event, error) {
	return newEvent(runID, TypeStageCompleted, StagePayload{Stage: stage, DurationMS: d.Milliseconds()}, metadata)
}

// NewStageFailed creates a StageFailed event.
func NewStageFailed(runID, stage string, d time.Duration, err error, fatal bool) (Event, error) {
	return newEvent(runID, TypeStageFailed, StagePayload{Stage: stage, DurationMS: d.Milliseconds(), Error: errString(err), Fatal: fatal}, nil)
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID string, p RunCompletedPayload) (Event, error) {
	return newEvent(runID, TypeRunCompleted, p, nil)
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID, stage string, d time.Duration, err error) (Event, error) {
	return newEvent(runID, TypeRunFailed, RunFailedPayload{Stage: stage, Error: errString(err), DurationMS: d.Milliseconds()}, nil)
}
