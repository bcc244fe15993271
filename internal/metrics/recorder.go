package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFailed  ResultLabel = "failed"
)

// RunOutcomeLabel enumerates final run outcomes.
type RunOutcomeLabel string

const (
	OutcomeSuccess  RunOutcomeLabel = "success"
	OutcomeRejected RunOutcomeLabel = "rejected"
	OutcomeFailed   RunOutcomeLabel = "failed"
)

// Recorder defines observability hooks for pipeline runs and their stages.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcomeLabel)
	IncRunsInFlight()
	DecRunsInFlight()
	IncNameCollision()
	AddBlobsCreated(n int)
	IncNotifyAttempt(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)              {}
func (NoopRecorder) IncRunsInFlight()                           {}
func (NoopRecorder) DecRunsInFlight()                           {}
func (NoopRecorder) IncNameCollision()                          {}
func (NoopRecorder) AddBlobsCreated(int)                        {}
func (NoopRecorder) IncNotifyAttempt(bool)                      {}
