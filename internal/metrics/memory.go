package metrics

import (
	"sync"
	"time"
)

// MemoryRecorder counts events in memory. It is safe for concurrent use.
type MemoryRecorder struct {
	mu             sync.Mutex
	stageDurations map[string][]time.Duration
	stageResults   map[string]map[ResultLabel]int
	runDurations   int
	runOutcomes    map[RunOutcomeLabel]int
	inFlight       int
	collisions     int
	blobs          int
	notifyOK       int
	notifyFailed   int
}

var _ Recorder = (*MemoryRecorder)(nil)

// NewMemoryRecorder returns an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		stageDurations: map[string][]time.Duration{},
		stageResults:   map[string]map[ResultLabel]int{},
		runOutcomes:    map[RunOutcomeLabel]int{},
	}
}

func (m *MemoryRecorder) ObserveStageDuration(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations[stage] = append(m.stageDurations[stage], d)
}

func (m *MemoryRecorder) IncStageResult(stage string, result ResultLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.stageResults[stage]
	if !ok {
		r = map[ResultLabel]int{}
		m.stageResults[stage] = r
	}
	r[result]++
}

func (m *MemoryRecorder) ObserveRunDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runDurations++
}

func (m *MemoryRecorder) IncRunOutcome(outcome RunOutcomeLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runOutcomes[outcome]++
}

func (m *MemoryRecorder) IncRunsInFlight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight++
}

func (m *MemoryRecorder) DecRunsInFlight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
}

func (m *MemoryRecorder) IncNameCollision() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collisions++
}

func (m *MemoryRecorder) AddBlobsCreated(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs += n
}

func (m *MemoryRecorder) IncNotifyAttempt(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.notifyOK++
	} else {
		m.notifyFailed++
	}
}

// StageResult returns how often stage ended with result.
func (m *MemoryRecorder) StageResult(stage string, result ResultLabel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageResults[stage][result]
}

// StageObservations returns how many durations were observed for stage.
func (m *MemoryRecorder) StageObservations(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stageDurations[stage])
}

// RunOutcome returns how often a run ended with outcome.
func (m *MemoryRecorder) RunOutcome(outcome RunOutcomeLabel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runOutcomes[outcome]
}

// InFlight returns the current number of running pipelines.
func (m *MemoryRecorder) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Collisions returns the number of repository name collisions.
func (m *MemoryRecorder) Collisions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collisions
}

// Blobs returns the number of blobs created.
func (m *MemoryRecorder) Blobs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blobs
}

// NotifyAttempts returns successful and failed callback attempts.
func (m *MemoryRecorder) NotifyAttempts() (ok, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifyOK, m.notifyFailed
}
