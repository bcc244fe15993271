package eventstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustEvents returns a helper that unwraps an event constructor result.
func mustEvents(t *testing.T) func(Event, error) Event {
	return func(e Event, err error) Event {
		t.Helper()
		require.NoError(t, err)
		return e
	}
}

func TestJournal_RecordsSuccessfulRun(t *testing.T) {
	ctx := context.Background()
	must := mustEvents(t)
	journal := NewJournal(newMemoryStore(t), nil)

	require.NoError(t, journal.Record(ctx, must(NewRunStarted("run-1", RunStartedPayload{Task: "captcha", Round: "1"}))))
	require.NoError(t, journal.Record(ctx, must(NewStageCompleted("run-1", "provision", time.Second, map[string]string{"repository": "octo/captcha"}))))
	require.NoError(t, journal.Record(ctx, must(NewStageFailed("run-1", "pages", time.Second, errors.New("pages disabled"), false))))
	require.NoError(t, journal.Record(ctx, must(NewRunCompleted("run-1", RunCompletedPayload{
		RepoURL:   "https://github.com/octo/captcha",
		PagesURL:  "https://octo.github.io/captcha/",
		CommitSHA: "abc",
	}))))

	summary, ok := journal.Run("run-1")
	require.True(t, ok)
	assert.Equal(t, RunStatusSucceeded, summary.Status)
	assert.Equal(t, "captcha", summary.Task)
	assert.Equal(t, "octo/captcha", summary.Repository)
	assert.Equal(t, []string{"provision"}, summary.Stages)
	assert.Equal(t, []string{"pages: pages disabled"}, summary.Warnings)
	assert.Equal(t, "abc", summary.CommitSHA)
	assert.NotNil(t, summary.CompletedAt)
}

func TestProjection_RebuildFromStore(t *testing.T) {
	ctx := context.Background()
	must := mustEvents(t)
	store := newMemoryStore(t)

	require.NoError(t, store.Append(ctx, must(NewRunStarted("run-a", RunStartedPayload{Task: "a"}))))
	require.NoError(t, store.Append(ctx, must(NewRunFailed("run-a", "generate", time.Second, errors.New("llm down")))))

	projection := NewRunHistoryProjection(store, 10)
	require.NoError(t, projection.Rebuild(ctx))

	summary, ok := projection.Get("run-a")
	require.True(t, ok)
	assert.Equal(t, RunStatusFailed, summary.Status)
	assert.Equal(t, "generate", summary.ErrorStage)
	assert.Equal(t, "llm down", summary.ErrorMessage)
}

func TestProjection_RecentOrderingAndTrim(t *testing.T) {
	projection := NewRunHistoryProjection(nil, 3)
	base := time.Now()
	for i := range 5 {
		projection.Apply(&BaseEvent{
			EventRunID:     fmt.Sprintf("run-%d", i),
			EventType:      TypeRunStarted,
			EventTimestamp: base.Add(time.Duration(i) * time.Minute),
			EventPayload:   []byte(`{}`),
		})
	}

	recent := projection.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "run-4", recent[0].RunID)
	assert.Equal(t, "run-2", recent[2].RunID)

	assert.Len(t, projection.Recent(1), 1)
	_, ok := projection.Get("run-0")
	assert.False(t, ok)
}

func TestRetention_PruneNow(t *testing.T) {
	ctx := context.Background()
	must := mustEvents(t)
	journal := NewJournal(newMemoryStore(t), nil)
	old := time.Now().Add(-10 * 24 * time.Hour)

	require.NoError(t, journal.Record(ctx, &BaseEvent{EventRunID: "old", EventType: TypeRunStarted, EventTimestamp: old, EventPayload: []byte(`{}`)}))
	require.NoError(t, journal.Record(ctx, &BaseEvent{EventRunID: "old", EventType: TypeRunCompleted, EventTimestamp: old, EventPayload: []byte(`{}`)}))
	require.NoError(t, journal.Record(ctx, must(NewRunStarted("fresh", RunStartedPayload{Task: "fresh"}))))

	retention, err := NewRetention(journal, 7*24*time.Hour, time.Hour, nil)
	require.NoError(t, err)
	retention.Start()
	t.Cleanup(func() { _ = retention.Stop() })

	deleted, err := retention.PruneNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, ok := journal.Run("old")
	assert.False(t, ok)
	_, ok = journal.Run("fresh")
	assert.True(t, ok)
}
