package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

var payload = Payload{
	Email:     "student@example.com",
	Task:      "todo",
	Round:     "1",
	Nonce:     "n-1",
	RepoURL:   "https://github.com/octo/todo",
	CommitSHA: "abc123",
	PagesURL:  "https://octo.github.io/todo/",
}

// failingServer answers failStatus for the first failures calls, then 200.
func failingServer(t *testing.T, failures int32, failStatus int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var got Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, payload, got)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if n <= failures {
			w.WriteHeader(failStatus)
			_, _ = w.Write([]byte("not yet"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newNotifier(t *testing.T, url string, sleeper *recordingSleeper, rec metrics.Recorder, mutate ...func(*config.NotifyConfig)) *Notifier {
	t.Helper()
	cfg := config.Defaults().Notify
	for _, m := range mutate {
		m(&cfg)
	}
	n, err := NewNotifier(url, cfg, WithSleeper(sleeper.Sleep), WithRecorder(rec))
	require.NoError(t, err)
	return n
}

func TestNotify_SucceedsOnFifthAttempt(t *testing.T) {
	srv, calls := failingServer(t, 4, http.StatusServiceUnavailable)
	sleeper := &recordingSleeper{}
	rec := metrics.NewMemoryRecorder()

	receipt, err := newNotifier(t, srv.URL, sleeper, rec).Notify(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, 5, receipt.Attempts)
	assert.Equal(t, http.StatusOK, receipt.Status)
	assert.Equal(t, int32(5), calls.Load(), "no further calls after success")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeper.delays)

	ok, failed := rec.NotifyAttempts()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 4, failed)
}

func TestNotify_ExhaustsAttempts(t *testing.T) {
	srv, calls := failingServer(t, 100, http.StatusInternalServerError)
	sleeper := &recordingSleeper{}

	receipt, err := newNotifier(t, srv.URL, sleeper, metrics.NoopRecorder{}).Notify(context.Background(), payload)
	require.Error(t, err)

	assert.Equal(t, errors.CategoryNotification, errors.GetCategory(err))
	assert.Equal(t, 5, receipt.Attempts)
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeper.delays,
		"no wait after the final attempt")

	attempts, ok := errors.ContextValue(err, "attempts")
	require.True(t, ok)
	assert.Equal(t, 5, attempts)
	status, _ := errors.ContextValue(err, "last_status")
	assert.Equal(t, http.StatusInternalServerError, status)
	body, _ := errors.ContextValue(err, "response")
	assert.Equal(t, "not yet", body)
}

func TestNotify_SixAttemptsReachSixteenSeconds(t *testing.T) {
	srv, _ := failingServer(t, 100, http.StatusBadGateway)
	sleeper := &recordingSleeper{}

	_, err := newNotifier(t, srv.URL, sleeper, metrics.NoopRecorder{}, func(c *config.NotifyConfig) { c.MaxAttempts = 6 }).
		Notify(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}, sleeper.delays)
}

func TestNotify_OnlyOKCounts(t *testing.T) {
	srv, calls := failingServer(t, 1, http.StatusAccepted)
	sleeper := &recordingSleeper{}

	receipt, err := newNotifier(t, srv.URL, sleeper, metrics.NoopRecorder{}).Notify(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNotify_TransportErrorIsRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	sleeper := &recordingSleeper{}
	receipt, err := newNotifier(t, url, sleeper, metrics.NoopRecorder{}).Notify(context.Background(), payload)
	require.Error(t, err)
	assert.Equal(t, 5, receipt.Attempts)
	assert.Len(t, sleeper.delays, 4)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}

func TestNotify_ContextCancelledStopsWaiting(t *testing.T) {
	srv, calls := failingServer(t, 100, http.StatusInternalServerError)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sleeper := &recordingSleeper{}
	_, err := newNotifier(t, srv.URL, sleeper, metrics.NoopRecorder{}).Notify(ctx, payload)
	require.Error(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}

func TestNotifier_Schedule(t *testing.T) {
	n, err := NewNotifier("http://example.invalid", config.Defaults().Notify)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, n.Schedule())
}

func TestNewNotifier_RejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		mutate func(*config.NotifyConfig)
	}{
		{"missing url", "", func(*config.NotifyConfig) {}},
		{"zero initial backoff", "http://example.invalid", func(c *config.NotifyConfig) { c.InitialBackoff = 0 }},
		{"zero max backoff", "http://example.invalid", func(c *config.NotifyConfig) { c.MaxBackoff = 0 }},
		{"no attempts", "http://example.invalid", func(c *config.NotifyConfig) { c.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults().Notify
			tt.mutate(&cfg)
			_, err := NewNotifier(tt.url, cfg)
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}
}
