// Package notify delivers run results to the evaluation callback URL.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/retry"
	"git.home.luguber.info/inful/pagesmith/internal/version"
)

const maxResponseBody = 1024

// Payload is the body posted to the evaluation endpoint.
type Payload struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     string `json:"round"`
	Nonce     string `json:"nonce"`
	RepoURL   string `json:"repo_url"`
	CommitSHA string `json:"commit_sha"`
	PagesURL  string `json:"pages_url"`
}

// Receipt describes a delivery.
type Receipt struct {
	Attempts int
	Status   int
}

// Notifier posts payloads to a fixed URL, retrying with backoff.
type Notifier struct {
	url        string
	httpClient *http.Client
	runner     retry.Runner
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option customises a Notifier.
type Option func(*Notifier)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(n *Notifier) { n.runner.Sleep = s }
}

// WithHTTPClient replaces the HTTP client. Its Timeout bounds each attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.httpClient = c }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(n *Notifier) { n.recorder = r }
}

// WithLogger installs a logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// NewNotifier builds a notifier for url from the delivery settings. Settings
// that cannot form a retry policy are a config error.
func NewNotifier(url string, cfg config.NotifyConfig, opts ...Option) (*Notifier, error) {
	if url == "" {
		return nil, errors.ConfigError("notification url is required").Build()
	}
	raw := retry.Policy{Mode: cfg.Backoff, Initial: cfg.InitialBackoff, Max: cfg.MaxBackoff, MaxRetries: cfg.MaxAttempts - 1}
	if err := raw.Validate(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid notification retry policy").Build()
	}
	n := &Notifier{
		url:        url,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		runner: retry.Runner{
			Policy: retry.NewPolicy(cfg.Backoff, cfg.InitialBackoff, cfg.MaxBackoff, cfg.MaxAttempts-1),
		},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Schedule lists the waits between attempts when every attempt fails.
func (n *Notifier) Schedule() []time.Duration {
	return n.runner.Policy.Schedule()
}

// Notify posts p until the endpoint answers 200 or attempts run out. Only
// 200 counts as delivered. Exhaustion returns a notification error carrying
// the attempt count and the last failure.
func (n *Notifier) Notify(ctx context.Context, p Payload) (Receipt, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Receipt{}, errors.NotificationError("failed to encode payload").WithCause(err).Build()
	}

	runner := n.runner
	runner.OnRetry = func(attempt int, delay time.Duration, err error) {
		n.logger.Warn("Notification attempt failed, retrying",
			logfields.Attempt(attempt),
			logfields.Duration(delay),
			logfields.Error(err))
	}

	var lastStatus int
	attempts, err := runner.Do(ctx, func(ctx context.Context, attempt int) error {
		status, aerr := n.post(ctx, body)
		lastStatus = status
		n.recorder.IncNotifyAttempt(aerr == nil)
		if aerr == nil {
			n.logger.Info("Notification delivered", logfields.Attempt(attempt), logfields.Status(status))
		}
		return aerr
	})
	if err != nil {
		return Receipt{Attempts: attempts, Status: lastStatus}, errors.WrapError(err, errors.CategoryNotification, "evaluation callback failed").
			WithContext("attempts", attempts).
			WithContext("last_status", lastStatus).
			WithContext("url", n.url).
			Build()
	}
	return Receipt{Attempts: attempts, Status: lastStatus}, nil
}

func (n *Notifier) post(ctx context.Context, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.NotificationError("failed to create callback request").WithCause(err).Build()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return 0, errors.NetworkError("callback request failed").WithCause(err).Retryable().Build()
	}
	defer func() { _ = resp.Body.Close() }()

	limited, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, errors.NetworkError(fmt.Sprintf("callback answered %s", resp.Status)).
			WithContext("code", resp.StatusCode).
			WithContext("response", strings.TrimSpace(string(limited))).
			Retryable().
			Build()
	}
	return resp.StatusCode, nil
}
