package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/pipeline"
)

type countingRunner struct{ calls int }

func (r *countingRunner) Run(context.Context, pipeline.GenerationRequest) (*pipeline.Result, error) {
	r.calls++
	return &pipeline.Result{RunID: "run-1", RepoURL: "https://github.com/o/r", PagesURL: "https://o.github.io/r/", CommitSHA: "abc"}, nil
}

type emptyHistory struct{}

func (emptyHistory) Recent(int) []eventstore.RunSummary       { return nil }
func (emptyHistory) Run(string) (eventstore.RunSummary, bool) { return eventstore.RunSummary{}, false }
func (emptyHistory) Events(context.Context, string) ([]eventstore.Event, error) {
	return nil, nil
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Secret = "s3cret"
	return &cfg
}

func TestRouter(t *testing.T) {
	runner := &countingRunner{}
	prom := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "# metrics") })
	srv := New(testConfig(), Options{Runner: runner, Runs: emptyHistory{}, PrometheusHandler: prom})
	router := srv.Router()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/", "", http.StatusOK},
		{"healthz", http.MethodGet, "/healthz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"runs", http.MethodGet, "/api/runs", "", http.StatusOK},
		{"unknown run", http.MethodGet, "/api/runs/nope", "", http.StatusNotFound},
		{"generate", http.MethodPost, "/api-endpoint", `{"email":"a","task":"t","round":1,"nonce":"n","secret":"s3cret"}`, http.StatusOK},
		{"generate forbidden", http.MethodPost, "/api-endpoint", `{"email":"a","task":"t","round":1,"nonce":"n","secret":"x"}`, http.StatusForbidden},
		{"wrong method", http.MethodGet, "/api-endpoint", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 1, runner.calls)
}

func TestRouter_OptionalRoutesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv := New(cfg, Options{Runner: &countingRunner{}})
	router := srv.Router()

	for _, target := range []string{"/metrics", "/api/runs"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
}

func TestStartStop(t *testing.T) {
	srv := New(testConfig(), Options{Runner: &countingRunner{}})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.StartWithListener(ln))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	_, err = http.Get("http://" + srv.Addr() + "/healthz")
	assert.Error(t, err)
}
