package httpserver

import (
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/server/handlers"
)

// Options configures server wiring that is runtime-specific.
type Options struct {
	// Runner executes generation requests. Required.
	Runner handlers.Runner

	// Optional: run journal queries under /api/runs.
	Runs handlers.RunHistory

	// Optional: metrics recorder and Prometheus exposition under /metrics.
	Recorder          metrics.Recorder
	PrometheusHandler http.Handler

	Logger *slog.Logger
}
