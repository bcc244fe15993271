package commands

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/codegen"
	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/eventbus"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/llm"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/notify"
	"git.home.luguber.info/inful/pagesmith/internal/pipeline"
)

const retentionInterval = time.Hour

// app holds the long-lived collaborators of one process.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *pipeline.Pipeline
	recorder  metrics.Recorder
	promHTTP  http.Handler
	journal   *eventstore.Journal
	retention *eventstore.Retention
	bus       eventbus.Publisher
}

// newApp wires the pipeline from cfg. Optional parts (metrics, journal,
// event bus) are only built when configured.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, recorder: metrics.NoopRecorder{}, bus: eventbus.NoopPublisher{}}

	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(reg)
		a.promHTTP = metrics.HTTPHandler(reg)
	}

	if cfg.Journal.Enabled() {
		journal, err := eventstore.OpenJournal(ctx, cfg.Journal.Path, logger)
		if err != nil {
			return nil, err
		}
		a.journal = journal
		retention, err := eventstore.NewRetention(journal, cfg.Journal.Retention, retentionInterval, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.retention = retention
	}

	bus, err := eventbus.New(cfg.NATS, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.bus = bus

	hosting, err := forge.NewGitHubClient(cfg.GitHub)
	if err != nil {
		a.close()
		return nil, err
	}

	notifier, err := notify.NewNotifier(cfg.EvaluationURL, cfg.Notify,
		notify.WithRecorder(a.recorder),
		notify.WithLogger(logger))
	if err != nil {
		a.close()
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithRecorder(a.recorder),
		pipeline.WithEventBus(a.bus),
		pipeline.WithLogger(logger),
	}
	if a.journal != nil {
		opts = append(opts, pipeline.WithJournal(a.journal))
	}

	a.pipeline = pipeline.New(pipeline.Stages{
		Generator:   codegen.NewGenerator(llm.NewOpenAIClient(cfg.LLM, logger), cfg.LLM, logger),
		Provisioner: pipeline.NewProvisioner(hosting, cfg.Provision, a.recorder, logger),
		Publisher:   pipeline.NewPublisher(hosting, cfg.Publish, a.recorder, logger),
		Pages:       pipeline.NewPagesEnabler(hosting, cfg.Pages, logger),
		Notifier:    notifier,
	}, opts...)

	return a, nil
}

// runHistory returns the journal read side, or nil when no journal is kept.
func (a *app) runHistory() *eventstore.Journal {
	return a.journal
}

func (a *app) close() {
	if a.retention != nil {
		if err := a.retention.Stop(); err != nil {
			a.logger.Warn("Failed to stop journal retention", logfields.Error(err))
		}
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Warn("Failed to close event bus", logfields.Error(err))
		}
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("Failed to close run journal", logfields.Error(err))
		}
	}
}
