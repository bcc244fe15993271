package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagesmith/internal/codegen"
	"git.home.luguber.info/inful/pagesmith/internal/eventbus"
	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/notify"
)

// Generator produces the files of an app.
type Generator interface {
	Generate(ctx context.Context, brief string, attachments []codegen.Attachment, task string) (FileSet, error)
}

// Notifier reports a finished run to the evaluator.
type Notifier interface {
	Notify(ctx context.Context, p notify.Payload) (notify.Receipt, error)
}

// Stages bundles the collaborators of a Pipeline.
type Stages struct {
	Generator   Generator
	Provisioner *Provisioner
	Publisher   *Publisher
	Pages       *PagesEnabler
	Notifier    Notifier
}

// Pipeline runs the stages of one generation request in order.
type Pipeline struct {
	stages   Stages
	recorder metrics.Recorder
	journal  *eventstore.Journal
	bus      eventbus.Publisher
	logger   *slog.Logger
	newRunID func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithJournal records stage events in j.
func WithJournal(j *eventstore.Journal) Option {
	return func(p *Pipeline) { p.journal = j }
}

// WithEventBus announces run outcomes on b.
func WithEventBus(b eventbus.Publisher) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.bus = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRunIDs replaces the run id generator.
func WithRunIDs(fn func() string) Option {
	return func(p *Pipeline) { p.newRunID = fn }
}

// New creates a pipeline over stages.
func New(stages Stages, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:   stages,
		recorder: metrics.NoopRecorder{},
		bus:      eventbus.NoopPublisher{},
		logger:   slog.Default(),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the per-run state shared by the stage helpers.
type run struct {
	id      string
	req     GenerationRequest
	logger  *slog.Logger
	started time.Time
}

// Run executes generate, provision, publish, pages and notify. The first
// fatal stage error aborts the run; a static hosting failure is recorded as
// a warning. Nothing created remotely is rolled back.
func (p *Pipeline) Run(ctx context.Context, req GenerationRequest) (*Result, error) {
	r := &run{
		id:      p.newRunID(),
		req:     req,
		started: time.Now(),
	}
	r.logger = p.logger.With(logfields.RunID(r.id), logfields.Task(req.Task), logfields.Round(req.Round.String()))

	p.recorder.IncRunsInFlight()
	defer p.recorder.DecRunsInFlight()

	r.logger.Info("Run started", slog.Int("attachments", len(req.Attachments)))
	p.record(ctx, r, func() (eventstore.Event, error) {
		return eventstore.NewRunStarted(r.id, eventstore.RunStartedPayload{
			Task:        req.Task,
			Round:       req.Round.String(),
			Email:       req.Email,
			Attachments: len(req.Attachments),
		})
	})

	result := &Result{RunID: r.id}

	var files FileSet
	if err := p.stage(ctx, r, StageGenerate, nil, func(ctx context.Context) error {
		var err error
		files, err = p.stages.Generator.Generate(ctx, req.Brief, req.Attachments, req.Task)
		return err
	}); err != nil {
		return nil, p.fail(ctx, r, StageGenerate, err)
	}

	var handle *RepositoryHandle
	if err := p.stage(ctx, r, StageProvision, nil, func(ctx context.Context) error {
		var err error
		handle, err = p.stages.Provisioner.Provision(ctx, req.Task, describe(req))
		return err
	}); err != nil {
		return nil, p.fail(ctx, r, StageProvision, err)
	}
	result.Repository = handle.FullName()
	result.RepoURL = handle.HTMLURL
	r.logger = r.logger.With(logfields.Repository(handle.FullName()))

	var commit CommitResult
	if err := p.stage(ctx, r, StagePublish, map[string]string{"repository": handle.FullName()}, func(ctx context.Context) error {
		var err error
		commit, err = p.stages.Publisher.Publish(ctx, handle, files)
		return err
	}); err != nil {
		return nil, p.fail(ctx, r, StagePublish, err)
	}
	result.CommitSHA = commit.SHA

	// Static hosting failures never abort the run.
	_ = p.stage(ctx, r, StagePages, nil, func(ctx context.Context) error {
		var err error
		result.PagesURL, err = p.stages.Pages.Enable(ctx, handle)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
		return err
	})

	if err := p.stage(ctx, r, StageNotify, nil, func(ctx context.Context) error {
		receipt, err := p.stages.Notifier.Notify(ctx, notify.Payload{
			Email:     req.Email,
			Task:      req.Task,
			Round:     req.Round.String(),
			Nonce:     req.Nonce,
			RepoURL:   result.RepoURL,
			CommitSHA: result.CommitSHA,
			PagesURL:  result.PagesURL,
		})
		result.NotifyAttempts = receipt.Attempts
		return err
	}); err != nil {
		return nil, p.fail(ctx, r, StageNotify, err)
	}

	result.Duration = time.Since(r.started)
	p.recorder.ObserveRunDuration(result.Duration)
	p.recorder.IncRunOutcome(metrics.OutcomeSuccess)
	p.record(ctx, r, func() (eventstore.Event, error) {
		return eventstore.NewRunCompleted(r.id, eventstore.RunCompletedPayload{
			RepoURL:    result.RepoURL,
			PagesURL:   result.PagesURL,
			CommitSHA:  result.CommitSHA,
			DurationMS: result.Duration.Milliseconds(),
		})
	})
	p.announce(ctx, r, eventbus.RunOutcome{
		Outcome:   eventbus.OutcomeSucceeded,
		RepoURL:   result.RepoURL,
		PagesURL:  result.PagesURL,
		CommitSHA: result.CommitSHA,
	})
	r.logger.Info("Run completed",
		logfields.Commit(result.CommitSHA),
		logfields.URL(result.PagesURL),
		logfields.Duration(result.Duration))
	return result, nil
}

// stage runs fn and records its duration and result. Errors of the pages
// stage are recorded as warnings.
func (p *Pipeline) stage(ctx context.Context, r *run, name string, metadata map[string]string, fn func(context.Context) error) error {
	start := time.Now()
	r.logger.Debug("Stage started", logfields.Stage(name))

	err := fn(ctx)
	d := time.Since(start)
	p.recorder.ObserveStageDuration(name, d)

	if err == nil {
		p.recorder.IncStageResult(name, metrics.ResultSuccess)
		r.logger.Info("Stage completed", logfields.Stage(name), logfields.Duration(d))
		p.record(ctx, r, func() (eventstore.Event, error) {
			return eventstore.NewStageCompleted(r.id, name, d, metadata)
		})
		return nil
	}

	fatal := name != StagePages
	if fatal {
		p.recorder.IncStageResult(name, metrics.ResultFailed)
	} else {
		p.recorder.IncStageResult(name, metrics.ResultWarning)
	}
	p.record(ctx, r, func() (eventstore.Event, error) {
		return eventstore.NewStageFailed(r.id, name, d, err, fatal)
	})
	return err
}

// fail finishes a run that stopped at stage.
func (p *Pipeline) fail(ctx context.Context, r *run, stage string, err error) error {
	d := time.Since(r.started)
	p.recorder.ObserveRunDuration(d)
	p.recorder.IncRunOutcome(metrics.OutcomeFailed)

	level := slog.LevelError
	if errors.GetSeverity(err) == errors.SeverityWarning {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "Run failed", logfields.Stage(stage), logfields.Error(err), logfields.Duration(d))

	p.record(ctx, r, func() (eventstore.Event, error) {
		return eventstore.NewRunFailed(r.id, stage, d, err)
	})
	p.announce(ctx, r, eventbus.RunOutcome{
		Outcome: eventbus.OutcomeFailed,
		Stage:   stage,
		Error:   err.Error(),
	})

	if !errors.IsClassified(err) {
		return errors.WrapError(err, errors.CategoryInternal, fmt.Sprintf("%s stage failed", stage)).
			WithContext("stage", stage).
			Build()
	}
	return err
}

func (p *Pipeline) record(ctx context.Context, r *run, build func() (eventstore.Event, error)) {
	if p.journal == nil {
		return
	}
	event, err := build()
	if err != nil {
		r.logger.Warn("Failed to build journal event", logfields.Error(err))
		return
	}
	_ = p.journal.Record(ctx, event)
}

func (p *Pipeline) announce(ctx context.Context, r *run, outcome eventbus.RunOutcome) {
	outcome.RunID = r.id
	outcome.Task = r.req.Task
	outcome.Round = r.req.Round.String()
	outcome.DurationMS = time.Since(r.started).Milliseconds()
	outcome.Timestamp = time.Now()
	if err := p.bus.Publish(ctx, outcome); err != nil {
		r.logger.Warn("Failed to announce run outcome", logfields.Error(err))
	}
}

// describe builds the repository description from the request.
func describe(req GenerationRequest) string {
	d := "Generated app for " + req.Task
	if req.Round != "" {
		d += " (round " + req.Round.String() + ")"
	}
	return d
}
