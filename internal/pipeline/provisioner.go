package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/reponame"
	"git.home.luguber.info/inful/pagesmith/internal/retry"
)

const defaultBranch = "main"

// ErrNameAttemptsExhausted is returned when every candidate name was taken.
var ErrNameAttemptsExhausted = errors.RepositoryError("no free repository name").Build()

// Provisioner creates the repository a run publishes into.
type Provisioner struct {
	client   forge.Client
	cfg      config.ProvisionConfig
	recorder metrics.Recorder
	logger   *slog.Logger
	sleep    retry.Sleeper
	now      func() time.Time
	suffix   func() string

	mu    sync.Mutex
	owner string
}

// NewProvisioner creates a provisioner on client.
func NewProvisioner(client forge.Client, cfg config.ProvisionConfig, recorder metrics.Recorder, logger *slog.Logger) *Provisioner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxNameAttempts <= 0 {
		cfg.MaxNameAttempts = 1
	}
	return &Provisioner{
		client:   client,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
		sleep:    retry.SleepContext,
		now:      time.Now,
		suffix:   reponame.RandomSuffix,
	}
}

// Owner returns the login of the acting account, looking it up on first use.
// A failed lookup is retried on the next call.
func (p *Provisioner) Owner(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.owner != "" {
		return p.owner, nil
	}
	user, err := p.client.CurrentUser(ctx)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryRepository, "failed to resolve hosting account").Build()
	}
	p.owner = user.Login
	return p.owner, nil
}

// Provision creates a public, auto-initialised repository named after task.
// Taken names are retried with a random suffix up to MaxNameAttempts
// creations in total.
func (p *Provisioner) Provision(ctx context.Context, task, description string) (*RepositoryHandle, error) {
	owner, err := p.Owner(ctx)
	if err != nil {
		return nil, err
	}

	base := reponame.Derive(task, p.now())
	name := base
	var repo *forge.Repository
	for attempt := 1; ; attempt++ {
		repo, err = p.client.CreateRepository(ctx, forge.CreateRepositoryRequest{
			Name:            name,
			Description:     description,
			Private:         false,
			AutoInit:        true,
			LicenseTemplate: p.cfg.License,
		})
		if err == nil {
			break
		}
		if !stderrors.Is(err, forge.ErrRepositoryExists) {
			return nil, errors.WrapError(err, errors.CategoryRepository, "failed to create repository").
				WithContext("name", name).
				Build()
		}

		p.recorder.IncNameCollision()
		if attempt >= p.cfg.MaxNameAttempts {
			return nil, errors.NewError(errors.CategoryRepository, ErrNameAttemptsExhausted.Message()).
				WithCause(err).
				WithContext("base_name", base).
				WithContext("attempts", attempt).
				Build()
		}
		next := reponame.WithSuffix(base, p.suffix())
		p.logger.Info("Repository name taken, retrying",
			logfields.Repository(name),
			slog.String("next", next),
			logfields.Attempt(attempt))
		name = next
	}

	handle := &RepositoryHandle{
		Owner:         repo.Owner.Login,
		Name:          repo.Name,
		DefaultBranch: repo.DefaultBranch,
		HTMLURL:       repo.HTMLURL,
	}
	if handle.Owner == "" {
		handle.Owner = owner
	}
	if handle.Name == "" {
		handle.Name = name
	}
	if handle.DefaultBranch == "" {
		handle.DefaultBranch = defaultBranch
	}
	if handle.HTMLURL == "" {
		handle.HTMLURL = "https://github.com/" + handle.FullName()
	}

	p.logger.Info("Repository created", logfields.Repository(handle.FullName()), logfields.URL(handle.HTMLURL))
	if err := p.waitReady(ctx, handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// waitReady polls the default branch until it can be read. A poll that runs
// out is only logged: the publisher's first read is the authoritative check.
func (p *Provisioner) waitReady(ctx context.Context, h *RepositoryHandle) error {
	if p.cfg.ReadyTimeout <= 0 || p.cfg.ReadyPollInterval <= 0 {
		if err := p.sleep(ctx, p.cfg.PostCreateDelay); err != nil {
			return errors.WrapError(err, errors.CategoryRepository, "interrupted while waiting for repository").Build()
		}
		return nil
	}

	polls := int(p.cfg.ReadyTimeout/p.cfg.ReadyPollInterval) + 1
	for i := 1; i <= polls; i++ {
		ref, err := p.client.GetRef(ctx, h.Owner, h.Name, h.DefaultBranch)
		if err == nil {
			h.HeadSHA = ref.Object.SHA
			return nil
		}
		if !errors.HasCategory(err, errors.CategoryNotFound) {
			p.logger.Debug("Default branch read failed", logfields.Repository(h.FullName()), logfields.Error(err))
		}
		if i == polls {
			break
		}
		if err := p.sleep(ctx, p.cfg.ReadyPollInterval); err != nil {
			return errors.WrapError(err, errors.CategoryRepository, "interrupted while waiting for repository").Build()
		}
	}
	p.logger.Warn("Default branch not readable yet, continuing",
		logfields.Repository(h.FullName()),
		slog.Duration("waited", p.cfg.ReadyTimeout))
	return nil
}
