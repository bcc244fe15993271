package pipeline

import (
	"context"
	stderrors "errors"
	"log/slog"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/forge"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/retry"
)

// PagesEnabler turns on static hosting for a repository's default branch.
type PagesEnabler struct {
	client forge.Client
	cfg    config.PagesConfig
	logger *slog.Logger
	sleep  retry.Sleeper
}

// NewPagesEnabler creates an enabler on client.
func NewPagesEnabler(client forge.Client, cfg config.PagesConfig, logger *slog.Logger) *PagesEnabler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PagesEnabler{client: client, cfg: cfg, logger: logger, sleep: retry.SleepContext}
}

// Enable creates the site and waits for its first build. It always returns
// the site URL; the error, when non-nil, is a warning-level static_site error
// that callers log and otherwise ignore. An already enabled site is success.
func (e *PagesEnabler) Enable(ctx context.Context, h *RepositoryHandle) (string, error) {
	siteURL := h.PredictedPagesURL()

	pages, err := e.client.EnablePages(ctx, h.Owner, h.Name, forge.PagesSource{Branch: h.DefaultBranch, Path: "/"})
	switch {
	case err == nil:
		if pages.HTMLURL != "" {
			siteURL = pages.HTMLURL
		}
	case stderrors.Is(err, forge.ErrPagesAlreadyEnabled):
		e.logger.Info("Static hosting already enabled", logfields.Repository(h.FullName()))
	default:
		serr := errors.WrapError(err, errors.CategoryStaticSite, "failed to enable static hosting").
			WithSeverity(errors.SeverityWarning).
			WithContext("repository", h.FullName()).
			Build()
		e.logger.Warn("Static hosting not enabled", logfields.Repository(h.FullName()), logfields.Error(serr))
		return siteURL, serr
	}

	if url := e.waitBuilt(ctx, h); url != "" {
		siteURL = url
	}
	return siteURL, nil
}

// waitBuilt polls the site until its status is built. It returns the
// reported site URL when one was seen.
func (e *PagesEnabler) waitBuilt(ctx context.Context, h *RepositoryHandle) string {
	if e.cfg.BuildTimeout <= 0 || e.cfg.PollInterval <= 0 {
		_ = e.sleep(ctx, e.cfg.PostEnableDelay)
		return ""
	}

	var seen string
	polls := int(e.cfg.BuildTimeout/e.cfg.PollInterval) + 1
	for i := 1; i <= polls; i++ {
		pages, err := e.client.GetPages(ctx, h.Owner, h.Name)
		if err == nil {
			if pages.HTMLURL != "" {
				seen = pages.HTMLURL
			}
			switch pages.Status {
			case forge.PagesStatusBuilt:
				e.logger.Info("Static site built", logfields.Repository(h.FullName()), logfields.URL(seen))
				return seen
			case forge.PagesStatusErrored:
				e.logger.Warn("Static site build errored", logfields.Repository(h.FullName()))
				return seen
			}
		}
		if i == polls {
			break
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return seen
		}
	}
	e.logger.Warn("Static site not built yet, continuing",
		logfields.Repository(h.FullName()),
		slog.Duration("waited", e.cfg.BuildTimeout))
	return seen
}
