package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/pipeline"
	"git.home.luguber.info/inful/pagesmith/internal/server/responses"
)

// DefaultMaxBodyBytes bounds the generation request body.
const DefaultMaxBodyBytes = 10 << 20

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.GenerationRequest) (*pipeline.Result, error)
}

// GenerateHandlers serves the generation endpoint.
type GenerateHandlers struct {
	runner       Runner
	secret       string
	recorder     metrics.Recorder
	maxBody      int64
	errorAdapter *errors.HTTPErrorAdapter
}

// NewGenerateHandlers creates the generation handler. Requests must carry secret.
func NewGenerateHandlers(runner Runner, secret string, recorder metrics.Recorder, logger *slog.Logger) *GenerateHandlers {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &GenerateHandlers{
		runner:       runner,
		secret:       secret,
		recorder:     recorder,
		maxBody:      DefaultMaxBodyBytes,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleGenerate validates the request and runs the pipeline to completion.
// The run is detached from the request context so a client that hangs up
// does not abort it halfway.
func (h *GenerateHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.reject(w, r, errors.NewError(errors.CategoryTooLarge, "request body exceeds size limit").
				WithCause(err).
				WithContext("limit_bytes", tooLarge.Limit).
				Build())
			return
		}
		h.reject(w, r, errors.WrapError(err, errors.CategoryValidation, "failed to read request body").Build())
		return
	}

	req, err := pipeline.Validate(body, h.secret)
	if err != nil {
		h.reject(w, r, err)
		return
	}

	res, err := h.runner.Run(context.WithoutCancel(r.Context()), req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	resp := responses.GenerateResponse{
		Success:   true,
		RunID:     res.RunID,
		RepoURL:   res.RepoURL,
		PagesURL:  res.PagesURL,
		CommitSHA: res.CommitSHA,
		Message:   "App generated and deployed successfully",
		Warnings:  res.Warnings,
	}
	if err := writeJSON(w, r, http.StatusOK, resp); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write generation response").Build())
	}
}

func (h *GenerateHandlers) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.recorder.IncRunOutcome(metrics.OutcomeRejected)
	h.errorAdapter.WriteErrorResponse(w, r, err)
}
