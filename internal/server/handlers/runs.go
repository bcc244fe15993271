package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/pagesmith/internal/eventstore"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/server/responses"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunHistory is the read side of the run journal.
type RunHistory interface {
	Recent(limit int) []eventstore.RunSummary
	Run(runID string) (eventstore.RunSummary, bool)
	Events(ctx context.Context, runID string) ([]eventstore.Event, error)
}

// RunsHandlers serves run journal queries.
type RunsHandlers struct {
	history      RunHistory
	errorAdapter *errors.HTTPErrorAdapter
}

// NewRunsHandlers creates the journal handlers.
func NewRunsHandlers(history RunHistory, logger *slog.Logger) *RunsHandlers {
	return &RunsHandlers{history: history, errorAdapter: errors.NewHTTPErrorAdapter(logger)}
}

// HandleList returns recent runs, newest first. ?limit=N bounds the count.
func (h *RunsHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).
				Build())
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs := h.history.Recent(limit)
	if runs == nil {
		runs = []eventstore.RunSummary{}
	}
	if err := writeJSON(w, r, http.StatusOK, responses.RunsResponse{Count: len(runs), Runs: runs}); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write runs response").Build())
	}
}

// HandleGet returns one run by id. ?events=1 adds the journaled events.
func (h *RunsHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	run, ok := h.history.Run(id)
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, errors.NewError(errors.CategoryNotFound, "run not found").
			WithContext("run_id", id).
			Build())
		return
	}

	var body any = run
	if v := r.URL.Query().Get("events"); v == "1" || v == "true" {
		events, err := h.history.Events(r.Context(), id)
		if err != nil {
			h.errorAdapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryStorage, "failed to load run events").
				WithContext("run_id", id).
				Build())
			return
		}
		body = responses.RunDetailResponse{Run: run, Events: toRunEvents(events)}
	}
	if err := writeJSON(w, r, http.StatusOK, body); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r,
			errors.WrapError(err, errors.CategoryInternal, "failed to write run response").Build())
	}
}

func toRunEvents(events []eventstore.Event) []responses.RunEvent {
	out := make([]responses.RunEvent, 0, len(events))
	for _, e := range events {
		ev := responses.RunEvent{
			ID:        e.ID(),
			Type:      e.Type(),
			Timestamp: e.Timestamp(),
			Metadata:  e.Metadata(),
		}
		if len(e.Payload()) > 0 {
			ev.Payload = e.Payload()
		}
		out = append(out, ev)
	}
	return out
}
