package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/zettel/internal/checksum"
	"github.com/starford/zettel/internal/sse"
)

// Suggest handles POST /api/notes/{id}/suggestions and streams the run as
// SSE. The body defaults to the stored note; a request body may carry an
// unsaved draft instead. A fresh cached result is replayed without calling
// the model unless force is set. Disconnecting cancels the run.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SuggestionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	body, ok := h.suggestionBody(w, r, id, req.Body)
	if !ok {
		return
	}

	l, cached := h.suggest.Cached(id, checksum.Fingerprint(body))
	if cached && !l.Outdated && !req.Force {
		sw, err := sse.NewWriter(w)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		_ = sw.Send("cached", l)
		return
	}

	stream, err := h.suggest.Request(r.Context(), id, body)
	if err != nil {
		h.writeError(w, r, "suggest", err)
		return
	}
	defer stream.Cancel()

	sw, err := sse.NewWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if cached {
		if err := sw.Send("cached", l); err != nil {
			return
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("suggest: client disconnected",
				slog.String("note_id", id),
				slog.String("request_id", stream.ID()))
			return
		case ev, ok := <-stream.Events():
			if !ok {
				return
			}
			if err := sw.Send(string(ev.Kind), ev); err != nil {
				return
			}
		}
	}
}

// CancelSuggestions handles DELETE /api/notes/{id}/suggestions.
func (h *Handler) CancelSuggestions(w http.ResponseWriter, r *http.Request) {
	cancelled := h.suggest.Cancel(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// CachedSuggestions handles GET and POST /api/notes/{id}/suggestions/cached.
// The freshness check uses ?fp=, a POSTed draft body, or the stored note.
//
//	@Summary		Last stored suggestions for a note
//	@Tags			suggestions
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Param			fp	query		string	false	"Body fingerprint"
//	@Success		200	{object}	CachedSuggestionResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/suggestions/cached [get]
func (h *Handler) CachedSuggestions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fp := r.URL.Query().Get("fp")
	if fp == "" {
		var req SuggestionRequest
		if r.Method == http.MethodPost && !decodeJSON(w, r, &req) {
			return
		}
		body, ok := h.suggestionBody(w, r, id, req.Body)
		if !ok {
			return
		}
		fp = checksum.Fingerprint(body)
	}
	l, ok := h.suggest.Cached(id, fp)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("no cached suggestions"))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) suggestionBody(w http.ResponseWriter, r *http.Request, id string, draft *string) (string, bool) {
	if draft != nil {
		return *draft, true
	}
	note, err := h.graph.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "suggest", err)
		return "", false
	}
	return note.Body, true
}
