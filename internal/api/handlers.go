package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/zettel/internal/articles"
	"github.com/starford/zettel/internal/graph"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/query"
	"github.com/starford/zettel/internal/store"
	"github.com/starford/zettel/internal/suggest"
)

// Deps are the services the API is served from.
type Deps struct {
	Graph    *graph.Service
	Query    *query.Engine
	Store    store.Reader
	Suggest  *suggest.Pipeline
	Articles *articles.Loader
	Logger   *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	graph    *graph.Service
	query    *query.Engine
	store    store.Reader
	suggest  *suggest.Pipeline
	articles *articles.Loader
	logger   *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		graph:    d.Graph,
		query:    d.Query,
		store:    d.Store,
		suggest:  d.Suggest,
		articles: d.Articles,
		logger:   logger,
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and tag filter
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", 50)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	items, total, err := h.store.ListNotes(r.Context(), store.ListOptions{
		Limit:  limit,
		Offset: offset,
		Tag:    r.URL.Query().Get("tag"),
	})
	if err != nil {
		h.writeError(w, r, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note with its outbound links and backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	d, err := h.graph.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteDetail{Note: *d.Note, Outbound: d.Outbound, Backlinks: d.Backlinks})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note, allocating an id when none is given
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.graph.Create(r.Context(), req.note())
	if err != nil {
		h.writeError(w, r, "create note", err)
		return
	}
	w.Header().Set("Location", "/api/notes/"+note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}. A missing note is created.
//
//	@Summary		Create or replace a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Note content"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.graph.Save(r.Context(), models.Note{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Body:        req.Body,
		Tags:        req.Tags,
		Author:      req.Author,
		IsReference: req.IsReference,
	})
	if err != nil {
		h.writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note and every edge touching it
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.graph.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	ids, err := h.graph.Backlinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": ids})
}

// Outbound handles GET /api/notes/{id}/outbound.
func (h *Handler) Outbound(w http.ResponseWriter, r *http.Request) {
	ids, err := h.graph.Outbound(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "outbound", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outbound": ids})
}
