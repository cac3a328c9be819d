package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/zettel/internal/query"
)

// LocalGraph handles GET /api/notes/{id}/graph.
//
//	@Summary		Neighbourhood of a note up to depth hops
//	@Tags			graph
//	@Produce		json
//	@Param			id		path		string	true	"Root note id"
//	@Param			depth	query		int		false	"Hop limit"
//	@Param			max		query		int		false	"Node limit"
//	@Success		200		{object}	SubgraphResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/graph [get]
func (h *Handler) LocalGraph(w http.ResponseWriter, r *http.Request) {
	depth, ok := intParam(w, r, "depth", 1)
	if !ok {
		return
	}
	maxNodes, ok := intParam(w, r, "max", 0)
	if !ok {
		return
	}
	sg, err := h.query.LocalSubgraph(r.Context(), chi.URLParam(r, "id"), depth, maxNodes)
	if err != nil {
		h.writeError(w, r, "local graph", err)
		return
	}
	writeJSON(w, http.StatusOK, sg)
}

// Graph handles GET /api/graph.
//
//	@Summary		Export the whole knowledge graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.store.Graph(r.Context())
	if err != nil {
		h.writeError(w, r, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Orphans handles GET /api/graph/orphans.
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", query.DefaultPageSize)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	notes, err := h.query.Orphans(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, "orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// Hubs handles GET /api/graph/hubs.
func (h *Handler) Hubs(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, "hubs", h.query.Hubs)
}

// Central handles GET /api/graph/central.
func (h *Handler) Central(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, "central", h.query.Central)
}

func (h *Handler) ranking(w http.ResponseWriter, r *http.Request, op string, rank rankFunc) {
	minLinks, ok := intParam(w, r, "min", 0)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit", query.DefaultPageSize)
	if !ok {
		return
	}
	ranked, err := rank(r.Context(), minLinks, limit)
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": rankedNotes(ranked)})
}

// StaleNote handles GET /api/discover/stale.
//
//	@Summary		Pick a note that has not been touched in a while
//	@Tags			discover
//	@Produce		json
//	@Success		200	{object}	query.Pick
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/discover/stale [get]
func (h *Handler) StaleNote(w http.ResponseWriter, r *http.Request) {
	pick, err := h.query.StaleNote(r.Context())
	if err != nil {
		h.writeError(w, r, "stale note", err)
		return
	}
	writeJSON(w, http.StatusOK, pick)
}

// RandomNotes handles GET /api/discover/random. Passing the returned seed
// back with a larger offset yields the next page of the same shuffle.
//
//	@Summary		Seeded random page of notes
//	@Tags			discover
//	@Produce		json
//	@Param			limit				query		int		false	"Page size"
//	@Param			offset				query		int		false	"Page offset"
//	@Param			seed				query		int		false	"Shuffle seed"
//	@Param			exclude_reference	query		bool	false	"Skip reference notes"
//	@Success		200					{object}	query.RandomPage
//	@Security		BearerAuth
//	@Router			/discover/random [get]
func (h *Handler) RandomNotes(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", query.DefaultPageSize)
	if !ok {
		return
	}
	offset, ok := intParam(w, r, "offset", 0)
	if !ok {
		return
	}
	q := r.URL.Query()
	var seed uint64
	if raw := q.Get("seed"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'seed' must be an unsigned integer"))
			return
		}
		seed = v
	}
	exclude, _ := strconv.ParseBool(q.Get("exclude_reference"))

	page, err := h.query.RandomNotes(r.Context(), query.RandomOptions{
		ExcludeReference: exclude,
		Limit:            limit,
		Offset:           offset,
		Seed:             seed,
	})
	if err != nil {
		h.writeError(w, r, "random notes", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, ok := intParam(w, r, "limit", query.DefaultPageSize)
	if !ok {
		return
	}
	results, err := h.store.Search(r.Context(), q, limit)
	if err != nil {
		h.writeError(w, r, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
