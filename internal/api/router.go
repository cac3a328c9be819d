package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group.
// Suggestion and article routes exist only when their service is set.
func NewRouter(d Deps, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Put("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Get("/backlinks", h.Backlinks)
		r.Get("/outbound", h.Outbound)
		r.Get("/graph", h.LocalGraph)

		if d.Suggest != nil {
			r.Post("/suggestions", h.Suggest)
			r.Delete("/suggestions", h.CancelSuggestions)
			r.Get("/suggestions/cached", h.CachedSuggestions)
			r.Post("/suggestions/cached", h.CachedSuggestions)
		}
	})

	// Graph analytics.
	r.Get("/graph", h.Graph)
	r.Get("/graph/orphans", h.Orphans)
	r.Get("/graph/hubs", h.Hubs)
	r.Get("/graph/central", h.Central)

	// Discovery.
	r.Get("/discover/stale", h.StaleNote)
	r.Get("/discover/random", h.RandomNotes)

	r.Get("/search", h.Search)

	// Articles are read-only.
	if d.Articles != nil {
		r.Get("/articles", h.ListArticles)
		r.Get("/articles/*", h.GetArticle)
		r.Post("/articles/reload", h.ReloadArticles)
	}

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
