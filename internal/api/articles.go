package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ListArticles handles GET /api/articles.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: h.articles.List()})
}

// GetArticle handles GET /api/articles/*. Slugs may contain slashes for
// nested directories.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(chi.URLParam(r, "*"), "/")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	a, err := h.articles.Get(slug)
	if err != nil {
		h.writeError(w, r, "get article", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ReloadArticles handles POST /api/articles/reload.
func (h *Handler) ReloadArticles(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Reload(); err != nil {
		h.writeError(w, r, "reload articles", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(h.articles.List()),
		"loaded_at": h.articles.LoadedAt(),
	})
}
