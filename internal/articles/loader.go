// Package articles serves the read-only markdown articles that live next to
// the note graph. The Loader owns the in-memory copy and is reloaded either
// explicitly or by its file watcher.
package articles

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/parser"
	"github.com/starford/zettel/internal/storage"
)

// ReloadFunc is called after every successful reload with the article count.
type ReloadFunc func(count int)

// Loader caches parsed articles from a storage.Provider.
type Loader struct {
	src      storage.Provider
	logger   *slog.Logger
	onReload ReloadFunc

	mu       sync.RWMutex
	bySlug   map[string]*models.Article
	loadedAt time.Time
}

// NewLoader creates a Loader. Nothing is read until Load is called.
func NewLoader(src storage.Provider, logger *slog.Logger, onReload ReloadFunc) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		src:      src,
		logger:   logger,
		onReload: onReload,
		bySlug:   map[string]*models.Article{},
	}
}

// Load reads every article. It is the same as Reload and exists to make the
// startup call site read naturally.
func (l *Loader) Load() error { return l.Reload() }

// Reload re-reads every article and swaps the cache in one step. Unchanged
// files (same checksum) keep their parsed form. On error the previous cache
// stays in place.
func (l *Loader) Reload() error {
	metas, err := l.src.List("")
	if err != nil {
		return fmt.Errorf("articles: list: %w", err)
	}

	l.mu.RLock()
	prev := l.bySlug
	l.mu.RUnlock()

	next := make(map[string]*models.Article, len(metas))
	for _, m := range metas {
		slug := Slug(m.Path)
		if old, ok := prev[slug]; ok && old.Checksum == m.Checksum {
			next[slug] = old
			continue
		}
		data, err := l.src.Read(m.Path)
		if err != nil {
			l.logger.Warn("articles: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		doc := parser.Parse(data)
		next[slug] = &models.Article{
			Slug:        slug,
			Title:       doc.Title,
			Tags:        doc.Tags,
			Body:        doc.Body,
			Frontmatter: doc.Frontmatter,
			Checksum:    m.Checksum,
			UpdatedAt:   m.UpdatedAt,
		}
	}

	l.mu.Lock()
	l.bySlug = next
	l.loadedAt = time.Now()
	l.mu.Unlock()

	l.logger.Info("articles: loaded", slog.Int("count", len(next)))
	if l.onReload != nil {
		l.onReload(len(next))
	}
	return nil
}

// Get returns the article with the given slug or apperr.ErrNotFound.
func (l *Loader) Get(slug string) (*models.Article, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("articles: %s: %w", slug, apperr.ErrNotFound)
	}
	return a, nil
}

// List returns every article sorted by slug, without bodies.
func (l *Loader) List() []models.Article {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Article, 0, len(l.bySlug))
	for _, a := range l.bySlug {
		summary := *a
		summary.Body = ""
		summary.Frontmatter = nil
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// LoadedAt reports when the cache was last swapped.
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Slug converts a relative article path to its URL slug.
func Slug(path string) string {
	return strings.TrimSuffix(path, ".md")
}
