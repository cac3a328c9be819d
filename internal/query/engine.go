// Package query implements the read-only graph queries: local subgraphs,
// orphan, hub and central detection, and random or stale note discovery.
//
// Degree rankings and orphan detection run as SQL aggregates. The only
// in-memory pass is over the note id list for seeded random pagination,
// which is O(V).
package query

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/store"
)

// Defaults for Config fields left at zero.
const (
	DefaultHubMinLinks = 2
	DefaultStaleAfter  = 30 * 24 * time.Hour
	DefaultMaxNodes    = 100
	DefaultMaxDepth    = 5
	DefaultPageSize    = 20
)

// Config tunes the engine.
type Config struct {
	HubMinLinks int
	StaleAfter  time.Duration
	MaxNodes    int
	MaxDepth    int
}

func (c *Config) defaults() {
	if c.HubMinLinks <= 0 {
		c.HubMinLinks = DefaultHubMinLinks
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.MaxNodes <= 0 {
		c.MaxNodes = DefaultMaxNodes
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
}

// Engine answers graph queries against a store.Reader.
type Engine struct {
	store store.Reader
	cfg   Config
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used by StaleNote and unseeded RandomNotes.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock sets the time source for staleness.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(r store.Reader, cfg Config, opts ...Option) *Engine {
	cfg.defaults()
	e := &Engine{
		store: r,
		cfg:   cfg,
		now:   time.Now,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Node is one node of a local subgraph.
type Node struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Hop         int    `json:"hop"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Subgraph is the neighbourhood of a root note.
type Subgraph struct {
	Root      string        `json:"root"`
	Depth     int           `json:"depth"`
	Nodes     []Node        `json:"nodes"`
	Edges     []models.Link `json:"edges"`
	Truncated bool          `json:"truncated"`
}

// LocalSubgraph walks outward from rootID along outbound and inbound edges
// for up to depth hops, keeping at most maxNodes nodes. Closer hops win when
// truncating; within a hop nodes keep the store's enumeration order. A root
// that is neither a note nor a link target yields apperr.ErrNotFound.
func (e *Engine) LocalSubgraph(ctx context.Context, rootID string, depth, maxNodes int) (*Subgraph, error) {
	defer observe("local_subgraph", time.Now())

	depth = min(max(depth, 0), e.cfg.MaxDepth)
	if maxNodes <= 0 || maxNodes > e.cfg.MaxNodes {
		maxNodes = e.cfg.MaxNodes
	}

	var sg *Subgraph
	err := e.store.View(ctx, func(snap store.Snapshot) error {
		var err error
		sg, err = localSubgraph(ctx, snap, rootID, depth, maxNodes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sg, nil
}

// localSubgraph assembles the subgraph from one snapshot so every node it
// reports comes with the edges that reached it.
func localSubgraph(ctx context.Context, snap store.Snapshot, rootID string, depth, maxNodes int) (*Subgraph, error) {
	exists, err := snap.NoteExists(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("query: root: %w", err)
	}
	if !exists {
		in, err := snap.Inbound(ctx, rootID)
		if err != nil {
			return nil, fmt.Errorf("query: root: %w", err)
		}
		if len(in) == 0 {
			return nil, fmt.Errorf("query: note %s: %w", rootID, apperr.ErrNotFound)
		}
	}

	// Ask for one extra node to learn whether the walk was cut short.
	visits, err := snap.Traverse(ctx, rootID, store.Both, depth, maxNodes+1)
	if err != nil {
		return nil, fmt.Errorf("query: traverse: %w", err)
	}
	sg := &Subgraph{Root: rootID, Depth: depth}
	if len(visits) > maxNodes {
		visits = visits[:maxNodes]
		sg.Truncated = true
	}

	ids := make([]string, len(visits))
	for i, v := range visits {
		ids[i] = v.ID
	}
	summaries, err := snap.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query: summaries: %w", err)
	}
	sg.Nodes = make([]Node, len(visits))
	for i, v := range visits {
		s, ok := summaries[v.ID]
		sg.Nodes[i] = Node{ID: v.ID, Title: s.Title, Hop: v.Hop, Placeholder: !ok}
	}

	sg.Edges, err = snap.EdgesAmong(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query: edges: %w", err)
	}
	return sg, nil
}

// Orphans returns notes with no inbound and no outbound edges.
func (e *Engine) Orphans(ctx context.Context, limit, offset int) ([]models.NoteSummary, error) {
	defer observe("orphans", time.Now())
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return e.store.Orphans(ctx, limit, offset)
}

// Hubs ranks notes by outbound edge count. minOutbound <= 0 uses the
// configured threshold.
func (e *Engine) Hubs(ctx context.Context, minOutbound, limit int) ([]store.Ranked, error) {
	defer observe("hubs", time.Now())
	if minOutbound <= 0 {
		minOutbound = e.cfg.HubMinLinks
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return e.store.RankByOutbound(ctx, minOutbound, limit)
}

// Central ranks notes by backlink count with the same threshold policy as Hubs.
func (e *Engine) Central(ctx context.Context, minInbound, limit int) ([]store.Ranked, error) {
	defer observe("central", time.Now())
	if minInbound <= 0 {
		minInbound = e.cfg.HubMinLinks
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return e.store.RankByInbound(ctx, minInbound, limit)
}

// Pick is a discovered note. IsStale reports whether it came from the stale
// pool or from the fallback over all non-reference notes.
type Pick struct {
	Note    models.NoteSummary `json:"note"`
	IsStale bool               `json:"is_stale"`
}

// StaleNote picks uniformly among non-reference notes not updated within
// StaleAfter, falling back to any non-reference note.
func (e *Engine) StaleNote(ctx context.Context) (*Pick, error) {
	defer observe("stale", time.Now())

	cutoff := e.now().Add(-e.cfg.StaleAfter)
	n, err := e.store.PickNote(ctx, store.NoteFilter{ExcludeReference: true, UpdatedBefore: cutoff}, e.intN)
	if err == nil {
		return &Pick{Note: *n, IsStale: true}, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("query: stale pick: %w", err)
	}

	n, err = e.store.PickNote(ctx, store.NoteFilter{ExcludeReference: true}, e.intN)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("query: fallback pick: %w", err)
	}
	return &Pick{Note: *n, IsStale: false}, nil
}

func (e *Engine) intN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(n)
}
