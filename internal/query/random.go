package query

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/store"
)

// RandomOptions controls RandomNotes. A zero Seed draws a fresh one; pass the
// returned seed back with a larger Offset to get the next, non-overlapping page.
type RandomOptions struct {
	ExcludeReference bool
	Limit            int
	Offset           int
	Seed             uint64
}

// RandomPage is one page of a seeded shuffle over all notes.
type RandomPage struct {
	Notes  []models.NoteSummary `json:"notes"`
	Seed   uint64               `json:"seed"`
	Offset int                  `json:"offset"`
	Total  int                  `json:"total"`
}

// RandomNotes returns a uniformly shuffled page of notes. The order is a pure
// function of the seed and the current id set.
func (e *Engine) RandomNotes(ctx context.Context, opts RandomOptions) (*RandomPage, error) {
	defer observe("random", time.Now())

	if opts.Limit <= 0 {
		opts.Limit = DefaultPageSize
	}
	opts.Offset = max(opts.Offset, 0)
	if opts.Seed == 0 {
		e.mu.Lock()
		opts.Seed = e.rng.Uint64() | 1
		e.mu.Unlock()
	}
	page := &RandomPage{Seed: opts.Seed, Offset: opts.Offset, Notes: []models.NoteSummary{}}

	err := e.store.View(ctx, func(snap store.Snapshot) error {
		ids, err := snap.ListNoteIDs(ctx, opts.ExcludeReference)
		if err != nil {
			return fmt.Errorf("query: list ids: %w", err)
		}
		page.Total = len(ids)

		perm := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
		perm.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

		if opts.Offset >= len(ids) {
			return nil
		}
		window := ids[opts.Offset:min(opts.Offset+opts.Limit, len(ids))]

		summaries, err := snap.Summaries(ctx, window)
		if err != nil {
			return fmt.Errorf("query: summaries: %w", err)
		}
		for _, id := range window {
			page.Notes = append(page.Notes, summaries[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
