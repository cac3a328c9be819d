package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/zettel/internal/models"
)

// Snapshot is the set of reads a composite query can combine. Reads made
// through the Snapshot passed to View all see the same committed state.
type Snapshot interface {
	GetNote(ctx context.Context, id string) (*models.Note, error)
	NoteExists(ctx context.Context, id string) (bool, error)
	Outbound(ctx context.Context, id string) ([]string, error)
	Inbound(ctx context.Context, id string) ([]string, error)
	Traverse(ctx context.Context, start string, dir Direction, maxHops, limit int) ([]Visit, error)
	Summaries(ctx context.Context, ids []string) (map[string]models.NoteSummary, error)
	EdgesAmong(ctx context.Context, ids []string) ([]models.Link, error)
	ListNoteIDs(ctx context.Context, excludeReference bool) ([]string, error)
}

// snapshot runs reads against either the pool or one open transaction.
type snapshot struct {
	q queryer
}

// View runs fn inside one read transaction. Use it whenever an answer is
// assembled from more than one read, so a concurrent save is seen either
// entirely or not at all.
func (db *DB) View(ctx context.Context, fn func(s Snapshot) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("store: begin read tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // read-only

	return fn(snapshot{q: sqlTx})
}

// Traverse on the DB runs the walk in its own read transaction.
func (db *DB) Traverse(ctx context.Context, start string, dir Direction, maxHops, limit int) ([]Visit, error) {
	var visits []Visit
	err := db.View(ctx, func(s Snapshot) error {
		var err error
		visits, err = s.Traverse(ctx, start, dir, maxHops, limit)
		return err
	})
	return visits, err
}

// GetNote returns the note or apperr.ErrNotFound.
func (s snapshot) GetNote(ctx context.Context, id string) (*models.Note, error) {
	return getNote(ctx, s.q, id)
}

// NoteExists reports whether a note row exists for id.
func (s snapshot) NoteExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: note exists: %w", err)
	}
	return true, nil
}

// Outbound returns the targets of id's wikilinks, sorted.
func (s snapshot) Outbound(ctx context.Context, id string) ([]string, error) {
	return queryIDs(ctx, s.q, `SELECT target FROM links WHERE source = ? ORDER BY target`, id)
}

// Inbound returns the notes linking to id, sorted.
func (s snapshot) Inbound(ctx context.Context, id string) ([]string, error) {
	return queryIDs(ctx, s.q, `SELECT source FROM links WHERE target = ? ORDER BY source`, id)
}

// Summaries returns summaries for the ids that exist. Missing ids are absent
// from the map.
func (s snapshot) Summaries(ctx context.Context, ids []string) (map[string]models.NoteSummary, error) {
	out := make(map[string]models.NoteSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM notes n WHERE n.id IN (`+placeholders(len(ids))+`)`, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("store: summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out[sum.ID] = sum
	}
	return out, rows.Err()
}

// EdgesAmong returns every edge whose endpoints are both in ids.
func (s snapshot) EdgesAmong(ctx context.Context, ids []string) ([]models.Link, error) {
	out := []models.Link{}
	if len(ids) == 0 {
		return out, nil
	}
	ph := placeholders(len(ids))
	args := append(toArgs(ids), toArgs(ids)...)
	rows, err := s.q.QueryContext(ctx,
		`SELECT source, target FROM links WHERE source IN (`+ph+`) AND target IN (`+ph+`) ORDER BY source, target`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("store: edges among: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListNoteIDs returns every note id in ascending order.
func (s snapshot) ListNoteIDs(ctx context.Context, excludeReference bool) ([]string, error) {
	q := `SELECT id FROM notes ORDER BY id`
	if excludeReference {
		q = `SELECT id FROM notes WHERE is_reference = 0 ORDER BY id`
	}
	return queryIDs(ctx, s.q, q)
}

var neighbourSQL = map[Direction]string{
	Outbound: `SELECT target FROM links WHERE source = ? ORDER BY target`,
	Inbound:  `SELECT source FROM links WHERE target = ? ORDER BY source`,
	Both: `SELECT target AS nb FROM links WHERE source = ?
	       UNION
	       SELECT source AS nb FROM links WHERE target = ?
	       ORDER BY nb`,
}

// Traverse walks the link graph breadth-first from start, up to maxHops hops
// and at most limit nodes (start included; limit <= 0 means unbounded).
// Visits come back in hop order; within a hop, in the order each frontier
// node's neighbours were enumerated (by id).
func (s snapshot) Traverse(ctx context.Context, start string, dir Direction, maxHops, limit int) ([]Visit, error) {
	q, ok := neighbourSQL[dir]
	if !ok {
		return nil, fmt.Errorf("store: unknown direction %d", dir)
	}

	visits := []Visit{{ID: start, Hop: 0}}
	seen := map[string]bool{start: true}
	frontier := []string{start}
	full := func() bool { return limit > 0 && len(visits) >= limit }

	for hop := 1; hop <= maxHops && len(frontier) > 0 && !full(); hop++ {
		var next []string
		for _, id := range frontier {
			args := []any{id}
			if dir == Both {
				args = append(args, id)
			}
			nbs, err := queryIDs(ctx, s.q, q, args...)
			if err != nil {
				return nil, fmt.Errorf("store: traverse %s: %w", id, err)
			}
			for _, nb := range nbs {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				visits = append(visits, Visit{ID: nb, Hop: hop})
				next = append(next, nb)
				if full() {
					return visits, nil
				}
			}
		}
		frontier = next
	}
	return visits, nil
}
