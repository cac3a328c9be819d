package store

import (
	"context"
	"fmt"

	"github.com/starford/zettel/internal/models"
)

// Orphans returns notes with no inbound and no outbound edges, most recently
// updated first. A self-loop counts as an edge.
func (db *DB) Orphans(ctx context.Context, limit, offset int) ([]models.NoteSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+summaryColumns+`
		FROM notes n
		WHERE NOT EXISTS (SELECT 1 FROM links l WHERE l.source = n.id)
		  AND NOT EXISTS (SELECT 1 FROM links l WHERE l.target = n.id)
		ORDER BY n.updated_at DESC, n.id
		LIMIT ? OFFSET ?
	`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("store: orphans: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// RankByOutbound ranks notes by outbound edge count, keeping those with at
// least minCount. Ties go to the most recently updated note.
func (db *DB) RankByOutbound(ctx context.Context, minCount, limit int) ([]Ranked, error) {
	return db.rank(ctx, `JOIN links l ON l.source = n.id`, minCount, limit)
}

// RankByInbound ranks notes by the number of existing notes linking to them.
func (db *DB) RankByInbound(ctx context.Context, minCount, limit int) ([]Ranked, error) {
	return db.rank(ctx, `JOIN links l ON l.target = n.id JOIN notes s ON s.id = l.source`, minCount, limit)
}

func (db *DB) rank(ctx context.Context, join string, minCount, limit int) ([]Ranked, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+summaryColumns+`, count(*) AS c
		FROM notes n `+join+`
		GROUP BY n.id
		HAVING c >= ?
		ORDER BY c DESC, n.updated_at DESC, n.id
		LIMIT ?
	`, minCount, limit)
	if err != nil {
		return nil, fmt.Errorf("store: rank: %w", err)
	}
	defer rows.Close()

	out := []Ranked{}
	for rows.Next() {
		var r Ranked
		s, err := scanSummary(rankRow{rows: rows, count: &r.Count})
		if err != nil {
			return nil, err
		}
		r.NoteSummary = s
		out = append(out, r)
	}
	return out, rows.Err()
}

// rankRow appends the count column to a summary scan.
type rankRow struct {
	rows  rowScanner
	count *int
}

func (r rankRow) Scan(dest ...any) error {
	return r.rows.Scan(append(dest, r.count)...)
}
