package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/zettel/internal/models"
)

// Graph returns every note plus placeholder nodes for dangling targets, and
// every edge, read from one snapshot.
func (db *DB) Graph(ctx context.Context) ([]GraphNode, []models.Link, error) {
	sqlTx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("store: begin read tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck

	rows, err := sqlTx.QueryContext(ctx, `
		SELECT id, title, 0 FROM notes
		UNION ALL
		SELECT DISTINCT l.target, '', 1 FROM links l
		WHERE NOT EXISTS (SELECT 1 FROM notes n WHERE n.id = l.target)
		ORDER BY 1
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: graph nodes: %w", err)
	}
	nodes := []GraphNode{}
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Title, &n.Placeholder); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = sqlTx.QueryContext(ctx, `SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("store: graph edges: %w", err)
	}
	defer rows.Close()
	edges := []models.Link{}
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, l)
	}
	return nodes, edges, rows.Err()
}
