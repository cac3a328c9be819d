package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/models"
)

const noteColumns = `id, title, body, tags, author, is_reference, created_at, updated_at`

const summaryColumns = `n.id, n.title, n.tags, n.is_reference, n.updated_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// WithTx runs fn inside a single SQLite transaction.
func (db *DB) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(&tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

type tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *tx) GetNote(id string) (*models.Note, error) {
	return getNote(t.ctx, t.tx, id)
}

func (t *tx) Outbound(id string) ([]string, error) {
	return queryIDs(t.ctx, t.tx, `SELECT target FROM links WHERE source = ? ORDER BY target`, id)
}

func (t *tx) UpsertNote(n *models.Note) error {
	tagsJSON, err := json.Marshal(nonNil(n.Tags))
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			body         = excluded.body,
			tags         = excluded.tags,
			author       = excluded.author,
			is_reference = excluded.is_reference,
			updated_at   = excluded.updated_at
	`, n.ID, n.Title, n.Body, string(tagsJSON), n.Author, n.IsReference,
		n.CreatedAt.UnixNano(), n.UpdatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("store: upsert note %s: %w", n.ID, err)
	}
	if err := ftsUpsert(t.ctx, t.tx, n.ID, n.Title, n.Body, n.Tags); err != nil {
		return err
	}
	return nil
}

func (t *tx) AddLinks(source string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(t.ctx, `INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare link insert: %w", err)
	}
	defer stmt.Close()
	for _, target := range targets {
		if _, err := stmt.ExecContext(t.ctx, source, target); err != nil {
			return fmt.Errorf("store: insert link %s->%s: %w", source, target, err)
		}
	}
	return nil
}

func (t *tx) RemoveLinks(source string, targets []string) error {
	if len(targets) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(t.ctx, `DELETE FROM links WHERE source = ? AND target = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare link delete: %w", err)
	}
	defer stmt.Close()
	for _, target := range targets {
		if _, err := stmt.ExecContext(t.ctx, source, target); err != nil {
			return fmt.Errorf("store: delete link %s->%s: %w", source, target, err)
		}
	}
	return nil
}

func (t *tx) DeleteNote(id string) (bool, error) {
	if err := ftsDelete(t.ctx, t.tx, id); err != nil {
		return false, err
	}
	if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM links WHERE source = ? OR target = ?`, id, id); err != nil {
		return false, fmt.Errorf("store: delete links of %s: %w", id, err)
	}
	res, err := t.tx.ExecContext(t.ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("store: delete note %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: delete note %s: %w", id, err)
	}
	return n > 0, nil
}

// ListNotes returns a page of notes ordered by most recent update, plus the
// total matching count. Tag matches one tag exactly.
func (db *DB) ListNotes(ctx context.Context, opts ListOptions) ([]models.NoteSummary, int, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	where := ""
	var args []any
	if opts.Tag != "" {
		where = ` WHERE EXISTS (SELECT 1 FROM json_each(n.tags) WHERE json_each.value = ?)`
		args = append(args, opts.Tag)
	}

	sqlTx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("store: begin read tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck

	var total int
	if err := sqlTx.QueryRowContext(ctx, `SELECT count(*) FROM notes n`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count notes: %w", err)
	}

	rows, err := sqlTx.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM notes n`+where+` ORDER BY n.updated_at DESC, n.id LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list notes: %w", err)
	}
	defer rows.Close()
	out, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// PickNote counts the notes matching f and returns the one at index pick(n)
// in id order. Count and fetch share one read transaction so the index is
// always in range.
func (db *DB) PickNote(ctx context.Context, f NoteFilter, pick func(n int) int) (*models.NoteSummary, error) {
	sqlTx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("store: begin read tx: %w", err)
	}
	defer sqlTx.Rollback() //nolint:errcheck

	var conds []string
	var args []any
	if f.ExcludeReference {
		conds = append(conds, "n.is_reference = 0")
	}
	if !f.UpdatedBefore.IsZero() {
		conds = append(conds, "n.updated_at < ?")
		args = append(args, f.UpdatedBefore.UnixNano())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var n int
	if err := sqlTx.QueryRowContext(ctx, `SELECT count(*) FROM notes n`+where, args...).Scan(&n); err != nil {
		return nil, fmt.Errorf("store: count for pick: %w", err)
	}
	if n == 0 {
		return nil, apperr.ErrNotFound
	}
	idx := pick(n)
	if idx < 0 || idx >= n {
		return nil, fmt.Errorf("store: pick index %d out of range [0,%d)", idx, n)
	}
	row := sqlTx.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM notes n`+where+` ORDER BY n.id LIMIT 1 OFFSET ?`,
		append(args, idx)...)
	s, err := scanSummary(row)
	if err != nil {
		return nil, fmt.Errorf("store: pick: %w", err)
	}
	return &s, nil
}

func getNote(ctx context.Context, q queryer, id string) (*models.Note, error) {
	row := q.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	var (
		n                models.Note
		tagsJSON         string
		created, updated int64
	)
	err := row.Scan(&n.ID, &n.Title, &n.Body, &tagsJSON, &n.Author, &n.IsReference, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note %s: %w", id, err)
	}
	n.Tags = decodeTags(tagsJSON)
	n.CreatedAt = time.Unix(0, created).UTC()
	n.UpdatedAt = time.Unix(0, updated).UTC()
	return &n, nil
}

func scanSummary(r rowScanner) (models.NoteSummary, error) {
	var (
		s        models.NoteSummary
		tagsJSON string
		updated  int64
	)
	if err := r.Scan(&s.ID, &s.Title, &tagsJSON, &s.IsReference, &updated); err != nil {
		return s, err
	}
	s.Tags = decodeTags(tagsJSON)
	s.UpdatedAt = time.Unix(0, updated).UTC()
	return s, nil
}

func scanSummaries(rows *sql.Rows) ([]models.NoteSummary, error) {
	out := []models.NoteSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query ids: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
