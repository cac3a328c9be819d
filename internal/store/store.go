package store

import (
	"context"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/zettel/internal/models"
)

// ErrTransient marks failures worth one automatic retry. Errors from SQLite
// with SQLITE_BUSY or SQLITE_LOCKED are treated the same way.
var ErrTransient = errors.New("store: transient failure")

// IsTransient reports whether err is a retryable store failure.
func IsTransient(err error) bool {
	if errors.Is(err, ErrTransient) {
		return true
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// Direction selects which edges a traversal follows.
type Direction int

const (
	Outbound Direction = iota
	Inbound
	Both
)

func (d Direction) String() string {
	switch d {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "both"
	}
}

// Visit is one node reached by Traverse.
type Visit struct {
	ID  string
	Hop int
}

// Ranked is a note with an edge count, used by hub and central rankings.
type Ranked struct {
	models.NoteSummary
	Count int
}

// NoteFilter narrows note selection for counting and random picks.
type NoteFilter struct {
	ExcludeReference bool
	// UpdatedBefore, when non-zero, keeps notes last updated strictly before it.
	UpdatedBefore time.Time
}

// ListOptions controls ListNotes pagination.
type ListOptions struct {
	Limit  int
	Offset int
	Tag    string
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// GraphNode is a node of the full-graph export. Placeholder is set for
// wikilink targets that have no note yet.
type GraphNode struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Tx is the set of operations available inside one atomic mutation.
type Tx interface {
	GetNote(id string) (*models.Note, error)
	Outbound(id string) ([]string, error)
	UpsertNote(n *models.Note) error
	AddLinks(source string, targets []string) error
	RemoveLinks(source string, targets []string) error
	// DeleteNote removes the note and every edge where it is source or target.
	// It reports whether a note row existed.
	DeleteNote(id string) (bool, error)
}

// Reader is the read side of the store. Each method is one consistent read;
// View runs several against the same snapshot.
type Reader interface {
	Snapshot
	View(ctx context.Context, fn func(s Snapshot) error) error
	ListNotes(ctx context.Context, opts ListOptions) ([]models.NoteSummary, int, error)
	Orphans(ctx context.Context, limit, offset int) ([]models.NoteSummary, error)
	RankByOutbound(ctx context.Context, minCount, limit int) ([]Ranked, error)
	RankByInbound(ctx context.Context, minCount, limit int) ([]Ranked, error)
	PickNote(ctx context.Context, f NoteFilter, pick func(n int) int) (*models.NoteSummary, error)
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Graph(ctx context.Context) ([]GraphNode, []models.Link, error)
}

// Store is the full persistent store consumed by the graph layer.
type Store interface {
	Reader
	// WithTx runs fn in one transaction. A non-nil error from fn rolls back
	// every change made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
