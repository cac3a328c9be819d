// Package graph owns notes and the link edges derived from their bodies.
//
// Every save re-extracts wikilinks, diffs them against the stored outbound
// set and applies only the delta, in the same transaction as the note row.
// Edges are stored once; backlinks are the same rows read by target.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/idalloc"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/parser"
	"github.com/starford/zettel/internal/store"
)

// Notifier receives committed mutations.
type Notifier interface {
	NoteSaved(id string)
	NoteDeleted(id string)
}

// Notifiers fans out to each notifier in order.
type Notifiers []Notifier

func (ns Notifiers) NoteSaved(id string) {
	for _, n := range ns {
		n.NoteSaved(id)
	}
}

func (ns Notifiers) NoteDeleted(id string) {
	for _, n := range ns {
		n.NoteDeleted(id)
	}
}

type nopNotifier struct{}

func (nopNotifier) NoteSaved(string)   {}
func (nopNotifier) NoteDeleted(string) {}

// Service is the only writer of notes and links.
type Service struct {
	store      store.Store
	alloc      *idalloc.Allocator
	notify     Notifier
	logger     *slog.Logger
	now        func() time.Time
	retryDelay time.Duration
	locks      keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the mutation notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllocator replaces the default id allocator.
func WithAllocator(a *idalloc.Allocator) Option {
	return func(s *Service) { s.alloc = a }
}

// WithClock sets the time source for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRetryDelay sets the pause before the single transient retry.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) { s.retryDelay = d }
}

// New creates a Service over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:      st,
		notify:     nopNotifier{},
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
		retryDelay: 25 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	if s.alloc == nil {
		s.alloc = idalloc.New(st)
	}
	return s
}

// Create stores a new note. An empty ID is allocated; an explicit ID that is
// already taken yields apperr.ErrAlreadyExists. Allocated ids that keep losing
// the race to concurrent creates end in apperr.ErrConflict.
func (s *Service) Create(ctx context.Context, draft models.Note) (*models.Note, error) {
	allocated := draft.ID == ""
	for attempt := 0; ; attempt++ {
		if allocated {
			id, err := s.alloc.Allocate(ctx)
			if err != nil {
				observeMutation("create", err)
				return nil, err
			}
			draft.ID = id
		}
		n, err := s.write(ctx, "create", draft.ID, func(existing *models.Note) (models.Note, error) {
			if existing != nil {
				return models.Note{}, fmt.Errorf("note %s: %w", draft.ID, apperr.ErrAlreadyExists)
			}
			return draft, nil
		})
		// An allocated id can be claimed between the existence check and
		// the insert; draw again a few times before giving up.
		if allocated && errors.Is(err, apperr.ErrAlreadyExists) {
			if attempt < 2 {
				continue
			}
			return nil, fmt.Errorf("note %s: allocated id kept colliding with concurrent creates: %w",
				draft.ID, apperr.ErrConflict)
		}
		return n, err
	}
}

// Save creates or replaces a note, keeping CreatedAt of an existing note.
func (s *Service) Save(ctx context.Context, n models.Note) (*models.Note, error) {
	return s.write(ctx, "save", n.ID, func(*models.Note) (models.Note, error) {
		return n, nil
	})
}

// Update applies edit to the stored note, or to an empty note with id when
// there is none, and saves the result. The read and the write happen in one
// transaction under the note's lock, so a concurrent save is never lost in
// between. edit may run more than once when the store retries.
func (s *Service) Update(ctx context.Context, id string, edit func(n *models.Note)) (*models.Note, error) {
	return s.write(ctx, "update", id, func(existing *models.Note) (models.Note, error) {
		n := models.Note{ID: id}
		if existing != nil {
			n = *existing
			n.Tags = append([]string(nil), existing.Tags...)
		}
		edit(&n)
		n.ID = id
		return n, nil
	})
}

// write builds the next version of note id from the stored one inside a
// transaction, then applies the body's edge delta alongside the row.
func (s *Service) write(ctx context.Context, op, id string, build func(existing *models.Note) (models.Note, error)) (*models.Note, error) {
	if err := parser.ValidateID(id); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	var (
		n              models.Note
		added, removed []string
	)
	err := s.withRetry(ctx, op, id, func(tx store.Tx) error {
		now := s.now()
		existing, err := tx.GetNote(id)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		n, err = build(existing)
		if err != nil {
			return err
		}
		n.ID = id
		if n.Tags == nil {
			n.Tags = []string{}
		}
		if existing != nil {
			n.CreatedAt = existing.CreatedAt
		} else {
			n.CreatedAt = now
		}
		n.UpdatedAt = now

		have, err := tx.Outbound(id)
		if err != nil {
			return err
		}
		added, removed = diff(have, parser.ExtractLinks(n.Body))
		if err := tx.RemoveLinks(n.ID, removed); err != nil {
			return err
		}
		if err := tx.AddLinks(n.ID, added); err != nil {
			return err
		}
		return tx.UpsertNote(&n)
	})
	observeMutation(op, err)
	if err != nil {
		return nil, err
	}

	edgeDelta.WithLabelValues("added").Add(float64(len(added)))
	edgeDelta.WithLabelValues("removed").Add(float64(len(removed)))
	s.logger.Debug("graph: note saved",
		slog.String("id", n.ID),
		slog.Int("links_added", len(added)),
		slog.Int("links_removed", len(removed)))
	s.notify.NoteSaved(n.ID)
	return &n, nil
}

// Delete removes a note and every edge touching it. Other notes' bodies are
// left as they are; their dangling tokens re-derive edges on their next save.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := parser.ValidateID(id); err != nil {
		return err
	}
	unlock := s.locks.lock(id)
	defer unlock()

	err := s.withRetry(ctx, "delete", id, func(tx store.Tx) error {
		existed, err := tx.DeleteNote(id)
		if err != nil {
			return err
		}
		if !existed {
			return fmt.Errorf("note %s: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
	observeMutation("delete", err)
	if err != nil {
		return err
	}
	s.logger.Debug("graph: note deleted", slog.String("id", id))
	s.notify.NoteDeleted(id)
	return nil
}

// Get returns the note or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.store.GetNote(ctx, id)
}

// Detail is a note together with its edges in both directions.
type Detail struct {
	Note      *models.Note
	Outbound  []string
	Backlinks []string
}

// Detail reads the note and both edge lists from one snapshot, so the edges
// always belong to the body that is returned.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	d := &Detail{}
	err := s.store.View(ctx, func(snap store.Snapshot) error {
		var err error
		if d.Note, err = snap.GetNote(ctx, id); err != nil {
			return err
		}
		if d.Outbound, err = snap.Outbound(ctx, id); err != nil {
			return err
		}
		d.Backlinks, err = snap.Inbound(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Backlinks returns the ids of notes whose body links to id.
func (s *Service) Backlinks(ctx context.Context, id string) ([]string, error) {
	return s.store.Inbound(ctx, id)
}

// Outbound returns the ids id links to, placeholders included.
func (s *Service) Outbound(ctx context.Context, id string) ([]string, error) {
	return s.store.Outbound(ctx, id)
}

// withRetry runs fn in a transaction, retrying once when the failure is
// transient. Domain errors (not found, already exists) pass through; any other
// failure comes back as *apperr.PersistenceError.
func (s *Service) withRetry(ctx context.Context, op, id string, fn func(tx store.Tx) error) error {
	var err error
	attempts := 0
	for attempts < 2 {
		attempts++
		err = s.store.WithTx(ctx, fn)
		if err == nil || isDomainError(err) {
			return err
		}
		if !store.IsTransient(err) || attempts == 2 {
			break
		}
		retries.Inc()
		s.logger.Warn("graph: transient store failure, retrying",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return &apperr.PersistenceError{Op: op, NoteID: id, Attempts: attempts, Err: ctx.Err()}
		case <-time.After(s.retryDelay):
		}
	}
	return &apperr.PersistenceError{Op: op, NoteID: id, Attempts: attempts, Err: err}
}

func isDomainError(err error) bool {
	var pe *apperr.ParseError
	return errors.Is(err, apperr.ErrNotFound) ||
		errors.Is(err, apperr.ErrAlreadyExists) ||
		errors.As(err, &pe)
}

// diff returns the targets present only in want (added) and only in have
// (removed). Both inputs are sorted and deduplicated.
func diff(have, want []string) (added, removed []string) {
	i, j := 0, 0
	for i < len(have) && j < len(want) {
		switch {
		case have[i] == want[j]:
			i++
			j++
		case have[i] < want[j]:
			removed = append(removed, have[i])
			i++
		default:
			added = append(added, want[j])
			j++
		}
	}
	removed = append(removed, have[i:]...)
	added = append(added, want[j:]...)
	return added, removed
}
