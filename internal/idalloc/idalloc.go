// Package idalloc generates human-memorable adjective-noun note identifiers.
package idalloc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/starford/zettel/internal/apperr"
)

// DefaultMaxAttempts bounds the collision-retry loop.
const DefaultMaxAttempts = 50

// Checker reports whether an identifier is already taken.
type Checker interface {
	NoteExists(ctx context.Context, id string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, id string) (bool, error)

// NoteExists implements Checker.
func (f CheckerFunc) NoteExists(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

// Allocator draws candidates from the fixed vocabularies and checks them
// against existing notes.
type Allocator struct {
	checker     Checker
	maxAttempts int

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithRand replaces the random source, mainly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(a *Allocator) {
		a.rng = r
	}
}

// New creates an Allocator backed by checker.
func New(checker Checker, opts ...Option) *Allocator {
	a := &Allocator{
		checker:     checker,
		maxAttempts: DefaultMaxAttempts,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns an identifier not currently used by any note. It fails with
// *apperr.ExhaustionError once maxAttempts candidates have all collided.
func (a *Allocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		id := a.candidate()
		taken, err := a.checker.NoteExists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("idalloc: check %s: %w", id, err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", &apperr.ExhaustionError{Attempts: a.maxAttempts}
}

// Candidate draws one identifier without checking it.
func (a *Allocator) Candidate() string {
	return a.candidate()
}

func (a *Allocator) candidate() string {
	a.mu.Lock()
	adj := adjectives[a.rng.IntN(len(adjectives))]
	noun := nouns[a.rng.IntN(len(nouns))]
	a.mu.Unlock()
	return adj + "-" + noun
}

// Namespace returns the number of distinct identifiers the vocabularies can produce.
func Namespace() int {
	return len(adjectives) * len(nouns)
}
