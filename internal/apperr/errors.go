// Package apperr holds the error taxonomy shared by the graph, query and
// suggestion layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
)

// ParseError reports an identifier or wikilink token outside the accepted grammar.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

// PersistenceError reports a store failure that survived the built-in retry.
type PersistenceError struct {
	Op       string
	NoteID   string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s %s failed after %d attempt(s): %v", e.Op, e.NoteID, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExhaustionError is returned when the identifier allocator hits its retry cap.
type ExhaustionError struct {
	Attempts int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("id allocation exhausted after %d attempts", e.Attempts)
}

// SuggestionGenerationError terminates a single suggestion stream. Raw holds
// the model output when the failure was an unparseable response.
type SuggestionGenerationError struct {
	NoteID string
	Reason string
	Raw    string
	Err    error
}

func (e *SuggestionGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("suggestions for %s: %s: %v", e.NoteID, e.Reason, e.Err)
	}
	return fmt.Sprintf("suggestions for %s: %s", e.NoteID, e.Reason)
}

func (e *SuggestionGenerationError) Unwrap() error { return e.Err }
