package suggest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// BodyFunc loads the current body of a note.
type BodyFunc func(ctx context.Context, noteID string) (string, error)

// Warmer keeps the cache warm in auto mode: a saved note gets an auto session
// whose debounced run is collected in the background. A session is dropped
// again once it has nothing pending, so only notes saved recently hold one.
// It satisfies the graph notifier interface.
type Warmer struct {
	p    *Pipeline
	load BodyFunc

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewWarmer creates a Warmer that reads note bodies through load.
func (p *Pipeline) NewWarmer(load BodyFunc) *Warmer {
	return &Warmer{p: p, load: load, sessions: map[string]*Session{}}
}

// NoteSaved restarts the debounce for id with its stored body.
func (w *Warmer) NoteSaved(id string) {
	body, err := w.load(context.Background(), id)
	if err != nil {
		w.p.logger.Warn("suggest: warmer could not load note",
			slog.String("note_id", id),
			slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	s, ok := w.sessions[id]
	if !ok {
		s = w.p.NewSession(id, ModeAuto, w.collect)
		s.onIdle = func() { w.release(id) }
		w.sessions[id] = s
	}
	s.Touch(body)
	if s.idle() {
		// Too short to arm the debounce.
		delete(w.sessions, id)
	}
}

// release drops id's session if it has nothing pending.
func (w *Warmer) release(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.sessions[id]; ok && s.idle() {
		delete(w.sessions, id)
	}
}

// NoteDeleted stops the note's session and drops its cached suggestions.
func (w *Warmer) NoteDeleted(id string) {
	w.mu.Lock()
	s := w.sessions[id]
	delete(w.sessions, id)
	w.mu.Unlock()

	if s != nil {
		s.Close()
	}
	w.p.Forget(id)
}

// Close stops every session.
func (w *Warmer) Close() {
	w.mu.Lock()
	w.closed = true
	sessions := w.sessions
	w.sessions = map[string]*Session{}
	w.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// collect drains an auto-started stream; the pipeline caches the result.
func (w *Warmer) collect(s *Stream) {
	go func() {
		if _, err := Collect(s); err != nil && !errors.Is(err, ErrCancelled) {
			w.p.logger.Info("suggest: background generation failed",
				slog.String("note_id", s.NoteID()),
				slog.String("request_id", s.ID()),
				slog.String("error", err.Error()))
		}
		<-s.Done()
		w.release(s.NoteID())
	}()
}
