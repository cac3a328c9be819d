package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/zettel/internal/checksum"
)

// Mode selects when a Session fetches suggestions.
type Mode string

const (
	// ModeManual fetches only on RequestNow, and only without a fresh cache entry.
	ModeManual Mode = "manual"
	// ModeAuto also fetches after the body has been idle for the debounce interval.
	ModeAuto Mode = "auto"
	// ModeOff never fetches.
	ModeOff Mode = "off"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeManual, ModeAuto, ModeOff:
		return m, nil
	}
	return "", fmt.Errorf("suggest: unknown mode %q", s)
}

// ErrModeOff is returned by RequestNow when suggestions are turned off.
var ErrModeOff = errors.New("suggest: suggestions are turned off")

// Session ties suggestion fetching to one note being edited. Close it when
// the editing view goes away.
type Session struct {
	p        *Pipeline
	noteID   string
	onStream func(*Stream)
	// onIdle runs when a debounce fires without starting a stream.
	onIdle func()

	mu      sync.Mutex
	mode    Mode
	timer   *time.Timer
	gen     uint64
	current *Stream
	closed  bool
}

// NewSession creates a session for noteID. onStream is called with every
// stream the session starts on its own (auto mode).
func (p *Pipeline) NewSession(noteID string, mode Mode, onStream func(*Stream)) *Session {
	return &Session{p: p, noteID: noteID, mode: mode, onStream: onStream}
}

// Mode returns the current mode.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches mode. Leaving auto stops a pending debounce timer.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	if m != ModeAuto {
		s.stopTimerLocked()
	}
}

// Touch records an edit. In auto mode it restarts the debounce timer when
// the body is long enough, and stops it otherwise.
func (s *Session) Touch(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.mode != ModeAuto {
		return
	}
	s.stopTimerLocked()
	if len(body) < s.p.cfg.MinBodyLength {
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.p.cfg.Debounce, func() { s.fire(gen, body) })
}

func (s *Session) fire(gen uint64, body string) {
	s.mu.Lock()
	if s.closed || gen != s.gen || s.mode != ModeAuto {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if l, ok := s.p.cache.Lookup(s.noteID, body); ok && !l.Outdated {
		s.mu.Unlock()
		s.idleNow()
		return
	}
	stream, err := s.p.Request(context.Background(), s.noteID, body)
	if err != nil {
		s.mu.Unlock()
		s.p.logger.Warn("suggest: auto request failed",
			slog.String("note_id", s.noteID),
			slog.String("error", err.Error()))
		s.idleNow()
		return
	}
	s.current = stream
	s.mu.Unlock()

	if s.onStream != nil {
		s.onStream(stream)
	}
}

// RequestNow fetches suggestions on demand. A fresh cache entry is returned
// instead of starting a generation; an outdated one is returned alongside the
// new stream so it can be shown flagged meanwhile.
func (s *Session) RequestNow(ctx context.Context, body string) (*Stream, *Lookup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrCancelled
	}
	if s.mode == ModeOff {
		return nil, nil, ErrModeOff
	}
	s.stopTimerLocked()

	l, ok := s.p.Cached(s.noteID, checksum.Fingerprint(body))
	if ok && !l.Outdated {
		return nil, l, nil
	}
	stream, err := s.p.Request(ctx, s.noteID, body)
	if err != nil {
		return nil, nil, err
	}
	s.current = stream
	return stream, l, nil
}

// Close stops the debounce timer and cancels the session's in-flight stream.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	if cur != nil {
		cur.Cancel()
	}
}

func (s *Session) idleNow() {
	if s.onIdle != nil {
		s.onIdle()
	}
}

// idle reports whether nothing is pending: no armed timer and no stream
// still running.
func (s *Session) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return false
	}
	if s.current != nil {
		select {
		case <-s.current.Done():
		default:
			return false
		}
	}
	return true
}

// stopTimerLocked stops any pending timer and invalidates a callback that
// may already be running.
func (s *Session) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
