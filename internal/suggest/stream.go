package suggest

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned by Collect when the stream ended without a
// terminal event.
var ErrCancelled = errors.New("suggest: stream cancelled")

// Stream is one in-flight generation. Events are delivered in order on an
// unbuffered channel that is closed when generation ends.
type Stream struct {
	id     string
	noteID string
	events chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
}

func newStream(parent context.Context, id, noteID string) *Stream {
	ctx, cancel := context.WithCancel(parent)
	return &Stream{
		id:     id,
		noteID: noteID,
		events: make(chan Event),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID is the request id stamped on every event.
func (s *Stream) ID() string { return s.id }

// NoteID is the note the suggestions are for.
func (s *Stream) NoteID() string { return s.noteID }

// Events returns the event channel.
func (s *Stream) Events() <-chan Event { return s.events }

// Done is closed once the generation goroutine has exited.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Cancel stops generation and closes the inference connection. Once Cancel
// returns no further event is delivered.
func (s *Stream) Cancel() {
	s.cancel()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// send delivers ev unless the stream was cancelled. It holds mu for the whole
// send so Cancel cannot return while a delivery is in progress.
func (s *Stream) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	ev.RequestID = s.id
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Collect drains s and returns the final result or the generation error.
func Collect(s *Stream) (*Result, error) {
	for ev := range s.Events() {
		switch ev.Kind {
		case EventComplete:
			return ev.Result, nil
		case EventError:
			return nil, ev.Err
		}
	}
	return nil, ErrCancelled
}
