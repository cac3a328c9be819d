// Package suggest generates tag and link suggestions for a note by streaming
// a completion from the inference service, surfacing items as they arrive.
//
// A generation moves idle -> connecting -> generating-tags ->
// generating-links -> complete, or to error from any non-idle phase. At most
// one generation runs per note; a new request cancels the previous one.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/checksum"
	"github.com/starford/zettel/internal/inference"
	"github.com/starford/zettel/internal/parser"
)

// NoteIndex lists the ids link suggestions may point at.
type NoteIndex interface {
	ListNoteIDs(ctx context.Context, excludeReference bool) ([]string, error)
}

// Config tunes the pipeline. Zero fields take the defaults below.
type Config struct {
	Timeout       time.Duration
	ProgressEvery int
	MaxTags       int
	MaxLinks      int
	Debounce      time.Duration
	MinBodyLength int
}

const (
	DefaultTimeout       = 90 * time.Second
	DefaultProgressEvery = 10
	DefaultMaxTags       = 5
	DefaultMaxLinks      = 5
	DefaultDebounce      = 5 * time.Second
	DefaultMinBodyLength = 100
)

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	if c.MaxTags <= 0 {
		c.MaxTags = DefaultMaxTags
	}
	if c.MaxLinks <= 0 {
		c.MaxLinks = DefaultMaxLinks
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MinBodyLength <= 0 {
		c.MinBodyLength = DefaultMinBodyLength
	}
}

// Pipeline runs suggestion generations.
type Pipeline struct {
	client inference.Client
	index  NoteIndex
	cache  *Cache
	logger *slog.Logger
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	inflight map[string]*Stream
}

// New creates a Pipeline.
func New(client inference.Client, index NoteIndex, cache *Cache, cfg Config, logger *slog.Logger) *Pipeline {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		client:   client,
		index:    index,
		cache:    cache,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: map[string]*Stream{},
	}
}

// Cache returns the result cache.
func (p *Pipeline) Cache() *Cache { return p.cache }

// Cached looks up the stored result for noteID against a body fingerprint.
func (p *Pipeline) Cached(noteID, fingerprint string) (*Lookup, bool) {
	l, ok := p.cache.LookupFingerprint(noteID, fingerprint)
	observeLookup(l, ok)
	return l, ok
}

// Request starts a generation for the note's current body and returns its
// stream. Any generation still running for the same note is cancelled first.
func (p *Pipeline) Request(ctx context.Context, noteID, body string) (*Stream, error) {
	if err := parser.ValidateID(noteID); err != nil {
		return nil, err
	}
	s := newStream(ctx, uuid.NewString(), noteID)

	p.mu.Lock()
	prev := p.inflight[noteID]
	p.inflight[noteID] = s
	p.mu.Unlock()

	if prev != nil {
		prev.Cancel()
		p.logger.Debug("suggest: superseded previous request",
			slog.String("note_id", noteID),
			slog.String("request_id", prev.ID()))
	}

	go p.run(s, body)
	return s, nil
}

// Cancel stops the in-flight generation for noteID, if any.
func (p *Pipeline) Cancel(noteID string) bool {
	p.mu.Lock()
	s := p.inflight[noteID]
	p.mu.Unlock()
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}

// InFlight reports whether a generation is running for noteID.
func (p *Pipeline) InFlight(noteID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inflight[noteID]
	return ok
}

// Forget cancels any generation and drops cached suggestions for a deleted note.
func (p *Pipeline) Forget(noteID string) {
	p.Cancel(noteID)
	p.cache.Invalidate(noteID)
}

// NoteSaved is a no-op; Pipeline only reacts to deletions as a graph notifier.
func (p *Pipeline) NoteSaved(string) {}

// NoteDeleted forgets the deleted note.
func (p *Pipeline) NoteDeleted(id string) { p.Forget(id) }

func (p *Pipeline) release(s *Stream) {
	p.mu.Lock()
	if p.inflight[s.noteID] == s {
		delete(p.inflight, s.noteID)
	}
	p.mu.Unlock()
}

func (p *Pipeline) run(s *Stream, body string) {
	defer close(s.events)
	defer close(s.done)
	defer p.release(s)

	start := time.Now()
	outcome := p.generate(s, body)
	observeGeneration(outcome, start)
	p.logger.Debug("suggest: generation finished",
		slog.String("note_id", s.noteID),
		slog.String("request_id", s.id),
		slog.String("outcome", outcome))
}

var errStopped = errors.New("suggest: stream stopped")

// generation is the mutable state of one run.
type generation struct {
	p        *Pipeline
	s        *Stream
	state    State
	known    map[string]bool
	existing map[string]bool
	tags     []TagSuggestion
	links    []LinkSuggestion
	seen     map[string]bool
}

func (g *generation) phase(next State) bool {
	if !g.state.CanTransition(next) {
		return true
	}
	g.state = next
	return g.s.send(Event{Kind: EventPhase, State: next})
}

// handle filters and emits one item. It returns false once the stream stops.
func (g *generation) handle(it Item) bool {
	switch it.Kind() {
	case "tag":
		tag := it.TagValue()
		key := "tag:" + tag
		if tag == "" || g.seen[key] || len(g.tags) >= g.p.cfg.MaxTags {
			return true
		}
		g.seen[key] = true
		ts := TagSuggestion{Tag: tag, Reason: it.Reason}
		g.tags = append(g.tags, ts)
		if !g.phase(StateGeneratingTags) {
			return false
		}
		return g.s.send(Event{Kind: EventTag, Tag: &ts})
	case "link":
		target := it.LinkTarget()
		key := "link:" + target
		if !g.known[target] || target == g.s.noteID || g.existing[target] || g.seen[key] || len(g.links) >= g.p.cfg.MaxLinks {
			return true
		}
		g.seen[key] = true
		ls := LinkSuggestion{Target: target, Reason: it.Reason}
		g.links = append(g.links, ls)
		if !g.phase(StateGeneratingLinks) {
			return false
		}
		return g.s.send(Event{Kind: EventLink, Link: &ls})
	}
	return true
}

func (g *generation) fail(reason, raw string, err error) string {
	if g.s.ctx.Err() != nil {
		return "cancelled"
	}
	gerr := &apperr.SuggestionGenerationError{NoteID: g.s.noteID, Reason: reason, Raw: raw, Err: err}
	g.state = StateError
	g.s.send(Event{Kind: EventError, State: StateError, Message: gerr.Error(), Err: gerr})
	return "error"
}

func (p *Pipeline) generate(s *Stream, body string) string {
	g := &generation{p: p, s: s, state: StateIdle, seen: map[string]bool{}}
	if !g.phase(StateConnecting) {
		return "cancelled"
	}

	runCtx, cancel := context.WithTimeout(s.ctx, p.cfg.Timeout)
	defer cancel()

	ids, err := p.index.ListNoteIDs(runCtx, false)
	if err != nil {
		return g.fail("note index unavailable", "", err)
	}
	g.known = make(map[string]bool, len(ids))
	g.existing = map[string]bool{}
	for _, id := range parser.ExtractLinks(body) {
		g.existing[id] = true
	}
	candidates := make([]string, 0, len(ids))
	for _, id := range ids {
		g.known[id] = true
		if id != s.noteID && !g.existing[id] {
			candidates = append(candidates, id)
		}
	}
	prompt := buildPrompt(body, candidates, p.cfg.MaxTags, p.cfg.MaxLinks)

	var (
		raw     strings.Builder
		scanner itemScanner
		tokens  int
	)
	err = p.client.Stream(runCtx, prompt, func(tok string) error {
		if tokens == 0 && !g.phase(StateGeneratingTags) {
			return errStopped
		}
		tokens++
		raw.WriteString(tok)
		if tokens%p.cfg.ProgressEvery == 0 && !s.send(Event{Kind: EventProgress, Tokens: tokens}) {
			return errStopped
		}
		for _, obj := range scanner.Feed(tok) {
			if it, ok := decodeItem(obj); ok && !g.handle(it) {
				return errStopped
			}
		}
		return nil
	})
	if s.ctx.Err() != nil {
		return "cancelled"
	}
	if err != nil {
		reason := "inference failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("inference timed out after %s", p.cfg.Timeout)
		}
		return g.fail(reason, raw.String(), err)
	}
	if !s.send(Event{Kind: EventProgress, Tokens: tokens}) {
		return "cancelled"
	}

	switch r := ParseItems(raw.String()).(type) {
	case Unparseable:
		// Items already recovered mid-stream still count; only a response
		// with nothing usable in it is a failure.
		if len(g.tags) == 0 && len(g.links) == 0 {
			return g.fail("unparseable model output", r.Raw, nil)
		}
	case Parsed:
		for _, it := range r.Items {
			if !g.handle(it) {
				return "cancelled"
			}
		}
	}

	res := &Result{
		NoteID:      s.noteID,
		Fingerprint: checksum.Fingerprint(body),
		Tags:        nonNil(g.tags),
		Links:       nonNil(g.links),
		GeneratedAt: p.now(),
	}
	if s.ctx.Err() != nil {
		return "cancelled"
	}
	p.cache.Put(CacheEntry{
		NoteID:      res.NoteID,
		Fingerprint: res.Fingerprint,
		Tags:        res.Tags,
		Links:       res.Links,
		GeneratedAt: res.GeneratedAt,
	})
	g.state = StateComplete
	if !s.send(Event{Kind: EventComplete, State: StateComplete, Result: res}) {
		return "cancelled"
	}
	return "complete"
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
