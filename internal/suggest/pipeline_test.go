package suggest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/checksum"
	"github.com/starford/zettel/internal/inference"
)

// fakeClient streams scripted tokens. With block set it stops after the
// first token and waits for cancellation; blockOnce does that on the first
// call only.
type fakeClient struct {
	tokens    []string
	err       error
	block     bool
	blockOnce bool

	calls     atomic.Int32
	cancelled chan struct{}
	once      sync.Once
}

func newFake(tokens ...string) *fakeClient {
	return &fakeClient{tokens: tokens, cancelled: make(chan struct{})}
}

func (f *fakeClient) Model() string { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeClient) Stream(ctx context.Context, prompt string, onToken inference.TokenFunc) error {
	n := f.calls.Add(1)
	block := f.block || (f.blockOnce && n == 1)
	for i, tok := range f.tokens {
		if err := onToken(tok); err != nil {
			return err
		}
		if block && i == 0 {
			<-ctx.Done()
			f.once.Do(func() { close(f.cancelled) })
			return ctx.Err()
		}
	}
	return f.err
}

type staticIndex []string

func (s staticIndex) ListNoteIDs(context.Context, bool) ([]string, error) { return s, nil }

func newPipeline(t *testing.T, client inference.Client, cfg Config) *Pipeline {
	t.Helper()
	cache, err := NewCache(16)
	require.NoError(t, err)
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 1000
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(client, staticIndex{"curious-fox", "wise-owl", "old-friend"}, cache, cfg, logger)
}

func drain(t *testing.T, s *Stream) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("stream did not finish")
			return out
		}
	}
}

func kinds(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		switch ev.Kind {
		case EventPhase:
			out[i] = "phase:" + string(ev.State)
		case EventTag:
			out[i] = "tag:" + ev.Tag.Tag
		case EventLink:
			out[i] = "link:" + ev.Link.Target
		case EventProgress:
			out[i] = fmt.Sprintf("progress:%d", ev.Tokens)
		default:
			out[i] = string(ev.Kind)
		}
	}
	return out
}

const foxBody = "See [[old-friend]] for the story of how graphs of notes grow."

func scriptedTokens() []string {
	return []string{
		"```json\n[",
		`{"type":"tag","value":"Graphs","reason":"topic"}`,
		`,{"tag":"#zettel"}`,
		`,{"type":"link","target":"wise-owl"}`,
		`,{"link":"[[curious-fox]]"}`,
		`,{"type":"link","target":"ghost"}`,
		`,{"type":"link","target":"old-friend"}`,
		"]\n```",
	}
}

func TestRequest_StreamsPhasesAndFilteredItems(t *testing.T) {
	p := newPipeline(t, newFake(scriptedTokens()...), Config{})
	s, err := p.Request(context.Background(), "curious-fox", foxBody)
	require.NoError(t, err)

	events := drain(t, s)
	assert.Equal(t, []string{
		"phase:connecting",
		"phase:generating-tags",
		"tag:graphs",
		"tag:zettel",
		"phase:generating-links",
		"link:wise-owl",
		"progress:8",
		"complete",
	}, kinds(events))

	for _, ev := range events {
		assert.Equal(t, s.ID(), ev.RequestID)
	}
	res := events[len(events)-1].Result
	require.NotNil(t, res)
	assert.Equal(t, checksum.Fingerprint(foxBody), res.Fingerprint)
	assert.Equal(t, []TagSuggestion{{Tag: "graphs", Reason: "topic"}, {Tag: "zettel"}}, res.Tags)
	assert.Equal(t, []LinkSuggestion{{Target: "wise-owl"}}, res.Links)

	l, ok := p.Cache().Lookup("curious-fox", foxBody)
	require.True(t, ok)
	assert.False(t, l.Outdated)
	assert.False(t, p.InFlight("curious-fox"))
}

func TestRequest_GarbageYieldsErrorEvent(t *testing.T) {
	p := newPipeline(t, newFake("Sorry, ", "I can't do JSON today."), Config{})
	s, err := p.Request(context.Background(), "curious-fox", foxBody)
	require.NoError(t, err)

	events := drain(t, s)
	last := events[len(events)-1]
	require.Equal(t, EventError, last.Kind)
	assert.Equal(t, StateError, last.State)
	var gerr *apperr.SuggestionGenerationError
	require.ErrorAs(t, last.Err, &gerr)
	assert.Equal(t, "Sorry, I can't do JSON today.", gerr.Raw)
	assert.Equal(t, "curious-fox", gerr.NoteID)
	for _, ev := range events {
		assert.NotEqual(t, EventComplete, ev.Kind)
	}
	_, cached := p.Cache().Lookup("curious-fox", foxBody)
	assert.False(t, cached)
}

func TestRequest_EmptyArrayCompletesWithNoSuggestions(t *testing.T) {
	p := newPipeline(t, newFake("[", "]"), Config{})
	s, err := p.Request(context.Background(), "curious-fox", foxBody)
	require.NoError(t, err)

	res, err := Collect(s)
	require.NoError(t, err)
	assert.Empty(t, res.Tags)
	assert.Empty(t, res.Links)
	assert.NotNil(t, res.Tags)
}

func TestRequest_ArrayWithoutSuggestionsYieldsErrorEvent(t *testing.T) {
	for _, tokens := range [][]string{
		{`["ai",`, `"go"]`},
		{`[{"name"`, `:"x"}]`},
	} {
		p := newPipeline(t, newFake(tokens...), Config{})
		s, err := p.Request(context.Background(), "curious-fox", foxBody)
		require.NoError(t, err)

		events := drain(t, s)
		last := events[len(events)-1]
		require.Equal(t, EventError, last.Kind, "tokens %q", tokens)
		var gerr *apperr.SuggestionGenerationError
		require.ErrorAs(t, last.Err, &gerr)
		assert.Equal(t, strings.Join(tokens, ""), gerr.Raw)

		_, cached := p.Cache().Lookup("curious-fox", foxBody)
		assert.False(t, cached, "a failed run must not be cached")
	}
}

func TestRequest_NDJSONOutputRecovered(t *testing.T) {
	p := newPipeline(t, newFake("{\"tag\":\"a\"}\n", "{\"link\":\"wise-owl\"}\n"), Config{})
	s, _ := p.Request(context.Background(), "curious-fox", foxBody)
	res, err := Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []TagSuggestion{{Tag: "a"}}, res.Tags)
	assert.Equal(t, []LinkSuggestion{{Target: "wise-owl"}}, res.Links)
}

func TestRequest_InferenceErrorYieldsErrorEvent(t *testing.T) {
	f := newFake("[")
	f.err = errors.New("connection refused")
	p := newPipeline(t, f, Config{})
	s, _ := p.Request(context.Background(), "curious-fox", foxBody)

	_, err := Collect(s)
	var gerr *apperr.SuggestionGenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "inference failed", gerr.Reason)
}

func TestRequest_Timeout(t *testing.T) {
	f := newFake("[", "never")
	f.block = true
	p := newPipeline(t, f, Config{Timeout: 50 * time.Millisecond})
	s, _ := p.Request(context.Background(), "curious-fox", foxBody)

	_, err := Collect(s)
	var gerr *apperr.SuggestionGenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Reason, "timed out")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequest_InvalidNoteID(t *testing.T) {
	p := newPipeline(t, newFake(), Config{})
	_, err := p.Request(context.Background(), "Bad ID", "x")
	var pe *apperr.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestCancel_NoEventsAfterCancelReturns(t *testing.T) {
	f := newFake("[", "{\"tag\":\"late\"}", "]")
	f.block = true
	p := newPipeline(t, f, Config{})
	s, _ := p.Request(context.Background(), "curious-fox", foxBody)

	// Read until generation has started, then cancel without reading further.
	for ev := range s.Events() {
		if ev.Kind == EventPhase && ev.State == StateGeneratingTags {
			break
		}
	}
	s.Cancel()

	select {
	case <-f.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("inference call was not cancelled")
	}
	rest := drain(t, s)
	assert.Empty(t, rest, "no event may follow Cancel")
	assert.Eventually(t, func() bool { return !p.InFlight("curious-fox") }, time.Second, 10*time.Millisecond)
}

func TestRequest_SupersedesPreviousForSameNote(t *testing.T) {
	f := newFake(scriptedTokens()...)
	f.blockOnce = true
	p := newPipeline(t, f, Config{})

	first, _ := p.Request(context.Background(), "curious-fox", foxBody)
	ev := <-first.Events()
	require.Equal(t, StateConnecting, ev.State)
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second, err := p.Request(context.Background(), "curious-fox", foxBody)
	require.NoError(t, err)

	assert.Empty(t, drain(t, first), "superseded stream must go quiet")
	events := drain(t, second)
	assert.Equal(t, EventComplete, events[len(events)-1].Kind)
}

func TestRequest_DifferentNotesRunConcurrently(t *testing.T) {
	blocking := newFake("[")
	blocking.block = true
	p := newPipeline(t, blocking, Config{})

	a, _ := p.Request(context.Background(), "curious-fox", foxBody)
	b, _ := p.Request(context.Background(), "wise-owl", "body")
	assert.True(t, p.InFlight("curious-fox"))
	assert.True(t, p.InFlight("wise-owl"))
	a.Cancel()
	b.Cancel()
	<-a.Done()
	<-b.Done()
}

func TestCache_OutdatedFlag(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)
	c.Put(CacheEntry{NoteID: "n", Fingerprint: checksum.Fingerprint("v1"), Tags: []TagSuggestion{{Tag: "x"}}})

	l, ok := c.Lookup("n", "v1")
	require.True(t, ok)
	assert.False(t, l.Outdated)

	l, ok = c.Lookup("n", "v2")
	require.True(t, ok)
	assert.True(t, l.Outdated)
	assert.Equal(t, "x", l.Entry.Tags[0].Tag, "outdated entries are kept")

	c.Put(CacheEntry{NoteID: "a"})
	c.Put(CacheEntry{NoteID: "b"})
	_, ok = c.Lookup("n", "v1")
	assert.False(t, ok, "least recently used entry evicted")
}

func TestForget(t *testing.T) {
	p := newPipeline(t, newFake(), Config{})
	p.Cache().Put(CacheEntry{NoteID: "gone"})
	p.Forget("gone")
	_, ok := p.Cache().Lookup("gone", "")
	assert.False(t, ok)
}
