package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCount(w *Warmer) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sessions)
}

func TestWarmer_FillsCacheAfterDebounce(t *testing.T) {
	f := newFake(scriptedTokens()...)
	p := newPipeline(t, f, Config{Debounce: 20 * time.Millisecond, MinBodyLength: 10})
	bodies := map[string]string{"curious-fox": foxBody}
	w := p.NewWarmer(func(_ context.Context, id string) (string, error) {
		return bodies[id], nil
	})
	defer w.Close()

	w.NoteSaved("curious-fox")
	w.NoteSaved("curious-fox")

	require.Eventually(t, func() bool {
		l, ok := p.Cache().Lookup("curious-fox", foxBody)
		return ok && !l.Outdated
	}, 2*time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, f.calls.Load(), "two saves inside the debounce window run once")
	assert.Eventually(t, func() bool { return sessionCount(w) == 0 }, time.Second, 5*time.Millisecond,
		"finished sessions are dropped")
}

func TestWarmer_ShortBodyAndLoadErrors(t *testing.T) {
	f := newFake(scriptedTokens()...)
	p := newPipeline(t, f, Config{Debounce: 10 * time.Millisecond, MinBodyLength: 100})
	w := p.NewWarmer(func(_ context.Context, id string) (string, error) {
		if id == "broken" {
			return "", errors.New("db down")
		}
		return "short", nil
	})
	defer w.Close()

	w.NoteSaved("tiny")
	w.NoteSaved("broken")
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, f.calls.Load())
	assert.Zero(t, p.Cache().Len())
	assert.Zero(t, sessionCount(w), "a short body keeps no session")
}

func TestWarmer_DeleteForgetsNote(t *testing.T) {
	f := newFake(scriptedTokens()...)
	p := newPipeline(t, f, Config{Debounce: 10 * time.Millisecond, MinBodyLength: 10})
	w := p.NewWarmer(func(context.Context, string) (string, error) {
		return strings.Repeat("long enough body ", 3), nil
	})
	defer w.Close()

	w.NoteSaved("curious-fox")
	require.Eventually(t, func() bool { return p.Cache().Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	w.NoteDeleted("curious-fox")
	assert.Zero(t, p.Cache().Len())
	assert.Eventually(t, func() bool { return !p.InFlight("curious-fox") }, time.Second, 5*time.Millisecond)
}

func TestWarmer_SessionsDoNotAccumulate(t *testing.T) {
	f := newFake(scriptedTokens()...)
	p := newPipeline(t, f, Config{Debounce: 5 * time.Millisecond, MinBodyLength: 10})
	w := p.NewWarmer(func(context.Context, string) (string, error) {
		return foxBody, nil
	})
	defer w.Close()

	ids := []string{"note-a", "note-b", "note-c", "note-d"}
	for _, id := range ids {
		w.NoteSaved(id)
	}
	require.Eventually(t, func() bool { return p.Cache().Len() == len(ids) }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return sessionCount(w) == 0 }, time.Second, 5*time.Millisecond)

	// A save whose body is already cached fires without a stream and is
	// released too.
	calls := f.calls.Load()
	w.NoteSaved("note-a")
	assert.Eventually(t, func() bool { return sessionCount(w) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, calls, f.calls.Load())
}
