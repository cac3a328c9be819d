package articles

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/storage"
)

func testLoader(t *testing.T) (string, *Loader, *atomic.Int32) {
	t.Helper()
	dir := t.TempDir()
	src, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	var reloads atomic.Int32
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return dir, NewLoader(src, logger, func(int) { reloads.Add(1) }), &reloads
}

func write(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestLoadAndGet(t *testing.T) {
	dir, l, reloads := testLoader(t)
	write(t, dir, "intro.md", "---\ntitle: Welcome\ntags: [meta]\n---\nHello #world\n")
	write(t, dir, "essays/graphs.md", "# On Graphs\nEdges all the way down.\n")

	if err := l.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloads.Load() != 1 {
		t.Errorf("reload callback count = %d", reloads.Load())
	}

	a, err := l.Get("intro")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.Title != "Welcome" {
		t.Errorf("title = %q", a.Title)
	}
	if len(a.Tags) != 2 {
		t.Errorf("tags = %v, want meta and world", a.Tags)
	}

	g, err := l.Get("essays/graphs")
	if err != nil {
		t.Fatalf("Get nested: %v", err)
	}
	if g.Title != "On Graphs" {
		t.Errorf("title = %q", g.Title)
	}

	if _, err := l.Get("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList_SortedWithoutBodies(t *testing.T) {
	dir, l, _ := testLoader(t)
	write(t, dir, "b.md", "# B\nbody")
	write(t, dir, "a.md", "# A\nbody")
	if err := l.Load(); err != nil {
		t.Fatal(err)
	}
	list := l.List()
	if len(list) != 2 || list[0].Slug != "a" || list[1].Slug != "b" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Body != "" {
		t.Error("list entries should not carry bodies")
	}
	full, _ := l.Get("a")
	if full.Body == "" {
		t.Error("listing must not clear the cached body")
	}
}

func TestReload_PicksUpChangesAndRemovals(t *testing.T) {
	dir, l, _ := testLoader(t)
	write(t, dir, "a.md", "# First")
	write(t, dir, "b.md", "# Gone soon")
	_ = l.Load()

	write(t, dir, "a.md", "# Second")
	_ = os.Remove(filepath.Join(dir, "b.md"))
	if err := l.Reload(); err != nil {
		t.Fatal(err)
	}
	a, _ := l.Get("a")
	if a.Title != "Second" {
		t.Errorf("title = %q, want Second", a.Title)
	}
	if _, err := l.Get("b"); err == nil {
		t.Error("b should be gone after reload")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir, l, _ := testLoader(t)
	_ = l.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = l.Watch(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	write(t, dir, "fresh.md", "# Fresh")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := l.Get("fresh")
		return err == nil
	}, "new article not picked up by watcher")

	write(t, dir, "later/nested.md", "# Nested")
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := l.Get("later/nested")
		return err == nil
	}, "article in new directory not picked up")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("watcher did not stop after cancel")
	}
}
