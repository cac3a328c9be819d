package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/zettel/internal/articles"
	"github.com/starford/zettel/internal/graph"
	"github.com/starford/zettel/internal/inference"
	"github.com/starford/zettel/internal/query"
	"github.com/starford/zettel/internal/store"
	"github.com/starford/zettel/internal/suggest"
	"github.com/starford/zettel/internal/testutil"
)

type cannedClient struct{ out string }

func (c cannedClient) Model() string { return "canned" }

func (c cannedClient) Generate(context.Context, string) (string, error) {
	return "", errors.New("not used")
}

func (c cannedClient) Stream(_ context.Context, _ string, onToken inference.TokenFunc) error {
	return onToken(c.out)
}

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	db := testutil.TestDB(t)

	_, src := testutil.TestArticles(t, map[string]string{
		"guides/linking.md": "# Linking\nUse double brackets.",
	})
	loader := articles.NewLoader(src, logger, nil)
	if err := loader.Load(); err != nil {
		t.Fatal(err)
	}

	cache, err := suggest.NewCache(8)
	if err != nil {
		t.Fatal(err)
	}
	client := cannedClient{out: `[{"type":"tag","value":"birds"},{"type":"link","target":"a"},{"type":"link","target":"nowhere"}]`}

	return New(Deps{
		Graph:    graph.New(db, graph.WithLogger(logger)),
		Query:    query.New(db, query.Config{}),
		Store:    db,
		Suggest:  suggest.New(client, db, cache, suggest.Config{}, logger),
		Articles: loader,
	}, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so dispatch to the
	// handler functions directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_notes":      srv.searchNotes,
		"get_note":          srv.getNote,
		"create_note":       srv.createNote,
		"update_note":       srv.updateNote,
		"get_note_contract": srv.getNoteContract,
		"get_backlinks":     srv.getBacklinks,
		"local_graph":       srv.localGraph,
		"find_orphans":      srv.findOrphans,
		"find_hubs":         srv.findHubs,
		"suggest":           srv.suggest,
		"read_article":      srv.readArticle,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetNote(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "create_note", map[string]any{
		"id":   "a",
		"body": "links to [[b]]",
		"tags": []any{"letters"},
	})
	if text := resultText(r); text != "created: a" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "get_note", map[string]any{"id": "a"})
	var got noteView
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, resultText(r))
	}
	if got.Body != "links to [[b]]" || len(got.Outbound) != 1 || got.Outbound[0] != "b" {
		t.Errorf("note = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "letters" {
		t.Errorf("tags = %v", got.Tags)
	}
}

func TestCreateNote_GeneratedID(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_note", map[string]any{"body": "fresh"})
	if r.IsError || !strings.HasPrefix(resultText(r), "created: ") {
		t.Errorf("create result = %q", resultText(r))
	}
}

func TestGetNoteMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_note", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestUpdateNote_KeepsTagsAndRelinks(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "a", "body": "[[b]]", "tags": []any{"keep"}})

	r := callTool(t, srv, "update_note", map[string]any{"id": "a", "body": "[[c]] and [[d]]"})
	if text := resultText(r); text != "saved: a (links: c, d)" {
		t.Errorf("update result = %q", text)
	}

	r = callTool(t, srv, "get_note", map[string]any{"id": "a"})
	var got noteView
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if len(got.Tags) != 1 || got.Tags[0] != "keep" {
		t.Errorf("tags after update = %v", got.Tags)
	}

	r = callTool(t, srv, "get_backlinks", map[string]any{"id": "b"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("stale backlink to b: %q", text)
	}
}

// linksDown serves everything from the real store except direct outbound reads.
type linksDown struct {
	store.Store
}

func (linksDown) Outbound(context.Context, string) ([]string, error) {
	return nil, errors.New("disk I/O error")
}

func TestUpdateNote_ReportsLinkReadFailure(t *testing.T) {
	db := testutil.TestDB(t)
	srv := New(Deps{
		Graph: graph.New(linksDown{Store: db}, graph.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))),
		Query: query.New(db, query.Config{}),
		Store: db,
	}, "test")

	r := callTool(t, srv, "update_note", map[string]any{"id": "a", "body": "[[b]]"})
	if !r.IsError {
		t.Fatalf("expected error result, got %q", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, "disk I/O error") {
		t.Errorf("error text = %q", text)
	}
	if _, err := db.GetNote(context.Background(), "a"); err != nil {
		t.Errorf("note should still be saved: %v", err)
	}
}

func TestUpdateNote_ReplacesTagsWhenGiven(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "a", "title": "Alpha", "body": "x", "tags": []any{"old"}})
	_ = callTool(t, srv, "update_note", map[string]any{"id": "a", "body": "y", "tags": []any{"new"}})

	r := callTool(t, srv, "get_note", map[string]any{"id": "a"})
	var got noteView
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Title != "Alpha" || got.Body != "y" || len(got.Tags) != 1 || got.Tags[0] != "new" {
		t.Errorf("note after update = %+v", got.Note)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "a", "body": "links to [[b]]"})

	r := callTool(t, srv, "get_backlinks", map[string]any{"id": "b"})
	if text := resultText(r); text != "a" {
		t.Errorf("backlinks = %q, want a", text)
	}
}

func TestGraphTools(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "hub", "body": "[[a]] [[b]] [[c]]"})
	_ = callTool(t, srv, "create_note", map[string]any{"id": "lonely", "body": "alone"})

	r := callTool(t, srv, "find_orphans", map[string]any{})
	if text := resultText(r); text != "lonely" {
		t.Errorf("orphans = %q", text)
	}

	r = callTool(t, srv, "find_hubs", map[string]any{"min_links": float64(3)})
	if text := resultText(r); text != "hub\t3" {
		t.Errorf("hubs = %q", text)
	}

	r = callTool(t, srv, "local_graph", map[string]any{"id": "hub", "depth": float64(1)})
	var sg query.Subgraph
	if err := json.Unmarshal([]byte(resultText(r)), &sg); err != nil {
		t.Fatal(err)
	}
	if len(sg.Nodes) != 4 || len(sg.Edges) != 3 {
		t.Errorf("subgraph nodes=%d edges=%d, want 4 and 3", len(sg.Nodes), len(sg.Edges))
	}
}

func TestSearchNotes(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "owl", "body": "owls hunt at night"})

	r := callTool(t, srv, "search_notes", map[string]any{"query": "night"})
	if !strings.Contains(resultText(r), `"id": "owl"`) {
		t.Errorf("search = %s", resultText(r))
	}
}

func TestSuggestTool(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "create_note", map[string]any{"id": "a", "body": "first"})
	_ = callTool(t, srv, "create_note", map[string]any{"id": "owl", "body": "owls hunt at night"})

	r := callTool(t, srv, "suggest", map[string]any{"id": "owl"})
	if r.IsError {
		t.Fatalf("suggest error: %s", resultText(r))
	}
	var res suggest.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Tags) != 1 || res.Tags[0].Tag != "birds" {
		t.Errorf("tags = %+v", res.Tags)
	}
	if len(res.Links) != 1 || res.Links[0].Target != "a" {
		t.Errorf("links = %+v, want only the existing note", res.Links)
	}

	r = callTool(t, srv, "suggest", map[string]any{"id": "missing"})
	if !r.IsError {
		t.Error("expected error for unknown note without draft body")
	}
}

func TestContractAndArticles(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_note_contract", nil)
	if !strings.Contains(resultText(r), "[[other-note]]") {
		t.Error("contract should document wikilinks")
	}

	r = callTool(t, srv, "read_article", map[string]any{"slug": "guides/linking"})
	if !strings.Contains(resultText(r), "double brackets") {
		t.Errorf("article = %q", resultText(r))
	}
	r = callTool(t, srv, "read_article", map[string]any{"slug": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}
