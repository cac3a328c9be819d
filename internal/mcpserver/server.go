// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note graph as tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/zettel/internal/apperr"
	"github.com/starford/zettel/internal/articles"
	"github.com/starford/zettel/internal/graph"
	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/query"
	"github.com/starford/zettel/internal/store"
	"github.com/starford/zettel/internal/suggest"
)

const contractURI = "zettel://note-format"

// Deps are the services the tools call into. Suggest and Articles are
// optional; their tools are only registered when set.
type Deps struct {
	Graph    *graph.Service
	Query    *query.Engine
	Store    store.Reader
	Suggest  *suggest.Pipeline
	Articles *articles.Loader
	// SuggestTimeout bounds a suggest tool call. Zero means two minutes.
	SuggestTimeout time.Duration
}

// Server wraps the MCP server with note graph tools.
type Server struct {
	mcp *server.MCPServer
	d   Deps
}

// New creates a new MCP server with all tools registered.
func New(d Deps, version string) *Server {
	if d.SuggestTimeout <= 0 {
		d.SuggestTimeout = 2 * time.Minute
	}
	s := &Server{d: d}

	s.mcp = server.NewMCPServer(
		"Zettel",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, bodies and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a note with its outbound links and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id, e.g. curious-fox")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note. Links are taken from [[wikilinks]] in the body. "+
			"Read the contract first via the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("id", mcp.Description("Note id; leave empty to generate one")),
		mcp.WithString("title", mcp.Description("Optional display title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Markdown body")),
		mcp.WithArray("tags", mcp.Description("Tags"), mcp.WithStringItems()),
		mcp.WithBoolean("is_reference", mcp.Description("Mark as a reference note")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the body of a note (creating it if missing) and recompute its links."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("Optional display title")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New Markdown body")),
		mcp.WithArray("tags", mcp.Description("Tags; omitted keeps the current ones"), mcp.WithStringItems()),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the note id and wikilink rules. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("local_graph",
		mcp.WithDescription("Notes within a number of link hops of a note, following links in both directions."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Root note id")),
		mcp.WithNumber("depth", mcp.Description("Hop limit (default 1)")),
		mcp.WithNumber("max_nodes", mcp.Description("Node limit")),
	), s.localGraph)

	s.mcp.AddTool(mcp.NewTool("find_orphans",
		mcp.WithDescription("Notes with no links in either direction."),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.findOrphans)

	s.mcp.AddTool(mcp.NewTool("find_hubs",
		mcp.WithDescription("Notes ranked by how many notes they link to."),
		mcp.WithNumber("min_links", mcp.Description("Minimum outbound links")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.findHubs)

	if d.Suggest != nil {
		s.mcp.AddTool(mcp.NewTool("suggest",
			mcp.WithDescription("Ask the local model for tag and link suggestions for a note. "+
				"Only links to existing notes are returned."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
			mcp.WithString("body", mcp.Description("Draft body to use instead of the stored one")),
		), s.suggest)
	}

	if d.Articles != nil {
		s.mcp.AddTool(mcp.NewTool("read_article",
			mcp.WithDescription("Read a reference article by slug, or list all articles when slug is empty."),
			mcp.WithString("slug", mcp.Description("Article slug, e.g. guides/linking")),
		), s.readArticle)
	}

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Id, wikilink and tag rules that every note follows."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.d.Store.Search(ctx, q, intArg(req, "limit", query.DefaultPageSize))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

type noteView struct {
	models.Note
	Outbound  []string `json:"outbound"`
	Backlinks []string `json:"backlinks"`
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.d.Graph.Detail(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(noteView{Note: *d.Note, Outbound: d.Outbound, Backlinks: d.Backlinks})
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.d.Graph.Create(ctx, models.Note{
		ID:          req.GetString("id", ""),
		Title:       req.GetString("title", ""),
		Body:        body,
		Tags:        stringSliceArg(req, "tags"),
		IsReference: boolArg(req, "is_reference", false),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.ID)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title := req.GetString("title", "")
	_, replaceTags := req.GetArguments()["tags"]
	tags := stringSliceArg(req, "tags")

	// Fields the call leaves out keep their stored values; Update merges
	// them under the note's lock.
	n, err := s.d.Graph.Update(ctx, id, func(n *models.Note) {
		n.Body = body
		if title != "" {
			n.Title = title
		}
		if replaceTags {
			n.Tags = tags
		}
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.d.Graph.Outbound(ctx, n.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("saved %s but reading its links failed: %v", n.ID, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (links: %s)", n.ID, strings.Join(out, ", "))), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.d.Graph.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) localGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sg, err := s.d.Query.LocalSubgraph(ctx, id, intArg(req, "depth", 1), intArg(req, "max_nodes", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sg)
}

func (s *Server) findOrphans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.d.Query.Orphans(ctx, intArg(req, "limit", query.DefaultPageSize), 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no orphans found"), nil
	}
	ids := make([]string, len(notes))
	for i, n := range notes {
		ids[i] = n.ID
	}
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}

func (s *Server) findHubs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ranked, err := s.d.Query.Hubs(ctx, intArg(req, "min_links", 0), intArg(req, "limit", query.DefaultPageSize))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(ranked) == 0 {
		return mcp.NewToolResultText("no hubs found"), nil
	}
	var b strings.Builder
	for _, r := range ranked {
		fmt.Fprintf(&b, "%s\t%d\n", r.ID, r.Count)
	}
	return mcp.NewToolResultText(strings.TrimSuffix(b.String(), "\n")), nil
}

func (s *Server) suggest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := req.GetString("body", "")
	if body == "" {
		n, err := s.d.Graph.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		body = n.Body
	}

	ctx, cancel := context.WithTimeout(ctx, s.d.SuggestTimeout)
	defer cancel()
	stream, err := s.d.Suggest.Request(ctx, id, body)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := suggest.Collect(stream)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := req.GetString("slug", "")
	if slug == "" {
		return jsonResult(s.d.Articles.List())
	}
	a, err := s.d.Articles.Get(slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	return mcp.NewToolResultText(a.Body), nil
}
