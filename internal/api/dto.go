package api

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/zettel/internal/models"
	"github.com/starford/zettel/internal/parser"
	"github.com/starford/zettel/internal/query"
	"github.com/starford/zettel/internal/store"
	"github.com/starford/zettel/internal/suggest"
)

var validID = validation.By(func(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if err := parser.ValidateID(s); err != nil {
		return errors.New("must match [a-z0-9-]+")
	}
	return nil
})

var tagRules = []validation.Rule{
	validation.Each(validation.Required, validation.Length(1, 64)),
}

// CreateNoteRequest is the request body for creating a note. An empty ID
// asks the server to allocate one.
type CreateNoteRequest struct {
	ID          string   `json:"id,omitempty" example:"curious-fox"`
	Title       string   `json:"title,omitempty" example:"Foxes"`
	Body        string   `json:"body" example:"See [[wise-owl]] for background."`
	Tags        []string `json:"tags,omitempty" example:"animals"`
	Author      string   `json:"author,omitempty"`
	IsReference bool     `json:"is_reference"`
}

// Validate implements validation.Validatable.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validID),
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Tags, tagRules...),
		validation.Field(&r.Author, validation.Length(0, 100)),
	)
}

func (r CreateNoteRequest) note() models.Note {
	return models.Note{
		ID:          r.ID,
		Title:       r.Title,
		Body:        r.Body,
		Tags:        r.Tags,
		Author:      r.Author,
		IsReference: r.IsReference,
	}
}

// UpdateNoteRequest is the request body for replacing a note.
type UpdateNoteRequest struct {
	Title       string   `json:"title,omitempty"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags,omitempty"`
	Author      string   `json:"author,omitempty"`
	IsReference bool     `json:"is_reference"`
}

// Validate implements validation.Validatable.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 200)),
		validation.Field(&r.Tags, tagRules...),
		validation.Field(&r.Author, validation.Length(0, 100)),
	)
}

// SuggestionRequest optionally carries an unsaved body to generate from.
type SuggestionRequest struct {
	Body  *string `json:"body,omitempty"`
	Force bool    `json:"force,omitempty"`
}

// Validate implements validation.Validatable.
func (r SuggestionRequest) Validate() error { return nil }

// NoteDetail is a note with its edges in both directions.
type NoteDetail struct {
	models.Note
	Outbound  []string `json:"outbound"`
	Backlinks []string `json:"backlinks"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteSummary `json:"notes" validate:"required"`
	Total int                  `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}

// GraphResponse is the full graph export.
type GraphResponse struct {
	Nodes []store.GraphNode `json:"nodes" validate:"required"`
	Links []models.Link     `json:"links" validate:"required"`
}

// RankedNote is one entry of a hub or central ranking.
type RankedNote struct {
	models.NoteSummary
	Count int `json:"count"`
}

func rankedNotes(in []store.Ranked) []RankedNote {
	out := make([]RankedNote, len(in))
	for i, r := range in {
		out[i] = RankedNote{NoteSummary: r.NoteSummary, Count: r.Count}
	}
	return out
}

// SubgraphResponse aliases the query layer type for documentation.
type SubgraphResponse = query.Subgraph

// CachedSuggestionResponse is the last stored suggestion result for a note.
type CachedSuggestionResponse = suggest.Lookup

// ArticleListResponse wraps the article index.
type ArticleListResponse struct {
	Articles []models.Article `json:"articles"`
}

type rankFunc func(ctx context.Context, minLinks, limit int) ([]store.Ranked, error)
