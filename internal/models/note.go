// Package models defines the domain types for the knowledge graph.
package models

import "time"

// Note is the atomic unit of the graph. Links are derived from Body and never
// authored directly.
type Note struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags"`
	Author      string    `json:"author,omitempty"`
	IsReference bool      `json:"is_reference"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NoteSummary is a lightweight representation returned by list and ranking operations.
type NoteSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title,omitempty"`
	Tags        []string  `json:"tags"`
	IsReference bool      `json:"is_reference"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Link is a directed edge extracted from a wikilink token in Source's body.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Article is a read-only markdown document served alongside the graph.
type Article struct {
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Tags        []string       `json:"tags"`
	Body        string         `json:"body"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ArticleMetadata is the storage-level listing entry for an article file.
type ArticleMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
