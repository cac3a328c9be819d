// Package storage defines the read-only file source behind the article loader.
package storage

import "github.com/starford/zettel/internal/models"

// Provider lists and reads markdown files under a root directory.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to root).
	List(dir string) ([]models.ArticleMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Root returns the absolute directory the provider serves.
	Root() string
}
