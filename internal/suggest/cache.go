package suggest

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/zettel/internal/checksum"
)

// CacheEntry is the last successful result for a note, tagged with the body
// fingerprint it was generated from.
type CacheEntry struct {
	NoteID      string           `json:"note_id"`
	Fingerprint string           `json:"fingerprint"`
	Tags        []TagSuggestion  `json:"tags"`
	Links       []LinkSuggestion `json:"links"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Lookup is a cache hit. Outdated entries are still returned so they can be
// shown flagged instead of being refetched.
type Lookup struct {
	Entry    CacheEntry `json:"entry"`
	Outdated bool       `json:"outdated"`
}

// Cache keeps one entry per note, bounded by LRU eviction.
type Cache struct {
	entries *lru.Cache[string, CacheEntry]
}

// NewCache creates a cache holding at most size notes.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("suggest: cache: %w", err)
	}
	return &Cache{entries: c}, nil
}

// Put stores e, replacing any entry for the same note.
func (c *Cache) Put(e CacheEntry) {
	c.entries.Add(e.NoteID, e)
}

// Lookup returns the entry for noteID, flagged outdated when body no longer
// matches the fingerprint it was generated from.
func (c *Cache) Lookup(noteID, body string) (*Lookup, bool) {
	return c.LookupFingerprint(noteID, checksum.Fingerprint(body))
}

// LookupFingerprint is Lookup for callers that already hold the fingerprint.
func (c *Cache) LookupFingerprint(noteID, fingerprint string) (*Lookup, bool) {
	e, ok := c.entries.Get(noteID)
	if !ok {
		return nil, false
	}
	return &Lookup{Entry: e, Outdated: e.Fingerprint != fingerprint}, true
}

// Invalidate drops the entry for noteID.
func (c *Cache) Invalidate(noteID string) {
	c.entries.Remove(noteID)
}

// Len returns the number of cached notes.
func (c *Cache) Len() int { return c.entries.Len() }
