// Package parser extracts wikilink targets from note bodies and frontmatter,
// tags and titles from markdown articles.
package parser

import (
	"regexp"
	"sort"

	"github.com/starford/zettel/internal/apperr"
)

// The target class is closed on purpose: lowercase alphanumerics and hyphens
// only, so markdown links like [[Note A|alias]] or [x](y) never match.
var (
	wikilinkRe = regexp.MustCompile(`\[\[([a-z0-9-]+)\]\]`)
	idRe       = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// ExtractLinks returns the distinct wikilink targets referenced by body,
// sorted ascending. It performs no I/O and no semantic filtering.
func ExtractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		target := m[1]
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	sort.Strings(out)
	return out
}

// ValidateID reports whether id could appear as a wikilink target.
func ValidateID(id string) error {
	if id == "" {
		return &apperr.ParseError{Input: id, Reason: "empty identifier"}
	}
	if !idRe.MatchString(id) {
		return &apperr.ParseError{Input: id, Reason: "identifier must match [a-z0-9-]+"}
	}
	return nil
}
