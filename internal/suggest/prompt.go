package suggest

import (
	"fmt"
	"strings"
)

const maxPromptCandidates = 200

// buildPrompt asks for tags first, then links, as JSON objects.
func buildPrompt(body string, candidates []string, maxTags, maxLinks int) string {
	if len(candidates) > maxPromptCandidates {
		candidates = candidates[:maxPromptCandidates]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You help organise a Zettelkasten. Suggest up to %d tags and up to %d links for the note below.\n", maxTags, maxLinks)
	b.WriteString("Answer with a JSON array only. List every tag object before any link object.\n")
	b.WriteString(`Tag objects look like {"type":"tag","value":"<tag>","reason":"<short reason>"}.` + "\n")
	b.WriteString(`Link objects look like {"type":"link","target":"<note id>","reason":"<short reason>"}.` + "\n")
	if len(candidates) > 0 {
		b.WriteString("Only link to these note ids: ")
		b.WriteString(strings.Join(candidates, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nNote:\n")
	b.WriteString(body)
	return b.String()
}
