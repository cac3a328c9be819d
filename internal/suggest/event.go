package suggest

import "time"

// EventKind identifies an Event.
type EventKind string

const (
	EventPhase    EventKind = "phase"
	EventTag      EventKind = "tag"
	EventLink     EventKind = "link"
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// TagSuggestion proposes a tag for the note.
type TagSuggestion struct {
	Tag    string `json:"tag"`
	Reason string `json:"reason,omitempty"`
}

// LinkSuggestion proposes a wikilink to an existing note.
type LinkSuggestion struct {
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// Result is the outcome of a completed generation.
type Result struct {
	NoteID      string           `json:"note_id"`
	Fingerprint string           `json:"fingerprint"`
	Tags        []TagSuggestion  `json:"tags"`
	Links       []LinkSuggestion `json:"links"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Event is one message on a suggestion stream. Exactly one payload field is
// set, matching Kind.
type Event struct {
	Kind      EventKind       `json:"kind"`
	RequestID string          `json:"request_id"`
	State     State           `json:"state,omitempty"`
	Tag       *TagSuggestion  `json:"tag,omitempty"`
	Link      *LinkSuggestion `json:"link,omitempty"`
	Tokens    int             `json:"tokens,omitempty"`
	Result    *Result         `json:"result,omitempty"`
	Message   string          `json:"message,omitempty"`
	// Err is set on error events; it is an *apperr.SuggestionGenerationError.
	Err error `json:"-"`
}
