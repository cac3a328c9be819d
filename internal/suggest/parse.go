package suggest

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Item is one suggestion object as produced by the model. Both the typed form
// {"type":"tag","value":"x"} and the shorthand {"tag":"x"} / {"link":"y"}
// are accepted.
type Item struct {
	Type   string `json:"type"`
	Value  string `json:"value"`
	Tag    string `json:"tag"`
	Link   string `json:"link"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// Kind returns "tag", "link" or "" when the object carries neither.
func (it Item) Kind() string {
	switch {
	case it.Type == "tag" && it.Value != "", it.Tag != "":
		return "tag"
	case it.Type == "link" && (it.Target != "" || it.Value != ""), it.Link != "":
		return "link"
	}
	return ""
}

// TagValue returns the normalised tag of a tag item.
func (it Item) TagValue() string {
	v := it.Tag
	if v == "" {
		v = it.Value
	}
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(v), "#"))
}

// LinkTarget returns the target id of a link item, with any [[ ]] stripped.
func (it Item) LinkTarget() string {
	v := it.Link
	if v == "" {
		v = it.Target
	}
	if v == "" {
		v = it.Value
	}
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[[")
	return strings.TrimSuffix(v, "]]")
}

// ParseResult is either Parsed or Unparseable.
type ParseResult interface {
	isParseResult()
}

// Parsed holds the recovered items. An empty list means the model answered
// with a literal empty array: no suggestions, as opposed to a failure.
type Parsed struct {
	Items []Item
}

// Unparseable carries raw model output from which nothing could be recovered.
type Unparseable struct {
	Raw string
}

func (Parsed) isParseResult()      {}
func (Unparseable) isParseResult() {}

// ParseItems recovers suggestion items from untrusted model output. It strips
// code fences, then tries a JSON array, a single JSON object, and finally one
// JSON object per line, discarding lines that fail. Only when nothing at all
// is recovered does it return Unparseable; that includes a well-formed array
// none of whose elements is a suggestion.
func ParseItems(raw string) ParseResult {
	text := stripFences(raw)

	var arr []json.RawMessage
	if strings.HasPrefix(text, "[") && json.Unmarshal([]byte(text), &arr) == nil {
		items := []Item{}
		for _, elem := range arr {
			if it, ok := decodeItem(elem); ok {
				items = append(items, it)
			}
		}
		if len(arr) > 0 && len(items) == 0 {
			return Unparseable{Raw: raw}
		}
		return Parsed{Items: items}
	}

	if it, ok := decodeItem([]byte(text)); ok {
		return Parsed{Items: []Item{it}}
	}

	items := []Item{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSuffix(line, ",")
		if line == "" {
			continue
		}
		if it, ok := decodeItem([]byte(line)); ok {
			items = append(items, it)
		}
	}
	if len(items) > 0 {
		return Parsed{Items: items}
	}
	return Unparseable{Raw: raw}
}

func decodeItem(data []byte) (Item, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Item{}, false
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		return Item{}, false
	}
	return it, it.Kind() != ""
}

// stripFences removes a leading ``` or ```json line and a trailing ``` line.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
