package suggest

// itemScanner finds complete top-level JSON objects in a token stream so items
// can be surfaced before the model finishes. Anything outside an object
// (array brackets, commas, fences, prose) is skipped.
type itemScanner struct {
	buf   []byte
	depth int
	inStr bool
	esc   bool
}

// Feed consumes a chunk and returns every object completed within it.
func (s *itemScanner) Feed(chunk string) [][]byte {
	var out [][]byte
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if s.depth == 0 {
			if c == '{' {
				s.depth = 1
				s.buf = append(s.buf[:0], c)
			}
			continue
		}
		s.buf = append(s.buf, c)
		if s.inStr {
			switch {
			case s.esc:
				s.esc = false
			case c == '\\':
				s.esc = true
			case c == '"':
				s.inStr = false
			}
			continue
		}
		switch c {
		case '"':
			s.inStr = true
		case '{', '[':
			s.depth++
		case '}', ']':
			s.depth--
			if s.depth == 0 {
				obj := make([]byte, len(s.buf))
				copy(obj, s.buf)
				out = append(out, obj)
			}
		}
	}
	return out
}
