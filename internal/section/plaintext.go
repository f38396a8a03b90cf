package section

import "strings"

// PlainTextLocator finds the section in raw text by literal offsets.
// A prefix phrase must open its line and an exact phrase must be the whole
// line, surrounding whitespace aside.
type PlainTextLocator struct {
	start []Phrase // uppercased, priority order
	end   []Phrase
}

// NewPlainTextLocator creates a locator from the phrase sets
func NewPlainTextLocator(start, end *PhraseSet) *PlainTextLocator {
	return &PlainTextLocator{
		start: start.folded(),
		end:   end.folded(),
	}
}

// Extract returns the trimmed text between the first start header (in priority
// order) and the first end header after it. The markup result is always empty.
// Both results are empty when either header is missing.
func (l *PlainTextLocator) Extract(text string) (string, string) {
	upper := asciiUpper(text)

	start := firstIndex(upper, l.start, 0)
	if start == -1 {
		return "", ""
	}

	end := firstIndex(upper, l.end, start)
	if end == -1 {
		return "", ""
	}

	return strings.TrimSpace(text[start:end]), ""
}

// firstIndex returns the offset of the first phrase, tried in order, found at
// or after from
func firstIndex(s string, phrases []Phrase, from int) int {
	for _, p := range phrases {
		for at := from; at < len(s); {
			idx := strings.Index(s[at:], p.Text)
			if idx == -1 {
				break
			}
			pos := at + idx
			if onLine(s, pos, len(p.Text), p.Mode) {
				return pos
			}
			at = pos + 1
		}
	}
	return -1
}

// onLine applies mode to the occurrence s[pos:pos+n]
func onLine(s string, pos, n int, mode MatchMode) bool {
	if mode != MatchPrefix && mode != MatchExact {
		return true
	}

	lineStart := strings.LastIndexByte(s[:pos], '\n') + 1
	if strings.TrimSpace(s[lineStart:pos]) != "" {
		return false
	}
	if mode == MatchPrefix {
		return true
	}

	rest := s[pos+n:]
	if i := strings.IndexByte(rest, '\n'); i != -1 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest) == ""
}

// asciiUpper uppercases a-z only. Offsets in the result are byte-for-byte the
// offsets in the input, which strings.ToUpper does not guarantee.
func asciiUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}
