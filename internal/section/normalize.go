// Package section locates the "Item 1. Business" section inside filing documents.
//
// Markup documents are searched element by element over a flattened
// div/p/span sequence; plain text documents are searched by byte offset.
// Header comparisons always go through Normalize, output text never does.
package section

import "strings"

// Normalize canonicalizes text for header matching: non-breaking spaces become
// spaces, whitespace runs collapse to one space, the result is trimmed and lowercased.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
