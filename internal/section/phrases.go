package section

import (
	"fmt"
	"strings"

	"github.com/ppiankov/itemone/internal/model"
)

// MatchMode selects how a phrase is compared with normalized element text
type MatchMode string

const (
	MatchContains MatchMode = "contains"
	MatchPrefix   MatchMode = "prefix"
	MatchExact    MatchMode = "exact"
)

// Phrase is one header predicate. Text is stored normalized.
type Phrase struct {
	Text string
	Mode MatchMode
}

// Match reports whether normalized text satisfies the predicate
func (p Phrase) Match(normalized string) bool {
	switch p.Mode {
	case MatchExact:
		return normalized == p.Text
	case MatchPrefix:
		return strings.HasPrefix(normalized, p.Text)
	default:
		return strings.Contains(normalized, p.Text)
	}
}

// PhraseSet is an ordered list of header predicates
type PhraseSet struct {
	phrases []Phrase
}

// NewPhraseSet builds a phrase set from configuration rules.
// Rule text is normalized; an empty mode means contains.
func NewPhraseSet(rules []model.PhraseRule) (*PhraseSet, error) {
	set := &PhraseSet{}
	for _, rule := range rules {
		text := Normalize(rule.Text)
		if text == "" {
			return nil, fmt.Errorf("empty phrase")
		}

		mode := MatchMode(strings.ToLower(strings.TrimSpace(rule.Mode)))
		switch mode {
		case "":
			mode = MatchContains
		case MatchContains, MatchPrefix, MatchExact:
		default:
			return nil, fmt.Errorf("phrase %q: unknown match mode %q", rule.Text, rule.Mode)
		}

		set.phrases = append(set.phrases, Phrase{Text: text, Mode: mode})
	}

	if len(set.phrases) == 0 {
		return nil, fmt.Errorf("no phrases configured")
	}
	return set, nil
}

// Match reports whether any predicate accepts the normalized text
func (s *PhraseSet) Match(normalized string) bool {
	for _, p := range s.phrases {
		if p.Match(normalized) {
			return true
		}
	}
	return false
}

// folded returns the predicates with ASCII letters uppercased, in priority
// order, for byte offset search in raw text
func (s *PhraseSet) folded() []Phrase {
	out := make([]Phrase, len(s.phrases))
	for i, p := range s.phrases {
		out[i] = Phrase{Text: asciiUpper(p.Text), Mode: p.Mode}
	}
	return out
}
