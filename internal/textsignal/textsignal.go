package textsignal

import (
	"strings"
)

// DefaultMinLength is the shortest token ExtractTerms keeps by default.
const DefaultMinLength = 4

// #region tokenize
// words splits text into lowercase runs of ASCII letters.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
}

// #endregion tokenize

// #region extract-terms
// ExtractTerms returns the set of significant terms in text: lowercase
// alphabetic tokens that are not stop-words and are at least minLength long.
// minLength <= 0 selects DefaultMinLength.
func ExtractTerms(text string, minLength int) map[string]struct{} {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	terms := make(map[string]struct{})
	for _, w := range words(text) {
		if len(w) < minLength || stopwords[w] {
			continue
		}
		terms[w] = struct{}{}
	}
	return terms
}

// #endregion extract-terms

// #region actions
// LeadingAction returns the first alphabetic token of text, lowercased.
// It is a weak proxy for the action verb of a step description.
func LeadingAction(text string) string {
	ws := words(text)
	if len(ws) == 0 {
		return ""
	}
	return ws[0]
}

// SentenceActions returns the leading token of every sentence in text.
// Sentences are split on '.', '!' and '?'; sentences without letters are skipped.
func SentenceActions(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	var actions []string
	for _, s := range sentences {
		if a := LeadingAction(s); a != "" {
			actions = append(actions, a)
		}
	}
	return actions
}

// #endregion actions

// #region set-ops
// Intersection returns the number of keys present in both sets.
func Intersection(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// Union returns the number of distinct keys across both sets.
func Union(a, b map[string]struct{}) int {
	return len(a) + len(b) - Intersection(a, b)
}

// Set builds a set from a slice, dropping empty strings.
func Set(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		s[it] = struct{}{}
	}
	return s
}

// #endregion set-ops
