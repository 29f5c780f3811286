package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength drops short tokens like "of" or "to" that survive the stopword list.
const minTokenLength = 3

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "our": {}, "their": {}, "this": {},
	"that": {}, "from": {}, "into": {}, "are": {}, "was": {}, "were": {}, "will": {},
	"who": {}, "which": {}, "through": {}, "all": {}, "its": {}, "has": {}, "have": {},
	"not": {}, "but": {}, "can": {}, "per": {}, "each": {}, "other": {}, "more": {},
	"than": {}, "also": {}, "such": {}, "may": {}, "must": {}, "any": {}, "been": {},
	"program": {}, "programs": {}, "organization": {}, "organizations": {},
	"grant": {}, "grants": {}, "funding": {}, "fund": {}, "support": {}, "supports": {},
	"mission": {}, "provide": {}, "provides": {}, "providing": {}, "services": {},
}

// Fold lowercases s and strips diacritics, so "Café" and "cafe" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Normalize folds s and collapses every run of non-alphanumeric characters to one space.
func Normalize(s string) string {
	s = Fold(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteByte(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokens returns the distinct meaningful words of s in first-seen order.
func Tokens(s string) []string {
	fields := strings.Fields(Normalize(s))
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < minTokenLength {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		f = stem(f)
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// TokenSet is Tokens as a set.
func TokenSet(s string) map[string]struct{} {
	tokens := Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// ContainsPhrase reports whether the normalized haystack contains the normalized needle
// on word boundaries.
func ContainsPhrase(haystack, needle string) bool {
	needle = Normalize(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(" "+Normalize(haystack)+" ", " "+needle+" ")
}

// stem strips a plural "s" so "youths" and "youth" collide. Anything smarter belongs
// to the similarity scorer, not here.
func stem(token string) string {
	if len(token) > 4 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") {
		return strings.TrimSuffix(token, "s")
	}
	return token
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
