package gist

import (
	"strings"
	"unicode"
)

// Segment splits section text into candidate sentences. Regulatory prose is
// full of abbreviation traps ("U.S.C.", "e.g.", enumerated clauses), so the
// splitter only breaks after terminal punctuation when the next token looks
// like a sentence opener: an uppercase letter, an opening parenthesis, or a
// section mark. Fragments shorter than three words are dropped, and text
// hyphenated across line breaks is rejoined.
func Segment(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = dehyphenate(text)

	runes := []rune(text)
	var sentences []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Swallow trailing quotes and closing brackets.
		j := i + 1
		for j < len(runes) && (runes[j] == '"' || runes[j] == '\'' || runes[j] == ')' || runes[j] == ']') {
			j++
		}
		if j >= len(runes) {
			break
		}
		if !unicode.IsSpace(runes[j]) {
			continue
		}
		k := j
		for k < len(runes) && unicode.IsSpace(runes[k]) {
			k++
		}
		if k >= len(runes) {
			break
		}
		if !opensSentence(runes[k]) {
			continue
		}
		if runes[i] == '.' && isAbbreviation(runes, i) {
			continue
		}
		sentences = append(sentences, string(runes[start:j]))
		start = k
		i = k - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.Join(strings.Fields(s), " ")
		if wordCount(s) >= 3 {
			out = append(out, s)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '?', '!', ';', ':':
		return true
	}
	return false
}

func opensSentence(r rune) bool {
	return unicode.IsUpper(r) || r == '(' || r == '§'
}

// isAbbreviation reports whether the period at position i ends a token like
// "U.S.C." or "e.g." rather than a sentence: a single letter (or another
// period) directly precedes it.
func isAbbreviation(runes []rune, i int) bool {
	if i == 0 {
		return false
	}
	prev := runes[i-1]
	if !unicode.IsLetter(prev) {
		return false
	}
	if i == 1 {
		return true
	}
	before := runes[i-2]
	return !unicode.IsLetter(before) && !unicode.IsDigit(before)
}

// dehyphenate rejoins words broken across line endings ("require-\nments").
func dehyphenate(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '-' && i+1 < len(runes) && runes[i+1] == '\n' &&
			i > 0 && unicode.IsLetter(runes[i-1]) &&
			i+2 < len(runes) && unicode.IsLower(runes[i+2]) {
			i++ // skip the newline too
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
