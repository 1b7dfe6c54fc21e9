package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Common English function words that would otherwise dominate the table.
var baseStopWords = []string{
	"the", "and", "but", "with", "for", "you",
	"are", "was", "this", "that", "have", "had",
}

type tokenizer struct {
	minLen int
	stop   map[string]bool
}

func newTokenizer(minLen int, extra []string) tokenizer {
	stop := make(map[string]bool, len(baseStopWords)+len(extra))
	for _, w := range baseStopWords {
		stop[w] = true
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			stop[w] = true
		}
	}
	return tokenizer{minLen: minLen, stop: stop}
}

// tokens lowercases text, deletes punctuation, symbols and the invisible
// joiners and selectors inside emoji sequences, splits on whitespace and
// drops short words, stop words and words without a letter or digit.
func (t tokenizer) tokens(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || isEmojiGlue(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text)

	var out []string
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) < t.minLen || t.stop[w] || !hasLetterOrDigit(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// isEmojiGlue matches format characters (ZWJ), variation selectors and
// enclosing marks (keycaps). Other combining marks stay so decomposed
// accents remain part of their word.
func isEmojiGlue(r rune) bool {
	return unicode.Is(unicode.Cf, r) ||
		unicode.Is(unicode.Me, r) ||
		unicode.Is(unicode.Variation_Selector, r)
}

func hasLetterOrDigit(w string) bool {
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
