package analysis

import (
	"unicode"
	"unicode/utf8"
)

// WhitespaceAnalyzer splits text on whitespace without any normalization.
// Punctuation stays attached to the words.
type WhitespaceAnalyzer struct{}

// NewWhitespaceAnalyzer creates a new WhitespaceAnalyzer.
func NewWhitespaceAnalyzer() *WhitespaceAnalyzer {
	return &WhitespaceAnalyzer{}
}

// Analyze splits the input on whitespace, preserving case.
func (a *WhitespaceAnalyzer) Analyze(_ string, text string) []Token {
	var tokens []Token
	last := 0
	start := -1
	for i := 0; i <= len(text); {
		r, size := utf8.RuneError, 1
		if i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
		}
		space := i == len(text) || unicode.IsSpace(r)
		switch {
		case space && start >= 0:
			tokens = append(tokens, Token{
				Term:      text[start:i],
				Position:  len(tokens),
				StartByte: start,
				EndByte:   i,
				Punct:     text[last:start],
			})
			last = i
			start = -1
		case !space && start < 0:
			start = i
		}
		i += size
	}
	return tokens
}
