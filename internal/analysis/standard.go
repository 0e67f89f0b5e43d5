package analysis

import (
	"unicode"
	"unicode/utf8"
)

// StandardAnalyzer tokenizes on Unicode word boundaries. Words may contain
// an inner apostrophe or hyphen ("don't", "well-known"). Every other
// non-space rune becomes a one-rune punctuation token, so sentence marks
// are searchable positions.
type StandardAnalyzer struct{}

// NewStandardAnalyzer creates a new StandardAnalyzer.
func NewStandardAnalyzer() *StandardAnalyzer {
	return &StandardAnalyzer{}
}

// Analyze tokenizes the input, preserving case.
func (a *StandardAnalyzer) Analyze(_ string, text string) []Token {
	var tokens []Token
	pos := 0
	last := 0
	i := 0

	emit := func(start, end int) {
		tokens = append(tokens, Token{
			Term:      text[start:end],
			Position:  pos,
			StartByte: start,
			EndByte:   end,
			Punct:     text[last:start],
		})
		pos++
		last = end
	}

	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case isWordRune(r):
			start := i
			i += size
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if isWordRune(r) {
					i += size
					continue
				}
				if isJoiner(r) && i+size < len(text) {
					if next, _ := utf8.DecodeRuneInString(text[i+size:]); isWordRune(next) {
						i += size
						continue
					}
				}
				break
			}
			emit(start, i)
		default:
			emit(i, i+size)
			i += size
		}
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || r == '_'
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}
