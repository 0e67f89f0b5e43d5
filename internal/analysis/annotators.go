package analysis

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WordAnnotator yields the token text unchanged.
func WordAnnotator() Annotator {
	return AnnotatorFunc(func(tokens []Token) []string {
		out := make([]string, len(tokens))
		for i, t := range tokens {
			out[i] = t.Term
		}
		return out
	})
}

// LowercaseAnnotator yields the lowercased token text.
func LowercaseAnnotator() Annotator {
	return AnnotatorFunc(func(tokens []Token) []string {
		// A Caser keeps state, so each call gets its own.
		lower := cases.Lower(language.Und)
		out := make([]string, len(tokens))
		for i, t := range tokens {
			out[i] = lower.String(t.Term)
		}
		return out
	})
}

// LemmaAnnotator yields the English Snowball stem of the lowercased token.
// Stop words and punctuation are kept as they are.
func LemmaAnnotator() Annotator {
	return AnnotatorFunc(func(tokens []Token) []string {
		lower := cases.Lower(language.Und)
		out := make([]string, len(tokens))
		for i, t := range tokens {
			out[i] = snowballeng.Stem(lower.String(t.Term), false)
		}
		return out
	})
}

// PunctAnnotator yields the separator text before each token with runs of
// whitespace collapsed to one space.
func PunctAnnotator() Annotator {
	return AnnotatorFunc(func(tokens []Token) []string {
		out := make([]string, len(tokens))
		for i, t := range tokens {
			out[i] = collapseSpace(t.Punct)
		}
		return out
	})
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	if space {
		sb.WriteByte(' ')
	}
	return sb.String()
}
