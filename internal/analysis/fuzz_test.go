package analysis

import (
	"testing"
)

func FuzzStandardAnalyzer(f *testing.F) {
	f.Add("Hello World")
	f.Add("")
	f.Add("  spaces  everywhere  ")
	f.Add("café résumé naïve")
	f.Add("hello-world foo_bar don't-")
	f.Add("123, 456. 789!")

	f.Fuzz(func(t *testing.T, input string) {
		a := NewStandardAnalyzer()
		tokens := a.Analyze("field", input)

		prevEnd := 0
		for i, tok := range tokens {
			if tok.Position != i {
				t.Errorf("token %d position = %d, want %d", i, tok.Position, i)
			}
			if tok.StartByte < prevEnd || tok.EndByte > len(input) || tok.StartByte >= tok.EndByte {
				t.Errorf("invalid byte offsets: start=%d end=%d input_len=%d", tok.StartByte, tok.EndByte, len(input))
				continue
			}
			if input[prevEnd:tok.StartByte] != tok.Punct || input[tok.StartByte:tok.EndByte] != tok.Term {
				t.Errorf("token %d does not cover the input", i)
			}
			prevEnd = tok.EndByte
		}

		annotated := Annotate(tokens, map[string]Annotator{"lemma": LemmaAnnotator(), "punct": PunctAnnotator()})
		for name, values := range annotated {
			if len(values) != len(tokens) {
				t.Errorf("%s: %d values for %d tokens", name, len(values), len(tokens))
			}
		}
	})
}

func FuzzWhitespaceAnalyzer(f *testing.F) {
	f.Add("Hello World")
	f.Add("")
	f.Add("\t\n\r mixed whitespace")

	f.Fuzz(func(t *testing.T, input string) {
		a := NewWhitespaceAnalyzer()
		tokens := a.Analyze("field", input)

		for i, tok := range tokens {
			if tok.Position != i {
				t.Errorf("token %d position = %d, want %d", i, tok.Position, i)
			}
			if tok.Term == "" {
				t.Error("empty term produced")
			}
		}
	})
}
