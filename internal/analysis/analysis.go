package analysis

// Token represents a single token produced by an analyzer.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int

	// Punct is the text between the previous token and this one.
	Punct string
}

// Analyzer splits text into a stream of tokens. Tokens keep their original
// case; normalization is the job of annotators.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(field string, text string) []Token
}

// Annotator derives one value per token for a single annotation (word,
// lemma, ...). The result has exactly one entry per input token.
type Annotator interface {
	Annotate(tokens []Token) []string
}

// AnnotatorFunc adapts a function to the Annotator interface.
type AnnotatorFunc func(tokens []Token) []string

func (f AnnotatorFunc) Annotate(tokens []Token) []string { return f(tokens) }

// Annotate runs each annotator over tokens and returns the values keyed by
// annotation name.
func Annotate(tokens []Token, annotators map[string]Annotator) map[string][]string {
	out := make(map[string][]string, len(annotators))
	for name, a := range annotators {
		out[name] = a.Annotate(tokens)
	}
	return out
}
