package query

import (
	"errors"
	"testing"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
	"CorpusSearch/internal/sensitivity"
)

func TestPatternTypes(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
		want PatternType
		str  string
	}{
		{"Term", NewTerm("cat"), PatternTerm, "term(cat)"},
		{"AnnotatedTerm", NewAnnotatedTerm("lemma", "be"), PatternTerm, "term(lemma:be)"},
		{"Prefix", &Prefix{Prefix: "ca"}, PatternPrefix, "prefix(ca)"},
		{"Wildcard", &Wildcard{Pattern: "c?t"}, PatternWildcard, "wildcard(c?t)"},
		{"Fuzzy", &Fuzzy{Value: "cat", MaxDistance: 1}, PatternFuzzy, "fuzzy(cat~1)"},
		{"AnyToken", &AnyToken{}, PatternAnyToken, "any"},
		{"Not", &Not{Clause: NewTerm("a")}, PatternNot, "not(term(a))"},
		{"Sequence", NewSequence(NewTerm("a"), NewTerm("b")), PatternSequence, "seq(term(a), term(b))"},
		{"Or", NewOr(NewTerm("a"), NewTerm("b")), PatternOr, "or(term(a), term(b))"},
		{"And", NewAnd(NewTerm("a")), PatternAnd, "and(term(a))"},
		{"Repetition", NewRepetition(NewTerm("a"), 1, fimatch.MaxUnlimited), PatternRepetition, "rep(term(a), 1, inf)"},
		{"Expansion", NewExpansion(NewTerm("a"), ExpandRight, 0, 2), PatternExpansion, "exp(term(a), right, 0, 2)"},
		{"Capture", &Capture{Name: "A", Clause: NewTerm("a")}, PatternCapture, "capture(A, term(a))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Type(); got != tt.want {
				t.Errorf("Type() = %s, want %s", got, tt.want)
			}
			if got := tt.p.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
		})
	}
}

func TestTermString_Sensitivity(t *testing.T) {
	s := sensitivity.Sensitive
	p := &Term{TokenMatch: TokenMatch{Annotation: "word", Sensitivity: &s}, Value: "Cat"}
	if got := p.String(); got != "term(word:Cat/s)" {
		t.Errorf("String() = %q", got)
	}
}

func TestRewrite(t *testing.T) {
	a, b, c := NewTerm("a"), NewTerm("b"), NewTerm("c")
	tests := []struct {
		name string
		in   Pattern
		want string
	}{
		{"FlattenSequence", NewSequence(NewSequence(a, b), c), "seq(term(a), term(b), term(c))"},
		{"FlattenOr", NewOr(NewOr(a, b), c), "or(term(a), term(b), term(c))"},
		{"FlattenAnd", NewAnd(a, NewAnd(b, c)), "and(term(a), term(b), term(c))"},
		{"UnwrapSingle", NewSequence(NewOr(a)), "term(a)"},
		{"RepetitionOne", NewRepetition(a, 1, 1), "term(a)"},
		{"EmptyExpansion", NewExpansion(a, ExpandLeft, 0, 0), "term(a)"},
		{"DoubleNegation", &Not{Clause: &Not{Clause: a}}, "term(a)"},
		{"MergeAnyRuns", NewSequence(a, &AnyToken{}, NewRepetition(&AnyToken{}, 0, 2), b), "seq(term(a), rep(any, 1, 3), term(b))"},
		{"MergeUnlimitedRuns", NewSequence(NewRepetition(&AnyToken{}, 1, fimatch.MaxUnlimited), &AnyToken{}), "rep(any, 2, inf)"},
		{"Nested", &Capture{Name: "A", Clause: NewSequence(NewSequence(a), NewRepetition(b, 1, 1))}, "capture(A, seq(term(a), term(b)))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rewrite(tt.in)
			if got.String() != tt.want {
				t.Errorf("Rewrite() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRewrite_Identity(t *testing.T) {
	p := NewSequence(NewTerm("a"), NewRepetition(NewTerm("b"), 0, 3), &Capture{Name: "A", Clause: NewTerm("c")})
	if got := Rewrite(p); got != p {
		t.Errorf("Rewrite returned a new pattern for a simplified tree: %s", got)
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	p := NewSequence(NewSequence(NewTerm("a"), &AnyToken{}), &AnyToken{}, NewOr(NewOr(NewTerm("b"))))
	once := Rewrite(p)
	twice := Rewrite(once)
	if once != twice {
		t.Errorf("second rewrite changed the pattern: %s -> %s", once, twice)
	}
	if once.String() != "seq(term(a), rep(any, 2, 2), term(b))" {
		t.Errorf("Rewrite() = %s", once)
	}
}

func TestRewrite_MergeConstraints(t *testing.T) {
	inner := matchfilter.NewSameTokens("A", "B", "word", sensitivity.Insensitive)
	outer := matchfilter.NewNot(matchfilter.NewSameTokens("A", "C", "word", sensitivity.Insensitive))
	p := &Constrained{Clause: &Constrained{Clause: NewTerm("a"), Filter: inner}, Filter: outer}

	got, ok := Rewrite(p).(*Constrained)
	if !ok {
		t.Fatalf("expected Constrained, got %T", got)
	}
	if _, nested := got.Clause.(*Constrained); nested {
		t.Error("constraints were not merged")
	}
	if _, isAnd := got.Filter.(*matchfilter.And); !isAnd {
		t.Errorf("expected And filter, got %T", got.Filter)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
		err  error
	}{
		{"Valid", NewSequence(NewTerm("a"), NewRepetition(&AnyToken{}, 0, 3)), nil},
		{"NegativeMin", NewRepetition(NewTerm("a"), -1, 2), fimatch.ErrInvalidRepetition},
		{"MinAboveMax", NewExpansion(NewTerm("a"), ExpandLeft, 3, 2), fimatch.ErrInvalidRepetition},
		{"EmptyOr", NewOr(), ErrInvalidPattern},
		{"EmptyAnd", NewAnd(), ErrInvalidPattern},
		{"NilClause", NewSequence(NewTerm("a"), nil), ErrInvalidPattern},
		{"UnnamedCapture", &Capture{Clause: NewTerm("a")}, ErrInvalidPattern},
		{"FuzzyDistance", &Fuzzy{Value: "a", MaxDistance: 3}, ErrInvalidDistance},
		{"NoFilter", &Constrained{Clause: NewTerm("a")}, ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if tt.err == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Validate() = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestValidate_Limits(t *testing.T) {
	var p Pattern = NewTerm("a")
	for i := 0; i <= MaxDepth+1; i++ {
		p = &Capture{Name: "A", Clause: p}
	}
	if err := Validate(p); !errors.Is(err, ErrTooDeep) {
		t.Errorf("expected ErrTooDeep, got %v", err)
	}

	clauses := make([]Pattern, MaxClauses+1)
	for i := range clauses {
		clauses[i] = NewTerm("a")
	}
	if err := Validate(NewOr(clauses...)); !errors.Is(err, ErrTooManyClauses) {
		t.Errorf("expected ErrTooManyClauses, got %v", err)
	}
}

func TestValidate_RepetitionLimit(t *testing.T) {
	tests := []struct {
		name string
		p    Pattern
		err  error
	}{
		{"at limit", NewRepetition(NewTerm("a"), 0, MaxRepetition), nil},
		{"above limit", NewRepetition(NewTerm("a"), 0, MaxRepetition+1), ErrTooManyRepeats},
		{"open bound", NewRepetition(NewTerm("a"), 3, fimatch.MaxUnlimited), nil},
		{"open bound large min", NewRepetition(NewTerm("a"), MaxRepetition, fimatch.MaxUnlimited), ErrTooManyRepeats},
		{"nested product", NewRepetition(NewRepetition(NewTerm("a"), 0, 100), 0, 100), ErrTooManyRepeats},
		{"nested small", NewRepetition(NewRepetition(NewTerm("a"), 1, 10), 1, 10), nil},
		{"expansion", NewExpansion(NewTerm("a"), ExpandRight, 0, MaxRepetition+1), ErrTooManyRepeats},
		{"huge", NewRepetition(NewTerm("a"), 0, 3_000_000), ErrTooManyRepeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.p)
			if tt.err == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("Validate() = %v, want %v", err, tt.err)
			}
		})
	}
}
