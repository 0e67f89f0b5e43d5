package query

import (
	"fmt"
	"strings"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/matchfilter"
	"CorpusSearch/internal/sensitivity"
)

// PatternType identifies the kind of pattern node.
type PatternType int

const (
	PatternTerm PatternType = iota
	PatternPrefix
	PatternWildcard
	PatternFuzzy
	PatternAnyToken
	PatternNot
	PatternSequence
	PatternOr
	PatternAnd
	PatternRepetition
	PatternExpansion
	PatternCapture
	PatternConstrained
)

var patternTypeNames = [...]string{
	PatternTerm:        "term",
	PatternPrefix:      "prefix",
	PatternWildcard:    "wildcard",
	PatternFuzzy:       "fuzzy",
	PatternAnyToken:    "any",
	PatternNot:         "not",
	PatternSequence:    "seq",
	PatternOr:          "or",
	PatternAnd:         "and",
	PatternRepetition:  "repeat",
	PatternExpansion:   "expansion",
	PatternCapture:     "capture",
	PatternConstrained: "constrained",
}

func (t PatternType) String() string {
	if t < 0 || int(t) >= len(patternTypeNames) {
		return fmt.Sprintf("PatternType(%d)", int(t))
	}
	return patternTypeNames[t]
}

// Pattern is the interface for all pattern tree nodes. Nodes are treated as
// immutable once built; Rewrite returns new nodes instead of editing them.
type Pattern interface {
	Type() PatternType
	String() string
}

// TokenMatch names the annotation a single-token clause reads and how its
// value is compared. An empty Annotation means the main annotation; a nil
// Sensitivity means the annotation's default.
type TokenMatch struct {
	Annotation  string
	Sensitivity *sensitivity.Sensitivity
}

func (m *TokenMatch) token() *TokenMatch { return m }

func (m *TokenMatch) label(value string) string {
	var sb strings.Builder
	if m.Annotation != "" {
		sb.WriteString(m.Annotation)
		sb.WriteByte(':')
	}
	sb.WriteString(value)
	if m.Sensitivity != nil {
		sb.WriteByte('/')
		sb.WriteString(m.Sensitivity.String())
	}
	return sb.String()
}

// tokenClause is implemented by the nodes that match exactly one token
// through a set of term ids.
type tokenClause interface {
	Pattern
	token() *TokenMatch
}

// Term matches a token whose value equals Value.
type Term struct {
	TokenMatch
	Value string
}

func (p *Term) Type() PatternType { return PatternTerm }
func (p *Term) String() string    { return "term(" + p.label(p.Value) + ")" }

// Prefix matches a token whose value starts with Prefix.
type Prefix struct {
	TokenMatch
	Prefix string
}

func (p *Prefix) Type() PatternType { return PatternPrefix }
func (p *Prefix) String() string    { return "prefix(" + p.label(p.Prefix) + ")" }

// Wildcard matches a token value against a pattern with * and ?.
type Wildcard struct {
	TokenMatch
	Pattern string
}

func (p *Wildcard) Type() PatternType { return PatternWildcard }
func (p *Wildcard) String() string    { return "wildcard(" + p.label(p.Pattern) + ")" }

// Fuzzy matches a token value within MaxDistance edits of Value.
type Fuzzy struct {
	TokenMatch
	Value       string
	MaxDistance int
}

func (p *Fuzzy) Type() PatternType { return PatternFuzzy }
func (p *Fuzzy) String() string {
	return fmt.Sprintf("fuzzy(%s~%d)", p.label(p.Value), p.MaxDistance)
}

// AnyToken matches any single token.
type AnyToken struct{}

func (p *AnyToken) Type() PatternType { return PatternAnyToken }
func (p *AnyToken) String() string    { return "any" }

// Not matches a single token that Clause does not match. Clause must itself
// be a single-token clause.
type Not struct {
	Clause Pattern
}

func (p *Not) Type() PatternType { return PatternNot }
func (p *Not) String() string    { return "not(" + p.Clause.String() + ")" }

// Sequence matches its clauses one after another.
type Sequence struct {
	Clauses []Pattern
}

func (p *Sequence) Type() PatternType { return PatternSequence }
func (p *Sequence) String() string    { return "seq(" + joinPatterns(p.Clauses) + ")" }

// Or matches when any clause matches.
type Or struct {
	Clauses []Pattern
}

func (p *Or) Type() PatternType { return PatternOr }
func (p *Or) String() string    { return "or(" + joinPatterns(p.Clauses) + ")" }

// And matches spans that every clause matches with the same start and end.
type And struct {
	Clauses []Pattern
}

func (p *And) Type() PatternType { return PatternAnd }
func (p *And) String() string    { return "and(" + joinPatterns(p.Clauses) + ")" }

// Repetition matches Clause between Min and Max times in a row. Max is
// fimatch.MaxUnlimited for an open upper bound.
type Repetition struct {
	Clause Pattern
	Min    int
	Max    int
}

func (p *Repetition) Type() PatternType { return PatternRepetition }
func (p *Repetition) String() string {
	return fmt.Sprintf("rep(%s, %d, %s)", p.Clause, p.Min, boundString(p.Max))
}

// ExpandDirection is the side an Expansion adds tokens to.
type ExpandDirection int

const (
	ExpandLeft ExpandDirection = iota
	ExpandRight
)

func (d ExpandDirection) String() string {
	if d == ExpandLeft {
		return "left"
	}
	return "right"
}

// Expansion matches Clause with between Min and Max arbitrary tokens added
// on one side.
type Expansion struct {
	Clause    Pattern
	Direction ExpandDirection
	Min       int
	Max       int
}

func (p *Expansion) Type() PatternType { return PatternExpansion }
func (p *Expansion) String() string {
	return fmt.Sprintf("exp(%s, %s, %d, %s)", p.Clause, p.Direction, p.Min, boundString(p.Max))
}

// Capture records the span Clause matched under Name.
type Capture struct {
	Name   string
	Clause Pattern
}

func (p *Capture) Type() PatternType { return PatternCapture }
func (p *Capture) String() string    { return "capture(" + p.Name + ", " + p.Clause.String() + ")" }

// Constrained keeps the matches of Clause that satisfy Filter. The filter
// refers to capture groups defined inside Clause.
type Constrained struct {
	Clause Pattern
	Filter matchfilter.Filter
}

func (p *Constrained) Type() PatternType { return PatternConstrained }
func (p *Constrained) String() string {
	return "constrained(" + p.Clause.String() + ", " + p.Filter.String() + ")"
}

// Helpers for building patterns in code.

func NewTerm(value string) *Term { return &Term{Value: value} }

func NewAnnotatedTerm(annotation, value string) *Term {
	return &Term{TokenMatch: TokenMatch{Annotation: annotation}, Value: value}
}

func NewSequence(clauses ...Pattern) *Sequence { return &Sequence{Clauses: clauses} }
func NewOr(clauses ...Pattern) *Or             { return &Or{Clauses: clauses} }
func NewAnd(clauses ...Pattern) *And           { return &And{Clauses: clauses} }

func NewRepetition(clause Pattern, min, max int) *Repetition {
	return &Repetition{Clause: clause, Min: min, Max: max}
}

func NewExpansion(clause Pattern, dir ExpandDirection, min, max int) *Expansion {
	return &Expansion{Clause: clause, Direction: dir, Min: min, Max: max}
}

func joinPatterns(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func boundString(max int) string {
	if max == fimatch.MaxUnlimited {
		return "inf"
	}
	return fmt.Sprint(max)
}
