package query

import (
	"errors"
	"fmt"

	"CorpusSearch/internal/automaton"
	"CorpusSearch/internal/fimatch"
)

// Pattern tree limits.
const (
	MaxClauses = 1024
	MaxDepth   = 32
)

// MaxRepetition bounds the copies a repetition expands to, multiplied
// over nested repetitions.
const MaxRepetition = 1000

// Fuzzy limits.
const (
	MaxFuzzyDistance = automaton.MaxEditDistance
)

// Expansion limits.
const (
	MaxTermsExpanded = 100_000
)

var (
	ErrInvalidPattern  = errors.New("query: invalid pattern")
	ErrTooManyClauses  = errors.New("query: too many clauses")
	ErrTooDeep         = errors.New("query: pattern nested too deeply")
	ErrTooManyTerms    = errors.New("query: clause expands to too many terms")
	ErrInvalidDistance = errors.New("query: invalid fuzzy distance")
	ErrTooManyRepeats  = errors.New("query: repetition too large")
)

// Validate checks structural limits and bounds of a pattern tree.
func Validate(p Pattern) error {
	clauses := 0
	return validate(p, 0, 1, &clauses)
}

func validate(p Pattern, depth, copies int, clauses *int) error {
	if p == nil {
		return fmt.Errorf("%w: nil clause", ErrInvalidPattern)
	}
	if depth > MaxDepth {
		return fmt.Errorf("%w: depth %d (max %d)", ErrTooDeep, depth, MaxDepth)
	}
	*clauses++
	if *clauses > MaxClauses {
		return fmt.Errorf("%w: more than %d", ErrTooManyClauses, MaxClauses)
	}

	switch v := p.(type) {
	case *Term, *Prefix, *Wildcard, *AnyToken:
		return nil
	case *Fuzzy:
		if v.MaxDistance < 0 || v.MaxDistance > MaxFuzzyDistance {
			return fmt.Errorf("%w: %d (max %d)", ErrInvalidDistance, v.MaxDistance, MaxFuzzyDistance)
		}
		return nil
	case *Not:
		return validate(v.Clause, depth+1, copies, clauses)
	case *Sequence:
		return validateAll(v.Clauses, depth, copies, clauses)
	case *Or:
		if len(v.Clauses) == 0 {
			return fmt.Errorf("%w: empty or", ErrInvalidPattern)
		}
		return validateAll(v.Clauses, depth, copies, clauses)
	case *And:
		if len(v.Clauses) == 0 {
			return fmt.Errorf("%w: empty and", ErrInvalidPattern)
		}
		return validateAll(v.Clauses, depth, copies, clauses)
	case *Repetition:
		if err := checkBounds(v.Min, v.Max); err != nil {
			return err
		}
		n, err := repeatCopies(v.Min, v.Max, copies)
		if err != nil {
			return err
		}
		return validate(v.Clause, depth+1, n, clauses)
	case *Expansion:
		if err := checkBounds(v.Min, v.Max); err != nil {
			return err
		}
		if _, err := repeatCopies(v.Min, v.Max, copies); err != nil {
			return err
		}
		return validate(v.Clause, depth+1, copies, clauses)
	case *Capture:
		if v.Name == "" {
			return fmt.Errorf("%w: capture without a name", ErrInvalidPattern)
		}
		return validate(v.Clause, depth+1, copies, clauses)
	case *Constrained:
		if v.Filter == nil {
			return fmt.Errorf("%w: constrained without a filter", ErrInvalidPattern)
		}
		return validate(v.Clause, depth+1, copies, clauses)
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedPattern, p)
}

func validateAll(ps []Pattern, depth, copies int, clauses *int) error {
	for _, c := range ps {
		if err := validate(c, depth+1, copies, clauses); err != nil {
			return err
		}
	}
	return nil
}

// repeatCopies returns outer times the number of copies {min,max}
// builds. An open bound builds min+1.
func repeatCopies(min, max, outer int) (int, error) {
	n := max
	if max == fimatch.MaxUnlimited && min < MaxRepetition {
		n = min + 1
	}
	if n > MaxRepetition || n*outer > MaxRepetition {
		return 0, fmt.Errorf("%w: {%d,%s} (max %d copies)", ErrTooManyRepeats, min, boundString(max), MaxRepetition)
	}
	if n < 1 {
		n = 1
	}
	return n * outer, nil
}

func checkBounds(min, max int) error {
	if min < 0 || max < 0 || min > max {
		return fmt.Errorf("%w: {%d,%s}", fimatch.ErrInvalidRepetition, min, boundString(max))
	}
	return nil
}
