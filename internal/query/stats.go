package query

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
	"CorpusSearch/internal/optimize"
)

// Statistics gives corpus frequencies for cost estimates.
type Statistics interface {
	// Frequency is the number of occurrences of any of terms.
	Frequency(annot int, terms *roaring.Bitmap) int64
	TotalTokens() int64
}

// Cost constants. Forward costs are the relative work of checking a clause
// with an automaton at one position.
const (
	termForwardCost      = 200
	multiTermForwardCost = termForwardCost * 3 / 2
	// unlimitedRepetitions stands in for an open repetition bound.
	unlimitedRepetitions = 50
	sequenceGrowth       = 1.2
)

// Stats estimates the costs of p for the optimizer.
func Stats(p Pattern, r *Resolver, st Statistics) (optimize.ClauseStats, error) {
	fwd, rev, err := costs(p, r, st)
	if err != nil {
		return optimize.ClauseStats{}, err
	}
	unique, err := uniqueTerms(p, r)
	if err != nil {
		return optimize.ClauseStats{}, err
	}
	return optimize.ClauseStats{
		ForwardCost:  fwd,
		ReverseCost:  rev,
		CanMakeNfa:   CanMakeNfa(p),
		MatchesEmpty: MatchesEmpty(p),
		UniqueTerms:  unique,
	}, nil
}

// costs returns the forward and reverse matching cost of p.
func costs(p Pattern, r *Resolver, st Statistics) (forward, reverse int64, err error) {
	switch v := p.(type) {
	case *Term:
		ts, _, err := r.TokenSet(v)
		if err != nil {
			return 0, 0, err
		}
		return termForwardCost, st.Frequency(ts.Annotation, ts.Terms), nil

	case *Prefix, *Wildcard, *Fuzzy:
		ts, _, err := r.TokenSet(v)
		if err != nil {
			return 0, 0, err
		}
		return multiTermForwardCost, st.Frequency(ts.Annotation, ts.Terms), nil

	case *AnyToken:
		return termForwardCost, st.TotalTokens(), nil

	case *Not:
		if _, isAny := v.Clause.(*AnyToken); isAny {
			return termForwardCost, 0, nil
		}
		fwd, rev, err := costs(v.Clause, r, st)
		if err != nil {
			return 0, 0, err
		}
		return fwd, max(0, st.TotalTokens()-rev), nil

	case *Sequence:
		if len(v.Clauses) == 0 {
			return 0, 0, nil
		}
		minRev := int64(math.MaxInt64)
		for _, c := range v.Clauses {
			fwd, rev, err := costs(c, r, st)
			if err != nil {
				return 0, 0, err
			}
			forward = satAdd(forward, fwd)
			minRev = min(minRev, rev)
		}
		return forward, scale(minRev, math.Pow(sequenceGrowth, float64(len(v.Clauses)))), nil

	case *Or:
		simple := true
		if _, ok, err := r.TokenSet(v); err != nil {
			return 0, 0, err
		} else if !ok {
			simple = false
		}
		for _, c := range v.Clauses {
			if _, isTerm := c.(*Term); !isTerm {
				simple = false
			}
			fwd, rev, err := costs(c, r, st)
			if err != nil {
				return 0, 0, err
			}
			forward = satAdd(forward, fwd)
			reverse = satAdd(reverse, rev)
		}
		if simple {
			return int64(len(v.Clauses)) * termForwardCost, reverse, nil
		}
		return satAdd(1, forward), reverse, nil

	case *And:
		reverse = math.MaxInt64
		for _, c := range v.Clauses {
			fwd, rev, err := costs(c, r, st)
			if err != nil {
				return 0, 0, err
			}
			forward = satAdd(forward, fwd)
			reverse = min(reverse, rev)
		}
		if len(v.Clauses) == 0 {
			reverse = 0
		}
		return satMul(satAdd(1, forward), 2) / 3, reverse, nil

	case *Repetition:
		fwd, rev, err := costs(v.Clause, r, st)
		if err != nil {
			return 0, 0, err
		}
		n := int64(v.Max)
		if v.Max == fimatch.MaxUnlimited {
			n = unlimitedRepetitions
		}
		return satMul(fwd, n), rev, nil

	case *Expansion:
		fwd, rev, err := costs(v.Clause, r, st)
		if err != nil {
			return 0, 0, err
		}
		hi := v.Max
		if v.Max == fimatch.MaxUnlimited {
			hi = unlimitedRepetitions
		}
		forward = fwd
		for i := v.Min; i <= hi; i++ {
			forward = satAdd(forward, int64(i))
		}
		return forward, satMul(rev, int64(max(1, hi-v.Min+1))), nil

	case *Capture:
		return costs(v.Clause, r, st)
	case *Constrained:
		return costs(v.Clause, r, st)
	}
	return 0, 0, nil
}

// uniqueTerms is the largest vocabulary a clause of p reads.
func uniqueTerms(p Pattern, r *Resolver) (int64, error) {
	var n int64
	var walk func(Pattern) error
	walk = func(p Pattern) error {
		switch v := p.(type) {
		case tokenClause:
			annot, _, err := r.annotationNumber(v.token())
			if err != nil {
				return err
			}
			n = max(n, int64(r.Accessor.NumberOfTerms(annot)))
		case *AnyToken:
			if annot, err := r.Accessor.AnnotationNumber(r.MainAnnotation); err == nil {
				n = max(n, int64(r.Accessor.NumberOfTerms(annot)))
			}
		default:
			for _, c := range children(p) {
				if err := walk(c); err != nil {
					return err
				}
			}
		}
		return nil
	}
	err := walk(p)
	return n, err
}

// children returns the direct sub-patterns of p.
func children(p Pattern) []Pattern {
	switch v := p.(type) {
	case *Not:
		return []Pattern{v.Clause}
	case *Sequence:
		return v.Clauses
	case *Or:
		return v.Clauses
	case *And:
		return v.Clauses
	case *Repetition:
		return []Pattern{v.Clause}
	case *Expansion:
		return []Pattern{v.Clause}
	case *Capture:
		return []Pattern{v.Clause}
	case *Constrained:
		return []Pattern{v.Clause}
	}
	return nil
}

func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

func scale(a int64, f float64) int64 {
	v := float64(a) * f
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
