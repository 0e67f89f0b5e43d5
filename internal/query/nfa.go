package query

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"CorpusSearch/internal/fimatch"
)

var (
	ErrCannotMakeNfa      = errors.New("query: clause cannot be matched with an automaton")
	ErrUnsupportedPattern = errors.New("query: unsupported pattern")
)

// BuildNfa compiles p into an automaton that reads tokens in direction dir.
// A backward automaton matches the same spans as the forward one, read from
// their last token.
func BuildNfa(p Pattern, r *Resolver, dir fimatch.Direction) (*fimatch.NFA, error) {
	b := fimatch.NewBuilder()
	f, err := fragment(b, p, r, dir)
	if err != nil {
		return nil, err
	}
	return b.Finish(f)
}

func fragment(b *fimatch.Builder, p Pattern, r *Resolver, dir fimatch.Direction) (*fimatch.Fragment, error) {
	switch v := p.(type) {
	case tokenClause:
		ts, _, err := r.TokenSet(v)
		if err != nil {
			return nil, err
		}
		return b.Token(ts.Annotation, ts.Terms, ts.Label), nil

	case *AnyToken:
		return b.AnyToken(), nil

	case *Not:
		if _, isAny := v.Clause.(*AnyToken); isAny {
			return b.Token(0, roaring.New(), "none"), nil
		}
		ts, ok, err := r.TokenSet(v.Clause)
		if err != nil {
			return nil, err
		}
		if ok {
			return b.NotToken(ts.Annotation, ts.Terms, ts.Label), nil
		}
		// An or over several annotations: a token that matches none of them.
		or, isOr := v.Clause.(*Or)
		if !isOr {
			return nil, fmt.Errorf("%w: not over %s", ErrUnsupportedPattern, v.Clause.Type())
		}
		frags := make([]*fimatch.Fragment, 0, len(or.Clauses))
		for _, c := range or.Clauses {
			cts, ok, err := r.TokenSet(c)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%w: not over %s", ErrUnsupportedPattern, c.Type())
			}
			frags = append(frags, b.NotToken(cts.Annotation, cts.Terms, cts.Label))
		}
		return b.And(frags...)

	case *Sequence:
		frags, err := fragments(b, v.Clauses, r, dir)
		if err != nil {
			return nil, err
		}
		if dir == fimatch.Backward {
			slices.Reverse(frags)
		}
		return b.Sequence(frags...), nil

	case *Or:
		if ts, ok, err := r.TokenSet(v); err != nil {
			return nil, err
		} else if ok {
			return b.Token(ts.Annotation, ts.Terms, ts.Label), nil
		}
		frags, err := fragments(b, v.Clauses, r, dir)
		if err != nil {
			return nil, err
		}
		return b.Alternation(frags...), nil

	case *And:
		frags, err := fragments(b, v.Clauses, r, dir)
		if err != nil {
			return nil, err
		}
		return b.And(frags...)

	case *Repetition:
		f, err := fragment(b, v.Clause, r, dir)
		if err != nil {
			return nil, err
		}
		return f.Repeat(v.Min, v.Max)

	case *Expansion:
		f, err := fragment(b, v.Clause, r, dir)
		if err != nil {
			return nil, err
		}
		run, err := b.AnyToken().Repeat(v.Min, v.Max)
		if err != nil {
			return nil, err
		}
		parts := []*fimatch.Fragment{f, run}
		if v.Direction == ExpandLeft {
			parts = []*fimatch.Fragment{run, f}
		}
		if dir == fimatch.Backward {
			slices.Reverse(parts)
		}
		return b.Sequence(parts...), nil

	case *Capture, *Constrained:
		return nil, fmt.Errorf("%w: %s", ErrCannotMakeNfa, p.Type())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedPattern, p)
}

func fragments(b *fimatch.Builder, ps []Pattern, r *Resolver, dir fimatch.Direction) ([]*fimatch.Fragment, error) {
	out := make([]*fimatch.Fragment, 0, len(ps))
	for _, c := range ps {
		f, err := fragment(b, c, r, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// CanMakeNfa reports whether BuildNfa accepts p.
func CanMakeNfa(p Pattern) bool {
	switch v := p.(type) {
	case tokenClause, *AnyToken:
		return true
	case *Not:
		switch c := v.Clause.(type) {
		case tokenClause, *AnyToken:
			return true
		case *Or:
			for _, oc := range c.Clauses {
				if _, ok := oc.(tokenClause); !ok {
					return false
				}
			}
			return len(c.Clauses) > 0
		}
		return false
	case *Sequence:
		return allNfa(v.Clauses)
	case *Or:
		return allNfa(v.Clauses)
	case *And:
		return allNfa(v.Clauses)
	case *Repetition:
		return CanMakeNfa(v.Clause)
	case *Expansion:
		return CanMakeNfa(v.Clause)
	}
	return false
}

func allNfa(ps []Pattern) bool {
	for _, c := range ps {
		if !CanMakeNfa(c) {
			return false
		}
	}
	return true
}

// MatchesEmpty reports whether p can match zero tokens.
func MatchesEmpty(p Pattern) bool {
	switch v := p.(type) {
	case *Sequence:
		for _, c := range v.Clauses {
			if !MatchesEmpty(c) {
				return false
			}
		}
		return true
	case *Or:
		for _, c := range v.Clauses {
			if MatchesEmpty(c) {
				return true
			}
		}
		return false
	case *And:
		for _, c := range v.Clauses {
			if !MatchesEmpty(c) {
				return false
			}
		}
		return len(v.Clauses) > 0
	case *Repetition:
		return v.Min == 0 || MatchesEmpty(v.Clause)
	case *Expansion:
		return v.Min == 0 && MatchesEmpty(v.Clause)
	case *Capture:
		return MatchesEmpty(v.Clause)
	case *Constrained:
		return MatchesEmpty(v.Clause)
	}
	return false
}
